package pricing

import "math"

// TickToPrice returns the price at a discretized tick coordinate. Display
// only; never used on the stored price path.
func TickToPrice(tick int32) float64 {
	return math.Pow(1.0001, float64(tick))
}

// PriceToTick returns the highest tick whose price does not exceed price.
func PriceToTick(price float64) int32 {
	return int32(math.Floor(math.Log(price) / math.Log(1.0001)))
}
