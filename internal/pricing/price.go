package pricing

import (
	"fmt"
	"math/big"
	"strings"
)

// fractionalDigits is the fixed number of digits rendered after the decimal
// point. Prices are compared and stored as strings, so the width must never
// change once data exists.
const fractionalDigits = 18

var (
	q192      = new(big.Int).Lsh(big.NewInt(1), 192)
	precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(fractionalDigits), nil)
)

// PriceFromSqrtRatio converts a Q64.96 square-root price into a decimal price
// string with 18 fractional digits, adjusted for the decimal difference
// between the two tokens. The math is pure big-int; no floating point touches
// this path. A nil or zero input yields "0".
//
// price = sqrtPriceX96^2 * 10^18 * 10^(decimals0-decimals1) / 2^192
func PriceFromSqrtRatio(sqrtPriceX96 *big.Int, decimals0, decimals1 int) string {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return "0"
	}

	num := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	num.Mul(num, precision)

	var adjusted *big.Int
	diff := decimals0 - decimals1
	if diff >= 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(diff)), nil)
		num.Mul(num, scale)
		adjusted = num.Quo(num, q192)
	} else {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-diff)), nil)
		denom := new(big.Int).Mul(q192, scale)
		adjusted = num.Quo(num, denom)
	}

	whole := new(big.Int).Quo(adjusted, precision)
	frac := new(big.Int).Mod(adjusted, precision)
	return fmt.Sprintf("%s.%0*s", whole.String(), fractionalDigits, frac.String())
}

// AbsString strips a leading minus sign from a big-int decimal string.
func AbsString(value string) string {
	return strings.TrimPrefix(value, "-")
}

// ParseDecimal parses a fixed-point decimal string into an exact rational.
func ParseDecimal(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid decimal: %q", s)
	}
	return r, nil
}

// CompareDecimal numerically compares two fixed-point decimal strings,
// returning -1, 0 or 1. Malformed input sorts as zero.
func CompareDecimal(a, b string) int {
	ra, errA := ParseDecimal(a)
	rb, errB := ParseDecimal(b)
	if errA != nil {
		ra = new(big.Rat)
	}
	if errB != nil {
		rb = new(big.Rat)
	}
	return ra.Cmp(rb)
}

// PercentChange returns (current-previous)/previous*100 rendered with four
// fractional digits. The previous value must be non-zero.
func PercentChange(previous, current string) (string, error) {
	prev, err := ParseDecimal(previous)
	if err != nil {
		return "", err
	}
	cur, err := ParseDecimal(current)
	if err != nil {
		return "", err
	}
	if prev.Sign() == 0 {
		return "", fmt.Errorf("previous price is zero")
	}

	change := new(big.Rat).Sub(cur, prev)
	change.Quo(change, prev)
	change.Mul(change, big.NewRat(100, 1))
	return change.FloatString(4), nil
}

// AddBigStrings sums two big-int decimal strings.
func AddBigStrings(a, b string) (string, error) {
	x, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", fmt.Errorf("invalid integer: %q", a)
	}
	y, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return "", fmt.Errorf("invalid integer: %q", b)
	}
	return new(big.Int).Add(x, y).String(), nil
}
