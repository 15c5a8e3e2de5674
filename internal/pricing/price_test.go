package pricing

import (
	"math/big"
	"testing"
)

func q96() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 96)
}

func TestPriceFromSqrtRatioUnit(t *testing.T) {
	// sqrtPriceX96 = 2^96 encodes price 1 when both tokens share decimals.
	got := PriceFromSqrtRatio(q96(), 18, 18)
	want := "1.000000000000000000"
	if got != want {
		t.Fatalf("price mismatch: got %s want %s", got, want)
	}
}

func TestPriceFromSqrtRatioDecimalAdjustment(t *testing.T) {
	got := PriceFromSqrtRatio(q96(), 18, 6)
	want := "1000000000000.000000000000000000"
	if got != want {
		t.Fatalf("price mismatch: got %s want %s", got, want)
	}

	got = PriceFromSqrtRatio(q96(), 6, 18)
	want = "0.000000000001000000"
	if got != want {
		t.Fatalf("price mismatch: got %s want %s", got, want)
	}
}

func TestPriceFromSqrtRatioZero(t *testing.T) {
	if got := PriceFromSqrtRatio(big.NewInt(0), 18, 18); got != "0" {
		t.Fatalf("zero input: got %s", got)
	}
	if got := PriceFromSqrtRatio(nil, 18, 18); got != "0" {
		t.Fatalf("nil input: got %s", got)
	}
}

func TestPriceFromSqrtRatioMaxWidth(t *testing.T) {
	// 160-bit input must not overflow or panic.
	max160 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))
	got := PriceFromSqrtRatio(max160, 18, 18)
	if got == "0" || got == "" {
		t.Fatalf("expected a large price, got %q", got)
	}
}

func TestPriceFromSqrtRatioHalf(t *testing.T) {
	// sqrt(0.25) = 0.5 -> sqrtPriceX96 = 2^95.
	half := new(big.Int).Lsh(big.NewInt(1), 95)
	got := PriceFromSqrtRatio(half, 18, 18)
	want := "0.250000000000000000"
	if got != want {
		t.Fatalf("price mismatch: got %s want %s", got, want)
	}
}

func TestAbsString(t *testing.T) {
	if got := AbsString("-42"); got != "42" {
		t.Fatalf("got %s", got)
	}
	if got := AbsString("42"); got != "42" {
		t.Fatalf("got %s", got)
	}
}

func TestCompareDecimal(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.000000000000000000", "1.000000000000000000", 0},
		{"2.000000000000000000", "1.999999999999999999", 1},
		{"0.000000000000000001", "0.000000000000000002", -1},
		{"105.000000000000000000", "98.000000000000000000", 1},
	}
	for _, tc := range cases {
		if got := CompareDecimal(tc.a, tc.b); got != tc.want {
			t.Fatalf("CompareDecimal(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPercentChange(t *testing.T) {
	got, err := PercentChange("100.000000000000000000", "102.000000000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2.0000" {
		t.Fatalf("got %s", got)
	}

	if _, err := PercentChange("0", "1.0"); err == nil {
		t.Fatalf("expected error for zero base")
	}
}

func TestAddBigStrings(t *testing.T) {
	got, err := AddBigStrings("340282366920938463463374607431768211455", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "340282366920938463463374607431768211456" {
		t.Fatalf("got %s", got)
	}

	if _, err := AddBigStrings("x", "1"); err == nil {
		t.Fatalf("expected error for invalid input")
	}
}
