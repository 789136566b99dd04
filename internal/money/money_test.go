package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToLocal(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{"whole", "1200", "5.25", "6300"},
		{"agency fee example", "9804", "5.25", "51471"},
		{"half cent rounds up", "10.005", "1", "10.01"},
		{"fractional rate", "100.10", "5.4321", "543.75"},
		{"zero amount", "0", "5.25", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tc.amount)
			rate := decimal.RequireFromString(tc.rate)
			got, err := ToLocal(amount, rate)
			if err != nil {
				t.Fatalf("ToLocal: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("ToLocal(%s, %s) = %s, want %s", tc.amount, tc.rate, got, tc.want)
			}
		})
	}
}

func TestToLocal_InvalidRate(t *testing.T) {
	for _, rate := range []string{"0", "-1", "-5.25"} {
		_, err := ToLocal(decimal.NewFromInt(100), decimal.RequireFromString(rate))
		if !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("rate %s: expected ErrInvalidRate, got %v", rate, err)
		}
	}
}

func TestToLocal_RoundTripWithinOneCent(t *testing.T) {
	amounts := []string{"1200", "9804", "0.01", "33.33", "10.005", "12345.67"}
	rates := []string{"5.25", "4.9999", "1", "0.1873"}
	oneCent := decimal.RequireFromString("0.01")
	for _, a := range amounts {
		for _, r := range rates {
			amount := decimal.RequireFromString(a)
			rate := decimal.RequireFromString(r)
			local, err := ToLocal(amount, rate)
			if err != nil {
				t.Fatalf("ToLocal: %v", err)
			}
			if local.Exponent() < -2 {
				t.Fatalf("ToLocal(%s, %s) = %s has more than 2 decimals", a, r, local)
			}
			back, err := ToLocal(local.Div(rate), rate)
			if err != nil {
				t.Fatalf("ToLocal back: %v", err)
			}
			if back.Sub(local).Abs().GreaterThan(oneCent) {
				t.Fatalf("round trip drift for (%s, %s): %s vs %s", a, r, back, local)
			}
		}
	}
}
