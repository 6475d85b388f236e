package broker

import (
	"math"
	"testing"
)

func TestAccountUsableCash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		acct     Account
		reserve  float64
		expected float64
	}{
		{"margin 4x", Account{BuyingPower: 200000, Multiplier: 4}, 25001, 24999},
		{"cash account", Account{BuyingPower: 30000, Multiplier: 1}, 0, 30000},
		{"below reserve", Account{BuyingPower: 20000, Multiplier: 1}, 25001, 0},
		{"zero multiplier", Account{BuyingPower: 30000}, 1000, 29000},
	}

	const tol = 1e-9

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.acct.UsableCash(tt.reserve)
			if math.Abs(got-tt.expected) > tol {
				t.Fatalf("UsableCash() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
