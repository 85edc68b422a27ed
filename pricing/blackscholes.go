// Package pricing implements the closed-form Black-Scholes model for
// European calls and puts.
package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the option side being priced.
type Kind string

const (
	Call Kind = "call"
	Put  Kind = "put"
)

// ParseKind normalizes a raw option-type string. It accepts "call" and
// "put" in any case and rejects everything else.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Call:
		return Call, nil
	case Put:
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// Value returns the Black-Scholes value per share of a European option.
//
// yearsToExpiry <= 0 is not an error: the option is expired (or expiring
// now) and the intrinsic value is returned exactly, ignoring rate and vol.
// For a live option the usual closed form applies:
//
//	d1 = (ln(S/K) + (r + sigma^2/2)T) / (sigma sqrt(T))
//	d2 = d1 - sigma sqrt(T)
//
// spot, strike and vol must be positive on the live path since the
// logarithm and division are undefined otherwise.
func Value(kind Kind, spot, strike, rate, vol, yearsToExpiry float64) (float64, error) {
	if kind != Call && kind != Put {
		return 0, fmt.Errorf("unknown option type %q", kind)
	}
	if strike <= 0 {
		return 0, fmt.Errorf("strike must be positive, got %v", strike)
	}

	if yearsToExpiry <= 0 {
		return intrinsic(kind, spot, strike), nil
	}

	if spot <= 0 {
		return 0, fmt.Errorf("spot must be positive, got %v", spot)
	}
	if vol <= 0 {
		return 0, fmt.Errorf("volatility must be positive, got %v", vol)
	}

	sqrtT := math.Sqrt(yearsToExpiry)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*yearsToExpiry) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	discount := math.Exp(-rate * yearsToExpiry)

	if kind == Call {
		return spot*normCDF(d1) - strike*discount*normCDF(d2), nil
	}
	return strike*discount*normCDF(-d2) - spot*normCDF(-d1), nil
}

func intrinsic(kind Kind, spot, strike float64) float64 {
	if kind == Call {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
