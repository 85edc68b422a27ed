// Package market defines the market-data provider boundary and the
// resolvers that sit in front of it.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/optionwatch/pricing"
)

// ErrNoData reports that the provider answered but had nothing for the
// request (unknown symbol, unlisted expiration, empty chain).
var ErrNoData = errors.New("no data")

// ChainEntry is one contract in an option chain. ImpliedVol is nil when
// the provider omits the field.
type ChainEntry struct {
	Strike     float64
	ImpliedVol *float64
}

// DataSource supplies live market inputs. Implementations may fail or
// return ErrNoData; callers go through a Resolver, which converts both
// into fallbacks or explicit unavailability.
type DataSource interface {
	// RiskFreeRate returns the current short-term risk-free rate as a
	// decimal fraction (0.05 == 5%).
	RiskFreeRate(ctx context.Context) (float64, error)

	// SpotPrice returns the current price of the underlying.
	SpotPrice(ctx context.Context, symbol string) (float64, error)

	// OptionChain returns the traded contracts of one side of the chain
	// for the given expiration.
	OptionChain(ctx context.Context, symbol string, expiry time.Time, kind pricing.Kind) ([]ChainEntry, error)
}
