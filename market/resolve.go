package market

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/rustyeddy/optionwatch/pricing"
)

// Resolver wraps a DataSource with the configured fallback defaults.
// Provider errors never escape a Resolver method: rate and volatility
// degrade to their defaults, spot degrades to "unavailable".
type Resolver struct {
	Source      DataSource
	DefaultRate float64
	DefaultVol  float64
	Logger      *slog.Logger
}

// Rate resolves the shared risk-free rate for a cycle. The second return
// is false when the default was substituted.
func (r *Resolver) Rate(ctx context.Context) (float64, bool) {
	rate, err := r.Source.RiskFreeRate(ctx)
	if err != nil {
		r.log().Warn("risk-free rate unavailable, using default",
			slog.Float64("default", r.DefaultRate),
			slog.String("error", err.Error()))
		return r.DefaultRate, false
	}
	return rate, true
}

// Volatility resolves the implied volatility for one position by picking
// the chain entry whose strike is closest to targetStrike. When two
// strikes are equally close the lower one wins, so the result is
// deterministic. The second return is false when the default was
// substituted.
func (r *Resolver) Volatility(ctx context.Context, symbol string, expiry time.Time, kind pricing.Kind, targetStrike float64) (float64, bool) {
	chain, err := r.Source.OptionChain(ctx, symbol, expiry, kind)
	if err != nil {
		r.log().Warn("option chain unavailable, using default volatility",
			slog.String("symbol", symbol),
			slog.Float64("default", r.DefaultVol),
			slog.String("error", err.Error()))
		return r.DefaultVol, false
	}

	best := closestStrike(chain, targetStrike)
	if best == nil || best.ImpliedVol == nil {
		r.log().Warn("no usable volatility in chain, using default",
			slog.String("symbol", symbol),
			slog.Float64("strike", targetStrike),
			slog.Float64("default", r.DefaultVol))
		return r.DefaultVol, false
	}
	return *best.ImpliedVol, true
}

// Spot resolves the underlying price. There is no numeric fallback: a
// missing spot is reported as unavailable and becomes a row failure.
func (r *Resolver) Spot(ctx context.Context, symbol string) (float64, bool) {
	price, err := r.Source.SpotPrice(ctx, symbol)
	if err != nil {
		r.log().Warn("spot price unavailable",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
		return 0, false
	}
	return price, true
}

// closestStrike picks the entry minimizing |strike - target|, breaking
// ties toward the lower strike.
func closestStrike(chain []ChainEntry, target float64) *ChainEntry {
	var best *ChainEntry
	bestDiff := math.Inf(1)
	for i := range chain {
		diff := math.Abs(chain[i].Strike - target)
		if diff < bestDiff || (diff == bestDiff && best != nil && chain[i].Strike < best.Strike) {
			best = &chain[i]
			bestDiff = diff
		}
	}
	return best
}

func (r *Resolver) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
