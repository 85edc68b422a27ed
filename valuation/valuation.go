// Package valuation computes the per-position value and profit rows that
// the watch loop renders.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/optionwatch/market"
	"github.com/rustyeddy/optionwatch/positions"
	"github.com/rustyeddy/optionwatch/pricing"
)

// Row-level failure reasons. One bad row never aborts a cycle; the
// failure travels in Result.Err and renders as its own line.
var (
	ErrInvalidExpiry = errors.New("invalid date")
	ErrNoSpot        = errors.New("no data")
	ErrUnknownKind   = errors.New("unknown option type")
)

// expiryLayouts are the date formats accepted in the expiration column,
// tried in order.
var expiryLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"January 2, 2006",
}

// Spot is a resolved underlying price. OK is false when every provider
// tier came up empty, which fails the row.
type Spot struct {
	Price float64
	OK    bool
}

// Result is one valued position for one cycle. Either Err is set, or all
// numeric fields are.
type Result struct {
	Position positions.Position

	Expiry        time.Time
	Spot          float64
	Move          float64
	AppliedPrice  float64
	YearsToExpiry float64
	Vol           float64
	VolLive       bool
	ValuePerShare float64
	TotalValue    float64
	Profit        float64

	Err error
}

// Failed reports whether the row carries a terminal failure.
func (r Result) Failed() bool { return r.Err != nil }

// Engine values one position at a time. It owns no cross-cycle state:
// every input arrives per call and every output leaves in the Result.
type Engine struct {
	Resolver          *market.Resolver
	SharesPerContract int
	Now               func() time.Time
}

// NewEngine builds an engine with the conventional 100 shares per
// contract. now may be nil, selecting time.Now.
func NewEngine(resolver *market.Resolver, sharesPerContract int, now func() time.Time) *Engine {
	if sharesPerContract <= 0 {
		sharesPerContract = 100
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{Resolver: resolver, SharesPerContract: sharesPerContract, Now: now}
}

// Value prices one position against the cycle's shared risk-free rate
// and the pre-resolved spot for its ticker. Failures are returned inside
// the Result, never as an error: the caller keeps going with the next
// position regardless.
func (e *Engine) Value(ctx context.Context, pos positions.Position, rate float64, spot Spot) Result {
	res := Result{Position: pos}

	expiry, err := parseExpiry(pos.Expiration)
	if err != nil {
		res.Err = fmt.Errorf("%w: %q", ErrInvalidExpiry, pos.Expiration)
		return res
	}
	res.Expiry = expiry

	now := e.Now()
	days := expiry.Sub(now).Hours() / 24
	res.YearsToExpiry = days / 365

	if !spot.OK {
		res.Err = fmt.Errorf("%w for %s", ErrNoSpot, pos.Ticker)
		return res
	}
	res.Spot = spot.Price
	res.Move = positions.ParseMove(pos.Move)
	res.AppliedPrice = res.Spot + res.Move

	kind, err := pricing.ParseKind(pos.Kind)
	if err != nil {
		res.Err = fmt.Errorf("%w %q", ErrUnknownKind, pos.Kind)
		return res
	}

	res.Vol, res.VolLive = e.Resolver.Volatility(ctx, pos.Ticker, expiry, kind, pos.Strike)

	perShare, err := pricing.Value(kind, res.AppliedPrice, pos.Strike, rate, res.Vol, res.YearsToExpiry)
	if err != nil {
		res.Err = err
		return res
	}

	shares := float64(e.SharesPerContract) * float64(pos.Contracts)
	res.ValuePerShare = perShare
	res.TotalValue = perShare * shares
	res.Profit = res.TotalValue - pos.PurchasePrice*shares
	return res
}

func parseExpiry(s string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable expiration %q", s)
}
