// Package watch runs the refresh loop: load positions, resolve market
// inputs, value every position, render, sleep, repeat until cancelled.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/optionwatch/internal/id"
	"github.com/rustyeddy/optionwatch/journal"
	"github.com/rustyeddy/optionwatch/market"
	"github.com/rustyeddy/optionwatch/positions"
	"github.com/rustyeddy/optionwatch/valuation"
)

const (
	defaultInterval   = 15 * time.Second
	defaultFetchLimit = 4
)

// State is the loop's current phase. Cancelled is terminal.
type State int32

const (
	Idle State = iota
	Fetching
	Rendering
	Sleeping
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Rendering:
		return "rendering"
	case Sleeping:
		return "sleeping"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Cycle is one complete refresh: the shared inputs and the ordered row
// set handed to the renderer. Rows always follow the position file's
// order, regardless of fetch completion order.
type Cycle struct {
	ID       string
	Time     time.Time
	Rate     float64
	RateLive bool
	Interval time.Duration
	Rows     []valuation.Result
}

// Failures counts the rows that carry a terminal failure.
func (c Cycle) Failures() int {
	n := 0
	for _, r := range c.Rows {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Renderer draws one cycle. A renderer error is logged and the loop
// keeps going; only cancellation or a position-source failure stops it.
type Renderer interface {
	Render(Cycle) error
}

// Loop orchestrates the valuation cycles. All fields are set before Run
// and never mutated afterwards; per-cycle values are local to each pass.
type Loop struct {
	Source   positions.Source
	Resolver *market.Resolver
	Engine   *valuation.Engine
	Renderer Renderer
	Journal  journal.Journal

	// Interval is measured from the end of one cycle to the start of
	// the next, so a slow provider stretches the wall-clock period
	// instead of overlapping cycles. Zero selects 15 seconds.
	Interval time.Duration

	// FetchLimit bounds concurrent spot fetches. Zero selects 4.
	FetchLimit int

	Logger *slog.Logger

	state atomic.Int32
}

// State reports the loop's current phase.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// Run cycles until ctx is cancelled or the position source fails.
// Cancellation is checked at the top of every cycle and during the
// sleep, and returns ctx.Err(). The first cycle runs immediately; the
// interval only separates cycles.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	jnl := l.Journal
	if jnl == nil {
		jnl = journal.Nop{}
	}

	timer := time.NewTimer(interval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			l.setState(Cancelled)
			return err
		}

		l.setState(Fetching)
		cycle, spots, err := l.runCycle(ctx, interval)
		if err != nil {
			l.setState(Cancelled)
			return err
		}

		l.setState(Rendering)
		if err := l.Renderer.Render(cycle); err != nil {
			l.log().Warn("render failed",
				slog.String("cycle", cycle.ID),
				slog.String("error", err.Error()))
		}
		l.journalCycle(jnl, cycle, spots)

		l.setState(Sleeping)
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			l.setState(Cancelled)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runCycle performs the Fetching phase: positions, shared rate, spots,
// then a valuation per position in file order.
func (l *Loop) runCycle(ctx context.Context, interval time.Duration) (Cycle, map[string]valuation.Spot, error) {
	start := time.Now()

	poss, err := l.Source.Load()
	if err != nil {
		return Cycle{}, nil, fmt.Errorf("load positions: %w", err)
	}

	// The rate is resolved once and shared read-only by every valuation
	// in the cycle.
	rate, rateLive := l.Resolver.Rate(ctx)
	spots := l.fetchSpots(ctx, distinctTickers(poss))

	rows := make([]valuation.Result, len(poss))
	for i, pos := range poss {
		rows[i] = l.Engine.Value(ctx, pos, rate, spots[pos.Ticker])
	}

	cycle := Cycle{
		ID:       id.New(),
		Time:     start,
		Rate:     rate,
		RateLive: rateLive,
		Interval: interval,
		Rows:     rows,
	}

	l.log().Info("cycle complete",
		slog.String("cycle", cycle.ID),
		slog.Int("positions", len(rows)),
		slog.Int("failures", cycle.Failures()),
		slog.Duration("elapsed", time.Since(start)))

	return cycle, spots, nil
}

// fetchSpots resolves spot prices for distinct tickers concurrently,
// bounded by FetchLimit. The map is fully built before valuation reads
// it, so no synchronization is needed afterwards.
func (l *Loop) fetchSpots(ctx context.Context, tickers []string) map[string]valuation.Spot {
	limit := l.FetchLimit
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	out := make(map[string]valuation.Spot, len(tickers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			price, ok := l.Resolver.Spot(gctx, ticker)
			mu.Lock()
			out[ticker] = valuation.Spot{Price: price, OK: ok}
			mu.Unlock()
			return nil
		})
	}
	// Resolvers never return errors, only unavailability.
	_ = g.Wait()
	return out
}

// journalCycle records the cycle summary plus one quote per distinct
// ticker. Vol is per position (strike and expiry feed the chain
// lookup), so the ticker-keyed quote carries the first position's vol.
func (l *Loop) journalCycle(jnl journal.Journal, cycle Cycle, spots map[string]valuation.Spot) {
	if err := jnl.RecordCycle(journal.CycleRecord{
		CycleID:   cycle.ID,
		Time:      cycle.Time,
		Rate:      cycle.Rate,
		RateLive:  cycle.RateLive,
		Positions: len(cycle.Rows),
		Failures:  cycle.Failures(),
		Elapsed:   time.Since(cycle.Time),
	}); err != nil {
		l.log().Warn("journal cycle failed", slog.String("error", err.Error()))
	}

	seen := make(map[string]bool, len(cycle.Rows))
	for _, row := range cycle.Rows {
		ticker := row.Position.Ticker
		if seen[ticker] {
			continue
		}
		seen[ticker] = true

		spot := spots[ticker]
		if err := jnl.RecordQuote(journal.QuoteRecord{
			CycleID: cycle.ID,
			Ticker:  ticker,
			Time:    cycle.Time,
			Spot:    spot.Price,
			SpotOK:  spot.OK,
			Vol:     row.Vol,
			VolLive: row.VolLive,
		}); err != nil {
			l.log().Warn("journal quote failed",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()))
		}
	}
}

// distinctTickers preserves first-seen order so fetches and journal rows
// stay stable across cycles.
func distinctTickers(poss []positions.Position) []string {
	seen := make(map[string]bool, len(poss))
	var out []string
	for _, p := range poss {
		if !seen[p.Ticker] {
			seen[p.Ticker] = true
			out = append(out, p.Ticker)
		}
	}
	return out
}

func (l *Loop) log() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
