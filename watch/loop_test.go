package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optionwatch/journal"
	"github.com/rustyeddy/optionwatch/market"
	"github.com/rustyeddy/optionwatch/positions"
	"github.com/rustyeddy/optionwatch/pricing"
	"github.com/rustyeddy/optionwatch/valuation"
)

// staticSource serves a fixed position list, or a fixed error.
type staticSource struct {
	poss []positions.Position
	err  error
}

func (s *staticSource) Load() ([]positions.Position, error) {
	return s.poss, s.err
}

// mapSource serves spots per ticker; anything absent is unavailable.
// A non-nil chain is served for every OptionChain call.
type mapSource struct {
	spots map[string]float64
	chain []market.ChainEntry
}

func (m *mapSource) RiskFreeRate(ctx context.Context) (float64, error) {
	return 0.05, nil
}

func (m *mapSource) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	p, ok := m.spots[symbol]
	if !ok {
		return 0, market.ErrNoData
	}
	return p, nil
}

func (m *mapSource) OptionChain(ctx context.Context, symbol string, expiry time.Time, kind pricing.Kind) ([]market.ChainEntry, error) {
	if m.chain == nil {
		return nil, market.ErrNoData
	}
	return m.chain, nil
}

// recordingRenderer collects cycles and signals each render.
type recordingRenderer struct {
	mu       sync.Mutex
	cycles   []Cycle
	rendered chan struct{}
	err      error
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{rendered: make(chan struct{}, 16)}
}

func (r *recordingRenderer) Render(c Cycle) error {
	r.mu.Lock()
	r.cycles = append(r.cycles, c)
	r.mu.Unlock()
	r.rendered <- struct{}{}
	return r.err
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cycles)
}

func (r *recordingRenderer) last() Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles[len(r.cycles)-1]
}

func testLoop(src positions.Source, renderer Renderer, spots map[string]float64) *Loop {
	resolver := &market.Resolver{
		Source:      &mapSource{spots: spots},
		DefaultRate: 0.05,
		DefaultVol:  0.25,
	}
	now := func() time.Time {
		return time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	}
	return &Loop{
		Source:   src,
		Resolver: resolver,
		Engine:   valuation.NewEngine(resolver, 100, now),
		Renderer: renderer,
		Interval: time.Hour, // tests cancel during the sleep
	}
}

func pos(ticker string) positions.Position {
	return positions.Position{
		Ticker: ticker, Expiration: "2026-09-18", Kind: "call",
		Strike: 100, Move: "0", PurchasePrice: 5, Contracts: 1,
	}
}

func TestRunOneCycle(t *testing.T) {
	t.Parallel()

	src := &staticSource{poss: []positions.Position{
		pos("ABC"), pos("XYZ"), pos("ABC"),
	}}
	renderer := newRecordingRenderer()
	// XYZ has no price: its row fails, the others do not.
	loop := testLoop(src, renderer, map[string]float64{"ABC": 105})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	<-renderer.rendered
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, loop.State())

	require.Equal(t, 1, renderer.count())
	cycle := renderer.last()
	require.Len(t, cycle.Rows, 3)

	// Row order matches the position list, not fetch completion.
	assert.Equal(t, "ABC", cycle.Rows[0].Position.Ticker)
	assert.Equal(t, "XYZ", cycle.Rows[1].Position.Ticker)
	assert.Equal(t, "ABC", cycle.Rows[2].Position.Ticker)

	assert.False(t, cycle.Rows[0].Failed())
	assert.True(t, cycle.Rows[1].Failed())
	assert.ErrorIs(t, cycle.Rows[1].Err, valuation.ErrNoSpot)
	assert.False(t, cycle.Rows[2].Failed())

	assert.Equal(t, 1, cycle.Failures())
	assert.True(t, cycle.RateLive)
	assert.Equal(t, 0.05, cycle.Rate)
	assert.NotEmpty(t, cycle.ID)
}

func TestRunCancelDuringSleepStopsBeforeNextFetch(t *testing.T) {
	t.Parallel()

	src := &staticSource{poss: []positions.Position{pos("ABC")}}
	renderer := newRecordingRenderer()
	loop := testLoop(src, renderer, map[string]float64{"ABC": 105})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	<-renderer.rendered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// No further renders after cancellation.
	assert.Equal(t, 1, renderer.count())
	select {
	case <-renderer.rendered:
		t.Fatal("renderer called after cancellation")
	default:
	}
}

func TestRunRendererErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	src := &staticSource{poss: []positions.Position{pos("ABC")}}
	renderer := newRecordingRenderer()
	renderer.err = errors.New("terminal too small")

	loop := testLoop(src, renderer, map[string]float64{"ABC": 105})
	loop.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	// Two renders prove the loop survived the first render error.
	<-renderer.rendered
	<-renderer.rendered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.GreaterOrEqual(t, renderer.count(), 2)
}

func TestRunSourceFailureIsFatal(t *testing.T) {
	t.Parallel()

	src := &staticSource{err: errors.New("positions.csv: permission denied")}
	renderer := newRecordingRenderer()
	loop := testLoop(src, renderer, nil)

	err := loop.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load positions")
	assert.Equal(t, 0, renderer.count())
}

// recordingJournal collects records and signals each quote.
type recordingJournal struct {
	mu     sync.Mutex
	cycles []journal.CycleRecord
	quotes []journal.QuoteRecord
	quoted chan struct{}
}

func newRecordingJournal() *recordingJournal {
	return &recordingJournal{quoted: make(chan struct{}, 16)}
}

func (j *recordingJournal) RecordCycle(c journal.CycleRecord) error {
	j.mu.Lock()
	j.cycles = append(j.cycles, c)
	j.mu.Unlock()
	return nil
}

func (j *recordingJournal) RecordQuote(q journal.QuoteRecord) error {
	j.mu.Lock()
	j.quotes = append(j.quotes, q)
	j.mu.Unlock()
	j.quoted <- struct{}{}
	return nil
}

func (j *recordingJournal) Close() error { return nil }

func TestJournalQuotesFirstPositionPerTicker(t *testing.T) {
	t.Parallel()

	vol100, vol110 := 0.30, 0.40
	near := pos("ABC")
	far := pos("ABC")
	far.Strike = 110

	src := &staticSource{poss: []positions.Position{near, far, pos("XYZ")}}
	resolver := &market.Resolver{
		Source: &mapSource{
			spots: map[string]float64{"ABC": 105},
			chain: []market.ChainEntry{
				{Strike: 100, ImpliedVol: &vol100},
				{Strike: 110, ImpliedVol: &vol110},
			},
		},
		DefaultRate: 0.05,
		DefaultVol:  0.25,
	}
	now := func() time.Time {
		return time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	}
	jnl := newRecordingJournal()
	loop := &Loop{
		Source:   src,
		Resolver: resolver,
		Engine:   valuation.NewEngine(resolver, 100, now),
		Renderer: newRecordingRenderer(),
		Journal:  jnl,
		Interval: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	// One quote per distinct ticker.
	<-jnl.quoted
	<-jnl.quoted
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.Len(t, jnl.cycles, 1)
	assert.Equal(t, 3, jnl.cycles[0].Positions)
	assert.Equal(t, 1, jnl.cycles[0].Failures)
	assert.True(t, jnl.cycles[0].RateLive)

	require.Len(t, jnl.quotes, 2)

	// ABC holds two strikes; the quote carries the first position's vol.
	abc := jnl.quotes[0]
	assert.Equal(t, "ABC", abc.Ticker)
	assert.True(t, abc.SpotOK)
	assert.Equal(t, 105.0, abc.Spot)
	assert.Equal(t, vol100, abc.Vol)
	assert.True(t, abc.VolLive)

	xyz := jnl.quotes[1]
	assert.Equal(t, "XYZ", xyz.Ticker)
	assert.False(t, xyz.SpotOK)
}

func TestDistinctTickers(t *testing.T) {
	t.Parallel()

	got := distinctTickers([]positions.Position{
		pos("ABC"), pos("XYZ"), pos("ABC"), pos("DEF"), pos("XYZ"),
	})
	assert.Equal(t, []string{"ABC", "XYZ", "DEF"}, got)
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching", Fetching.String())
	assert.Equal(t, "rendering", Rendering.String())
	assert.Equal(t, "sleeping", Sleeping.String())
	assert.Equal(t, "cancelled", Cancelled.String())
}
