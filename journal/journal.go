// Package journal records market-data telemetry for the watch loop: one
// record per cycle (rate resolution) and one per ticker quote. Valuation
// results are deliberately not persisted; the journal exists to make
// provider degradation visible after the fact.
package journal

import "time"

// CycleRecord summarizes one refresh cycle's shared inputs.
type CycleRecord struct {
	CycleID   string
	Time      time.Time
	Rate      float64
	RateLive  bool // false when the configured default was substituted
	Positions int
	Failures  int
	Elapsed   time.Duration
}

// QuoteRecord is one ticker's resolved market data within a cycle.
// Records are keyed by ticker, not by position: when several positions
// share a ticker, Vol and VolLive come from the first position in file
// order. The journal tracks provider health, not per-contract inputs.
type QuoteRecord struct {
	CycleID string
	Ticker  string
	Time    time.Time
	Spot    float64
	SpotOK  bool // false when every provider tier came up empty
	Vol     float64
	VolLive bool // false when the configured default was substituted
}

type Journal interface {
	RecordCycle(CycleRecord) error
	RecordQuote(QuoteRecord) error
	Close() error
}

// Nop discards every record. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordCycle(CycleRecord) error { return nil }
func (Nop) RecordQuote(QuoteRecord) error { return nil }
func (Nop) Close() error                  { return nil }
