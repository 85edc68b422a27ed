package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordCycle(c CycleRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO cycles
		(cycle_id, time, rate, rate_live, positions, failures, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.CycleID, c.Time, c.Rate, c.RateLive, c.Positions, c.Failures,
		c.Elapsed.Milliseconds(),
	)
	return err
}

func (j *SQLite) RecordQuote(q QuoteRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO quotes
		(cycle_id, ticker, time, spot, spot_ok, vol, vol_live)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.CycleID, q.Ticker, q.Time, q.Spot, q.SpotOK, q.Vol, q.VolLive,
	)
	return err
}

// ListCyclesBetween returns cycles whose time is within [start, end).
func (j *SQLite) ListCyclesBetween(start, end time.Time) ([]CycleRecord, error) {
	rows, err := j.db.Query(`
		SELECT cycle_id, time, rate, rate_live, positions, failures, elapsed_ms
		FROM cycles
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var elapsedMS int64
		if err := rows.Scan(
			&rec.CycleID, &rec.Time, &rec.Rate, &rec.RateLive,
			&rec.Positions, &rec.Failures, &elapsedMS,
		); err != nil {
			return nil, err
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListQuotesByCycle returns the quotes recorded for one cycle.
func (j *SQLite) ListQuotesByCycle(cycleID string) ([]QuoteRecord, error) {
	rows, err := j.db.Query(`
		SELECT cycle_id, ticker, time, spot, spot_ok, vol, vol_live
		FROM quotes
		WHERE cycle_id = ?
		ORDER BY ticker ASC`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QuoteRecord
	for rows.Next() {
		var rec QuoteRecord
		if err := rows.Scan(
			&rec.CycleID, &rec.Ticker, &rec.Time, &rec.Spot,
			&rec.SpotOK, &rec.Vol, &rec.VolLive,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
