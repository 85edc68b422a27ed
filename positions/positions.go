// Package positions loads option positions from a CSV file.
//
// Each record has exactly 7 fields:
//
//	ticker,expiration,option_type,strike,move,purchase_price,contracts
//
// Blank lines, lines starting with '#', short rows and rows with
// unparseable numeric fields are skipped silently: a malformed record is
// an input error, not a valuation failure.
package positions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Position is one option holding. Expiration, Kind and Move stay raw:
// validating them is a per-row valuation concern, so a bad date or type
// still shows up as a failure row instead of vanishing at load time.
type Position struct {
	Ticker        string
	Expiration    string
	Kind          string
	Strike        float64
	Move          string
	PurchasePrice float64
	Contracts     int
}

// Source yields the current position list. The watch loop reloads it
// every cycle, so edits to the file show up on the next refresh.
type Source interface {
	Load() ([]Position, error)
}

// FileSource reads positions from a CSV file on every Load.
type FileSource struct {
	Path string
}

func (s *FileSource) Load() ([]Position, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open positions file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads position records from r, skipping malformed rows.
func Parse(r io.Reader) ([]Position, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Position
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Quoting errors and the like: drop the row, keep reading.
			continue
		}
		if err != nil {
			// An underlying read failure repeats forever; bail out like
			// a failed open would.
			return nil, fmt.Errorf("read positions: %w", err)
		}
		if p, ok := parseRow(row); ok {
			out = append(out, p)
		}
	}
}

func parseRow(row []string) (Position, bool) {
	if len(row) == 0 {
		return Position{}, false
	}
	first := strings.TrimSpace(row[0])
	if first == "" || strings.HasPrefix(first, "#") {
		return Position{}, false
	}
	if len(row) < 7 {
		return Position{}, false
	}

	strike, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil || strike <= 0 {
		return Position{}, false
	}
	purchase, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
	if err != nil {
		return Position{}, false
	}
	contracts, err := strconv.Atoi(strings.TrimSpace(row[6]))
	if err != nil || contracts <= 0 {
		return Position{}, false
	}

	return Position{
		Ticker:        first,
		Expiration:    strings.TrimSpace(row[1]),
		Kind:          strings.TrimSpace(row[2]),
		Strike:        strike,
		Move:          strings.TrimSpace(row[4]),
		PurchasePrice: purchase,
		Contracts:     contracts,
	}, true
}

// ParseMove interprets the simulated price move column. An explicit '+'
// sign is allowed; anything unparseable means no move.
func ParseMove(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "+"), 64)
	if err != nil {
		return 0
	}
	return v
}
