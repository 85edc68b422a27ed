package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	cycles *csv.Writer
	quotes *csv.Writer
	cf, qf *os.File
}

func NewCSV(cyclesPath, quotesPath string) (*CSV, error) {
	cf, err := os.Create(cyclesPath)
	if err != nil {
		return nil, err
	}
	qf, err := os.Create(quotesPath)
	if err != nil {
		cf.Close()
		return nil, err
	}

	cw := csv.NewWriter(cf)
	qw := csv.NewWriter(qf)

	if err := cw.Write([]string{"cycle_id", "time", "rate", "rate_live", "positions", "failures", "elapsed_ms"}); err != nil {
		return nil, err
	}
	if err := qw.Write([]string{"cycle_id", "ticker", "time", "spot", "spot_ok", "vol", "vol_live"}); err != nil {
		return nil, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	qw.Flush()
	if err := qw.Error(); err != nil {
		return nil, err
	}

	return &CSV{cw, qw, cf, qf}, nil
}

func (j *CSV) RecordCycle(c CycleRecord) error {
	err := j.cycles.Write([]string{
		c.CycleID,
		c.Time.Format(time.RFC3339),
		f(c.Rate),
		strconv.FormatBool(c.RateLive),
		strconv.Itoa(c.Positions),
		strconv.Itoa(c.Failures),
		strconv.FormatInt(c.Elapsed.Milliseconds(), 10),
	})
	if err != nil {
		return err
	}
	j.cycles.Flush()
	return j.cycles.Error()
}

func (j *CSV) RecordQuote(q QuoteRecord) error {
	err := j.quotes.Write([]string{
		q.CycleID,
		q.Ticker,
		q.Time.Format(time.RFC3339),
		f(q.Spot),
		strconv.FormatBool(q.SpotOK),
		f(q.Vol),
		strconv.FormatBool(q.VolLive),
	})
	if err != nil {
		return err
	}
	j.quotes.Flush()
	return j.quotes.Error()
}

func (j *CSV) Close() error {
	j.cycles.Flush()
	if err := j.cycles.Error(); err != nil {
		return err
	}
	j.quotes.Flush()
	if err := j.quotes.Error(); err != nil {
		return err
	}

	if err := j.cf.Close(); err != nil {
		return err
	}
	return j.qf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
