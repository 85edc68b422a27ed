// Package render draws the valuation table for one refresh cycle.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rustyeddy/optionwatch/watch"
)

// ansiHome clears the terminal and parks the cursor at the top-left,
// standing in for the curses full-screen redraw.
const ansiHome = "\033[H\033[2J"

// Table writes one cycle per Render call as an aligned text table.
type Table struct {
	Out io.Writer

	// ClearScreen redraws in place for live terminal use. Leave false
	// when writing to a pipe or a log.
	ClearScreen bool
}

// Render draws the cycle header, the column header and one line per
// row. Failure rows render their reason in place of the numbers.
func (t *Table) Render(c watch.Cycle) error {
	if t.ClearScreen {
		if _, err := io.WriteString(t.Out, ansiHome); err != nil {
			return err
		}
	}

	rateTag := ""
	if !c.RateLive {
		rateTag = " (fallback)"
	}

	header := fmt.Sprintf(
		"=== Option Valuation Stream ===\nLast refresh: %s\nRisk-free rate: %.2f%%%s\nRefreshing every %s (Ctrl+C to quit)\n\n",
		c.Time.Format("2006-01-02 15:04:05"),
		c.Rate*100, rateTag,
		c.Interval,
	)
	if _, err := io.WriteString(t.Out, header); err != nil {
		return err
	}

	w := tabwriter.NewWriter(t.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tTYPE\tEXPIRATION\tSTRIKE\tCUR_PRICE\tMOVE\tAPPLIED\tT_YEARS\tVAL/SH\tCONTRACTS\tTOTAL_VAL\tPROFIT")

	for _, row := range c.Rows {
		if row.Failed() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				row.Position.Ticker, row.Position.Kind, row.Position.Expiration, row.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%+.2f\t%.2f\t%.3f\t%.2f\t%d\t%.2f\t%.2f\n",
			row.Position.Ticker,
			row.Position.Kind,
			row.Expiry.Format("02-Jan-2006"),
			row.Position.Strike,
			row.Spot,
			row.Move,
			row.AppliedPrice,
			row.YearsToExpiry,
			row.ValuePerShare,
			row.Position.Contracts,
			row.TotalValue,
			row.Profit,
		)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(t.Out, "\n")
	return err
}
