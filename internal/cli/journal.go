package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optionwatch/journal"
)

// newJournalCmd exposes the telemetry journal: which cycles ran, and
// what the provider actually answered for each ticker.
func newJournalCmd(rc *RootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded market-data telemetry",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "./optionwatch.sqlite", "SQLite telemetry database")

	cyclesCmd := &cobra.Command{
		Use:   "cycles [YYYY-MM-DD]",
		Short: "List refresh cycles for a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().Format("2006-01-02")
			if len(args) == 1 {
				day = args[0]
			}
			start, end, err := dayBounds(time.Local, day)
			if err != nil {
				return err
			}

			j, err := journal.NewSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			recs, err := j.ListCyclesBetween(start, end)
			if err != nil {
				return fmt.Errorf("query cycles: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CYCLE\tTIME\tRATE\tLIVE\tPOSITIONS\tFAILURES\tELAPSED")
			for _, c := range recs {
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%t\t%d\t%d\t%s\n",
					c.CycleID, c.Time.Local().Format("15:04:05"),
					c.Rate, c.RateLive, c.Positions, c.Failures, c.Elapsed)
			}
			return w.Flush()
		},
	}

	quotesCmd := &cobra.Command{
		Use:   "quotes <cycle-id>",
		Short: "Show the quotes resolved during one cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			recs, err := j.ListQuotesByCycle(args[0])
			if err != nil {
				return fmt.Errorf("query quotes: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICKER\tSPOT\tSPOT_OK\tVOL\tVOL_LIVE")
			for _, q := range recs {
				fmt.Fprintf(w, "%s\t%.2f\t%t\t%.4f\t%t\n",
					q.Ticker, q.Spot, q.SpotOK, q.Vol, q.VolLive)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(cyclesCmd, quotesCmd)
	return cmd
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("date: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour), nil
}
