package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optionwatch/config"
	"github.com/rustyeddy/optionwatch/journal"
	"github.com/rustyeddy/optionwatch/market"
	"github.com/rustyeddy/optionwatch/positions"
	"github.com/rustyeddy/optionwatch/render"
	"github.com/rustyeddy/optionwatch/valuation"
	"github.com/rustyeddy/optionwatch/watch"
	"github.com/rustyeddy/optionwatch/yahoo"
)

// quoteURLEnv overrides the provider base URL, mostly for pointing at a
// local proxy or a test server.
const quoteURLEnv = "OPTIONWATCH_QUOTE_URL"

func newWatchCmd(rc *RootConfig) *cobra.Command {
	var (
		positionsPath string
		refreshSecs   int
		journalDB     string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live valuations of the positions file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}

			// Flags beat config file values.
			if cmd.Flags().Changed("positions") {
				cfg.Positions = positionsPath
			}
			if cmd.Flags().Changed("refresh") {
				cfg.Refresh.IntervalSeconds = refreshSecs
			}
			if cmd.Flags().Changed("journal-db") {
				cfg.Journal.Type = "sqlite"
				cfg.Journal.DBPath = journalDB
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			baseURL := cfg.Provider.BaseURL
			if env := os.Getenv(quoteURLEnv); env != "" {
				baseURL = env
			}

			resolver := &market.Resolver{
				Source:      yahoo.NewClient(baseURL, cfg.Provider.Timeout()),
				DefaultRate: cfg.Defaults.RiskFreeRate,
				DefaultVol:  cfg.Defaults.ImpliedVol,
			}

			jnl, err := openJournal(cfg.Journal)
			if err != nil {
				return err
			}
			defer jnl.Close()

			loop := &watch.Loop{
				Source:     &positions.FileSource{Path: cfg.Positions},
				Resolver:   resolver,
				Engine:     valuation.NewEngine(resolver, cfg.Defaults.SharesPerContract, nil),
				Renderer:   &render.Table{Out: os.Stdout, ClearScreen: !rc.Plain},
				Journal:    jnl,
				Interval:   cfg.Refresh.Interval(),
				FetchLimit: cfg.Refresh.FetchLimit,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = loop.Run(ctx)
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(os.Stderr, "\nexiting")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&positionsPath, "positions", "positions.csv", "CSV file of option positions (7 columns)")
	cmd.Flags().IntVar(&refreshSecs, "refresh", 15, "Refresh interval in seconds")
	cmd.Flags().StringVar(&journalDB, "journal-db", "", "Record market-data telemetry to this SQLite file")

	return cmd
}

func loadConfig(rc *RootConfig) (*config.Config, error) {
	if rc.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(rc.ConfigPath)
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.CyclesFile, jc.QuotesFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return journal.Nop{}, nil
	}
}
