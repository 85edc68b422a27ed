// Package cli wires the optionwatch commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootConfig carries the global flags shared by every subcommand.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
	Plain      bool
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "optionwatch",
		Short:         "Live Black-Scholes valuation of an option portfolio",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&rc.Plain, "plain", false, "Plain output: no screen clearing between refreshes")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; it only carries optional provider
		// overrides like OPTIONWATCH_QUOTE_URL.
		_ = godotenv.Load()
		return setupLogging(rc.LogLevel)
	}

	cmd.AddCommand(
		newWatchCmd(rc),
		newJournalCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("optionwatch (dev)")
		},
	})

	return cmd
}

// setupLogging installs a JSON slog handler on stderr so log lines never
// interleave with the table on stdout.
func setupLogging(level string) error {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
	return nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
