package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootFlags = struct {
	logLevel *string
}{}

// logger is configured from the --log-level flag before any command runs.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

var rootCmd = &cobra.Command{
	Use:   "isoebnf",
	Short: "Validate text against an ISO/IEC 14977 EBNF grammar",
	Long: `isoebnf provides three features:
- Checks a grammar for structural defects such as undefined rules and left recursion.
- Validates a text against the grammar and explains where it stops matching.
- Runs test suites of inputs against the grammar.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogger,
}

func init() {
	rootFlags.logLevel = rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
}

func setupLogger(cmd *cobra.Command, args []string) error {
	var lv slog.Level
	err := lv.UnmarshalText([]byte(*rootFlags.logLevel))
	if err != nil {
		return fmt.Errorf("invalid log level %v: %w", *rootFlags.logLevel, err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lv,
	}))
	return nil
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
