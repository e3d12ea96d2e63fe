// Command censreg fits batched censored and truncated linear regressions
// from JSON batch files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "censreg: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)
	root := &cobra.Command{
		Use:           "censreg",
		Short:         "Batched censored and truncated linear regression",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd, logLevel, logFormat)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "console", "log format: console, json or cloud")

	root.AddCommand(newFitCmd(), newGenerateCmd(), newDemoCmd())
	return root
}

// setupLogging はプロセス全体のログプロバイダを設定し、警告をログに流す
func setupLogging(cmd *cobra.Command, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	w := cmd.ErrOrStderr()
	var provider interface {
		log.LoggerProvider
		BridgeWarnings()
	}
	switch format {
	case "console":
		provider = log.NewZerologProvider(log.NewConsoleLogger(w, lvl))
	case "json":
		provider = log.NewZerologProvider(log.NewZerologLogger(w, lvl))
	case "cloud":
		provider = log.NewSlogProvider(w, lvl)
	default:
		return errors.NewValidationError("log_format", "must be 'console', 'json' or 'cloud'", format)
	}
	provider.BridgeWarnings()
	log.SetProvider(provider)
	return nil
}
