package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/spf13/cobra"

	"github.com/ton-connect/walletkit-go/pkg/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

var opts rootOptions

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tonkit",
		Short: "Inspect TON Connect intents and wallet traces",
		Long: `tonkit exposes the wallet kit building blocks on the command line.

It parses intent deep links, decodes toncenter traces into account events
and validates kit configuration files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		NewIntentCmd(),
		NewTraceCmd(),
		NewConfigCmd(),
	)
	return cmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(opts.configPath)
}

func newLogger() (logger.Logger, error) {
	if !opts.verbose {
		return logger.Nop(), nil
	}
	return logger.New()
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
