package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ton-connect/walletkit-go/pkg/intent"
)

func NewIntentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intent",
		Short: "Work with intent deep links",
	}
	cmd.AddCommand(newIntentParseCmd())
	return cmd
}

func newIntentParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <url>",
		Short: "Parse an intent URL and print the resulting event",
		Long: `Parse decodes an inline or object-storage intent URL and prints the
normalized event as JSON. Object-storage links are fetched over HTTPS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lggr, err := newLogger()
			if err != nil {
				return err
			}

			parser := intent.NewParser(lggr, intent.WithScheme(cfg.Intent.Scheme))
			if !parser.IsIntentURL(args[0]) {
				return fmt.Errorf("not an intent url for scheme %q", cfg.Intent.Scheme)
			}
			res, err := parser.Parse(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			body, err := intent.MarshalEvent(res.Event)
			if err != nil {
				return err
			}
			out := map[string]any{"event": json.RawMessage(body)}
			if res.ConnectRequest != nil {
				out["connectRequest"] = res.ConnectRequest
			}

			fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("parsed %s intent", res.Event.Type()))
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
