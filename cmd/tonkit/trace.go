package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ton-connect/walletkit-go/pkg/ton/accountevent"
	"github.com/ton-connect/walletkit-go/pkg/toncenter"
)

func NewTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Decode toncenter traces",
	}
	cmd.AddCommand(newTraceDecodeCmd())
	return cmd
}

type traceDecodeOptions struct {
	account string
	file    string
	txHash  string
	summary bool
}

func newTraceDecodeCmd() *cobra.Command {
	var o traceDecodeOptions
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a trace into an account event",
		Long: `Decode turns a toncenter trace into the actions seen by one account.

The trace is read from --file (a /api/v3/traces response, a single trace or
an /api/emulate/v1/emulateTrace response) or fetched by --tx from the
configured toncenter endpoint.`,
		Example: `  tonkit trace decode --account 0:abc... --file trace.json
  tonkit trace decode --account EQ... --tx <hash> --summary`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.account == "" {
				return errors.New("--account is required")
			}
			if (o.file == "") == (o.txHash == "") {
				return errors.New("exactly one of --file or --tx is required")
			}

			lggr, err := newLogger()
			if err != nil {
				return err
			}

			var trace *toncenter.Trace
			if o.file != "" {
				trace, err = readTraceFile(o.file)
			} else {
				cfg, cfgErr := loadConfig()
				if cfgErr != nil {
					return cfgErr
				}
				client := toncenter.NewClient(lggr, cfg.Toncenter.URL,
					toncenter.WithAPIKey(cfg.Toncenter.APIKey),
					toncenter.WithTimeout(cfg.Toncenter.Timeout))
				trace, err = client.GetTrace(cmd.Context(), o.txHash)
			}
			if err != nil {
				return err
			}

			ev, err := accountevent.NewDecoder(lggr, nil).Decode(trace, o.account)
			if err != nil {
				return err
			}

			if o.summary {
				printSummary(cmd, ev)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), ev)
		},
	}

	cmd.Flags().StringVar(&o.account, "account", "", "account the event is decoded for")
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "trace JSON file")
	cmd.Flags().StringVar(&o.txHash, "tx", "", "transaction hash to fetch the trace for")
	cmd.Flags().BoolVar(&o.summary, "summary", false, "print one line per action")
	return cmd
}

func readTraceFile(path string) (*toncenter.Trace, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	return parseTrace(raw)
}

func parseTrace(raw []byte) (*toncenter.Trace, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse trace file: %w", err)
	}

	switch {
	case probe["traces"] != nil:
		var resp toncenter.TracesResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse traces response: %w", err)
		}
		if len(resp.Traces) == 0 {
			return nil, toncenter.ErrTraceNotFound
		}
		tr := resp.Traces[0]
		if tr.AddressBook == nil {
			tr.AddressBook = resp.AddressBook
		}
		if tr.Metadata == nil {
			tr.Metadata = resp.Metadata
		}
		return &tr, nil
	case probe["mc_block_seqno"] != nil && probe["trace_id"] == nil:
		var resp toncenter.EmulateTraceResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse emulation response: %w", err)
		}
		return resp.Trace(), nil
	default:
		var tr toncenter.Trace
		if err := json.Unmarshal(raw, &tr); err != nil {
			return nil, fmt.Errorf("failed to parse trace: %w", err)
		}
		return &tr, nil
	}
}

func printSummary(cmd *cobra.Command, ev *accountevent.Event) {
	w := cmd.OutOrStdout()
	state := color.GreenString("complete")
	if ev.InProgress {
		state = color.YellowString("in progress")
	}
	fmt.Fprintf(w, "event %s for %s (%s)\n", ev.EventID, ev.Account.Address, state)
	for _, a := range ev.Actions {
		b := a.Base()
		status := color.GreenString(string(b.Status))
		if b.Status != accountevent.StatusSuccess {
			status = color.RedString(string(b.Status))
		}
		fmt.Fprintf(w, "  %-18s %-7s %s\n", a.Type(), status, b.SimplePreview.Description)
	}
}
