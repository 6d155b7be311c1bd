package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect kit configuration",
	}
	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the layered configuration",
		Long: `Check loads defaults, the --config file and TONKIT_ environment
variables in that order and reports every validation failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("configuration invalid"))
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("configuration OK"))
			if !show {
				return nil
			}
			if cfg.Toncenter.APIKey != "" {
				cfg.Toncenter.APIKey = "***"
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the effective configuration")
	return cmd
}
