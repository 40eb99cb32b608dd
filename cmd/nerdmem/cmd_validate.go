package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the L1-L10 + parity read-only health checks and report the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := boot()
		if err != nil {
			return err
		}
		defer d.close()

		report := d.validator.Run()
		fmt.Print(report.String())
		if !report.OK() {
			os.Exit(report.ExitCode())
		}
		return nil
	},
}
