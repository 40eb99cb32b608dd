package main

import (
	"github.com/spf13/cobra"
)

var consolidateAgent string

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run a standalone consolidation pass over the recent memory window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := boot()
		if err != nil {
			return err
		}
		defer d.close()
		return d.router.Consolidate(consolidateAgent)
	},
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateAgent, "agent", "", "Agent name (default: setup-agent)")
}
