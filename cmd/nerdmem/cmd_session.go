package main

import (
	"github.com/spf13/cobra"
)

var sessionAgent string

var sessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Register the invoking agent and bump session bookkeeping stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := boot()
		if err != nil {
			return err
		}
		defer d.close()
		return d.router.SessionStart(sessionAgent)
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Run a final consolidation pass and bridge patterns into sona",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := boot()
		if err != nil {
			return err
		}
		defer d.close()
		return d.router.SessionEnd(sessionAgent)
	},
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionAgent, "agent", "", "Agent name (default: setup-agent)")
	sessionEndCmd.Flags().StringVar(&sessionAgent, "agent", "", "Agent name (default: setup-agent)")
}
