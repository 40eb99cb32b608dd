package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	postCommandSuccess bool
	postCommandFailed  bool
)

var preCommandCmd = &cobra.Command{
	Use:   "pre-command <command-string>",
	Short: "Record the pending command for the next post-command's reward context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := boot()
		if err != nil {
			return err
		}
		defer d.close()
		return d.router.PreCommand(args[0])
	},
}

var postCommandCmd = &cobra.Command{
	Use:   "post-command <command-string>",
	Short: "Ingest a finished command as a memory and feed its reward to the RL engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := boot()
		if err != nil {
			return err
		}
		defer d.close()

		baseCtx := cmd.Context()
		if baseCtx == nil {
			baseCtx = context.Background()
		}
		ctx, cancel := context.WithTimeout(baseCtx, d.cfg.Hook.Timeout())
		defer cancel()
		return d.router.PostCommand(ctx, args[0], postCommandSuccess && !postCommandFailed)
	},
}

func init() {
	postCommandCmd.Flags().BoolVar(&postCommandSuccess, "success", true, "Mark the command as successful")
	postCommandCmd.Flags().BoolVar(&postCommandFailed, "failed", false, "Mark the command as failed")
}
