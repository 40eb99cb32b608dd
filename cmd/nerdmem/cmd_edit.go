package main

import (
	"context"

	"github.com/spf13/cobra"
)

var postEditFailed bool

var postEditCmd = &cobra.Command{
	Use:   "post-edit <path>",
	Short: "Ingest an edited file as a memory and feed its reward to the RL engine",
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
		return d.router.PostEdit(ctx, args[0], !postEditFailed)
	},
}

func init() {
	postEditCmd.Flags().BoolVar(&postEditFailed, "failed", false, "Mark the edit as failed")
}
