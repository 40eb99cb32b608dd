package main

import (
	"context"

	"github.com/spf13/cobra"

	"nerdmem/internal/config"
)

var pretrainCmd = &cobra.Command{
	Use:   "pretrain [file...]",
	Short: "Scan a host-provided codebase listing and pre-populate foundation memories",
	Long: `Ingests each listed file as a foundation memory, unless pretrain_done is
already set in the workspace config. On success it persists pretrain_done
so a later invocation is a no-op.`,
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

		ran, err := d.router.Pretrain(ctx, args, d.cfg.PretrainDone)
		if err != nil {
			return err
		}
		if ran {
			d.cfg.PretrainDone = true
			if err := d.cfg.Save(config.ConfigPath(d.cfg.Root)); err != nil {
				return err
			}
		}
		return nil
	},
}
