package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"nerdmem/internal/embedding"
)

var reembedCmd = &cobra.Command{
	Use:   "re-embed",
	Short: "Recompute embeddings for every memory whose dimension disagrees with config",
	Args:  cobra.NoArgs,
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

		engineCfg := embedding.Config{
			Provider:       d.cfg.Embedding.Provider(),
			Dimensions:     d.cfg.Embedding.Dimension,
			OllamaEndpoint: d.cfg.Embedding.OllamaEndpoint,
			OllamaModel:    d.cfg.Embedding.OllamaModel,
			GenAIAPIKey:    d.cfg.Embedding.GenAIAPIKey,
			GenAIModel:     d.cfg.Embedding.GenAIModel,
			TaskType:       d.cfg.Embedding.TaskType,
		}
		engine, err := embedding.NewEngine(engineCfg)
		if err != nil {
			return err
		}

		result, err := d.router.ReEmbed(ctx, engine, d.cfg.Embedding.Dimension)
		if err != nil {
			return err
		}
		fmt.Printf("scanned=%d legacy=%d reembedded=%d failed=%d\n", result.Scanned, result.Legacy, result.Reembedded, result.Failed)
		return nil
	},
}
