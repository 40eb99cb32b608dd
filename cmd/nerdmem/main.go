// Package main implements the nerdmem CLI - the hook-invoked binary that
// drives the store, embedder, RL core, consolidator, and sona compressor
// through one dispatch per named event.
//
// The actual command implementations are split across multiple cmd_*.go
// files for maintainability:
//
//   - main.go            - entry point, rootCmd, global flags, init()
//   - wire.go            - builds the shared dependency graph (config, store,
//                          embedder, pipeline, RL engine, consolidator,
//                          sona, hook router)
//   - cmd_session.go     - session-start, session-end
//   - cmd_edit.go        - post-edit
//   - cmd_command.go     - pre-command, post-command
//   - cmd_consolidate.go - consolidate
//   - cmd_pretrain.go    - pretrain
//   - cmd_reembed.go     - re-embed
//   - cmd_validate.go    - validate
//   - cmd_diagnose.go    - diagnose
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nerdmem/internal/logging"
)

var (
	verbose   bool
	workspace string
	timeout   time.Duration

	logger *zap.Logger
)

// rootCmd represents the base command. It has no default action: every
// invocation must name one of the documented events.
var rootCmd = &cobra.Command{
	Use:   "nerdmem",
	Short: "nerdmem - local embedded self-learning memory for a coding-assistant hook system",
	Long: `nerdmem persists memories, reinforcement-learning state, and consolidated
patterns across agent sessions in a single SQLite database.

Each invocation handles exactly one named event (session-start, post-edit,
post-command, session-end, consolidate, pretrain, re-embed, validate,
diagnose) and exits; there is no long-running daemon.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-event operation timeout")

	rootCmd.AddCommand(
		sessionStartCmd,
		sessionEndCmd,
		postEditCmd,
		preCommandCmd,
		postCommandCmd,
		consolidateCmd,
		pretrainCmd,
		reembedCmd,
		validateCmd,
		diagnoseCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
