// Package hook implements the HookRouter (C7): one dispatch method per named
// event the host sends at the edges of an agent session. Each method runs to
// completion in a single process invocation, driving the store's atomic
// mutators directly or through the embedding/memory/rl/consolidate/sona
// packages, and returns once its event's documented actions have committed.
package hook

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"nerdmem/internal/consolidate"
	"nerdmem/internal/embedding"
	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
	"nerdmem/internal/memory"
	"nerdmem/internal/rl"
	"nerdmem/internal/sona"
	"nerdmem/internal/store"
)

const (
	kvLastEditedFile = "lastEditedFile"
	kvLastEditTime   = "lastEditTimestamp"

	defaultAgent = "setup-agent"
)

// Router wires the store and every subsystem package together and exposes
// one method per event name in the dispatch table.
type Router struct {
	store        *store.Store
	pipeline     *memory.Pipeline
	rlEngine     *rl.Engine
	consolidator *consolidate.Consolidator
	sona         *sona.Compressor
	algorithm    string
	now          func() time.Time
	busyLimiter  *rate.Limiter
}

// New constructs a Router over already-open subsystems and wires the sona
// compressor into the RL engine as its trajectory warm-up bridge.
func New(s *store.Store, p *memory.Pipeline, eng *rl.Engine, c *consolidate.Consolidator, sc *sona.Compressor, algorithm string) *Router {
	eng.SetSonaBridge(sc)
	return &Router{
		store: s, pipeline: p, rlEngine: eng, consolidator: c, sona: sc, algorithm: algorithm,
		now:         time.Now,
		busyLimiter: rate.NewLimiter(rate.Every(5*time.Millisecond), 1),
	}
}

// withRetry runs fn, and retries it exactly once if it fails with a
// KindStoreBusy error, pacing the retry through busyLimiter so a storm of
// dispatches doesn't hammer a contended database. Any other error, or a
// second KindStoreBusy, is returned as-is.
func (r *Router) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	tagged, ok := errs.As(err)
	if !ok || tagged.Kind != errs.KindStoreBusy {
		return err
	}
	logging.HookWarn("store busy, retrying once: %v", err)
	if waitErr := r.busyLimiter.Wait(ctx); waitErr != nil {
		return err
	}
	return fn()
}

// SessionStart registers the agent and bumps session bookkeeping stats.
func (r *Router) SessionStart(agent string) error {
	if agent == "" {
		agent = defaultAgent
	}
	return r.withRetry(context.Background(), func() error {
		now := r.now().Unix()
		if err := r.store.RegisterAgent(agent, "", now); err != nil {
			return err
		}
		if err := r.store.SetStat("last_session", strconv.FormatInt(now, 10)); err != nil {
			return err
		}
		if err := r.store.IncrementStat("session_count"); err != nil {
			return err
		}
		if err := r.store.SetStat("last_agent", agent); err != nil {
			return err
		}
		logging.Hook("session-start agent=%s", agent)
		return nil
	})
}

// PreCommand records the pending command for future reward context; it
// performs no embedding or learning work.
func (r *Router) PreCommand(command string) error {
	return r.withRetry(context.Background(), func() error {
		if err := r.store.SetKV("pendingCommand", command); err != nil {
			return err
		}
		logging.HookDebug("pre-command command=%q", command)
		return nil
	})
}

// PostEdit ingests the edit as a memory, computes its reward against the
// prior edit's recency/file-identity, and feeds the (state, action, reward)
// triple to the RL engine. state is the edited file, action is "edit".
func (r *Router) PostEdit(ctx context.Context, file string, success bool) error {
	return r.withRetry(ctx, func() error {
		prevFile, prevEditAt := r.readLastEdit()

		mem, err := r.pipeline.Ingest(ctx, memory.IngestRequest{
			Kind:    store.KindEdit,
			Content: file,
			File:    file,
		})
		if err != nil {
			return err
		}

		now := r.now().Unix()
		reward := rl.EditReward(file, success, now, prevFile, prevEditAt)
		if _, err := r.rlEngine.Learn(r.algorithm, file, "edit", reward); err != nil {
			return err
		}

		if r.sona != nil {
			if err := r.sona.Tick(); err != nil {
				logging.HookWarn("post-edit warm-up tick failed: %v", err)
			}
		}

		logging.Hook("post-edit file=%s success=%v reward=%.3f memory=%s", file, success, reward, mem.ID)
		return nil
	})
}

// PostCommand ingests the command as a memory and feeds its reward to the
// RL engine. state is the command text, action is "command".
func (r *Router) PostCommand(ctx context.Context, command string, success bool) error {
	return r.withRetry(ctx, func() error {
		mem, err := r.pipeline.Ingest(ctx, memory.IngestRequest{
			Kind:    store.KindCommand,
			Content: command,
		})
		if err != nil {
			return err
		}

		reward := rl.CommandReward(command, success)
		if _, err := r.rlEngine.Learn(r.algorithm, command, "command", reward); err != nil {
			return err
		}

		logging.Hook("post-command command=%q success=%v reward=%.3f memory=%s", command, success, reward, mem.ID)
		return nil
	})
}

// SessionEnd runs a final consolidation pass, bridges synthesized patterns
// into the sona compressor, advances RL's force-learn/flush lifecycle, and
// bumps session-end stats.
func (r *Router) SessionEnd(agent string) error {
	if agent == "" {
		agent = defaultAgent
	}
	return r.withRetry(context.Background(), func() error {
		patterns, err := r.consolidator.Run(agent)
		if err != nil {
			return err
		}
		if r.sona != nil && len(patterns) > 0 {
			if err := r.sona.BridgeConsolidatedPatterns(patterns); err != nil {
				return err
			}
		}

		now := r.now().Unix()
		if err := r.store.IncrementStat("total_sessions"); err != nil {
			return err
		}
		if err := r.store.SetStat("last_session_end", strconv.FormatInt(now, 10)); err != nil {
			return err
		}

		if err := r.rlEngine.ForceLearn(); err != nil {
			return err
		}
		if err := r.rlEngine.Flush(); err != nil {
			return err
		}

		snap, err := r.store.LoadAll()
		if err != nil {
			return err
		}
		r.store.WriteMirror(snap)

		logging.Hook("session-end agent=%s patterns=%d", agent, len(patterns))
		return nil
	})
}

// Consolidate runs a standalone consolidation pass without the session-end
// stats or sona bridge.
func (r *Router) Consolidate(agent string) error {
	return r.withRetry(context.Background(), func() error {
		_, err := r.consolidator.Run(agent)
		return err
	})
}

// readLastEdit reads the previously-recorded file/timestamp pair out of the
// KV store before Ingest overwrites them, so the reward computation sees the
// edit that happened before this one.
func (r *Router) readLastEdit() (file string, at int64) {
	f, ok, err := r.store.GetKV(kvLastEditedFile)
	if err != nil || !ok {
		return "", 0
	}
	file = f
	tsRaw, ok, err := r.store.GetKV(kvLastEditTime)
	if err != nil || !ok {
		return file, 0
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return file, 0
	}
	return file, ts
}

// Pretrain scans a host-provided listing of file paths and ingests each as
// a foundation memory, unless alreadyDone reports pretrain already ran.
// Returns whether it actually performed work (callers persist this as the
// pretrain_done config flag).
func (r *Router) Pretrain(ctx context.Context, files []string, alreadyDone bool) (bool, error) {
	if alreadyDone {
		logging.HookDebug("pretrain skipped: already done")
		return false, nil
	}
	err := r.withRetry(ctx, func() error {
		for _, f := range files {
			if _, err := r.pipeline.Ingest(ctx, memory.IngestRequest{
				Kind:    store.KindFoundation,
				Content: f,
				File:    f,
			}); err != nil {
				return err
			}
		}
		logging.Hook("pretrain ingested %d files", len(files))
		return nil
	})
	return err == nil, err
}

// ReEmbed recomputes embeddings for every memory whose stored embedding
// byte length doesn't match the configured dimension.
func (r *Router) ReEmbed(ctx context.Context, engine embedding.EmbeddingEngine, dim int) (embedding.ReembedResult, error) {
	var result embedding.ReembedResult
	err := r.withRetry(ctx, func() error {
		legacy, err := r.store.LegacyMemories()
		if err != nil {
			return err
		}

		rows := make([]embedding.LegacyRow, len(legacy))
		for i, m := range legacy {
			rows[i] = embedding.LegacyRow{ID: m.ID, Content: m.Content, EmbeddingBytes: len(m.Embedding) * 4}
		}

		result = embedding.Reembed(ctx, engine, dim, rows, func(ctx context.Context, id string, vec []float32) error {
			return r.store.UpdateMemoryEmbedding(id, vec)
		})
		logging.Hook("re-embed scanned=%d legacy=%d reembedded=%d failed=%d", result.Scanned, result.Legacy, result.Reembedded, result.Failed)
		return nil
	})
	return result, err
}
