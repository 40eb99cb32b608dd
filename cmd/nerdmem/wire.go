package main

import (
	"os"

	"nerdmem/internal/config"
	"nerdmem/internal/consolidate"
	"nerdmem/internal/embedding"
	"nerdmem/internal/errs"
	"nerdmem/internal/hook"
	"nerdmem/internal/logging"
	"nerdmem/internal/memory"
	"nerdmem/internal/rl"
	"nerdmem/internal/sona"
	"nerdmem/internal/store"
	"nerdmem/internal/validate"
)

// deps is the fully wired dependency graph one event dispatch runs against.
// close must be called before the process exits so the store connection
// releases its file handles.
type deps struct {
	cfg       *config.Config
	store     *store.Store
	router    *hook.Router
	validator *validate.Validator
	close     func()
}

// boot loads configuration, opens the store, and wires every subsystem
// package into a Router and Validator, mirroring the teacher's
// GetOrBootCortex pattern of a single function that assembles everything
// a command needs before running.
func boot() (*deps, error) {
	root := workspace
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return nil, errs.Wrap(errs.KindConfigError, "failed to resolve workspace", err)
		}
	}
	root, err := config.FindWorkspaceRoot(root)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root, config.ConfigPath(root))
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	if timeout > 0 {
		cfg.Hook.TimeoutMs = int(timeout.Milliseconds())
	}

	dbPath := cfg.Store.ResolvedPath(root)
	mirrorPath := cfg.Store.MirrorPath(root)
	s, err := store.Open(dbPath, mirrorPath, cfg.Embedding.Dimension)
	if err != nil {
		return nil, err
	}

	// load_all's documented precondition: pull in a mirror that raced ahead
	// of the database, or a legacy JSON-only file on a fresh database. A
	// corrupt mirror aborts the import but never the boot: the database
	// keeps its prior state and validate surfaces the parity mismatch.
	if err := s.Reconcile(mirrorPath); err != nil {
		logging.StoreWarn("mirror reconciliation aborted: %v", err)
	}

	engineCfg := embedding.Config{
		Provider:       cfg.Embedding.Provider(),
		Dimensions:     cfg.Embedding.Dimension,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
	}
	var semantic embedding.EmbeddingEngine
	var semanticErr error
	if cfg.Embedding.SemanticEmbeddings && cfg.Embedding.OnnxEnabled {
		semantic, semanticErr = embedding.NewEngine(engineCfg)
	}
	gate := embedding.NewGate(cfg.Embedding.SemanticEmbeddings, cfg.Embedding.Dimension, semantic, semanticErr, func(err error) {
		_ = s.SetStat("embedding_backend_demoted", err.Error())
	})

	pipeline := memory.New(s, gate)

	rlEngine := rl.NewEngine(s, cfg.RL.Algorithm, cfg.RL.LearningRate)
	if err := rlEngine.Warmup(); err != nil {
		return nil, err
	}

	consolidator := consolidate.New(s, 200, cfg.Embedding.SemanticThreshold, cfg.Embedding.MaxSemanticEdges)
	sonaCompressor := sona.New(s, cfg.Embedding.Dimension, cfg.Sona.HNSWEnabled)

	router := hook.New(s, pipeline, rlEngine, consolidator, sonaCompressor, cfg.RL.Algorithm)
	rlEngine.SetEmbeddingDim(cfg.Embedding.Dimension)
	if err := rlEngine.ReplayWarmup(); err != nil {
		logging.RLWarn("trajectory replay warm-up failed: %v", err)
	}
	validator := validate.New(root, cfg, s)

	return &deps{
		cfg:       cfg,
		store:     s,
		router:    router,
		validator: validator,
		close:     func() { _ = s.Close() },
	}, nil
}

// exitCodeFor maps a dispatch error to the process exit code documented in
// the command surface: 0 success, 1 transient, 2 config error, 3 corruption.
func exitCodeFor(err error) int {
	return errs.ExitCode(err)
}
