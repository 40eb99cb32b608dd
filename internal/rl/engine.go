package rl

import (
	"encoding/json"
	"sync"
	"time"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
	"nerdmem/internal/store"
)

// Engine owns all nine algorithm tables and is the single entry point the
// hook router calls into for a learn() step. It mirrors the store's
// q_entries row for the configured active algorithm so the rest of the
// system (Validator, viz front-end) can read a stable Q-value without
// knowing which of the nine tables is currently selected.
type Engine struct {
	mu        sync.Mutex
	store     *store.Store
	tables    map[string]Table
	active    string
	alpha     float64
	history   map[string][]float64 // per-algorithm reward history for convergence_score
	trajMu    sync.Mutex
	trajs     map[string]*trajectory
	sona      SonaBridge
	dim       int
}

// NewEngine constructs an Engine with all nine algorithms registered and
// active set to the configured default.
func NewEngine(s *store.Store, activeAlgorithm string, learningRate float64) *Engine {
	return &Engine{
		store:  s,
		active: activeAlgorithm,
		alpha:  learningRate,
		tables: map[string]Table{
			"double-q":             NewDoubleQ(),
			"q-learning":           NewQLearning(),
			"sarsa":                NewSarsa(),
			"actor-critic":         NewActorCritic(),
			"ppo":                  NewPPO(),
			"decision-transformer": NewDecisionTransformer(),
			"monte-carlo":          NewMonteCarlo(),
			"td-lambda":            NewTDLambda(),
			"dqn":                  NewDQN(),
		},
		history: make(map[string][]float64),
		trajs:   make(map[string]*trajectory),
	}
}

// Warmup restores every algorithm's table from its persisted learning_data
// snapshot, if present. Called once at process start after store.LoadAll.
func (e *Engine) Warmup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, tbl := range e.tables {
		blob, ok, err := e.store.LoadLearningData(name)
		if err != nil {
			return err
		}
		if !ok || blob == "" {
			continue
		}
		var rows map[string]QCell
		if err := json.Unmarshal([]byte(blob), &rows); err != nil {
			logging.RLWarn("discarding malformed learning_data for %s: %v", name, err)
			continue
		}
		tbl.Restore(rows)
	}
	return nil
}

// Learn runs one (state, action, reward) step through the named algorithm's
// table, persists the resulting cell to q_entries when it is the active
// algorithm, and always persists the full table snapshot to learning_data.
func (e *Engine) Learn(algorithm, state, action string, reward float64) (QCell, error) {
	e.mu.Lock()
	tbl, ok := e.tables[algorithm]
	alpha := e.alpha
	active := e.active
	e.mu.Unlock()
	if !ok {
		return QCell{}, errs.New(errs.KindConfigError, "unknown rl algorithm "+algorithm)
	}

	key := state + ":" + action
	now := time.Now().Unix()
	cell := tbl.Learn(key, reward, alpha, now)

	e.mu.Lock()
	e.history[algorithm] = append(e.history[algorithm], reward)
	e.mu.Unlock()

	if algorithm == active {
		if err := e.store.UpsertQEntry(store.QEntry{
			Key:        key,
			State:      state,
			Action:     action,
			QValue:     cell.QValue,
			Visits:     cell.Visits,
			LastUpdate: now,
		}); err != nil {
			return cell, err
		}
	}

	snap, err := json.Marshal(tbl.Snapshot())
	if err != nil {
		return cell, errs.Wrap(errs.KindCorruption, "failed to marshal q-table snapshot", err)
	}
	if err := e.store.SaveLearningData(algorithm, string(snap)); err != nil {
		return cell, err
	}

	logging.RL("learn algorithm=%s key=%s reward=%.3f q=%.4f visits=%d", algorithm, key, reward, cell.QValue, cell.Visits)
	return cell, nil
}

// ConvergenceScore reports the spec's 1 - variance(last 50)/variance(all)
// metric for the named algorithm's reward history observed so far.
func (e *Engine) ConvergenceScore(algorithm string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return convergenceScore(e.history[algorithm], 50)
}

// ForceLearn and Flush are idempotent advancement calls the hook router
// fires on session-end; with an in-memory tabular implementation there is
// nothing queued to drain, so both are no-ops that exist to satisfy the
// lifecycle contract and give future batched backends a hook to extend.
func (e *Engine) ForceLearn() error { return nil }
func (e *Engine) Flush() error      { return nil }

// Active returns the currently configured algorithm name.
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}
