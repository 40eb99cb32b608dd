package rl

import (
	"encoding/json"
	"strconv"
	"time"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
	"nerdmem/internal/store"
)

const maxTrajectorySteps = 50

// SonaBridge is the subset of the pattern compressor's lifecycle the RL
// engine drives: one tick() after a trajectory ends, and a warm-up path fed
// a synthesized embedding for each replayed trajectory. Kept as an interface
// here so the engine can be constructed before the sona package exists and
// wired to it later without an import cycle.
type SonaBridge interface {
	Tick() error
	Warmup(embedding []float32) error
}

// SetSonaBridge wires the compressor the engine ticks on trajectory end and
// replays warm-up trajectories against. A nil bridge makes both a no-op.
func (e *Engine) SetSonaBridge(b SonaBridge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sona = b
}

type trajectoryStep struct {
	StateEmbed  []float32
	ActionEmbed []float32
	Reward      float64
}

type trajectory struct {
	id    string
	steps []trajectoryStep
}

// Begin starts a fresh trajectory keyed on a newly minted id and returns it.
// query_embedding is accepted for parity with the spec's signature but the
// tabular implementation does not need to retain it beyond trajectory start.
func (e *Engine) Begin(queryEmbedding []float32) string {
	_ = queryEmbedding
	tid := newTrajectoryID()

	e.trajMu.Lock()
	e.trajs[tid] = &trajectory{id: tid}
	e.trajMu.Unlock()

	return tid
}

// Step appends one (state, action, reward) observation to the trajectory.
// Once more than maxTrajectorySteps are buffered the oldest is dropped.
func (e *Engine) Step(tid string, stateEmbed, actionEmbed []float32, reward float64) error {
	e.trajMu.Lock()
	defer e.trajMu.Unlock()

	t, ok := e.trajs[tid]
	if !ok {
		return errs.New(errs.KindInvalidEvent, "unknown trajectory id "+tid)
	}
	t.steps = append(t.steps, trajectoryStep{StateEmbed: stateEmbed, ActionEmbed: actionEmbed, Reward: reward})
	if len(t.steps) > maxTrajectorySteps {
		t.steps = t.steps[len(t.steps)-maxTrajectorySteps:]
	}
	return nil
}

// End finalizes the trajectory, persists its buffered steps (at most the
// first maxTrajectorySteps) through the store, and triggers one sona tick.
func (e *Engine) End(tid string, finalReward float64) error {
	e.trajMu.Lock()
	t, ok := e.trajs[tid]
	if ok {
		delete(e.trajs, tid)
	}
	e.trajMu.Unlock()

	if !ok {
		return errs.New(errs.KindInvalidEvent, "unknown trajectory id "+tid)
	}

	steps := t.steps
	if len(steps) > maxTrajectorySteps {
		steps = steps[:maxTrajectorySteps]
	}

	now := time.Now().Unix()
	for i, step := range steps {
		stateJSON, err := json.Marshal(step.StateEmbed)
		if err != nil {
			return errs.Wrap(errs.KindCorruption, "failed to marshal trajectory state embedding", err)
		}
		actionJSON, err := json.Marshal(step.ActionEmbed)
		if err != nil {
			return errs.Wrap(errs.KindCorruption, "failed to marshal trajectory action embedding", err)
		}
		row := store.Trajectory{
			ID:        tid + "-" + strconv.Itoa(i),
			State:     string(stateJSON),
			Action:    string(actionJSON),
			Outcome:   tid,
			Reward:    step.Reward,
			Timestamp: now,
		}
		if err := e.store.AddTrajectory(row); err != nil {
			return err
		}
	}

	logging.RL("trajectory end tid=%s steps=%d final_reward=%.3f", tid, len(steps), finalReward)

	e.mu.Lock()
	bridge := e.sona
	e.mu.Unlock()
	if bridge == nil {
		return nil
	}
	if err := bridge.Tick(); err != nil {
		logging.RLWarn("sona tick after trajectory end failed: %v", err)
	}
	return nil
}

func newTrajectoryID() string {
	return "traj-" + strconv.FormatInt(time.Now().UnixNano(), 10)
}
