package rl

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nerdmem/internal/store"
)

type fakeSonaBridge struct {
	mu      sync.Mutex
	ticks   int
	warmups [][]float32
}

func (f *fakeSonaBridge) Tick() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return nil
}
func (f *fakeSonaBridge) Warmup(v []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmups = append(f.warmups, v)
	return nil
}

func TestTrajectoryBeginStepEndPersistsSteps(t *testing.T) {
	e, s := newTestEngine(t)
	bridge := &fakeSonaBridge{}
	e.SetSonaBridge(bridge)

	tid := e.Begin([]float32{1, 2, 3})
	require.NotEmpty(t, tid)

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Step(tid, []float32{float32(i)}, []float32{float32(i) * 2}, 0.1*float64(i)))
	}

	require.NoError(t, e.End(tid, 0.9))
	assert.Equal(t, 1, bridge.ticks)

	rows, err := s.RecentTrajectories(50)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	for _, row := range rows {
		assert.Equal(t, tid, row.Outcome)
	}
}

func TestTrajectoryCapsAtFiftySteps(t *testing.T) {
	e, s := newTestEngine(t)

	tid := e.Begin(nil)
	for i := 0; i < 60; i++ {
		require.NoError(t, e.Step(tid, []float32{float32(i)}, []float32{float32(i)}, 0.1))
	}
	require.NoError(t, e.End(tid, 0.5))

	rows, err := s.RecentTrajectories(100)
	require.NoError(t, err)
	assert.Len(t, rows, maxTrajectorySteps)
}

func TestTrajectoryStepOnUnknownIDFails(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Step("no-such-trajectory", nil, nil, 1.0)
	assert.Error(t, err)
}

func TestTrajectoryEndOnUnknownIDFails(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.End("no-such-trajectory", 1.0)
	assert.Error(t, err)
}

func TestReplayWarmupFeedsSynthesizedEmbeddingsToSonaBridge(t *testing.T) {
	e, s := newTestEngine(t)
	bridge := &fakeSonaBridge{}
	e.SetSonaBridge(bridge)
	e.SetEmbeddingDim(8)

	require.NoError(t, s.AddTrajectory(store.Trajectory{ID: "t1", State: "a", Action: "b", Outcome: "t1", Reward: 0.5, Timestamp: 1}))
	require.NoError(t, s.AddTrajectory(store.Trajectory{ID: "t2", State: "c", Action: "d", Outcome: "t2", Reward: 0.6, Timestamp: 2}))

	require.NoError(t, e.ReplayWarmup())
	assert.Len(t, bridge.warmups, 2)
	for _, v := range bridge.warmups {
		assert.Len(t, v, 8)
	}
}
