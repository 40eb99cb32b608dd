package rl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicUpdateMovesTowardEffectiveReward(t *testing.T) {
	cell := basicUpdate(QCell{}, 1.0, 0.1, 100)
	assert.InDelta(t, 0.1, cell.QValue, 1e-9)
	assert.EqualValues(t, 1, cell.Visits)
	assert.EqualValues(t, 100, cell.LastUpdate)

	cell = basicUpdate(cell, 1.0, 0.1, 200)
	assert.InDelta(t, 0.19, cell.QValue, 1e-9)
	assert.EqualValues(t, 2, cell.Visits)
}

func TestConvergenceScoreIsOneForZeroVariance(t *testing.T) {
	history := []float64{0.5, 0.5, 0.5, 0.5}
	assert.Equal(t, 1.0, convergenceScore(history, 2))
}

func TestConvergenceScoreIncreasesAsTailStabilizes(t *testing.T) {
	noisy := []float64{0.9, 0.1, 0.9, 0.1, 0.9, 0.1}
	stabilizing := append(append([]float64{}, noisy...), 0.5, 0.5, 0.5, 0.5)

	before := convergenceScore(noisy, 4)
	after := convergenceScore(stabilizing, 4)
	require.True(t, after > before, "expected convergence score to rise as the tail stabilizes: before=%f after=%f", before, after)
}

func TestEachAlgorithmConvergesOnAStationaryRewardStream(t *testing.T) {
	tables := []Table{
		NewQLearning(), NewDoubleQ(), NewSarsa(), NewActorCritic(), NewPPO(),
		NewDecisionTransformer(), NewMonteCarlo(), NewTDLambda(), NewDQN(),
	}

	for _, tbl := range tables {
		tbl := tbl
		t.Run(tbl.Name(), func(t *testing.T) {
			var history []float64
			for i := 0; i < 200; i++ {
				cell := tbl.Learn("s:a", 0.7, 0.2, int64(i))
				history = append(history, cell.QValue)
			}
			early := convergenceScore(history[:50], 10)
			late := convergenceScore(history, 10)
			assert.True(t, late >= early-1e-6, "%s: expected non-decreasing convergence, early=%f late=%f", tbl.Name(), early, late)
		})
	}
}

func TestDoubleQKeepsShadowTablesMirroredOnTheQValue(t *testing.T) {
	tbl := NewDoubleQ().(*doubleQTable)
	var cell QCell
	for i := 0; i < 10; i++ {
		cell = tbl.Learn("s:a", 1.0, 0.5, int64(i))
	}

	a := tbl.a.get("s:a")
	b := tbl.b.get("s:a")
	assert.InDelta(t, a.QValue, cell.QValue, 1e-9)
	assert.InDelta(t, b.QValue, cell.QValue, 1e-9)
}

func TestDoubleQFollowsCanonicalUpdateAcrossRepeatedEdits(t *testing.T) {
	tbl := NewDoubleQ()

	first := tbl.Learn("src/lib.rs", 0.9, 0.1, 1)
	assert.InDelta(t, 0.09, first.QValue, 1e-9)

	second := tbl.Learn("src/lib.rs", 0.4, 0.1, 2)
	assert.InDelta(t, 0.121, second.QValue, 1e-9)
}

func TestTableBaseSnapshotRestoreRoundTrip(t *testing.T) {
	tbl := NewQLearning()
	tbl.Learn("s1:a1", 0.5, 0.1, 10)
	tbl.Learn("s2:a2", 0.9, 0.1, 20)

	snap := tbl.Snapshot()

	restored := NewQLearning()
	restored.Restore(snap)
	assert.Equal(t, snap, restored.Snapshot())
}
