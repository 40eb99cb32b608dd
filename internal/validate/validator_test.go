package validate

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nerdmem/internal/config"
	"nerdmem/internal/store"
)

func newTestSetup(t *testing.T) (*Validator, *store.Store, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".nerdmem"), 0755))

	cfg := config.DefaultConfig()
	cfg.Root = root
	require.NoError(t, cfg.Save(config.ConfigPath(root)))

	s, err := store.Open(filepath.Join(root, ".nerdmem", "intelligence.db"), filepath.Join(root, ".nerdmem", "intelligence.json"), cfg.Embedding.Dimension)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return New(root, &cfg, s), s, root
}

func TestRunPassesInstallLayoutAndSchemaOnFreshStore(t *testing.T) {
	v, _, _ := newTestSetup(t)
	report := v.Run()

	for _, c := range report.Checks {
		if c.Level == "L1" || c.Level == "L3" {
			assert.Equal(t, StatusPass, c.Status, "%s: %s", c.ID, c.Detail)
		}
	}
}

func TestCheckInstallLayoutFailsWhenConfigMissing(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Root = root
	s, err := store.Open(filepath.Join(root, "intelligence.db"), filepath.Join(root, "intelligence.json"), cfg.Embedding.Dimension)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	v := New(root, &cfg, s)
	checks := v.checkInstallLayout()

	found := false
	for _, c := range checks {
		if c.Status == StatusFail {
			found = true
		}
	}
	assert.True(t, found, "expected a failing check when .nerdmem/config.yaml is absent")
}

func TestCheckConfigurationFailsBelowHookTimeoutFloor(t *testing.T) {
	v, _, _ := newTestSetup(t)
	v.cfg.Hook.TimeoutMs = 1000

	checks := v.checkConfiguration()
	var got Check
	for _, c := range checks {
		if c.ID == "config:hook-timeout" {
			got = c
		}
	}
	assert.Equal(t, StatusFail, got.Status)
}

func TestCheckConfigurationWarnsWhenSemanticEmbeddingsDisabled(t *testing.T) {
	v, _, _ := newTestSetup(t)
	v.cfg.Embedding.SemanticEmbeddings = false

	checks := v.checkConfiguration()
	var got Check
	for _, c := range checks {
		if c.ID == "config:semantic-embeddings" {
			got = c
		}
	}
	assert.Equal(t, StatusWarn, got.Status)
}

func TestCheckEmbeddingDimensionFailsOnMismatchedRow(t *testing.T) {
	v, s, _ := newTestSetup(t)
	require.NoError(t, s.AddMemory(store.Memory{
		ID: "m1", Kind: store.KindGeneral, Content: "x", Embedding: []float32{1, 2}, Timestamp: 1,
	}))

	check := v.checkEmbeddingDimension()
	assert.Equal(t, StatusFail, check.Status)
}

func TestCheckEmbeddingDimensionPassesOnMatchingOrEmptyRows(t *testing.T) {
	v, s, _ := newTestSetup(t)
	dim := v.cfg.Embedding.Dimension
	vec := make([]float32, dim)
	require.NoError(t, s.AddMemory(store.Memory{ID: "m1", Kind: store.KindGeneral, Content: "x", Embedding: vec, Timestamp: 1}))
	require.NoError(t, s.AddMemory(store.Memory{ID: "m2", Kind: store.KindGeneral, Content: "y", Timestamp: 2}))

	check := v.checkEmbeddingDimension()
	assert.Equal(t, StatusPass, check.Status)
}

func TestCheckPipelinePopulationsWarnsOnEmptyStore(t *testing.T) {
	v, _, _ := newTestSetup(t)
	checks := v.checkPipelinePopulations()

	byID := map[string]Check{}
	for _, c := range checks {
		byID[c.ID] = c
	}
	assert.Equal(t, StatusFail, byID["pipeline:agents"].Status)
	assert.Equal(t, StatusWarn, byID["pipeline:neural-patterns"].Status)
}

func TestCheckTrajectoryRewardVarianceFailsOnFlatReward(t *testing.T) {
	v, s, _ := newTestSetup(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddTrajectory(store.Trajectory{
			ID: "t" + string(rune('a'+i)), State: "s", Action: "a", Outcome: "ok", Reward: 0.5, Timestamp: int64(i),
		}))
	}

	check := v.checkTrajectoryRewardVariance()
	assert.Equal(t, StatusFail, check.Status)
}

func TestCheckTrajectoryRewardVariancePassesOnVariedReward(t *testing.T) {
	v, s, _ := newTestSetup(t)
	rewards := []float64{0.1, 0.9, 0.2, 0.8}
	for i, r := range rewards {
		require.NoError(t, s.AddTrajectory(store.Trajectory{
			ID: "t" + string(rune('a'+i)), State: "s", Action: "a", Outcome: "ok", Reward: r, Timestamp: int64(i),
		}))
	}

	check := v.checkTrajectoryRewardVariance()
	assert.Equal(t, StatusPass, check.Status)
}

func TestCheckConsolidationFreshnessWarnsWhenNeverRun(t *testing.T) {
	v, _, _ := newTestSetup(t)
	check := v.checkConsolidationFreshness()
	assert.Equal(t, StatusWarn, check.Status)
}

func TestCheckConsolidationFreshnessFailsWhenStale(t *testing.T) {
	v, s, _ := newTestSetup(t)
	stale := time.Now().Add(-48 * time.Hour).Unix()
	require.NoError(t, s.SetStat("last_consolidation", formatUnix(stale)))

	check := v.checkConsolidationFreshness()
	assert.Equal(t, StatusFail, check.Status)
}

func TestCheckConsolidationFreshnessPassesWhenRecent(t *testing.T) {
	v, s, _ := newTestSetup(t)
	recent := time.Now().Add(-1 * time.Hour).Unix()
	require.NoError(t, s.SetStat("last_consolidation", formatUnix(recent)))

	check := v.checkConsolidationFreshness()
	assert.Equal(t, StatusPass, check.Status)
}

func TestCheckParityPassesWhenMirrorAbsent(t *testing.T) {
	v, _, _ := newTestSetup(t)
	check := v.checkParity()
	assert.Equal(t, StatusPass, check.Status)
}

func TestCheckParityPassesWhenCountsAgree(t *testing.T) {
	v, s, _ := newTestSetup(t)
	require.NoError(t, s.AddMemory(store.Memory{ID: "m1", Kind: store.KindGeneral, Content: "x", Timestamp: 1}))

	snap, err := s.LoadAll()
	require.NoError(t, err)
	s.WriteMirror(snap)

	check := v.checkParity()
	assert.Equal(t, StatusPass, check.Status)
}

func TestReportOKAndExitCode(t *testing.T) {
	report := Report{Checks: []Check{pass("a", "L1", ""), warn("b", "L2", "")}}
	assert.True(t, report.OK())
	assert.Equal(t, 0, report.ExitCode())

	report.Checks = append(report.Checks, fail("c", "L3", "broken"))
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.ExitCode())
	require.Len(t, report.Failures(), 1)
}

func formatUnix(ts int64) string {
	return strconv.FormatInt(ts, 10)
}
