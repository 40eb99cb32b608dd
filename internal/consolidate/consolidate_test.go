package consolidate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nerdmem/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "intelligence.db"), filepath.Join(dir, "intelligence.json"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedMemory(t *testing.T, s *store.Store, id, kind, content string, ts int64, vec []float32) {
	t.Helper()
	require.NoError(t, s.AddMemory(store.Memory{
		ID: id, Kind: store.MemoryKind(kind), Content: content, Embedding: vec, Timestamp: ts,
	}))
}

func TestRunSynthesizesPatternForGroupOfThreeOrMore(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 3; i++ {
		seedMemory(t, s, idFor(i), "edit", "main.go edited", int64(1000+i), []float32{1, 0, 0, 0})
	}

	c := New(s, 200, 0.55, 50)
	_, err := c.Run("")
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["neural_patterns"])
	assert.True(t, stats["edges"] > 0)
}

func TestRunSkipsGroupsSmallerThanThree(t *testing.T) {
	s := openTestStore(t)
	seedMemory(t, s, "m1", "edit", "main.go", 1000, []float32{1, 0, 0, 0})
	seedMemory(t, s, "m2", "edit", "main.go", 1001, []float32{1, 0, 0, 0})

	c := New(s, 200, 0.55, 50)
	_, err := c.Run("")
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats["neural_patterns"])
}

func TestRunEmitsTemporalEdgesWithinSixtySeconds(t *testing.T) {
	s := openTestStore(t)
	seedMemory(t, s, "m1", "edit", "a.go", 1000, nil)
	seedMemory(t, s, "m2", "edit", "b.rs", 1030, nil)
	seedMemory(t, s, "m3", "edit", "c.py", 2000, nil)

	c := New(s, 200, 0.55, 50)
	_, err := c.Run("")
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["edges"])
}

func TestRunEmitsSemanticEdgesAboveThreshold(t *testing.T) {
	s := openTestStore(t)
	seedMemory(t, s, "m1", "general", "one", 1000, []float32{1, 0, 0, 0})
	seedMemory(t, s, "m2", "general", "two", 5000, []float32{1, 0, 0, 0})

	c := New(s, 200, 0.9, 50)
	_, err := c.Run("")
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["edges"])
}

func TestRunUpdatesStatsAndRegistersAgent(t *testing.T) {
	s := openTestStore(t)
	seedMemory(t, s, "m1", "edit", "a.go", 1000, nil)

	c := New(s, 200, 0.55, 50)
	_, err := c.Run("custom-agent")
	require.NoError(t, err)

	v, ok, err := s.GetKV("unrelated")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["agents"])
	_ = v
}

func TestRunWithEmptyMemoriesStillUpdatesStats(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 200, 0.55, 50)
	_, err := c.Run("")
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["agents"])
}

func idFor(i int) string {
	return "m" + string(rune('a'+i))
}
