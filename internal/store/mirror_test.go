package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndImportMirrorRoundTrip(t *testing.T) {
	s := openTestStore(t)
	snap := Snapshot{
		Memories: []Memory{{ID: "mem-1", Kind: KindGeneral, Content: "a", Metadata: "{}", Timestamp: 1}},
		Stats:    map[string]string{"total_memories": "1"},
	}
	s.WriteMirror(snap)

	require.NoError(t, s.ImportFromJSON())

	loaded, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded.Memories, 1)
	if diff := cmp.Diff(snap.Memories, loaded.Memories, cmpopts.IgnoreFields(Memory{}, "Embedding")); diff != "" {
		t.Errorf("memory mismatch after mirror round-trip (-want +got):\n%s", diff)
	}
}

func TestIsMirrorNewerComparesModTimes(t *testing.T) {
	s := openTestStore(t)
	assert.False(t, s.IsMirrorNewer(), "no mirror file yet")

	s.WriteMirror(Snapshot{})
	future := time.Now().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(s.mirrorPath, future, future))

	assert.True(t, s.IsMirrorNewer())
}

func TestReconcileIngestsLegacyJSONWhenStoreEmpty(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	legacyPath := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacyPath, []byte(`{
		"memories": [{"ID":"legacy-1","Kind":"general","Content":"x","Metadata":"{}","Timestamp":1}]
	}`), 0644))

	require.NoError(t, s.Reconcile(legacyPath))

	snap, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, snap.Memories, 1)
	assert.Equal(t, "legacy-1", snap.Memories[0].ID)
}

func TestReconcileSkipsLegacyWhenStoreNotEmpty(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddMemory(Memory{ID: "mem-1", Kind: KindGeneral, Content: "a", Metadata: "{}", Timestamp: 1}))

	dir := t.TempDir()
	legacyPath := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacyPath, []byte(`{"memories":[{"ID":"legacy-1"}]}`), 0644))

	require.NoError(t, s.Reconcile(legacyPath))

	snap, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, snap.Memories, 1)
	assert.Equal(t, "mem-1", snap.Memories[0].ID)
}
