package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nerdmem/internal/embedding"
	"nerdmem/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "db.sqlite"), filepath.Join(dir, "mirror.json"), 8)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	engine := embedding.NewHashEngine(8)
	p := New(s, engine)
	p.now = func() time.Time { return time.Unix(1000, 0) }
	return p, s
}

func TestIngestStoresEmbeddedMemory(t *testing.T) {
	p, s := newTestPipeline(t)
	mem, err := p.Ingest(context.Background(), IngestRequest{
		Kind: store.KindGeneral, Content: "hello world", Metadata: "{}",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mem.ID)
	assert.Len(t, mem.Embedding, 8)

	snap, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, snap.Memories, 1)
}

func TestIngestEnrichesFileEditContentWithBasename(t *testing.T) {
	p, _ := newTestPipeline(t)
	mem, err := p.Ingest(context.Background(), IngestRequest{
		Kind: store.KindEdit, Content: "changed a function", Metadata: "{}",
		File: "/repo/internal/foo/bar.go",
	})
	require.NoError(t, err)
	assert.Contains(t, mem.Content, "bar.go")
}

func TestIngestRecordsFileSequenceOnFileChange(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()
	_, err := p.Ingest(ctx, IngestRequest{Kind: store.KindEdit, Content: "a", Metadata: "{}", File: "a.go"})
	require.NoError(t, err)
	_, err = p.Ingest(ctx, IngestRequest{Kind: store.KindEdit, Content: "b", Metadata: "{}", File: "b.go"})
	require.NoError(t, err)

	snap, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, snap.FileSequences, 1)
	assert.Equal(t, "a.go", snap.FileSequences[0].FromFile)
	assert.Equal(t, "b.go", snap.FileSequences[0].ToFile)
}

func TestIngestSameFileTwiceDoesNotRecordSequence(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()
	_, err := p.Ingest(ctx, IngestRequest{Kind: store.KindEdit, Content: "a", Metadata: "{}", File: "a.go"})
	require.NoError(t, err)
	_, err = p.Ingest(ctx, IngestRequest{Kind: store.KindEdit, Content: "a again", Metadata: "{}", File: "a.go"})
	require.NoError(t, err)

	snap, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, snap.FileSequences, 0)
}

func TestIngestReusesSuppliedID(t *testing.T) {
	p, _ := newTestPipeline(t)
	mem, err := p.Ingest(context.Background(), IngestRequest{
		ID: "mem-fixed", Kind: store.KindGeneral, Content: "x", Metadata: "{}",
	})
	require.NoError(t, err)
	assert.Equal(t, "mem-fixed", mem.ID)
}
