// Package memory implements the ingest pipeline (C3): turning an event's
// content into a stored, embedded Memory row and maintaining the
// file-edit-sequence KV bookkeeping the hook router reads from later.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"nerdmem/internal/embedding"
	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
	"nerdmem/internal/store"
)

const (
	kvLastEditedFile = "lastEditedFile"
	kvLastEditTime   = "lastEditTimestamp"
)

// Pipeline turns host events into persisted, embedded memories.
type Pipeline struct {
	store  *store.Store
	engine embedding.EmbeddingEngine
	now    func() time.Time
}

// New constructs a Pipeline over an already-open store and embedding
// engine (typically an *embedding.Gate).
func New(s *store.Store, engine embedding.EmbeddingEngine) *Pipeline {
	return &Pipeline{store: s, engine: engine, now: time.Now}
}

// IngestRequest is the caller-supplied shape of one ingest call.
type IngestRequest struct {
	ID       string // optional: reuse an existing id to regenerate in place
	Kind     store.MemoryKind
	Content  string
	Metadata string
	// File, if non-empty, is the file path this event concerns (a file-edit
	// event); it drives both content enrichment and file-sequence tracking.
	File string
}

// Ingest computes an embedding, upserts the memory row, and maintains the
// file-edit-sequence bookkeeping, matching the five-step contract: compute
// embedding, build the row, upsert, read/compare lastEditedFile, write the
// new lastEditedFile/lastEditTimestamp.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (store.Memory, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "Ingest")
	defer timer.Stop()

	content := req.Content
	if req.File != "" {
		content = enrichWithBasename(content, req.File)
	}

	vec, err := p.engine.Embed(ctx, content)
	if err != nil {
		return store.Memory{}, errs.Wrap(errs.KindBackendUnavailable, "failed to embed memory content", err)
	}

	now := p.now().Unix()
	id := req.ID
	if id == "" {
		id = mintMemoryID(now)
	}

	mem := store.Memory{
		ID:        id,
		Kind:      req.Kind,
		Content:   content,
		Embedding: vec,
		Metadata:  req.Metadata,
		Timestamp: now,
	}
	if err := p.store.AddMemory(mem); err != nil {
		return store.Memory{}, err
	}

	if req.File != "" {
		if err := p.recordFileSequence(req.File, now); err != nil {
			logging.Get(logging.CategoryMemory).Warn("file sequence bookkeeping failed: %v", err)
		}
	}

	logging.MemoryDebug("ingested memory id=%s kind=%s", id, req.Kind)
	return mem, nil
}

// recordFileSequence reads the prior lastEditedFile, records a transition
// when the file changed, and writes the new lastEditedFile/lastEditTimestamp.
func (p *Pipeline) recordFileSequence(file string, now int64) error {
	prev, ok, err := p.store.GetKV(kvLastEditedFile)
	if err != nil {
		return err
	}
	if ok && prev != "" && prev != file {
		if err := p.store.RecordFileSequence(prev, file); err != nil {
			return err
		}
	}
	if err := p.store.SetKV(kvLastEditedFile, file); err != nil {
		return err
	}
	return p.store.SetKV(kvLastEditTime, fmt.Sprintf("%d", now))
}

// enrichWithBasename rewrites content to include the file's basename so
// clustering treats edits on the same file as nearby regardless of path.
func enrichWithBasename(content, file string) string {
	base := filepath.Base(file)
	if strings.Contains(content, base) {
		return content
	}
	return fmt.Sprintf("[%s] %s", base, content)
}

// mintMemoryID builds an id of the documented shape: mem-<timestamp>-<random>.
func mintMemoryID(timestamp int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("mem-%d-%s", timestamp, suffix)
}
