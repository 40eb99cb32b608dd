package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
)

// execer is the subset of *sql.DB and *sql.Tx every atomic mutator needs,
// letting the same query logic run either directly against the database or
// scoped inside a caller-managed transaction (see WithTx).
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error fn returns. Callers that must guarantee several
// mutations commit or fail together (the consolidator's pattern/edge/stat
// emissions) go through this instead of the locking per-call methods below.
func (s *Store) WithTx(fn func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errs.Wrap(errs.KindStoreBusy, "failed to begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindStoreBusy, "failed to commit transaction", err)
	}
	committed = true
	return nil
}

// AddMemory inserts or replaces a memory row.
func (s *Store) AddMemory(m Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO memories (id, kind, content, embedding, metadata, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.Kind), m.Content, packEmbedding(m.Embedding), m.Metadata, m.Timestamp,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("add memory %s failed: %v", m.ID, err)
		return errs.Wrap(errs.KindTransientIO, "failed to add memory", err)
	}
	return nil
}

// UpdateMemoryEmbedding backfills the embedding column for an existing
// memory row, the operation the re-embed pass uses.
func (s *Store) UpdateMemoryEmbedding(id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE memories SET embedding = ? WHERE id = ?`, packEmbedding(embedding), id)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to update memory embedding", err)
	}
	return nil
}

// LegacyMemories returns memories whose embedding byte length doesn't match
// the configured dimension, the set the re-embed command operates on.
func (s *Store) LegacyMemories() ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, kind, content, embedding, metadata, timestamp FROM memories`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to query memories", err)
	}
	defer rows.Close()

	want := embeddingBytesFor(s.dim)
	var out []Memory
	for rows.Next() {
		var m Memory
		var kind string
		var blob []byte
		if err := rows.Scan(&m.ID, &kind, &m.Content, &blob, &m.Metadata, &m.Timestamp); err != nil {
			continue
		}
		if len(blob) == 0 || len(blob) == want {
			continue
		}
		m.Kind = MemoryKind(kind)
		if len(blob) != 0 {
			m.Embedding = unpackEmbedding(blob)
		}
		out = append(out, m)
	}
	return out, nil
}

// RecentMemories returns up to limit memory rows ordered by most recent
// timestamp first, the window the consolidator scans for pattern synthesis.
func (s *Store) RecentMemories(limit int) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, kind, content, embedding, metadata, timestamp FROM memories ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load recent memories", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var kind string
		var blob []byte
		if err := rows.Scan(&m.ID, &kind, &m.Content, &blob, &m.Metadata, &m.Timestamp); err != nil {
			logging.StoreWarn("skipping malformed memory row during consolidation scan: %v", err)
			continue
		}
		m.Kind = MemoryKind(kind)
		if len(blob) != 0 {
			m.Embedding = unpackEmbedding(blob)
		}
		out = append(out, m)
	}
	return out, nil
}

// AddTrajectory appends one trajectory row.
func (s *Store) AddTrajectory(t Trajectory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO trajectories (id, state, action, outcome, reward, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.State, t.Action, t.Outcome, t.Reward, t.Timestamp,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to add trajectory", err)
	}
	return nil
}

// RecentTrajectories returns up to limit trajectory rows ordered by most
// recent timestamp first, for replay warm-up on startup.
func (s *Store) RecentTrajectories(limit int) ([]Trajectory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, state, action, outcome, reward, timestamp FROM trajectories ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load recent trajectories", err)
	}
	defer rows.Close()

	var out []Trajectory
	for rows.Next() {
		var t Trajectory
		if err := rows.Scan(&t.ID, &t.State, &t.Action, &t.Outcome, &t.Reward, &t.Timestamp); err != nil {
			logging.StoreWarn("skipping malformed trajectory row during warm-up: %v", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// RecordFileSequence upserts (from, to) incrementing count by one.
func (s *Store) RecordFileSequence(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO file_sequences (from_file, to_file, count) VALUES (?, ?, 1)
		 ON CONFLICT(from_file, to_file) DO UPDATE SET count = count + 1`,
		from, to,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to record file sequence", err)
	}
	return nil
}

// AddError records an error pattern row, swallowing malformed rows per the
// store's failure semantics (callers log; this never aborts a batch).
func (s *Store) AddError(key string, dataJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO errors (key, data_json) VALUES (?, ?)`, key, dataJSON)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to add error record", err)
	}
	return nil
}

// IncrementSessionCount bumps the stats row tracking total_sessions.
func (s *Store) IncrementSessionCount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO stats (key, value_text) VALUES ('total_sessions', '1')
		 ON CONFLICT(key) DO UPDATE SET value_text = CAST(CAST(value_text AS INTEGER) + 1 AS TEXT)`,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to increment session count", err)
	}
	return nil
}

// SetStat writes a stats row, overwriting any existing value.
func (s *Store) SetStat(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setStat(s.db, key, value)
}

// SetStatTx is SetStat scoped to a caller-managed transaction (see WithTx).
func (s *Store) SetStatTx(tx *sql.Tx, key, value string) error {
	return setStat(tx, key, value)
}

func setStat(ex execer, key, value string) error {
	_, err := ex.Exec(`INSERT OR REPLACE INTO stats (key, value_text) VALUES (?, ?)`, key, value)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to set stat", err)
	}
	return nil
}

// IncrementStat bumps an integer-valued stats row by one, creating it at 1
// if absent.
func (s *Store) IncrementStat(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return incrementStat(s.db, key)
}

// IncrementStatTx is IncrementStat scoped to a caller-managed transaction
// (see WithTx).
func (s *Store) IncrementStatTx(tx *sql.Tx, key string) error {
	return incrementStat(tx, key)
}

func incrementStat(ex execer, key string) error {
	_, err := ex.Exec(
		`INSERT INTO stats (key, value_text) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value_text = CAST(CAST(value_text AS INTEGER) + 1 AS TEXT)`,
		key,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to increment stat", err)
	}
	return nil
}

// SetKV stores a scratchpad key-value pair (lastEditedFile, sona_stats, ...).
func (s *Store) SetKV(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO kv_store (key, value_text) VALUES (?, ?)`, key, value)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to set kv", err)
	}
	return nil
}

// GetKV reads a scratchpad value. ok is false if the key has never been set.
func (s *Store) GetKV(key string) (value string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT value_text FROM kv_store WHERE key = ?`, key)
	if scanErr := row.Scan(&value); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errs.Wrap(errs.KindTransientIO, "failed to get kv", scanErr)
	}
	return value, true, nil
}

// SaveLearningData replaces the dense Q-table snapshot for one algorithm.
func (s *Store) SaveLearningData(algorithm, qTableJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO learning_data (algorithm, q_table_json) VALUES (?, ?)`, algorithm, qTableJSON)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to save learning data", err)
	}
	return nil
}

// LoadLearningData returns the stored Q-table snapshot for one algorithm, or
// ok=false if it has never been saved.
func (s *Store) LoadLearningData(algorithm string) (qTableJSON string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT q_table_json FROM learning_data WHERE algorithm = ?`, algorithm)
	if scanErr := row.Scan(&qTableJSON); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errs.Wrap(errs.KindTransientIO, "failed to load learning data", scanErr)
	}
	return qTableJSON, true, nil
}

// UpsertQEntry inserts or overwrites a (state, action) Q-value row.
func (s *Store) UpsertQEntry(q QEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := q.State + ":" + q.Action
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO q_entries (key, state, action, q_value, visits, last_update) VALUES (?, ?, ?, ?, ?, ?)`,
		key, q.State, q.Action, q.QValue, q.Visits, q.LastUpdate,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to upsert q entry", err)
	}
	return nil
}

// AddNeuralPattern inserts a freshly-synthesized pattern, or, if id already
// exists, nudges confidence up by 0.1 (capped at 1.0), increments usage, and
// touches updated_at.
func (s *Store) AddNeuralPattern(p NeuralPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addNeuralPattern(s.db, p)
}

// AddNeuralPatternTx is AddNeuralPattern scoped to a caller-managed
// transaction (see WithTx).
func (s *Store) AddNeuralPatternTx(tx *sql.Tx, p NeuralPattern) error {
	return addNeuralPattern(tx, p)
}

func addNeuralPattern(ex execer, p NeuralPattern) error {
	var exists bool
	row := ex.QueryRow(`SELECT EXISTS(SELECT 1 FROM neural_patterns WHERE id = ?)`, p.ID)
	if err := row.Scan(&exists); err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to check neural pattern existence", err)
	}

	if !exists {
		_, err := ex.Exec(
			`INSERT INTO neural_patterns (id, content, category, embedding, confidence, usage, created_at, updated_at, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Content, p.Category, packEmbedding(p.Embedding), p.Confidence, p.Usage, p.CreatedAt, p.UpdatedAt, p.Metadata,
		)
		if err != nil {
			return errs.Wrap(errs.KindTransientIO, "failed to insert neural pattern", err)
		}
		return nil
	}

	_, err := ex.Exec(
		`UPDATE neural_patterns
		 SET confidence = MIN(confidence + 0.1, 1.0), usage = usage + 1, updated_at = ?
		 WHERE id = ?`,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to reinforce neural pattern", err)
	}
	return nil
}

// edgeData is the opaque payload stored in edges.data.
type edgeData struct {
	Type  string                 `json:"type"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// AddEdge upserts an edge: if one already exists for (source, target) with
// the same data.type, its weight is bumped (capped at 10.0) and data
// replaced; otherwise a new row is inserted.
func (s *Store) AddEdge(source, target string, kind EdgeKind, weight float64, extra map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addEdge(s.db, source, target, kind, weight, extra)
}

// AddEdgeTx is AddEdge scoped to a caller-managed transaction (see WithTx).
func (s *Store) AddEdgeTx(tx *sql.Tx, source, target string, kind EdgeKind, weight float64, extra map[string]interface{}) error {
	return addEdge(tx, source, target, kind, weight, extra)
}

func addEdge(ex execer, source, target string, kind EdgeKind, weight float64, extra map[string]interface{}) error {
	data, err := json.Marshal(edgeData{Type: string(kind), Extra: extra})
	if err != nil {
		return errs.Wrap(errs.KindInvalidEvent, "failed to marshal edge data", err)
	}

	rows, err := ex.Query(`SELECT id, weight, data FROM edges WHERE source = ? AND target = ?`, source, target)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to query existing edges", err)
	}
	var matchID int64 = -1
	var matchWeight float64
	for rows.Next() {
		var id int64
		var w float64
		var raw string
		if err := rows.Scan(&id, &w, &raw); err != nil {
			continue
		}
		var existing edgeData
		if json.Unmarshal([]byte(raw), &existing) != nil || existing.Type != string(kind) {
			continue
		}
		matchID, matchWeight = id, w
		break
	}
	rows.Close()

	if matchID == -1 {
		_, err := ex.Exec(
			`INSERT INTO edges (source, target, weight, data) VALUES (?, ?, ?, ?)`,
			source, target, weight, string(data),
		)
		if err != nil {
			return errs.Wrap(errs.KindTransientIO, "failed to insert edge", err)
		}
		return nil
	}

	newWeight := matchWeight + weight
	if newWeight > maxEdgeWeight {
		newWeight = maxEdgeWeight
	}
	_, err = ex.Exec(`UPDATE edges SET weight = ?, data = ? WHERE id = ?`, newWeight, string(data), matchID)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to update edge", err)
	}
	return nil
}

// agentBlob is the JSON shape of agents.data_json.
type agentBlob struct {
	FirstSeen    int64  `json:"first_seen"`
	LastSeen     int64  `json:"last_seen"`
	LastSession  string `json:"last_session"`
	SessionCount int64  `json:"session_count"`
}

// RegisterAgent upserts an agent's activity blob, merging last_seen,
// session_count+1, and last_session into whatever was already recorded.
func (s *Store) RegisterAgent(name, session string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return registerAgent(s.db, name, session, now)
}

// RegisterAgentTx is RegisterAgent scoped to a caller-managed transaction
// (see WithTx).
func (s *Store) RegisterAgentTx(tx *sql.Tx, name, session string, now int64) error {
	return registerAgent(tx, name, session, now)
}

func registerAgent(ex execer, name, session string, now int64) error {
	var existing string
	row := ex.QueryRow(`SELECT data_json FROM agents WHERE name = ?`, name)
	blob := agentBlob{FirstSeen: now}
	if err := row.Scan(&existing); err == nil {
		if err := json.Unmarshal([]byte(existing), &blob); err != nil {
			logging.Get(logging.CategoryStore).Warn("malformed agent blob for %s, resetting: %v", name, err)
			blob = agentBlob{FirstSeen: now}
		}
	} else if err != sql.ErrNoRows {
		return errs.Wrap(errs.KindTransientIO, "failed to read agent", err)
	}

	blob.LastSeen = now
	blob.LastSession = session
	blob.SessionCount++

	data, err := json.Marshal(blob)
	if err != nil {
		return errs.Wrap(errs.KindInvalidEvent, "failed to marshal agent blob", err)
	}

	_, err = ex.Exec(`INSERT OR REPLACE INTO agents (name, data_json) VALUES (?, ?)`, name, string(data))
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to register agent", err)
	}
	return nil
}

// SaveCompressedPattern inserts or replaces a compressed pattern by id,
// minting an id from timestamp+random suffix if none is supplied.
func (s *Store) SaveCompressedPattern(p CompressedPattern) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = fmt.Sprintf("cp-%d-%04x", p.CreatedAt, rand.Intn(1<<16))
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO compressed_patterns (id, layer, data_blob, compression_ratio, created_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Layer, p.DataBlob, p.CompressionRatio, p.CreatedAt, p.Metadata,
	)
	if err != nil {
		return "", errs.Wrap(errs.KindTransientIO, "failed to save compressed pattern", err)
	}
	return p.ID, nil
}

// CountCompressedPatterns reports the total row count across all layers.
func (s *Store) CountCompressedPatterns() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM compressed_patterns`).Scan(&count); err != nil {
		return 0, errs.Wrap(errs.KindTransientIO, "failed to count compressed patterns", err)
	}
	return count, nil
}

// EvictOldestCompressedPatterns deletes the oldest rows (by created_at) so
// that at most keep rows remain across all layers.
func (s *Store) EvictOldestCompressedPatterns(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`DELETE FROM compressed_patterns WHERE id NOT IN (
			SELECT id FROM compressed_patterns ORDER BY created_at DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "failed to evict oldest compressed patterns", err)
	}
	return nil
}

// GetCompressedPatterns returns up to limit patterns for layer, newest first.
func (s *Store) GetCompressedPatterns(layer string, limit int) ([]CompressedPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, layer, data_blob, compression_ratio, created_at, metadata
		 FROM compressed_patterns WHERE layer = ? ORDER BY created_at DESC LIMIT ?`,
		layer, limit,
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to query compressed patterns", err)
	}
	defer rows.Close()

	var out []CompressedPattern
	for rows.Next() {
		var p CompressedPattern
		if err := rows.Scan(&p.ID, &p.Layer, &p.DataBlob, &p.CompressionRatio, &p.CreatedAt, &p.Metadata); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
