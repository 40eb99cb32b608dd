package store

import (
	"database/sql"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
)

// Snapshot is a full or partial view of every table the store owns. A nil
// slice field means "don't touch this table"; an empty non-nil slice means
// "this table should be empty" subject to the load-guard described on
// SaveAll.
type Snapshot struct {
	Memories           []Memory
	QEntries           []QEntry
	Trajectories       []Trajectory
	LearningData       []LearningData
	NeuralPatterns     []NeuralPattern
	Edges              []Edge
	Agents             []Agent
	CompressedPatterns []CompressedPattern
	FileSequences      []FileSequence
	Errors             []ErrorRecord
	Stats              map[string]string
	KV                 map[string]string
}

// LoadAll returns a snapshot of every table. Callers wanting the
// mirror-freshness and legacy-JSON-ingestion behavior described in the spec
// should go through Reconcile (mirror.go) before calling LoadAll.
func (s *Store) LoadAll() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap Snapshot
	var err error

	if snap.Memories, err = s.loadMemoriesLocked(); err != nil {
		return snap, err
	}
	if snap.QEntries, err = s.loadQEntriesLocked(); err != nil {
		return snap, err
	}
	if snap.Trajectories, err = s.loadTrajectoriesLocked(); err != nil {
		return snap, err
	}
	if snap.LearningData, err = s.loadLearningDataLocked(); err != nil {
		return snap, err
	}
	if snap.NeuralPatterns, err = s.loadNeuralPatternsLocked(); err != nil {
		return snap, err
	}
	if snap.Edges, err = s.loadEdgesLocked(); err != nil {
		return snap, err
	}
	if snap.Agents, err = s.loadAgentsLocked(); err != nil {
		return snap, err
	}
	if snap.CompressedPatterns, err = s.loadCompressedPatternsLocked(); err != nil {
		return snap, err
	}
	if snap.FileSequences, err = s.loadFileSequencesLocked(); err != nil {
		return snap, err
	}
	if snap.Errors, err = s.loadErrorsLocked(); err != nil {
		return snap, err
	}
	if snap.Stats, err = s.loadKVLikeLocked("stats"); err != nil {
		return snap, err
	}
	if snap.KV, err = s.loadKVLikeLocked("kv_store"); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *Store) loadMemoriesLocked() ([]Memory, error) {
	rows, err := s.db.Query(`SELECT id, kind, content, embedding, metadata, timestamp FROM memories`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load memories", err)
	}
	defer rows.Close()
	var out []Memory
	for rows.Next() {
		var m Memory
		var kind string
		var blob []byte
		if err := rows.Scan(&m.ID, &kind, &m.Content, &blob, &m.Metadata, &m.Timestamp); err != nil {
			logging.StoreWarn("skipping malformed memory row: %v", err)
			continue
		}
		m.Kind = MemoryKind(kind)
		if len(blob) > 0 {
			m.Embedding = unpackEmbedding(blob)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) loadQEntriesLocked() ([]QEntry, error) {
	rows, err := s.db.Query(`SELECT key, state, action, q_value, visits, last_update FROM q_entries`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load q_entries", err)
	}
	defer rows.Close()
	var out []QEntry
	for rows.Next() {
		var q QEntry
		if err := rows.Scan(&q.Key, &q.State, &q.Action, &q.QValue, &q.Visits, &q.LastUpdate); err != nil {
			logging.StoreWarn("skipping malformed q_entry row: %v", err)
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Store) loadTrajectoriesLocked() ([]Trajectory, error) {
	rows, err := s.db.Query(`SELECT id, state, action, outcome, reward, timestamp FROM trajectories`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load trajectories", err)
	}
	defer rows.Close()
	var out []Trajectory
	for rows.Next() {
		var t Trajectory
		if err := rows.Scan(&t.ID, &t.State, &t.Action, &t.Outcome, &t.Reward, &t.Timestamp); err != nil {
			logging.StoreWarn("skipping malformed trajectory row: %v", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) loadLearningDataLocked() ([]LearningData, error) {
	rows, err := s.db.Query(`SELECT algorithm, q_table_json FROM learning_data`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load learning_data", err)
	}
	defer rows.Close()
	var out []LearningData
	for rows.Next() {
		var l LearningData
		if err := rows.Scan(&l.Algorithm, &l.QTableJSON); err != nil {
			logging.StoreWarn("skipping malformed learning_data row: %v", err)
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) loadNeuralPatternsLocked() ([]NeuralPattern, error) {
	rows, err := s.db.Query(`SELECT id, content, category, embedding, confidence, usage, created_at, updated_at, metadata FROM neural_patterns`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load neural_patterns", err)
	}
	defer rows.Close()
	var out []NeuralPattern
	for rows.Next() {
		var p NeuralPattern
		var blob []byte
		if err := rows.Scan(&p.ID, &p.Content, &p.Category, &blob, &p.Confidence, &p.Usage, &p.CreatedAt, &p.UpdatedAt, &p.Metadata); err != nil {
			logging.StoreWarn("skipping malformed neural_pattern row: %v", err)
			continue
		}
		if len(blob) > 0 {
			p.Embedding = unpackEmbedding(blob)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) loadEdgesLocked() ([]Edge, error) {
	rows, err := s.db.Query(`SELECT id, source, target, weight, data FROM edges`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load edges", err)
	}
	defer rows.Close()
	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Weight, &e.Data); err != nil {
			logging.StoreWarn("skipping malformed edge row: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) loadAgentsLocked() ([]Agent, error) {
	rows, err := s.db.Query(`SELECT name, data_json FROM agents`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load agents", err)
	}
	defer rows.Close()
	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.Name, &a.DataJSON); err != nil {
			logging.StoreWarn("skipping malformed agent row: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) loadCompressedPatternsLocked() ([]CompressedPattern, error) {
	rows, err := s.db.Query(`SELECT id, layer, data_blob, compression_ratio, created_at, metadata FROM compressed_patterns`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load compressed_patterns", err)
	}
	defer rows.Close()
	var out []CompressedPattern
	for rows.Next() {
		var p CompressedPattern
		if err := rows.Scan(&p.ID, &p.Layer, &p.DataBlob, &p.CompressionRatio, &p.CreatedAt, &p.Metadata); err != nil {
			logging.StoreWarn("skipping malformed compressed_pattern row: %v", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) loadFileSequencesLocked() ([]FileSequence, error) {
	rows, err := s.db.Query(`SELECT from_file, to_file, count FROM file_sequences`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load file_sequences", err)
	}
	defer rows.Close()
	var out []FileSequence
	for rows.Next() {
		var f FileSequence
		if err := rows.Scan(&f.FromFile, &f.ToFile, &f.Count); err != nil {
			logging.StoreWarn("skipping malformed file_sequence row: %v", err)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *Store) loadErrorsLocked() ([]ErrorRecord, error) {
	rows, err := s.db.Query(`SELECT key, data_json FROM errors`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load errors", err)
	}
	defer rows.Close()
	var out []ErrorRecord
	for rows.Next() {
		var e ErrorRecord
		if err := rows.Scan(&e.Key, &e.DataJSON); err != nil {
			logging.StoreWarn("skipping malformed error row: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) loadKVLikeLocked(table string) (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value_text FROM " + table)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to load "+table, err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// SaveAll upserts every non-nil field of snap inside one transaction, then
// deletes rows whose primary key wasn't touched by this pass ("stale-row
// reconciliation"). A field that's an empty-but-non-nil slice/map is
// skipped entirely when the corresponding table already has rows, guarding
// against a concurrent writer that loaded stale data from wiping them.
func (s *Store) SaveAll(snap Snapshot) error {
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

	savers := []func() error{
		func() error { return saveMemories(tx, snap.Memories) },
		func() error { return saveQEntries(tx, snap.QEntries) },
		func() error { return saveTrajectories(tx, snap.Trajectories) },
		func() error { return saveLearningData(tx, snap.LearningData) },
		func() error { return saveNeuralPatterns(tx, snap.NeuralPatterns) },
		func() error { return saveEdges(tx, snap.Edges) },
		func() error { return saveAgents(tx, snap.Agents) },
		func() error { return saveCompressedPatterns(tx, snap.CompressedPatterns) },
		func() error { return saveFileSequences(tx, snap.FileSequences) },
		func() error { return saveErrors(tx, snap.Errors) },
		func() error { return saveKVLike(tx, "stats", snap.Stats) },
		func() error { return saveKVLike(tx, "kv_store", snap.KV) },
	}
	for _, save := range savers {
		if err := save(); err != nil {
			return errs.Wrap(errs.KindStoreBusy, "save_all transaction failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindStoreBusy, "failed to commit save_all transaction", err)
	}
	committed = true
	return nil
}

// tableHasRows reports whether table currently has at least one row,
// used by the empty-collection write guard.
func tableHasRows(tx *sql.Tx, table string) bool {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// reconcileStaleKeys deletes every row of table whose primary key (column
// keyCol) isn't in touched, implementing the stale-row reconciliation rule.
func reconcileStaleKeys(tx *sql.Tx, table, keyCol string, touched map[string]struct{}) error {
	rows, err := tx.Query("SELECT " + keyCol + " FROM " + table)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			continue
		}
		if _, ok := touched[key]; !ok {
			stale = append(stale, key)
		}
	}
	rows.Close()

	for _, key := range stale {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE "+keyCol+" = ?", key); err != nil {
			return err
		}
	}
	return nil
}

func saveMemories(tx *sql.Tx, rows []Memory) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "memories") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, m := range rows {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO memories (id, kind, content, embedding, metadata, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, string(m.Kind), m.Content, packEmbedding(m.Embedding), m.Metadata, m.Timestamp,
		)
		if err != nil {
			logging.StoreWarn("skipping memory %s during save_all: %v", m.ID, err)
			continue
		}
		touched[m.ID] = struct{}{}
	}
	return reconcileStaleKeys(tx, "memories", "id", touched)
}

func saveQEntries(tx *sql.Tx, rows []QEntry) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "q_entries") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, q := range rows {
		key := q.State + ":" + q.Action
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO q_entries (key, state, action, q_value, visits, last_update) VALUES (?, ?, ?, ?, ?, ?)`,
			key, q.State, q.Action, q.QValue, q.Visits, q.LastUpdate,
		)
		if err != nil {
			logging.StoreWarn("skipping q_entry %s during save_all: %v", key, err)
			continue
		}
		touched[key] = struct{}{}
	}
	return reconcileStaleKeys(tx, "q_entries", "key", touched)
}

func saveTrajectories(tx *sql.Tx, rows []Trajectory) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "trajectories") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, t := range rows {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO trajectories (id, state, action, outcome, reward, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.State, t.Action, t.Outcome, t.Reward, t.Timestamp,
		)
		if err != nil {
			logging.StoreWarn("skipping trajectory %s during save_all: %v", t.ID, err)
			continue
		}
		touched[t.ID] = struct{}{}
	}
	return reconcileStaleKeys(tx, "trajectories", "id", touched)
}

func saveLearningData(tx *sql.Tx, rows []LearningData) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "learning_data") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, l := range rows {
		_, err := tx.Exec(`INSERT OR REPLACE INTO learning_data (algorithm, q_table_json) VALUES (?, ?)`, l.Algorithm, l.QTableJSON)
		if err != nil {
			logging.StoreWarn("skipping learning_data %s during save_all: %v", l.Algorithm, err)
			continue
		}
		touched[l.Algorithm] = struct{}{}
	}
	return reconcileStaleKeys(tx, "learning_data", "algorithm", touched)
}

func saveNeuralPatterns(tx *sql.Tx, rows []NeuralPattern) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "neural_patterns") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, p := range rows {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO neural_patterns (id, content, category, embedding, confidence, usage, created_at, updated_at, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Content, p.Category, packEmbedding(p.Embedding), p.Confidence, p.Usage, p.CreatedAt, p.UpdatedAt, p.Metadata,
		)
		if err != nil {
			logging.StoreWarn("skipping neural_pattern %s during save_all: %v", p.ID, err)
			continue
		}
		touched[p.ID] = struct{}{}
	}
	return reconcileStaleKeys(tx, "neural_patterns", "id", touched)
}

// saveEdges uses DELETE-all + bulk insert since edges.id is auto-generated
// and can't be used as a stable reconciliation key across saves.
func saveEdges(tx *sql.Tx, rows []Edge) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "edges") {
		return nil
	}
	if _, err := tx.Exec(`DELETE FROM edges`); err != nil {
		return err
	}
	for _, e := range rows {
		if _, err := tx.Exec(
			`INSERT INTO edges (source, target, weight, data) VALUES (?, ?, ?, ?)`,
			e.Source, e.Target, e.Weight, e.Data,
		); err != nil {
			logging.StoreWarn("skipping edge %s->%s during save_all: %v", e.Source, e.Target, err)
		}
	}
	return nil
}

func saveAgents(tx *sql.Tx, rows []Agent) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "agents") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, a := range rows {
		_, err := tx.Exec(`INSERT OR REPLACE INTO agents (name, data_json) VALUES (?, ?)`, a.Name, a.DataJSON)
		if err != nil {
			logging.StoreWarn("skipping agent %s during save_all: %v", a.Name, err)
			continue
		}
		touched[a.Name] = struct{}{}
	}
	return reconcileStaleKeys(tx, "agents", "name", touched)
}

func saveCompressedPatterns(tx *sql.Tx, rows []CompressedPattern) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "compressed_patterns") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, p := range rows {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO compressed_patterns (id, layer, data_blob, compression_ratio, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Layer, p.DataBlob, p.CompressionRatio, p.CreatedAt, p.Metadata,
		)
		if err != nil {
			logging.StoreWarn("skipping compressed_pattern %s during save_all: %v", p.ID, err)
			continue
		}
		touched[p.ID] = struct{}{}
	}
	return reconcileStaleKeys(tx, "compressed_patterns", "id", touched)
}

// saveFileSequences keys reconciliation on the composite (from_file,
// to_file), joined with a separator unlikely to appear in a file path.
func saveFileSequences(tx *sql.Tx, rows []FileSequence) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "file_sequences") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, f := range rows {
		_, err := tx.Exec(
			`INSERT INTO file_sequences (from_file, to_file, count) VALUES (?, ?, ?)
			 ON CONFLICT(from_file, to_file) DO UPDATE SET count = excluded.count`,
			f.FromFile, f.ToFile, f.Count,
		)
		if err != nil {
			logging.StoreWarn("skipping file_sequence %s->%s during save_all: %v", f.FromFile, f.ToFile, err)
			continue
		}
		touched[f.FromFile+"\x00"+f.ToFile] = struct{}{}
	}

	existing, err := tx.Query(`SELECT from_file, to_file FROM file_sequences`)
	if err != nil {
		return err
	}
	var stale [][2]string
	for existing.Next() {
		var from, to string
		if err := existing.Scan(&from, &to); err != nil {
			continue
		}
		if _, ok := touched[from+"\x00"+to]; !ok {
			stale = append(stale, [2]string{from, to})
		}
	}
	existing.Close()
	for _, pair := range stale {
		if _, err := tx.Exec(`DELETE FROM file_sequences WHERE from_file = ? AND to_file = ?`, pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

func saveErrors(tx *sql.Tx, rows []ErrorRecord) error {
	if rows == nil {
		return nil
	}
	if len(rows) == 0 && tableHasRows(tx, "errors") {
		return nil
	}
	touched := make(map[string]struct{}, len(rows))
	for _, e := range rows {
		_, err := tx.Exec(`INSERT OR REPLACE INTO errors (key, data_json) VALUES (?, ?)`, e.Key, e.DataJSON)
		if err != nil {
			logging.StoreWarn("skipping error record %s during save_all: %v", e.Key, err)
			continue
		}
		touched[e.Key] = struct{}{}
	}
	return reconcileStaleKeys(tx, "errors", "key", touched)
}

func saveKVLike(tx *sql.Tx, table string, kv map[string]string) error {
	if kv == nil {
		return nil
	}
	if len(kv) == 0 && tableHasRows(tx, table) {
		return nil
	}
	touched := make(map[string]struct{}, len(kv))
	for k, v := range kv {
		_, err := tx.Exec("INSERT OR REPLACE INTO "+table+" (key, value_text) VALUES (?, ?)", k, v)
		if err != nil {
			logging.StoreWarn("skipping %s key %s during save_all: %v", table, k, err)
			continue
		}
		touched[k] = struct{}{}
	}
	return reconcileStaleKeys(tx, table, "key", touched)
}
