package store

import (
	"encoding/json"
	"os"
	"time"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
)

// mirrorDoc is the JSON-serializable projection of a Snapshot written
// alongside the database for legacy read-only consumers.
type mirrorDoc struct {
	Memories           []Memory            `json:"memories"`
	QEntries           []QEntry            `json:"q_entries"`
	Trajectories       []Trajectory        `json:"trajectories"`
	LearningData       []LearningData      `json:"learning_data"`
	NeuralPatterns     []NeuralPattern     `json:"neural_patterns"`
	Edges              []Edge              `json:"edges"`
	Agents             []Agent             `json:"agents"`
	CompressedPatterns []CompressedPattern `json:"compressed_patterns"`
	FileSequences      []FileSequence      `json:"file_sequences"`
	Errors             []ErrorRecord       `json:"errors"`
	Stats              map[string]string   `json:"stats"`
	KV                 map[string]string   `json:"kv_store"`
}

func toMirrorDoc(s Snapshot) mirrorDoc {
	return mirrorDoc{
		Memories: s.Memories, QEntries: s.QEntries, Trajectories: s.Trajectories,
		LearningData: s.LearningData, NeuralPatterns: s.NeuralPatterns, Edges: s.Edges,
		Agents: s.Agents, CompressedPatterns: s.CompressedPatterns, FileSequences: s.FileSequences,
		Errors: s.Errors, Stats: s.Stats, KV: s.KV,
	}
}

func fromMirrorDoc(d mirrorDoc) Snapshot {
	return Snapshot{
		Memories: d.Memories, QEntries: d.QEntries, Trajectories: d.Trajectories,
		LearningData: d.LearningData, NeuralPatterns: d.NeuralPatterns, Edges: d.Edges,
		Agents: d.Agents, CompressedPatterns: d.CompressedPatterns, FileSequences: d.FileSequences,
		Errors: d.Errors, Stats: d.Stats, KV: d.KV,
	}
}

// WriteMirror serializes snap as pretty JSON next to the database file.
// Failures are logged but never returned as a hard error: the spec treats
// the mirror as a convenience, never the authoritative copy.
func (s *Store) WriteMirror(snap Snapshot) {
	data, err := json.MarshalIndent(toMirrorDoc(snap), "", "  ")
	if err != nil {
		logging.StoreWarn("failed to marshal json mirror: %v", err)
		return
	}
	if err := os.WriteFile(s.mirrorPath, data, 0644); err != nil {
		logging.StoreWarn("failed to write json mirror at %s: %v", s.mirrorPath, err)
	}
}

// IsMirrorNewer reports whether the mirror file's mtime exceeds the
// database file's by more than one second, the threshold the spec uses to
// decide whether an external writer raced ahead of the database.
func (s *Store) IsMirrorNewer() bool {
	mirrorInfo, err := os.Stat(s.mirrorPath)
	if err != nil {
		return false
	}
	dbInfo, err := os.Stat(s.dbPath)
	if err != nil {
		// No database file yet; mirror is authoritative by default.
		return true
	}
	return mirrorInfo.ModTime().Sub(dbInfo.ModTime()) > time.Second
}

// ImportFromJSON reads the mirror file and re-populates every table via
// SaveAll, the path used when the mirror has raced ahead of the database.
func (s *Store) ImportFromJSON() error {
	data, err := os.ReadFile(s.mirrorPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.KindTransientIO, "failed to read json mirror", err)
	}
	var doc mirrorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return errs.Wrap(errs.KindCorruption, "failed to parse json mirror", err)
	}
	logging.Store("importing json mirror from %s", s.mirrorPath)
	return s.SaveAll(fromMirrorDoc(doc))
}

// Reconcile implements load_all's documented precondition: if the mirror is
// newer than the database by more than a second, import it first; if both
// the database and mirror are empty but a legacy JSON-only file exists at
// legacyPath, ingest it and write it through to the database.
func (s *Store) Reconcile(legacyPath string) error {
	if s.IsMirrorNewer() {
		if err := s.ImportFromJSON(); err != nil {
			return err
		}
		return nil
	}

	stats, err := s.Stats()
	if err != nil {
		return err
	}
	empty := true
	for _, count := range stats {
		if count > 0 {
			empty = false
			break
		}
	}
	if !empty || legacyPath == "" {
		return nil
	}

	data, err := os.ReadFile(legacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.KindTransientIO, "failed to read legacy json file", err)
	}
	var doc mirrorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return errs.Wrap(errs.KindCorruption, "failed to parse legacy json file", err)
	}
	logging.Store("ingesting legacy json-only file from %s", legacyPath)
	snap := fromMirrorDoc(doc)
	if err := s.SaveAll(snap); err != nil {
		return err
	}
	s.WriteMirror(snap)
	return nil
}
