package validate

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nerdmem/internal/config"
	"nerdmem/internal/store"
)

// expectedSchema names the twelve tables and the columns each must carry,
// mirroring internal/store/schema.go's DDL.
var expectedSchema = map[string][]string{
	"memories":            {"id", "kind", "content", "embedding", "metadata", "timestamp"},
	"q_entries":           {"key", "state", "action", "q_value", "visits", "last_update"},
	"trajectories":        {"id", "state", "action", "outcome", "reward", "timestamp"},
	"learning_data":       {"algorithm", "q_table_json"},
	"neural_patterns":     {"id", "content", "category", "embedding", "confidence", "usage", "created_at", "updated_at", "metadata"},
	"edges":               {"id", "source", "target", "weight", "data"},
	"agents":              {"name", "data_json"},
	"compressed_patterns": {"id", "layer", "data_blob", "compression_ratio", "created_at", "metadata"},
	"file_sequences":      {"from_file", "to_file", "count"},
	"errors":              {"key", "data_json"},
	"stats":               {"key", "value_text"},
	"kv_store":            {"key", "value_text"},
}

// Validator runs the read-only L1-L10 + parity health checks.
type Validator struct {
	root  string
	cfg   *config.Config
	store *store.Store
}

// New constructs a Validator over an already-open store and loaded config.
func New(root string, cfg *config.Config, s *store.Store) *Validator {
	return &Validator{root: root, cfg: cfg, store: s}
}

// Run executes every check in documented order and returns the full report.
func (v *Validator) Run() Report {
	var checks []Check
	checks = append(checks, v.checkInstallLayout()...)
	checks = append(checks, v.checkConfiguration()...)
	checks = append(checks, v.checkSchema()...)
	checks = append(checks, v.checkEmbeddingDimension())
	checks = append(checks, v.checkPipelinePopulations()...)
	checks = append(checks, v.checkParity())
	return Report{Checks: checks}
}

// checkInstallLayout is L1: required files and directories present.
func (v *Validator) checkInstallLayout() []Check {
	var out []Check

	required := []string{
		filepath.Join(v.root, ".nerdmem"),
		config.ConfigPath(v.root),
	}
	for _, p := range required {
		if _, err := os.Stat(p); err != nil {
			out = append(out, fail("install-layout:"+filepath.Base(p), "L1", fmt.Sprintf("missing %s", p)))
			continue
		}
		out = append(out, pass("install-layout:"+filepath.Base(p), "L1", fmt.Sprintf("%s present", p)))
	}

	if _, err := os.Stat(v.store.Path()); err != nil {
		out = append(out, fail("install-layout:database", "L1", fmt.Sprintf("database file missing at %s", v.store.Path())))
	} else {
		out = append(out, pass("install-layout:database", "L1", "database file present"))
	}
	return out
}

// checkConfiguration is L2: semantic-embeddings flag, dimension, hook-timeout.
func (v *Validator) checkConfiguration() []Check {
	var out []Check

	if v.cfg.Embedding.Dimension <= 0 {
		out = append(out, fail("config:dimension", "L2", "embedding_dim must be positive"))
	} else {
		out = append(out, pass("config:dimension", "L2", fmt.Sprintf("embedding_dim=%d", v.cfg.Embedding.Dimension)))
	}

	if v.cfg.Hook.TimeoutMs < 5000 {
		out = append(out, fail("config:hook-timeout", "L2", fmt.Sprintf("hook_timeout=%dms below the 5000ms floor", v.cfg.Hook.TimeoutMs)))
	} else {
		out = append(out, pass("config:hook-timeout", "L2", fmt.Sprintf("hook_timeout=%dms", v.cfg.Hook.TimeoutMs)))
	}

	if !v.cfg.Embedding.SemanticEmbeddings {
		out = append(out, warn("config:semantic-embeddings", "L2", "semantic embeddings disabled, running on hash fallback"))
	} else {
		out = append(out, pass("config:semantic-embeddings", "L2", "semantic embeddings enabled"))
	}
	return out
}

// checkSchema is L3: all twelve tables present with their expected columns.
func (v *Validator) checkSchema() []Check {
	var out []Check
	db := v.store.DB()

	for table, wantCols := range expectedSchema {
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			out = append(out, fail("schema:"+table, "L3", fmt.Sprintf("table_info query failed: %v", err)))
			continue
		}
		got := make(map[string]bool)
		for rows.Next() {
			var cid int
			var name, colType string
			var notNull, pk int
			var dflt interface{}
			if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
				continue
			}
			got[name] = true
		}
		rows.Close()

		if len(got) == 0 {
			out = append(out, fail("schema:"+table, "L3", "table missing"))
			continue
		}
		var missing []string
		for _, col := range wantCols {
			if !got[col] {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			out = append(out, fail("schema:"+table, "L3", fmt.Sprintf("missing columns: %v", missing)))
			continue
		}
		out = append(out, pass("schema:"+table, "L3", "all expected columns present"))
	}
	return out
}

// checkEmbeddingDimension is L5: every stored embedding is either empty or
// exactly 4*dim bytes.
func (v *Validator) checkEmbeddingDimension() Check {
	db := v.store.DB()
	want := 4 * v.cfg.Embedding.Dimension

	rows, err := db.Query(`SELECT length(embedding) FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return fail("embedding-dimension", "L5", fmt.Sprintf("query failed: %v", err))
	}
	defer rows.Close()

	histogram := make(map[int]int)
	bad := 0
	total := 0
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			continue
		}
		total++
		histogram[n]++
		if n != 0 && n != want {
			bad++
		}
	}

	if bad > 0 {
		return fail("embedding-dimension", "L5", fmt.Sprintf("%d/%d rows have a byte length that is neither 0 nor %d (histogram=%v)", bad, total, want, histogram))
	}
	return pass("embedding-dimension", "L5", fmt.Sprintf("%d rows checked, histogram=%v", total, histogram))
}

// checkPipelinePopulations is L7-L10: neural-pattern count, edge count per
// kind, agents >= 1, trajectory reward variance > 0, stats keys populated,
// consolidation freshness < 24h.
func (v *Validator) checkPipelinePopulations() []Check {
	var out []Check
	db := v.store.DB()

	var patternCount int64
	_ = db.QueryRow(`SELECT COUNT(*) FROM neural_patterns`).Scan(&patternCount)
	if patternCount == 0 {
		out = append(out, warn("pipeline:neural-patterns", "L7", "no neural patterns synthesized yet"))
	} else {
		out = append(out, pass("pipeline:neural-patterns", "L7", fmt.Sprintf("%d neural patterns", patternCount)))
	}

	out = append(out, v.checkEdgeCountsByKind())

	var agentCount int64
	_ = db.QueryRow(`SELECT COUNT(*) FROM agents`).Scan(&agentCount)
	if agentCount < 1 {
		out = append(out, fail("pipeline:agents", "L8", "no agents registered"))
	} else {
		out = append(out, pass("pipeline:agents", "L8", fmt.Sprintf("%d agents registered", agentCount)))
	}

	out = append(out, v.checkTrajectoryRewardVariance())
	out = append(out, v.checkStatsPopulated())
	out = append(out, v.checkConsolidationFreshness())
	return out
}

func (v *Validator) checkEdgeCountsByKind() Check {
	db := v.store.DB()
	rows, err := db.Query(`SELECT data FROM edges`)
	if err != nil {
		return fail("pipeline:edges-by-kind", "L8", fmt.Sprintf("query failed: %v", err))
	}
	defer rows.Close()

	counts := make(map[string]int)
	total := 0
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		total++
		var payload struct {
			Type string `json:"type"`
		}
		if json.Unmarshal([]byte(data), &payload) == nil && payload.Type != "" {
			counts[payload.Type]++
		} else {
			counts["unknown"]++
		}
	}

	if total == 0 {
		return warn("pipeline:edges-by-kind", "L8", "no edges recorded yet")
	}
	return pass("pipeline:edges-by-kind", "L8", fmt.Sprintf("%d edges, by kind=%v", total, counts))
}

// checkTrajectoryRewardVariance flags a flat reward stream (variance == 0
// across at least two recorded trajectories) as a regression: the RL engine
// should never emit the exact same reward for every recent trajectory.
func (v *Validator) checkTrajectoryRewardVariance() Check {
	trajs, err := v.store.RecentTrajectories(200)
	if err != nil {
		return fail("pipeline:trajectory-variance", "L9", fmt.Sprintf("query failed: %v", err))
	}
	if len(trajs) < 2 {
		return warn("pipeline:trajectory-variance", "L9", "fewer than 2 trajectories recorded, variance undefined")
	}

	var sum, sumSq float64
	for _, t := range trajs {
		sum += t.Reward
		sumSq += t.Reward * t.Reward
	}
	n := float64(len(trajs))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 1e-9 {
		return fail("pipeline:trajectory-variance", "L9", fmt.Sprintf("reward variance is %.6f across %d trajectories, looks like a flat-reward regression", variance, len(trajs)))
	}
	return pass("pipeline:trajectory-variance", "L9", fmt.Sprintf("reward variance=%.4f across %d trajectories", variance, len(trajs)))
}

func (v *Validator) checkStatsPopulated() Check {
	db := v.store.DB()
	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM stats`).Scan(&count); err != nil {
		return fail("pipeline:stats-populated", "L9", fmt.Sprintf("query failed: %v", err))
	}
	if count == 0 {
		return warn("pipeline:stats-populated", "L9", "stats table is empty")
	}
	return pass("pipeline:stats-populated", "L9", fmt.Sprintf("%d stats keys populated", count))
}

// checkConsolidationFreshness is L10: the last consolidation pass ran within
// the last 24 hours.
func (v *Validator) checkConsolidationFreshness() Check {
	val, ok, err := v.statLookup("last_consolidation")
	if err != nil {
		return fail("pipeline:consolidation-freshness", "L10", fmt.Sprintf("query failed: %v", err))
	}
	if !ok {
		return warn("pipeline:consolidation-freshness", "L10", "no consolidation pass has run yet")
	}

	ts, err := parseUnix(val)
	if err != nil {
		return fail("pipeline:consolidation-freshness", "L10", fmt.Sprintf("last_consolidation stat is not a timestamp: %v", err))
	}
	age := time.Since(time.Unix(ts, 0))
	if age > 24*time.Hour {
		return fail("pipeline:consolidation-freshness", "L10", fmt.Sprintf("last consolidation was %s ago", age.Round(time.Minute)))
	}
	return pass("pipeline:consolidation-freshness", "L10", fmt.Sprintf("last consolidation was %s ago", age.Round(time.Minute)))
}

func (v *Validator) statLookup(key string) (string, bool, error) {
	db := v.store.DB()
	var value string
	err := db.QueryRow(`SELECT value_text FROM stats WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func parseUnix(s string) (int64, error) {
	var ts int64
	_, err := fmt.Sscanf(s, "%d", &ts)
	return ts, err
}

// checkParity compares the memory count in the JSON mirror against the
// database; equal or mirror-absent both pass.
func (v *Validator) checkParity() Check {
	mirrorPath := v.store.MirrorPath()
	data, err := os.ReadFile(mirrorPath)
	if err != nil {
		if os.IsNotExist(err) {
			return pass("parity:mirror", "Parity", "mirror absent, nothing to compare")
		}
		return fail("parity:mirror", "Parity", fmt.Sprintf("failed to read mirror: %v", err))
	}

	var mirror struct {
		Memories []json.RawMessage `json:"memories"`
	}
	if err := json.Unmarshal(data, &mirror); err != nil {
		return fail("parity:mirror", "Parity", fmt.Sprintf("failed to parse mirror: %v", err))
	}

	db := v.store.DB()
	var dbCount int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&dbCount); err != nil {
		return fail("parity:mirror", "Parity", fmt.Sprintf("failed to count memories: %v", err))
	}

	if int64(len(mirror.Memories)) != dbCount {
		return fail("parity:mirror", "Parity", fmt.Sprintf("mirror has %d memories, database has %d", len(mirror.Memories), dbCount))
	}
	return pass("parity:mirror", "Parity", fmt.Sprintf("mirror and database agree on %d memories", dbCount))
}
