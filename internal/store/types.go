package store

// MemoryKind enumerates the six kinds of Memory row the spec names.
type MemoryKind string

const (
	KindGeneral    MemoryKind = "general"
	KindEdit       MemoryKind = "edit"
	KindCommand    MemoryKind = "command"
	KindTrajectory MemoryKind = "trajectory"
	KindPattern    MemoryKind = "pattern"
	KindFoundation MemoryKind = "foundation"
)

// Memory is one row of the memories table.
type Memory struct {
	ID        string
	Kind      MemoryKind
	Content   string
	Embedding []float32 // nil if not yet embedded
	Metadata  string    // opaque JSON
	Timestamp int64
}

// QEntry is one row of the q_entries table. Key is always state+":"+action.
type QEntry struct {
	Key        string
	State      string
	Action     string
	QValue     float64
	Visits     int64
	LastUpdate int64
}

// Trajectory is one append-only row of the trajectories table.
type Trajectory struct {
	ID        string
	State     string
	Action    string
	Outcome   string
	Reward    float64
	Timestamp int64
}

// LearningData is the per-algorithm dense Q-table snapshot.
type LearningData struct {
	Algorithm  string
	QTableJSON string
}

// NeuralPattern is a cluster synthesized by the consolidator.
type NeuralPattern struct {
	ID         string
	Content    string
	Category   string
	Embedding  []float32
	Confidence float64
	Usage      int64
	CreatedAt  int64
	UpdatedAt  int64
	Metadata   string
}

// EdgeKind enumerates the edge kinds the spec names explicitly; additional
// kinds may be recorded by the front-end renderer and are passed through
// opaquely inside Data.
type EdgeKind string

const (
	EdgeTemporal EdgeKind = "temporal"
	EdgePattern  EdgeKind = "pattern"
	EdgeSemantic EdgeKind = "semantic"
	EdgeAgent    EdgeKind = "agent"
)

// Edge is one row of the edges table. ID is database-assigned.
type Edge struct {
	ID     int64
	Source string
	Target string
	Weight float64
	Data   string // opaque JSON, always carries {"type": <kind>, ...}
}

// Agent is one row of the agents table.
type Agent struct {
	Name     string
	DataJSON string
}

// CompressedPattern is one row of the compressed_patterns table (C6 output).
type CompressedPattern struct {
	ID               string
	Layer            string
	DataBlob         []byte
	CompressionRatio float64
	CreatedAt        int64
	Metadata         string
}

// FileSequence tracks how often an edit on from_file was followed by one on
// to_file, keyed on the composite (from_file, to_file).
type FileSequence struct {
	FromFile string
	ToFile   string
	Count    int64
}

// ErrorRecord is reserved for learned failure patterns.
type ErrorRecord struct {
	Key      string
	DataJSON string
}

const maxEdgeWeight = 10.0
