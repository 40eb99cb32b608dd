package config

// EmbeddingConfig configures the embedder (C2): which backend to use, at
// what dimension, and the similarity threshold the consolidator uses to
// emit semantic edges.
type EmbeddingConfig struct {
	Model              string  `yaml:"embedding_model"`
	Dimension          int     `yaml:"embedding_dim"`
	SemanticThreshold  float64 `yaml:"semantic_threshold"`
	OnnxEnabled        bool    `yaml:"onnx_enabled"`         // attempt semantic backend
	SemanticEmbeddings bool    `yaml:"semantic_embeddings"`  // if false, force hash fallback
	MaxSemanticEdges   int     `yaml:"max_semantic_edges"`

	// Provider-specific settings, not part of the spec's documented
	// config keys but required to actually construct the backends named
	// by embedding_model.
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
	TaskType       string `yaml:"task_type"`
}

// DefaultEmbeddingConfig returns the spec's documented defaults.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Model:              "all-MiniLM-L6-v2",
		Dimension:          384,
		SemanticThreshold:  0.55,
		OnnxEnabled:        true,
		SemanticEmbeddings: true,
		MaxSemanticEdges:   50,
		OllamaEndpoint:     "http://localhost:11434",
		OllamaModel:        "embeddinggemma",
		GenAIModel:         "gemini-embedding-001",
		TaskType:           "SEMANTIC_SIMILARITY",
	}
}

// Provider picks an embedding.Config-compatible provider name from the
// configured backend flags: genai if an API key is present, otherwise
// ollama when onnx_enabled, otherwise the hash fallback.
func (e EmbeddingConfig) Provider() string {
	if !e.SemanticEmbeddings || !e.OnnxEnabled {
		return "hash"
	}
	if e.GenAIAPIKey != "" {
		return "genai"
	}
	return "ollama"
}
