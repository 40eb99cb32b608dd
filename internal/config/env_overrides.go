package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides lets NERDMEM_* environment variables override whatever
// the YAML file set, so a single host process can tweak behavior per
// invocation without rewriting the config file.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("NERDMEM_SQLITE_PATH"); ok {
		c.Store.Path = v
	}
	if v, ok := lookupBool("NERDMEM_INTELLIGENCE_ENABLED"); ok {
		c.Store.Enabled = v
	}

	if v, ok := os.LookupEnv("NERDMEM_EMBEDDING_MODEL"); ok {
		c.Embedding.Model = v
	}
	if v, ok := lookupInt("NERDMEM_EMBEDDING_DIM"); ok {
		c.Embedding.Dimension = v
	}
	if v, ok := lookupFloat("NERDMEM_SEMANTIC_THRESHOLD"); ok {
		c.Embedding.SemanticThreshold = v
	}
	if v, ok := lookupBool("NERDMEM_ONNX_ENABLED"); ok {
		c.Embedding.OnnxEnabled = v
	}
	if v, ok := lookupBool("NERDMEM_SEMANTIC_EMBEDDINGS"); ok {
		c.Embedding.SemanticEmbeddings = v
	}
	if v, ok := lookupInt("NERDMEM_MAX_SEMANTIC_EDGES"); ok {
		c.Embedding.MaxSemanticEdges = v
	}
	if v, ok := os.LookupEnv("NERDMEM_OLLAMA_ENDPOINT"); ok {
		c.Embedding.OllamaEndpoint = v
	}
	if v, ok := os.LookupEnv("NERDMEM_OLLAMA_MODEL"); ok {
		c.Embedding.OllamaModel = v
	}
	if v, ok := os.LookupEnv("NERDMEM_GENAI_API_KEY"); ok {
		c.Embedding.GenAIAPIKey = v
	}
	if v, ok := os.LookupEnv("NERDMEM_GENAI_MODEL"); ok {
		c.Embedding.GenAIModel = v
	}

	if v, ok := lookupBool("NERDMEM_LEARNING_ENABLED"); ok {
		c.RL.Enabled = v
	}
	if v, ok := lookupFloat("NERDMEM_LEARNING_RATE"); ok {
		c.RL.LearningRate = v
	}
	if v, ok := os.LookupEnv("NERDMEM_Q_LEARNING_ALGORITHM"); ok {
		c.RL.Algorithm = v
	}

	if v, ok := lookupBool("NERDMEM_SONA_ENABLED"); ok {
		c.Sona.Enabled = v
	}
	if v, ok := lookupBool("NERDMEM_HNSW_ENABLED"); ok {
		c.Sona.HNSWEnabled = v
	}
	if v, ok := lookupBool("NERDMEM_ATTENTION_ENABLED"); ok {
		c.Sona.AttentionEnabled = v
	}
	if v, ok := lookupBool("NERDMEM_DREAM_CYCLE_ENABLED"); ok {
		c.Sona.DreamCycleEnabled = v
	}
	if v, ok := lookupInt("NERDMEM_MAX_PATTERNS"); ok {
		c.Sona.MaxPatterns = v
	}

	if v, ok := lookupInt("NERDMEM_HOOK_TIMEOUT"); ok {
		c.Hook.TimeoutMs = v
	}

	if v, ok := lookupBool("NERDMEM_PRETRAIN_DONE"); ok {
		c.PretrainDone = v
	}
	if v, ok := lookupBool("NERDMEM_VERBOSE"); ok {
		c.Verbose = v
		c.Logging.DebugMode = v || c.Logging.DebugMode
	}
	if v, ok := lookupBool("NERDMEM_DEBUG_MODE"); ok {
		c.Logging.DebugMode = v
	}
}

func lookupBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupFloat(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
