package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectTaskTypeIsQueryOverridesKind(t *testing.T) {
	assert.Equal(t, "RETRIEVAL_QUERY", SelectTaskType(KindEdit, true))
}

func TestSelectTaskTypeByKind(t *testing.T) {
	cases := map[MemoryKind]string{
		KindEdit:       "RETRIEVAL_DOCUMENT",
		KindCommand:    "RETRIEVAL_DOCUMENT",
		KindTrajectory: "CLUSTERING",
		KindPattern:    "CLUSTERING",
		KindFoundation: "FACT_VERIFICATION",
		KindGeneral:    "SEMANTIC_SIMILARITY",
		MemoryKind("unknown"): "SEMANTIC_SIMILARITY",
	}
	for kind, want := range cases {
		assert.Equal(t, want, SelectTaskType(kind, false))
	}
}
