package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config error", New(KindConfigError, "bad yaml"), 2},
		{"invalid event", New(KindInvalidEvent, "unknown event"), 2},
		{"corruption", New(KindCorruption, "index mismatch"), 3},
		{"store busy", New(KindStoreBusy, "locked"), 1},
		{"backend unavailable", New(KindBackendUnavailable, "ollama down"), 1},
		{"untagged", fmt.Errorf("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(KindTransientIO, "mirror write failed", cause)

	require.ErrorIs(t, err, cause)

	tagged, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindTransientIO, tagged.Kind)
	assert.Equal(t, cause, tagged.Cause)
}

func TestAsThroughFmtWrap(t *testing.T) {
	base := New(KindDimensionMismatch, "expected 384 got 768")
	wrapped := fmt.Errorf("re-embed: %w", base)

	tagged, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindDimensionMismatch, tagged.Kind)
}
