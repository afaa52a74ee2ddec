package backup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSucceeded(t *testing.T) {
	assert.True(t, Result{Outcome: OutcomeSucceeded}.Succeeded())
	assert.False(t, Result{Outcome: OutcomeFailed}.Succeeded())
}

func TestResultErrorPayloadEmpty(t *testing.T) {
	result := Result{Outcome: OutcomeSucceeded, Record: NewRecord()}
	assert.Empty(t, result.ErrorPayload())
}

func TestResultErrorPayloadFormat(t *testing.T) {
	result := Result{
		Outcome: OutcomeFailed,
		Err:     NewNetworkError("part upload request failed", nil),
		Trail:   []JobState{StateIdle, StateDumperReady, StateKeysReady, StateStreamingUpload, StateFailed},
	}

	payload := result.ErrorPayload()
	lines := strings.SplitN(payload, "\n", 2)
	require.Len(t, lines, 2)

	assert.Equal(t, "NETWORK_ERROR", lines[0])
	assert.Contains(t, lines[1], "Idle -> DumperReady -> KeysReady -> StreamingUpload -> Failed")
	assert.Contains(t, lines[1], "part upload request failed")
}

func TestResultErrorPayloadPrefersResponseBody(t *testing.T) {
	result := Result{
		Outcome: OutcomeFailed,
		Err:     NewNetworkError("object store rejected the part upload", nil).WithResponse("<Error>AccessDenied</Error>"),
		Trail:   []JobState{StateIdle, StateFailed},
	}

	payload := result.ErrorPayload()
	assert.True(t, strings.HasPrefix(payload, "<Error>AccessDenied</Error>\n"))
}
