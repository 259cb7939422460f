package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {
	assert.NotPanics(t, func() {
		Call(nil, 5, 10, "test message")
	})

	var capturedCurrent, capturedTotal int
	var capturedMessage string
	Call(func(current, total int, message string) {
		capturedCurrent, capturedTotal, capturedMessage = current, total, message
	}, 5, 10, "Generating sequences")

	assert.Equal(t, 5, capturedCurrent)
	assert.Equal(t, 10, capturedTotal)
	assert.Equal(t, "Generating sequences", capturedMessage)
}

func TestCallDetailed(t *testing.T) {
	assert.NotPanics(t, func() {
		CallDetailed(nil, Update{Phase: PhaseSequenceGeneration})
	})

	var updates []Update
	cb := func(u Update) { updates = append(updates, u) }

	CallDetailed(cb, Update{Phase: PhaseSequenceGeneration, SubPhase: "depth_1", Current: 1, Total: 5})
	CallDetailed(cb, Update{Phase: PhaseSequenceGeneration, SubPhase: "depth_2", Current: 2, Total: 5, Details: map[string]any{"sequences": 12}})

	require.Len(t, updates, 2)
	assert.Equal(t, "depth_2", updates[1].SubPhase)
	assert.Equal(t, 12, updates[1].Details["sequences"])
}

func TestForPhase(t *testing.T) {
	assert.Nil(t, ForPhase(nil, PhaseSequenceEvaluation))

	var got Update
	cb := ForPhase(func(u Update) { got = u }, PhaseSequenceEvaluation)
	cb(3, 10, "Evaluating sequences (3/10)")

	assert.Equal(t, Update{Phase: PhaseSequenceEvaluation, Current: 3, Total: 10, Message: "Evaluating sequences (3/10)"}, got)
}
