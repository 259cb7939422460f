package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var statusEvents, allEvents []Event
	bus.Subscribe(PlanningStatusUpdated, func(e Event) { statusEvents = append(statusEvents, e) })
	bus.SubscribeAll(func(e Event) { allEvents = append(allEvents, e) })

	bus.Emit(PlanningStatusUpdated, "planner", &PlanningStatusData{PortfolioHash: "p1", Processed: 5})
	bus.EmitTyped("planner", &PlanGeneratedData{PortfolioHash: "p1", Steps: 2})

	require.Len(t, statusEvents, 1)
	assert.Equal(t, "planner", statusEvents[0].Module)
	assert.False(t, statusEvents[0].Timestamp.IsZero())
	data, ok := statusEvents[0].Data.(*PlanningStatusData)
	require.True(t, ok)
	assert.Equal(t, 5, data.Processed)

	require.Len(t, allEvents, 2)
	assert.Equal(t, PlanGenerated, allEvents[1].Type)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	unsubscribe := bus.Subscribe(PlanGenerated, func(Event) { calls++ })
	unsubscribeAll := bus.SubscribeAll(func(Event) { calls++ })

	bus.EmitTyped("planner", &PlanGeneratedData{})
	assert.Equal(t, 2, calls)

	unsubscribe()
	unsubscribeAll()
	bus.EmitTyped("planner", &PlanGeneratedData{})
	assert.Equal(t, 2, calls)
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	delivered := false
	bus.Subscribe(ErrorOccurred, func(Event) { panic("handler bug") })
	bus.Subscribe(ErrorOccurred, func(e Event) {
		delivered = true
		data := e.Data.(*ErrorEventData)
		assert.Equal(t, "disk full", data.Error)
		assert.Equal(t, "batch", data.Context["phase"])
	})

	assert.NotPanics(t, func() {
		bus.EmitError("planner", errors.New("disk full"), map[string]interface{}{"phase": "batch"})
	})
	assert.True(t, delivered)
}
