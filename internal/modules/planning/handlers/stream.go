package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/aristath/holistic-planner/internal/events"
)

const (
	streamBuffer       = 100
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// plannerEventTypes are relayed when the client does not filter.
var plannerEventTypes = []events.EventType{
	events.PlannerSequencesGenerated,
	events.PlanningStatusUpdated,
	events.PlanGenerated,
	events.PlannerConfigChanged,
	events.ErrorOccurred,
	events.JobStarted,
	events.JobProgress,
	events.JobCompleted,
	events.JobFailed,
}

// HandleStream handles GET /api/planning/stream. The connection is upgraded
// to a websocket and planner events are relayed as JSON text frames. The
// optional types query parameter is a comma-separated event type filter.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	allowed := make(map[events.EventType]bool)
	if filter := r.URL.Query().Get("types"); filter != "" {
		for _, t := range strings.Split(filter, ",") {
			allowed[events.EventType(strings.TrimSpace(t))] = true
		}
	} else {
		for _, t := range plannerEventTypes {
			allowed[t] = true
		}
	}

	// Subscribe before the handshake completes so no event emitted after
	// the client connects is missed.
	eventChan := make(chan events.Event, streamBuffer)
	unsubscribe := h.bus.SubscribeAll(func(e events.Event) {
		if !allowed[e.Type] {
			return
		}
		select {
		case eventChan <- e:
		default:
			h.log.Warn().Str("event_type", string(e.Type)).Msg("Event channel full, dropping event")
		}
	})
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	h.log.Info().Int("types", len(allowed)).Msg("Client connected to planning stream")

	// The client sends nothing; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from planning stream")
			return

		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Planning stream ping failed")
				return
			}

		case e := <-eventChan:
			data, err := json.Marshal(&e)
			if err != nil {
				h.log.Error().Err(err).Str("event_type", string(e.Type)).Msg("Failed to marshal event")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Failed to write to planning stream")
				return
			}
		}
	}
}
