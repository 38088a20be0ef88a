package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openlearn/live-session-server/internal/errors"
	"github.com/openlearn/live-session-server/internal/middleware"
	"github.com/openlearn/live-session-server/internal/sse"
)

// EventsHandler streams live-session broadcast events over SSE. Every
// authenticated client receives every broadcast; there is no per-course
// subscription.
type EventsHandler struct {
	broker *sse.Broker
}

func NewEventsHandler(broker *sse.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(user.ID)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("userId", user.ID).
		Msg("sse connection established")

	ctx := r.Context()

	h.sendEvent(w, flusher, "connected", map[string]any{
		"userId": user.ID,
	})

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("userId", user.ID).
				Msg("sse connection closed")
			return

		case <-client.Done:
			return

		case event := <-client.Events:
			h.writeEvent(w, flusher, event)

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal sse payload")
		return
	}
	h.writeEvent(w, flusher, sse.Event{Type: eventType, Data: data})
}

func (h *EventsHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
	flusher.Flush()
}
