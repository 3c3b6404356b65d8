package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-order-service/internal/notify"
	"github.com/vasiliy-maslov/cafe-order-service/internal/session"
)

const streamHeartbeat = 25 * time.Second

// StreamHandler pushes change events to browsers over server-sent events.
// Clients treat every event as a re-fetch trigger, so losing one during a
// reconnect only costs a redundant fetch.
type StreamHandler struct {
	bus *notify.Bus
}

func NewStreamHandler(bus *notify.Bus) *StreamHandler {
	return &StreamHandler{bus: bus}
}

// KitchenStream delivers every order change, unfiltered.
func (h *StreamHandler) KitchenStream(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, notify.AllOrders())
}

// CustomerStream delivers only changes to the caller's own orders.
func (h *StreamHandler) CustomerStream(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusBadRequest, "missing session")
		return
	}
	h.serve(w, r, notify.SessionScope(sid))
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, filter notify.Filter) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.bus.Subscribe(filter)
	defer cancel()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Msg("handler: failed to marshal change event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
