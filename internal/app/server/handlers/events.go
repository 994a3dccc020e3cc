package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/contracts"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
	"github.com/hiten-mitsurugi/alumni-system-sub001/pkg/middleware"
)

// EventsHandler is the ingress the API layer calls right after committing
// a domain change. It is the sole bridge between persistence and realtime
// fan-out; delivery stays best-effort so the caller never blocks on slow
// recipients.
type EventsHandler struct {
	dispatcher contracts.Dispatcher
}

func NewEventsHandler(dispatcher contracts.Dispatcher) *EventsHandler {
	return &EventsHandler{dispatcher: dispatcher}
}

type notifyRequest struct {
	Group string `json:"group,omitempty"`
	Event struct {
		Type   string         `json:"type"`
		Fields map[string]any `json:"fields"`
	} `json:"event"`
}

func (h *EventsHandler) Notify(w http.ResponseWriter, r *http.Request) {
	log := middleware.LoggerFrom(r.Context())

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WarnContext(r.Context(), "events handler - bad request", "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Event.Type == "" {
		http.Error(w, "event type required", http.StatusBadRequest)
		return
	}
	ev := domain.NewEvent(domain.EventType(req.Event.Type), req.Event.Fields)

	// An explicit group overrides the routing table; otherwise the
	// dispatcher's policy decides where the event lands.
	if req.Group != "" {
		if !domain.KnownEventType(ev.Type) {
			http.Error(w, "unknown event type", http.StatusBadRequest)
			return
		}
		h.dispatcher.Broadcast(r.Context(), req.Group, ev)
	} else if err := h.dispatcher.RouteEvent(r.Context(), ev); err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) {
			http.Error(w, "unknown event type", http.StatusBadRequest)
			return
		}
		http.Error(w, "unroutable event", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	log.InfoContext(r.Context(), "events handler - event accepted", "type", req.Event.Type, "group", req.Group)
}
