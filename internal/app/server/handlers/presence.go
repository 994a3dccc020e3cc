package handlers

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/services"
	"github.com/hiten-mitsurugi/alumni-system-sub001/pkg/middleware"
)

// PresenceHandler exposes the online set to the API layer, which renders it
// on profile and directory pages.
type PresenceHandler struct {
	presence *services.PresenceService
}

func NewPresenceHandler(presence *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	log := middleware.LoggerFrom(r.Context())
	users, err := h.presence.Online(r.Context())
	if err != nil {
		log.ErrorContext(r.Context(), "presence handler - online lookup failed", "err", err)
		http.Error(w, "presence unavailable", http.StatusServiceUnavailable)
		return
	}
	if users == nil {
		users = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"online": users,
		"count":  len(users),
	})
}
