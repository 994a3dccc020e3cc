package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/server/handlers"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

type recordingDispatcher struct {
	mu        sync.Mutex
	broadcast []string // group names from explicit Broadcast calls
	routed    []domain.EventType
}

func (d *recordingDispatcher) Broadcast(ctx context.Context, group string, ev domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcast = append(d.broadcast, group)
}

func (d *recordingDispatcher) BroadcastExcept(ctx context.Context, group string, except uuid.UUID, ev domain.Event) {
	d.Broadcast(ctx, group, ev)
}

func (d *recordingDispatcher) RouteEvent(ctx context.Context, ev domain.Event) error {
	if !domain.KnownEventType(ev.Type) {
		return domain.ErrUnknownEventType
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routed = append(d.routed, ev.Type)
	return nil
}

func postEvent(t *testing.T, h *handlers.EventsHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Notify(rec, req)
	return rec
}

func TestNotifyRoutesEvent(t *testing.T) {
	d := &recordingDispatcher{}
	h := handlers.NewEventsHandler(d)

	rec := postEvent(t, h, `{"event":{"type":"new_post","fields":{"post_id":"12"}}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(d.routed) != 1 || d.routed[0] != domain.EventNewPost {
		t.Errorf("expected the event to go through the routing table, got %v", d.routed)
	}
}

func TestNotifyExplicitGroupOverridesRouting(t *testing.T) {
	d := &recordingDispatcher{}
	h := handlers.NewEventsHandler(d)

	rec := postEvent(t, h, `{"group":"user_7","event":{"type":"notification","fields":{"message":"hi"}}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(d.broadcast) != 1 || d.broadcast[0] != "user_7" {
		t.Errorf("expected a direct broadcast to user_7, got %v", d.broadcast)
	}
	if len(d.routed) != 0 {
		t.Error("explicit group must bypass the routing table")
	}
}

func TestNotifyRejectsBadInput(t *testing.T) {
	d := &recordingDispatcher{}
	h := handlers.NewEventsHandler(d)

	cases := map[string]string{
		"garbage body": `{broken`,
		"missing type": `{"event":{"fields":{}}}`,
		"unknown type": `{"event":{"type":"mystery","fields":{}}}`,
		"unknown type with group": `{"group":"posts_feed","event":{"type":"mystery","fields":{}}}`,
	}
	for name, body := range cases {
		if rec := postEvent(t, h, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, rec.Code)
		}
	}
	if len(d.broadcast) != 0 || len(d.routed) != 0 {
		t.Error("rejected requests must not reach the dispatcher")
	}
}
