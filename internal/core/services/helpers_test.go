package services_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	appregistry "github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/registry"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/services"
)

func newTestLogger() *slog.Logger {
	// Discard output during tests by setting a level above error
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// fakeClient records everything sent to it; flipping fail makes every
// subsequent Send report a dead connection.
type fakeClient struct {
	id     uuid.UUID
	mu     sync.Mutex
	sent   [][]byte
	fail   bool
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{id: uuid.New()}
}

func (c *fakeClient) ID() uuid.UUID { return c.id }

func (c *fakeClient) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return domain.ErrConnectionClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) setFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func (c *fakeClient) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.sent))
	for _, raw := range c.sent {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("recorded payload is not valid JSON: %v", err)
		}
		out = append(out, m)
	}
	return out
}

// messagesOfType filters decoded messages by their type tag.
func (c *fakeClient) messagesOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range c.messages(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// newFanout wires a real group table, registry and dispatcher with no
// bridge and no metrics, the way most service tests want them.
func newFanout() (*appregistry.GroupTable, *appregistry.Registry, *services.DispatcherService) {
	groups := appregistry.NewGroupTable()
	reg := appregistry.NewRegistry(groups, nil)
	dispatcher := services.NewDispatcherService(newTestLogger(), reg, groups, nil, nil)
	return groups, reg, dispatcher
}

// capturingDispatcher records broadcasts instead of delivering them.
type capturingDispatcher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	group string
	event domain.Event
}

func (d *capturingDispatcher) Broadcast(ctx context.Context, group string, ev domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, capturedEvent{group: group, event: ev})
}

func (d *capturingDispatcher) BroadcastExcept(ctx context.Context, group string, except uuid.UUID, ev domain.Event) {
	d.Broadcast(ctx, group, ev)
}

func (d *capturingDispatcher) RouteEvent(ctx context.Context, ev domain.Event) error {
	d.Broadcast(ctx, "", ev)
	return nil
}

func (d *capturingDispatcher) captured() []capturedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]capturedEvent, len(d.events))
	copy(out, d.events)
	return out
}
