package contracts

import (
	"context"

	"github.com/google/uuid"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

// Dispatcher fans a domain event out to every member of a group.
// Delivery is best-effort and fire-and-forget: no ack, no retry, no
// backlog. Per-group ordering follows invocation order within a process.
type Dispatcher interface {
	Broadcast(ctx context.Context, group string, ev domain.Event)
	// BroadcastExcept skips one connection, used for ephemeral echoes such
	// as typing indicators.
	BroadcastExcept(ctx context.Context, group string, except uuid.UUID, ev domain.Event)
	// RouteEvent applies the type-to-group routing policy. Unknown event
	// types are rejected with ErrUnknownEventType.
	RouteEvent(ctx context.Context, ev domain.Event) error
}

// EventBridge carries serialized broadcasts to peer nodes so a multi-node
// deployment fans out past process boundaries.
type EventBridge interface {
	Publish(ctx context.Context, group string, payload []byte) error
	// Subscribe delivers remote-origin payloads until ctx is canceled.
	Subscribe(ctx context.Context, handler func(group string, payload []byte)) error
}
