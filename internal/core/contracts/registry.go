package contracts

import (
	"context"

	"github.com/google/uuid"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

// ConnectionRegistry tracks live client connections. It is the only owner
// of connection handles; group entries only reference connection ids.
type ConnectionRegistry interface {
	// Register adds a live connection under its principal. Registering the
	// same connection id twice fails with ErrDuplicateConnection.
	Register(c Client, p domain.Principal) error
	// Unregister removes the connection and cascades removal from every
	// group it belonged to. Idempotent.
	Unregister(id uuid.UUID)
	// Send writes one payload to one connection. A dead or unknown
	// connection yields ErrConnectionClosed; the caller treats that as an
	// implicit unregister, never as a fatal broadcast failure.
	Send(ctx context.Context, id uuid.UUID, data []byte) error
	PrincipalOf(id uuid.UUID) (domain.Principal, error)
	// Touch refreshes the connection's last-activity timestamp.
	Touch(id uuid.UUID)
}

// Client is the minimal surface the registry needs to talk to one
// WebSocket connection.
type Client interface {
	ID() uuid.UUID
	Send(ctx context.Context, data []byte) error
	Close()
}
