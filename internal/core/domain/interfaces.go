package domain

import (
	"context"
)

// PresenceRepository persists the durable side of presence. Redis keeps the
// TTL-based liveness signal; Postgres keeps the long-lived last-seen record.
type PresenceRepository interface {
	// Upsert inserts or updates the state row for the user.
	Upsert(ctx context.Context, state *PresenceState) error
	Get(ctx context.Context, userID string) (*PresenceState, error)
}
