package contracts

import (
	"context"
	"time"
)

// LivenessStore keeps the TTL-based online signal in Redis. A user whose
// key is not refreshed within the TTL drops out of the online set.
type LivenessStore interface {
	// Touch marks the user alive for the given TTL.
	Touch(ctx context.Context, userID string, ttl time.Duration) error
	// OnlineUsers returns user ids seen within the liveness window.
	OnlineUsers(ctx context.Context) ([]string, error)
	// Clear drops the user from the online set immediately.
	Clear(ctx context.Context, userID string) error
}
