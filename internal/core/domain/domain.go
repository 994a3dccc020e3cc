package domain

import (
	"time"
)

// Principal is the authenticated identity behind a connection.
// A zero-value Principal is anonymous.
type Principal struct {
	UserID string
	Admin  bool
}

func (p Principal) Anonymous() bool { return p.UserID == "" }

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceState is the per-user derived status. Created on first connect,
// updated on every transition, never deleted.
type PresenceState struct {
	UserID   string
	Status   PresenceStatus
	LastSeen time.Time
}
