package contracts

import "github.com/google/uuid"

// GroupTable maps group names to the set of subscribed connection ids.
// All mutation is serialized internally; nothing outside the table and the
// registry is allowed to touch membership state.
type GroupTable interface {
	// Join is an idempotent add.
	Join(group string, id uuid.UUID)
	// Leave is an idempotent remove; empty groups are garbage-collected.
	Leave(group string, id uuid.UUID)
	// LeaveAll removes the connection from every group it is a member of.
	LeaveAll(id uuid.UUID)
	// MembersOf returns a snapshot copy, safe to iterate while other
	// connections join and leave.
	MembersOf(group string) []uuid.UUID
	GroupCount() int
}
