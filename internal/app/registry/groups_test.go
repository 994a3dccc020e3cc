package registry_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/registry"
)

func TestJoinLeaveIdempotent(t *testing.T) {
	table := registry.NewGroupTable()
	id := uuid.New()

	table.Join("post_1", id)
	table.Join("post_1", id)
	if got := len(table.MembersOf("post_1")); got != 1 {
		t.Fatalf("double join must not duplicate membership, got %d members", got)
	}

	table.Leave("post_1", id)
	table.Leave("post_1", id)
	if got := len(table.MembersOf("post_1")); got != 0 {
		t.Fatalf("double leave must be a no-op, got %d members", got)
	}
}

func TestLeaveUnknownGroup(t *testing.T) {
	table := registry.NewGroupTable()
	// Leaving a group that never existed is benign.
	table.Leave("ghost", uuid.New())
	if table.GroupCount() != 0 {
		t.Error("unknown group must not be materialized by Leave")
	}
}

func TestEmptyGroupsCollected(t *testing.T) {
	table := registry.NewGroupTable()
	a, b := uuid.New(), uuid.New()

	table.Join("post_1", a)
	table.Join("post_1", b)
	if table.GroupCount() != 1 {
		t.Fatalf("expected 1 group, got %d", table.GroupCount())
	}
	table.Leave("post_1", a)
	table.Leave("post_1", b)
	if table.GroupCount() != 0 {
		t.Error("empty groups must be garbage-collected")
	}
}

func TestLeaveAllCascades(t *testing.T) {
	table := registry.NewGroupTable()
	target, other := uuid.New(), uuid.New()

	for _, group := range []string{"posts_feed", "post_1", "post_2", "status_updates"} {
		table.Join(group, target)
	}
	table.Join("post_1", other)

	table.LeaveAll(target)
	for _, group := range []string{"posts_feed", "post_1", "post_2", "status_updates"} {
		for _, id := range table.MembersOf(group) {
			if id == target {
				t.Errorf("connection still present in %s after LeaveAll", group)
			}
		}
	}
	if got := len(table.MembersOf("post_1")); got != 1 {
		t.Errorf("other members must be unaffected, post_1 has %d members", got)
	}
}

func TestMembersOfReturnsSnapshot(t *testing.T) {
	table := registry.NewGroupTable()
	a, b := uuid.New(), uuid.New()
	table.Join("post_1", a)
	table.Join("post_1", b)

	snapshot := table.MembersOf("post_1")
	table.Leave("post_1", a)
	table.Leave("post_1", b)
	if len(snapshot) != 2 {
		t.Error("snapshot must not observe later mutations")
	}
}
