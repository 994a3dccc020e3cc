package registry

import (
	"sync"

	"github.com/google/uuid"
)

// GroupTable is the in-memory group membership table. Groups are created
// implicitly on first join and dropped when the last member leaves; nothing
// is persisted beyond process lifetime.
type GroupTable struct {
	mu     sync.RWMutex
	groups map[string]map[uuid.UUID]struct{}
	byConn map[uuid.UUID]map[string]struct{} // reverse index for cascade cleanup
}

func NewGroupTable() *GroupTable {
	return &GroupTable{
		groups: make(map[string]map[uuid.UUID]struct{}),
		byConn: make(map[uuid.UUID]map[string]struct{}),
	}
}

func (t *GroupTable) Join(group string, id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.groups[group] == nil {
		t.groups[group] = make(map[uuid.UUID]struct{})
	}
	t.groups[group][id] = struct{}{}
	if t.byConn[id] == nil {
		t.byConn[id] = make(map[string]struct{})
	}
	t.byConn[id][group] = struct{}{}
}

func (t *GroupTable) Leave(group string, id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(group, id)
}

func (t *GroupTable) LeaveAll(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for group := range t.byConn[id] {
		t.leaveLocked(group, id)
	}
}

func (t *GroupTable) leaveLocked(group string, id uuid.UUID) {
	members, ok := t.groups[group]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(t.groups, group)
	}
	if joined, ok := t.byConn[id]; ok {
		delete(joined, group)
		if len(joined) == 0 {
			delete(t.byConn, id)
		}
	}
}

// MembersOf returns a copy so a broadcast never iterates a set that is
// mutating underneath it.
func (t *GroupTable) MembersOf(group string) []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.groups[group]
	out := make([]uuid.UUID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

func (t *GroupTable) GroupCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.groups)
}
