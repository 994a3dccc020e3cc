package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/contracts"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/platform/metrics"
)

type connection struct {
	client     contracts.Client
	principal  domain.Principal
	createdAt  time.Time
	lastActive time.Time
}

// Registry owns every live connection. Group entries reference connection
// ids but never the handles themselves; unregistering cascades through the
// group table so no dangling membership survives a disconnect.
type Registry struct {
	mu      sync.RWMutex
	conns   map[uuid.UUID]*connection
	groups  *GroupTable
	metrics *metrics.Metrics
}

func NewRegistry(groups *GroupTable, m *metrics.Metrics) *Registry {
	return &Registry{
		conns:   make(map[uuid.UUID]*connection),
		groups:  groups,
		metrics: m,
	}
}

var _ contracts.ConnectionRegistry = (*Registry)(nil)

func (r *Registry) Register(c contracts.Client, p domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.ID()
	if _, exists := r.conns[id]; exists {
		return domain.ErrDuplicateConnection
	}
	now := time.Now()
	r.conns[id] = &connection{
		client:     c,
		principal:  p,
		createdAt:  now,
		lastActive: now,
	}
	if r.metrics != nil {
		r.metrics.ConnectionsActive.Inc()
	}
	return nil
}

// Unregister is idempotent; removing an unknown id is a no-op.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	r.groups.LeaveAll(id)
	conn.client.Close()
	if r.metrics != nil {
		r.metrics.ConnectionsActive.Dec()
	}
}

func (r *Registry) Send(ctx context.Context, id uuid.UUID, data []byte) error {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrConnectionClosed
	}
	if err := conn.client.Send(ctx, data); err != nil {
		return domain.ErrConnectionClosed
	}
	return nil
}

func (r *Registry) PrincipalOf(id uuid.UUID) (domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	if !ok {
		return domain.Principal{}, domain.ErrConnectionNotFound
	}
	return conn.principal, nil
}

// Touch refreshes the last-activity timestamp for a connection.
func (r *Registry) Touch(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[id]; ok {
		conn.lastActive = time.Now()
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Drain closes every connection, used on server shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	conns := make([]*connection, 0, len(r.conns))
	ids := make([]uuid.UUID, 0, len(r.conns))
	for id, c := range r.conns {
		conns = append(conns, c)
		ids = append(ids, id)
	}
	r.conns = make(map[uuid.UUID]*connection)
	r.mu.Unlock()
	for i, c := range conns {
		r.groups.LeaveAll(ids[i])
		c.client.Close()
		if r.metrics != nil {
			r.metrics.ConnectionsActive.Dec()
		}
	}
}
