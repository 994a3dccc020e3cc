package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/contracts"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/platform/metrics"
)

const livenessTTL = 75 * time.Second

// PresenceService derives online/offline transitions from an in-memory
// per-user open-connection counter. A user with two tabs open stays online
// until both close; only the 0->1 and 1->0 edges emit status updates.
//
// Durability is split: Redis holds the TTL'd liveness signal, Postgres the
// long-lived last-seen record. Neither store failing blocks the transition
// itself.
type PresenceService struct {
	mu     sync.Mutex
	counts map[string]int

	dispatcher contracts.Dispatcher
	liveness   contracts.LivenessStore
	repo       domain.PresenceRepository
	txManager  contracts.TxManager
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewPresenceService(
	log *slog.Logger,
	dispatcher contracts.Dispatcher,
	liveness contracts.LivenessStore,
	repo domain.PresenceRepository,
	txManager contracts.TxManager,
	m *metrics.Metrics,
) *PresenceService {
	return &PresenceService{
		log:        log,
		counts:     make(map[string]int),
		dispatcher: dispatcher,
		liveness:   liveness,
		repo:       repo,
		txManager:  txManager,
		metrics:    m,
	}
}

func (p *PresenceService) OnConnect(ctx context.Context, userID string) {
	ctx, span := tracer.Start(ctx, "PresenceService.OnConnect", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()
	if userID == "" {
		return
	}
	p.mu.Lock()
	p.counts[userID]++
	first := p.counts[userID] == 1
	p.mu.Unlock()
	if !first {
		return
	}
	if p.metrics != nil {
		p.metrics.PresenceOnline.Inc()
	}
	p.transition(ctx, userID, domain.StatusOnline)
}

func (p *PresenceService) OnDisconnect(ctx context.Context, userID string) {
	ctx, span := tracer.Start(ctx, "PresenceService.OnDisconnect", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()
	if userID == "" {
		return
	}
	p.mu.Lock()
	if p.counts[userID] == 0 {
		p.mu.Unlock()
		return
	}
	p.counts[userID]--
	last := p.counts[userID] == 0
	if last {
		delete(p.counts, userID)
	}
	p.mu.Unlock()
	if !last {
		return
	}
	if p.metrics != nil {
		p.metrics.PresenceOnline.Dec()
	}
	if p.liveness != nil {
		if err := p.liveness.Clear(ctx, userID); err != nil {
			p.log.ErrorContext(ctx, "presence - on disconnect - liveness clear failed", "user_id", userID, "err", err)
		}
	}
	p.transition(ctx, userID, domain.StatusOffline)
}

// Heartbeat refreshes the Redis liveness window; called on every app-level
// ping so a silent-but-alive tab does not fall out of the online set.
func (p *PresenceService) Heartbeat(ctx context.Context, userID string) {
	if userID == "" || p.liveness == nil {
		return
	}
	if err := p.liveness.Touch(ctx, userID, livenessTTL); err != nil {
		p.log.ErrorContext(ctx, "presence - heartbeat - liveness touch failed", "user_id", userID, "err", err)
	}
}

// Online lists users alive within the liveness window, cluster-wide when
// the Redis store backs it. Without a liveness store it falls back to this
// node's counters.
func (p *PresenceService) Online(ctx context.Context) ([]string, error) {
	if p.liveness != nil {
		return p.liveness.OnlineUsers(ctx)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	users := make([]string, 0, len(p.counts))
	for userID := range p.counts {
		users = append(users, userID)
	}
	return users, nil
}

// Status reports the counter-derived status for a user on this node.
func (p *PresenceService) Status(userID string) domain.PresenceStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts[userID] > 0 {
		return domain.StatusOnline
	}
	return domain.StatusOffline
}

func (p *PresenceService) transition(ctx context.Context, userID string, status domain.PresenceStatus) {
	now := time.Now()
	state := &domain.PresenceState{
		UserID:   userID,
		Status:   status,
		LastSeen: now,
	}
	if p.repo != nil {
		if err := p.upsert(ctx, state); err != nil {
			p.log.ErrorContext(ctx, "presence - transition - upsert failed", "user_id", userID, "status", status, "err", err)
		}
	}
	if status == domain.StatusOnline && p.liveness != nil {
		if err := p.liveness.Touch(ctx, userID, livenessTTL); err != nil {
			p.log.ErrorContext(ctx, "presence - transition - liveness touch failed", "user_id", userID, "err", err)
		}
	}
	p.dispatcher.Broadcast(ctx, domain.GroupStatusUpdates, domain.NewEvent(domain.EventStatusUpdate, map[string]any{
		"user_id":   userID,
		"status":    string(status),
		"last_seen": now.UTC().Format(time.RFC3339),
	}))
	p.log.InfoContext(ctx, "presence - transition", "user_id", userID, "status", status)
}

func (p *PresenceService) upsert(ctx context.Context, state *domain.PresenceState) error {
	if p.txManager == nil {
		return p.repo.Upsert(ctx, state)
	}
	return p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return p.repo.Upsert(txCtx, state)
	})
}
