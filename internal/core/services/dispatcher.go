package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/contracts"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/platform/metrics"
)

var tracer = otel.Tracer("realtime-services")

// DispatcherService fans events out to group members. Serialization happens
// exactly once per broadcast; a mutex totally orders broadcasts so every
// member of a group observes the same delivery order.
type DispatcherService struct {
	registry contracts.ConnectionRegistry
	groups   contracts.GroupTable
	bridge   contracts.EventBridge // nil on single-node deployments
	metrics  *metrics.Metrics
	log      *slog.Logger

	mu sync.Mutex
}

func NewDispatcherService(
	log *slog.Logger,
	registry contracts.ConnectionRegistry,
	groups contracts.GroupTable,
	bridge contracts.EventBridge,
	m *metrics.Metrics,
) *DispatcherService {
	return &DispatcherService{
		log:      log,
		registry: registry,
		groups:   groups,
		bridge:   bridge,
		metrics:  m,
	}
}

var _ contracts.Dispatcher = (*DispatcherService)(nil)

func (d *DispatcherService) Broadcast(ctx context.Context, group string, ev domain.Event) {
	d.broadcast(ctx, group, uuid.Nil, ev)
}

func (d *DispatcherService) BroadcastExcept(ctx context.Context, group string, except uuid.UUID, ev domain.Event) {
	d.broadcast(ctx, group, except, ev)
}

func (d *DispatcherService) broadcast(ctx context.Context, group string, except uuid.UUID, ev domain.Event) {
	ctx, span := tracer.Start(ctx, "DispatcherService.Broadcast", trace.WithAttributes(
		attribute.String("event.type", string(ev.Type)),
		attribute.String("group", group),
	))
	defer span.End()

	data, err := ev.Encode()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		d.log.ErrorContext(ctx, "dispatcher - broadcast - encode failed", "type", ev.Type, "err", err)
		return
	}
	if d.metrics != nil {
		d.metrics.BroadcastsTotal.WithLabelValues(string(ev.Type)).Inc()
	}
	d.deliver(ctx, group, except, data)
	if d.bridge != nil {
		if err := d.bridge.Publish(ctx, group, data); err != nil {
			span.RecordError(err)
			d.log.ErrorContext(ctx, "dispatcher - broadcast - bridge publish failed", "group", group, "err", err)
		}
	}
}

// DeliverLocal hands a payload from the cross-node bridge to local members
// only. It must not re-publish or the event would loop between nodes.
func (d *DispatcherService) DeliverLocal(ctx context.Context, group string, data []byte) {
	d.deliver(ctx, group, uuid.Nil, data)
}

func (d *DispatcherService) deliver(ctx context.Context, group string, except uuid.UUID, data []byte) {
	// The lock imposes a total order on broadcasts, which is what gives
	// every member of a group the same per-group delivery order.
	d.mu.Lock()
	defer d.mu.Unlock()

	members := d.groups.MembersOf(group)
	for _, id := range members {
		if id == except {
			continue
		}
		if group == domain.GroupAdmin {
			// Defense in depth: the group is already admin-only at join
			// time, and each delivery re-checks the member's principal.
			p, err := d.registry.PrincipalOf(id)
			if err != nil || !p.Admin {
				continue
			}
		}
		if err := d.registry.Send(ctx, id, data); err != nil {
			// A dead recipient never aborts the fan-out. Dropping it from
			// the registry cascades membership cleanup.
			d.registry.Unregister(id)
			if d.metrics != nil {
				d.metrics.SendFailuresTotal.Inc()
			}
			d.log.WarnContext(ctx, "dispatcher - deliver - send failed, connection dropped", "conn_id", id.String(), "group", group)
			continue
		}
		if d.metrics != nil {
			d.metrics.DeliveriesTotal.Inc()
		}
	}
}

// RouteEvent applies the routing policy for externally produced events.
// Post-scoped events always mirror to the feed so list views and detail
// views stay consistent; approval updates stay private to the owner.
func (d *DispatcherService) RouteEvent(ctx context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.EventNewPost:
		d.Broadcast(ctx, domain.GroupPostsFeed, ev)
	case domain.EventNewComment, domain.EventReactionUpdate, domain.EventPostDeleted:
		if postID := ev.StringField("post_id"); postID != "" {
			d.Broadcast(ctx, domain.PostGroup(postID), ev)
		}
		d.Broadcast(ctx, domain.GroupPostsFeed, ev)
	case domain.EventPostApproval:
		owner := ev.StringField("user_id")
		if owner == "" {
			owner = ev.StringField("owner_id")
		}
		if owner == "" {
			d.log.WarnContext(ctx, "dispatcher - route event - approval without owner", "type", ev.Type)
			return domain.ErrMalformedMessage
		}
		d.Broadcast(ctx, domain.UserGroup(owner), ev)
	case domain.EventPendingApproval:
		d.Broadcast(ctx, domain.GroupAdmin, ev)
	case domain.EventStatusUpdate:
		d.Broadcast(ctx, domain.GroupStatusUpdates, ev)
	case domain.EventNotification:
		target := ev.StringField("user_id")
		if target == "" {
			d.log.WarnContext(ctx, "dispatcher - route event - notification without target", "type", ev.Type)
			return domain.ErrMalformedMessage
		}
		d.Broadcast(ctx, domain.UserGroup(target), ev)
	case domain.EventTypingStart, domain.EventTypingStop:
		if postID := ev.StringField("post_id"); postID != "" {
			d.Broadcast(ctx, domain.PostGroup(postID), ev)
		}
	default:
		d.log.WarnContext(ctx, "dispatcher - route event - unknown type ignored", "type", ev.Type)
		return domain.ErrUnknownEventType
	}
	return nil
}
