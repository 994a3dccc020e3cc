package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/contracts"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

// ManagerService owns the connection lifecycle: auth-gated accept, default
// group joins, inbound message handling and disconnect cleanup. It is the
// only component that mutates group membership.
type ManagerService struct {
	registry   contracts.ConnectionRegistry
	groups     contracts.GroupTable
	dispatcher contracts.Dispatcher
	presence   *PresenceService
	log        *slog.Logger
}

func NewManagerService(
	log *slog.Logger,
	registry contracts.ConnectionRegistry,
	groups contracts.GroupTable,
	dispatcher contracts.Dispatcher,
	presence *PresenceService,
) *ManagerService {
	return &ManagerService{
		log:        log,
		registry:   registry,
		groups:     groups,
		dispatcher: dispatcher,
		presence:   presence,
	}
}

// HandleConnect registers the connection and performs the standard joins.
// Anonymous principals are rejected before any registration happens.
func (m *ManagerService) HandleConnect(ctx context.Context, c contracts.Client, p domain.Principal) error {
	ctx, span := tracer.Start(ctx, "ManagerService.HandleConnect", trace.WithAttributes(
		attribute.String("user.id", p.UserID),
		attribute.Bool("user.admin", p.Admin),
	))
	defer span.End()
	if p.Anonymous() {
		span.SetStatus(codes.Error, "anonymous rejected")
		return domain.ErrAuthenticationFailed
	}
	if err := m.registry.Register(c, p); err != nil {
		span.RecordError(err)
		m.log.ErrorContext(ctx, "manager - handle connect - register failed", "user_id", p.UserID, "err", err)
		return err
	}
	id := c.ID()
	m.groups.Join(domain.GroupPostsFeed, id)
	m.groups.Join(domain.UserGroup(p.UserID), id)
	m.groups.Join(domain.GroupStatusUpdates, id)
	if p.Admin {
		m.groups.Join(domain.GroupAdmin, id)
	}
	m.presence.OnConnect(ctx, p.UserID)
	m.log.InfoContext(ctx, "manager - handle connect - connection open", "conn_id", id.String(), "user_id", p.UserID)
	return nil
}

// HandleDisconnect runs exactly once per connection, from the handler's
// deferred cleanup. The principal is passed in because the registry entry
// may already be gone after an implicit unregister mid-broadcast.
func (m *ManagerService) HandleDisconnect(ctx context.Context, connID uuid.UUID, p domain.Principal) {
	ctx, span := tracer.Start(ctx, "ManagerService.HandleDisconnect", trace.WithAttributes(
		attribute.String("user.id", p.UserID),
	))
	defer span.End()
	m.registry.Unregister(connID)
	m.presence.OnDisconnect(ctx, p.UserID)
	m.log.InfoContext(ctx, "manager - handle disconnect - connection closed", "conn_id", connID.String(), "user_id", p.UserID)
}

// HandleMessage processes one inbound client message. Malformed payloads
// produce an error reply on the same connection and never terminate it.
func (m *ManagerService) HandleMessage(ctx context.Context, connID uuid.UUID, p domain.Principal, raw []byte) {
	ctx, span := tracer.Start(ctx, "ManagerService.HandleMessage", trace.WithAttributes(
		attribute.String("user.id", p.UserID),
		attribute.Int("payload_size", len(raw)),
	))
	defer span.End()

	m.registry.Touch(connID)

	var in domain.InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		span.RecordError(err)
		m.log.WarnContext(ctx, "manager - handle message - malformed payload", "conn_id", connID.String(), "err", err)
		m.replyError(ctx, connID, "malformed_message", "payload could not be decoded")
		return
	}

	switch in.Type {
	case domain.MsgPing:
		m.presence.Heartbeat(ctx, p.UserID)
		m.reply(ctx, connID, domain.PongMessage{
			Type:       "pong",
			Timestamp:  in.Timestamp,
			ServerTime: time.Now(),
		})

	case domain.MsgJoinPost:
		if in.PostID == "" {
			m.replyError(ctx, connID, "missing_post_id", "join_post requires post_id")
			return
		}
		m.groups.Join(domain.PostGroup(in.PostID), connID)

	case domain.MsgLeavePost:
		if in.PostID == "" {
			m.replyError(ctx, connID, "missing_post_id", "leave_post requires post_id")
			return
		}
		m.groups.Leave(domain.PostGroup(in.PostID), connID)

	case domain.MsgTypingStart, domain.MsgTypingStop:
		if in.PostID == "" {
			return
		}
		evType := domain.EventTypingStart
		if in.Type == domain.MsgTypingStop {
			evType = domain.EventTypingStop
		}
		// Ephemeral: broadcast to the post group excluding the sender,
		// never mirrored to the feed.
		m.dispatcher.BroadcastExcept(ctx, domain.PostGroup(in.PostID), connID, domain.NewEvent(evType, map[string]any{
			"post_id": in.PostID,
			"user_id": p.UserID,
		}))

	case domain.MsgComment:
		if in.PostID == "" || in.Content == "" {
			m.replyError(ctx, connID, "invalid_comment", "comment requires post_id and content")
			return
		}
		ev := domain.NewEvent(domain.EventNewComment, map[string]any{
			"post_id": in.PostID,
			"user_id": p.UserID,
			"content": in.Content,
		})
		if err := m.dispatcher.RouteEvent(ctx, ev); err != nil {
			span.RecordError(err)
		}

	case domain.MsgReaction:
		if in.PostID == "" || in.ReactionType == "" {
			m.replyError(ctx, connID, "invalid_reaction", "reaction requires post_id and reaction_type")
			return
		}
		action := in.Action
		if action == "" {
			action = "added"
		}
		ev := domain.NewEvent(domain.EventReactionUpdate, map[string]any{
			"post_id":       in.PostID,
			"user_id":       p.UserID,
			"reaction_type": in.ReactionType,
			"action":        action,
		})
		if err := m.dispatcher.RouteEvent(ctx, ev); err != nil {
			span.RecordError(err)
		}

	default:
		// Unknown but well-formed types are dropped, not punished.
		m.log.WarnContext(ctx, "manager - handle message - unknown type ignored", "type", in.Type, "conn_id", connID.String())
	}
}

func (m *ManagerService) reply(ctx context.Context, connID uuid.UUID, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.log.ErrorContext(ctx, "manager - reply - encode failed", "err", err)
		return
	}
	if err := m.registry.Send(ctx, connID, data); err != nil {
		m.registry.Unregister(connID)
	}
}

func (m *ManagerService) replyError(ctx context.Context, connID uuid.UUID, code, message string) {
	m.reply(ctx, connID, domain.ErrorMessage{
		Type:    "error",
		Code:    code,
		Message: message,
	})
}
