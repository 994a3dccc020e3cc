package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/server/ws"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/services"
	"github.com/hiten-mitsurugi/alumni-system-sub001/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten later
	},
}

type WSHandler struct {
	manager  *services.ManagerService
	tokenSvc *services.TokenService
}

func NewWSHandler(manager *services.ManagerService, tokenSvc *services.TokenService) *WSHandler {
	return &WSHandler{
		manager:  manager,
		tokenSvc: tokenSvc,
	}
}

// Handler upgrades the connection and walks it through the lifecycle:
// authenticate from the ?token= query param, register, join default
// groups, then pump inbound messages until the transport closes.
//
// Close codes are deliberate: 4001 for a missing/anonymous credential,
// 4002 for a bad one, so clients can pick the right reconnect behavior.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := middleware.LoggerFrom(r.Context())
	span := trace.SpanFromContext(r.Context())

	principal, authErr := s.tokenSvc.ResolvePrincipal(r.URL.Query().Get("token"))

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", "err", err)
		return
	}
	socket := ws.NewWebSocket(ctx, conn)

	if authErr != nil {
		log.WarnContext(r.Context(), "ws handler - invalid token", "err", authErr)
		_ = socket.WriteClose(domain.CloseInvalidToken, "invalid token")
		socket.Close()
		return
	}
	span.SetAttributes(attribute.String("user.id", principal.UserID))

	client := ws.NewClient(ctx, socket)
	if err := s.manager.HandleConnect(ctx, client, principal); err != nil {
		if errors.Is(err, domain.ErrAuthenticationFailed) {
			_ = socket.WriteClose(domain.CloseUnauthenticated, "authentication required")
		} else {
			_ = socket.WriteClose(websocket.CloseInternalServerErr, "connect failed")
		}
		client.Close()
		return
	}
	defer s.manager.HandleDisconnect(sessionCtx, client.ID(), principal)

	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - client closed", "user_id", principal.UserID, "code", code)
		cancel()
		return nil
	})
	log.InfoContext(r.Context(), "ws handler - connection established", "conn_id", client.ID().String(), "user_id", principal.UserID)

	socket.ReadLoop(func(data []byte) {
		s.manager.HandleMessage(ctx, client.ID(), principal, data)
	})
}
