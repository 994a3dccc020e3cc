package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/registry"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/app/server/handlers"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/services"
	"github.com/hiten-mitsurugi/alumni-system-sub001/pkg/middleware"
)

type Server struct {
	mux             *http.ServeMux
	addr            string
	log             *slog.Logger
	registry        *registry.Registry
	wsHandler       *handlers.WSHandler
	eventsHandler   *handlers.EventsHandler
	presenceHandler *handlers.PresenceHandler
	tokenSvc        *services.TokenService
	httpServer      *http.Server
}

func NewServer(
	log *slog.Logger,
	name string,
	addr string,
	reg *registry.Registry,
	manager *services.ManagerService,
	dispatcher *services.DispatcherService,
	presence *services.PresenceService,
	tokenSvc *services.TokenService,
	gatherer prometheus.Gatherer,
) *Server {
	s := &Server{
		mux:             http.NewServeMux(),
		addr:            addr,
		log:             log,
		registry:        reg,
		wsHandler:       handlers.NewWSHandler(manager, tokenSvc),
		eventsHandler:   handlers.NewEventsHandler(dispatcher),
		presenceHandler: handlers.NewPresenceHandler(presence),
		tokenSvc:        tokenSvc,
	}
	s.routes(name, gatherer)
	return s
}

func (s *Server) routes(name string, gatherer prometheus.Gatherer) {
	trace := middleware.TracerMiddleware(name)
	logging := middleware.RequestLogger(s.log)
	auth := middleware.ServiceAuth(s.tokenSvc)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Token rides in the query string on /ws: browsers cannot set headers
	// on a websocket upgrade.
	s.mux.Handle("/ws", trace(logging(http.HandlerFunc(s.wsHandler.Handler))))

	// The API layer calls this right after a commit; same bearer tokens as
	// the websocket endpoint.
	s.mux.Handle("POST /internal/events", trace(logging(auth(http.HandlerFunc(s.eventsHandler.Notify)))))
	s.mux.Handle("GET /internal/presence/online", trace(logging(auth(http.HandlerFunc(s.presenceHandler.Online)))))
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.addr,
		Handler:     s.mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would kill long-lived websocket sessions.
	}
	s.log.Info("server starting", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then drains every open connection so
// clients see a clean close instead of a reset.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.registry.Drain()
	return err
}
