// Package relay implements the collaboration relay: a room-based fan-out
// server that rebroadcasts every inbound frame verbatim to the other members
// of the sender's room, replays membership to new joiners, and answers
// heartbeats.
package relay

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Server is the relay's HTTP/WebSocket front.
type Server struct {
	config     *Config
	logger     *slog.Logger
	hub        *hub
	upgrader   websocket.Upgrader
	httpServer *http.Server
	tracer     trace.Tracer
}

// New creates a relay server and starts its hub loop.
func New(config *Config) *Server {
	config = config.withDefaults()
	logger := slog.Default().With("component", "relay")

	s := &Server{
		config: config,
		logger: logger,
		hub:    newHub(config.MaxMessageSize, logger, newMetrics(config.Registry)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		tracer: otel.Tracer("liveboard/relay"),
	}
	go s.hub.run()
	return s
}

// Router returns the relay's HTTP handler: the WebSocket endpoint plus
// health and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if reg, ok := s.config.Registry.(prometheus.Gatherer); ok {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}
	return r
}

// handleWS upgrades the request and runs the connection's pumps. The room is
// taken from the URL query, falling back to the default room.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = s.config.DefaultRoom
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err, "room", room)
		return
	}

	_, span := s.tracer.Start(r.Context(), "relay.connection",
		trace.WithAttributes(attribute.String("room", room)))
	defer span.End()

	c := &conn{
		ws:           ws,
		hub:          s.hub,
		room:         room,
		send:         make(chan []byte, s.config.SendBuffer),
		writeTimeout: s.config.WriteTimeout,
		logger:       s.logger.With("room", room, "remote", ws.RemoteAddr().String()),
	}

	select {
	case s.hub.register <- c:
	case <-s.hub.stopped:
		ws.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

// Start begins serving on the configured address. It blocks until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.Router(),
	}
	s.logger.Info("relay listening", "addr", s.config.Addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, closes the hub, and waits up to the
// configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Close releases the hub without a listener, for servers mounted in an
// external router.
func (s *Server) Close() {
	s.hub.Stop()
}
