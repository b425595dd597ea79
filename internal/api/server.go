package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gamecircle-core/internal/audit"
	"github.com/nerrad567/gamecircle-core/internal/auth"
	"github.com/nerrad567/gamecircle-core/internal/events"
	"github.com/nerrad567/gamecircle-core/internal/game"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/config"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/logging"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every backing service the health endpoint reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Directory   *auth.Directory
	Tokens      *auth.TokenService
	Games       *game.Registry
	AuditRepo   audit.Repository // optional: nil disables the audit trail
	AuditBuffer int              // recorder queue length; zero uses auditChanSize
	Events      *events.Bus      // optional: nil disables event fan-out
	MQTT        *mqtt.Client     // optional: when set, WebSocket events are relayed from the broker
	DB          HealthChecker    // optional: reported by /api/v1/health
	Hub         *Hub             // optional: shared with the event bus when MQTT is off
	Version     string
}

// Server is the HTTP API server for Game Circle.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	directory *auth.Directory
	tokens    *auth.TokenService
	games     *game.Registry
	auditRepo audit.Repository
	auditBuf  int
	recorder  *audit.Recorder
	events    *events.Bus
	mqtt      *mqtt.Client
	db        HealthChecker
	version   string
	metrics   *metrics
	tickets   *ticketStore
	hub       *Hub
	server    *http.Server
	listener  net.Listener
	cancel    context.CancelFunc // cancels background goroutines on Close()
	startTime time.Time
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, directory, tokens, games)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.Games == nil {
		return nil, fmt.Errorf("game registry is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		directory: deps.Directory,
		tokens:    deps.Tokens,
		games:     deps.Games,
		auditRepo: deps.AuditRepo,
		auditBuf:  deps.AuditBuffer,
		events:    deps.Events,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		metrics:   newMetrics(),
		tickets:   newTicketStore(),
		hub:       deps.Hub,
		startTime: time.Now(),
	}
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	s.hub.onCountChange = s.metrics.wsClients.Set

	return s, nil
}

// Handler builds the router. Background goroutines are not started.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the audit recorder, the ticket cleanup loop and, when MQTT is
// connected, the relay of broker events into the WebSocket hub, then serves
// the router in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation of background goroutines
//
// Returns:
//   - error: If the listener cannot be opened (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditRepo != nil {
		s.recorder = audit.NewRecorder(s.auditRepo, s.logger.Logger, s.auditBufferSize(), "api")
	}

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	if err := s.subscribeEventRelay(); err != nil {
		s.logger.Warn("failed to subscribe to event relay for WebSocket", "error", err)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		s.recorder.Close()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// flushes pending audit entries.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	if err != nil {
		// Handlers still running after the deadline lose their audit entries.
		s.logger.Warn("API server shutdown timed out, closing audit recorder anyway", "error", err)
	}
	s.recorder.Close()

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// publish hands a domain event to the bus. A nil bus is a no-op.
func (s *Server) publish(eventType, action, actorID, entityID string, data any) {
	s.events.Publish(events.Event{
		Type:      eventType,
		Action:    action,
		ActorID:   actorID,
		EntityID:  entityID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// auditLog records an audit entry. A nil recorder (auditing disabled or
// server not started) drops it silently.
func (s *Server) auditLog(action, entityType, entityID, userID string, details map[string]any) {
	s.recorder.Record(action, entityType, entityID, userID, details)
}

// auditBufferSize returns the configured recorder queue length.
func (s *Server) auditBufferSize() int {
	if s.auditBuf > 0 {
		return s.auditBuf
	}
	return auditChanSize
}
