package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/parley-core/internal/auth"
	"github.com/nerrad567/parley-core/internal/chat"
	"github.com/nerrad567/parley-core/internal/infrastructure/config"
	"github.com/nerrad567/parley-core/internal/infrastructure/database"
	"github.com/nerrad567/parley-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/parley-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Users     auth.UserRepository
	Chats     *chat.Service
	Members   chat.MemberRepository
	Authority *auth.Authority
	DB        *database.DB     // optional: exposes pool stats on /metrics
	Influx    *influxdb.Client // optional: telemetry sink
	Version   string
}

// Server is the HTTP and WebSocket server for Parley.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket hub
// that fans stored messages out to subscribed clients. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	users     auth.UserRepository
	chats     *chat.Service
	members   chat.MemberRepository
	authority *auth.Authority
	db        *database.DB
	influx    *influxdb.Client
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, repositories, chat service, token authority)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Chats == nil {
		return nil, fmt.Errorf("chat service is required")
	}
	if deps.Members == nil {
		return nil, fmt.Errorf("member repository is required")
	}
	if deps.Authority == nil {
		return nil, fmt.Errorf("token authority is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		users:     deps.Users,
		chats:     deps.Chats,
		members:   deps.Members,
		authority: deps.Authority,
		db:        deps.DB,
		influx:    deps.Influx,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, wires it into the chat service so REST sends
// and WebSocket sends broadcast through the same path, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger, s.influx)
	go s.hub.Run(srvCtx)

	// Stored messages reach subscribers through the hub regardless of
	// whether they arrived over REST or a WebSocket send frame.
	s.chats.SetNotifier(s.hub)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
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
