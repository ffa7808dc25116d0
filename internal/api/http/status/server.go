package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/engine"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// Config configures the status server.
type Config struct {
	// ListenAddress is the HTTP address to bind. Empty disables the server.
	ListenAddress string `yaml:"listen_address"`
	// RequestsPerSecond limits user actions per client.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the token bucket size for user actions.
	Burst int `yaml:"burst"`
}

// DefaultConfig returns the status server defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddress:     "127.0.0.1:8086",
		RequestsPerSecond: 2,
		Burst:             5,
	}
}

// Enabled reports whether the server should run.
func (c Config) Enabled() bool {
	return c.ListenAddress != ""
}

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Engine is the part of the safety engine the server drives.
type Engine interface {
	Submit(ctx context.Context, event safety.Event) error
	Status() engine.Status
}

// Server serves observables and user actions.
type Server struct {
	cfg      Config
	engine   Engine
	hub      *Hub
	contacts []safety.EmergencyContact
	limiter  *rateLimiter
	upgrader websocket.Upgrader
}

// NewServer creates a server over eng. Status changes must be published to hub.
func NewServer(cfg Config, eng Engine, hub *Hub, contacts []safety.EmergencyContact) *Server {
	defaults := DefaultConfig()

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}

	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}

	return &Server{
		cfg:      cfg,
		engine:   eng,
		hub:      hub,
		contacts: contacts,
		limiter:  newRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		upgrader: websocket.Upgrader{
			// Local presentation clients only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.Handle("POST /actions/{action}", s.limiter.middleware(http.HandlerFunc(s.handleAction)))

	return mux
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "status")

	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddress, err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go s.hub.Run(ctx)

	go func() {
		logger.Infof(ctx, "Status server listening on %s", listener.Addr())

		errCh <- server.Serve(listener)
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve status: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}

	logger.Info(ctx, "Status server stopped")

	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	defer func() {
		s.hub.remove(conn)
		_ = conn.Close()
	}()

	if err = s.hub.attach(conn); err != nil {
		return
	}

	// Clients only listen; reading detects the close.
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			return
		}
	}
}

var (
	// errUnknownAction is returned for unsupported action names.
	errUnknownAction = errors.New("unknown action")
	// errInvalidElapsed is returned for a bad elapsed_ms parameter.
	errInvalidElapsed = errors.New("elapsed_ms must be a non-negative integer")
	// errInvalidContact is returned for a bad contact index.
	errInvalidContact = errors.New("contact must be a configured contact index")
)

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	event, err := s.parseAction(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})

		return
	}

	if err = s.engine.Submit(r.Context(), event); err != nil {
		if errors.Is(err, engine.ErrEngineClosed) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})

			return
		}

		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})

		return
	}

	logger.InfoKV(r.Context(), "User action accepted", "event", event)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) parseAction(r *http.Request) (safety.Event, error) {
	query := r.URL.Query()

	switch action := r.PathValue("action"); action {
	case "ok":
		return safety.UserIsOk{}, nil
	case "help":
		return safety.UserNeedsHelp{}, nil
	case "panic":
		return safety.PanicPressed{}, nil
	case "fall-no-response":
		elapsed, err := strconv.ParseInt(query.Get("elapsed_ms"), 10, 64)
		if err != nil || elapsed < 0 {
			return nil, errInvalidElapsed
		}

		return safety.FallNoResponse{ElapsedMs: elapsed}, nil
	case "emergency-call":
		index, err := strconv.Atoi(query.Get("contact"))
		if err != nil || index < 0 || index >= len(s.contacts) {
			return nil, errInvalidContact
		}

		return safety.EmergencyCallStarted{Contact: s.contacts[index]}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(body)
}
