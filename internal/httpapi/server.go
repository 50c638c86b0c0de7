package httpapi

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthurston/nodeflow/core/engine"
	"github.com/pthurston/nodeflow/providers/observability"
	"github.com/pthurston/nodeflow/providers/recorder"
)

// Runner executes workflow runs. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// HealthChecker reports whether the AI backend has credentials.
// ai.Provider satisfies it.
type HealthChecker interface {
	Configured() bool
}

// Config holds server configuration.
type Config struct {
	Addr            string
	RunTimeout      time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front of the engine.
type Server struct {
	cfg     Config
	runner  Runner
	health  HealthChecker
	history recorder.Store
	obs     observability.Observer

	baseCtx context.Context
	cancel  context.CancelFunc
	httpSrv *http.Server
}

// New wires a Server. history may be nil, disabling the run-history
// endpoint; obs may be nil for silent operation.
func New(cfg Config, runner Runner, health HealthChecker, history recorder.Store, obs observability.Observer) *Server {
	if obs == nil {
		obs = observability.Noop{}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		runner:  runner,
		health:  health,
		history: history,
		obs:     obs,
		baseCtx: ctx,
		cancel:  cancel,
	}

	mux := http.NewServeMux()

	// Go 1.22+ method+pattern routing.
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/runs", s.handleRun)
	mux.HandleFunc("GET /api/v1/runs", s.handleHistory)

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // runs can legitimately take minutes
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return s
}

// Handler exposes the routing mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe starts the server and blocks until SIGINT/SIGTERM or a
// listener error.
func (s *Server) ListenAndServe() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		s.obs.Info(s.baseCtx, "shutting down", observability.String("signal", sig.String()))
		s.Shutdown()
	}()

	s.obs.Info(s.baseCtx, "listening", observability.String("addr", s.cfg.Addr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight connections, then cancels the base context.
func (s *Server) Shutdown() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer shutdownCancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)

	s.cancel()
}
