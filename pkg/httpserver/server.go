// Package httpserver runs the service's HTTP listener with graceful
// shutdown: Run blocks until the context is cancelled or an interrupt/TERM
// signal arrives, then drains in-flight requests within the configured
// deadline.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Config carries the listener settings.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

var (
	// ErrStart wraps listener failures so callers can tell a port clash
	// from a shutdown problem with errors.Is.
	ErrStart = errors.New("httpserver: start failed")
	// ErrShutdown wraps failures to drain within ShutdownTimeout.
	ErrShutdown = errors.New("httpserver: shutdown failed")
)

// Server runs one HTTP listener.
type Server struct {
	cfg     Config
	log     *slog.Logger
	onStart []func(*slog.Logger)
}

// Option configures the server.
type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStartHook registers a callback invoked once the listener goroutine
// has been spawned.
func WithStartHook(h func(*slog.Logger)) Option {
	return func(s *Server) {
		if h != nil {
			s.onStart = append(s.onStart, h)
		}
	}
}

// NewFromConfig creates a server. Zero config fields fall back to the same
// defaults the env tags declare, so a hand-built Config behaves like a
// loaded one.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves handler on the configured address and blocks until ctx is
// cancelled, an interrupt or TERM signal arrives, or the listener fails.
// In-flight requests get ShutdownTimeout to finish once a stop is
// requested.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	for _, h := range s.onStart {
		h(s.log)
	}

	select {
	case err := <-errCh:
		// ListenAndServe only returns before a shutdown when it failed.
		return errors.Join(ErrStart, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server", "addr", s.cfg.Addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(ErrShutdown, err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
