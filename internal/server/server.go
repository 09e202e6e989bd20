// Package server exposes the contact relay over HTTP using fiber.
package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/shineum/contact-relay/internal/contact"
	"github.com/shineum/contact-relay/internal/origin"
	"github.com/shineum/contact-relay/internal/ratelimit"
)

// shutdownTimeout is the maximum time to wait for in-flight requests
// during graceful shutdown.
const shutdownTimeout = 30 * time.Second

// DefaultBodyLimit caps request bodies at 10 MB.
const DefaultBodyLimit = 10 * 1024 * 1024

// Sender delivers a validated submission and returns the message id.
type Sender interface {
	SendContactEmail(ctx context.Context, sub contact.Submission) (string, error)
}

// Config holds the configuration for an HTTP server.
type Config struct {
	// Addr is the address to listen on (e.g., ":5000").
	Addr string

	// BodyLimit caps request bodies in bytes. Defaults to DefaultBodyLimit.
	BodyLimit int

	// ProxyHeader names a header carrying the client IP, such as
	// X-Forwarded-For. Empty uses the connection's remote address.
	ProxyHeader string

	// TLSConfig enables HTTPS when set.
	TLSConfig *tls.Config

	Guard   *origin.Guard
	Limiter *ratelimit.Limiter
	Mailer  Sender

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// Server serves the health and contact endpoints.
type Server struct {
	config Config
	app    *fiber.App

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server and registers its middleware and routes.
func New(cfg Config) *Server {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Guard == nil {
		cfg.Guard = origin.NewGuard(nil)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(ratelimit.DefaultMax, ratelimit.DefaultWindow)
	}

	s := &Server{config: cfg}
	s.app = fiber.New(fiber.Config{
		AppName:               "contact-relay",
		BodyLimit:             cfg.BodyLimit,
		ProxyHeader:           cfg.ProxyHeader,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
		Immutable:             true,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(requestid.New())
	s.app.Use(accessLog)
	s.app.Use(recover.New())
	s.app.Use(helmet.New())
	s.app.Use(originGuard(s.config.Guard))

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/contact", rateLimit(s.config.Limiter, s.config.Now), s.handleContact)

	s.app.Use(handleNotFound)
}

// App returns the underlying fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then waits up to 30 seconds for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	slog.Info("HTTP server listening",
		"addr", ln.Addr().String(),
		"tls_enabled", s.config.TLSConfig != nil,
		"allowed_origins", s.config.Guard.Origins(),
		"rate_limit", s.config.Limiter.Limit(),
		"rate_window", s.config.Limiter.Window().String(),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		slog.Warn("shutdown timeout reached, forcing close", "error", err)
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	slog.Info("all requests completed")
	return nil
}

// Addr returns the listener address, or empty string if not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
