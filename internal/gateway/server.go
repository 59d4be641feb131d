// Package gateway is the control-plane HTTP server: a stateless,
// bearer-authenticated façade over the session manager. It never
// touches the steam client or the token cache directly.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/haoranw/steamgate/internal/config"
	"github.com/haoranw/steamgate/internal/domain"
	"github.com/haoranw/steamgate/internal/logging"
	"github.com/haoranw/steamgate/internal/version"
)

// Sessions is the session-manager surface the control plane maps
// requests onto.
type Sessions interface {
	Status() domain.Status
	LogOn(ctx context.Context) error
	CurrentUser(ctx context.Context) (domain.UserInfo, error)
	SendMessage(ctx context.Context, groupID, channel, text string) error
	LogOff(ctx context.Context) error
}

// Server is the steamgate control-plane HTTP server.
type Server struct {
	cfg      config.GatewayConfig
	auth     ResolvedAuth
	log      *logging.Logger
	sessions Sessions
	version  string

	// shutdown is invoked after a successful logout response so the
	// process can drain and exit.
	shutdown func()

	startedAt   time.Time
	httpServer  *http.Server
	authLimiter *authRateLimiter
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithShutdownFunc sets the hook invoked after POST /logout responds.
func WithShutdownFunc(fn func()) ServerOption {
	return func(s *Server) { s.shutdown = fn }
}

// New creates a gateway server over one session manager.
func New(cfg config.GatewayConfig, sessions Sessions, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:         cfg,
		auth:        ResolveAuth(cfg.Auth),
		log:         log.Sub("gateway"),
		sessions:    sessions,
		version:     version.Version,
		authLimiter: newAuthRateLimiter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the full middleware-wrapped route handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return withMiddleware(mux, s.log)
}

// Start begins listening. It blocks until the context is cancelled or
// an error occurs; cancellation drains in-flight requests before
// returning.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // login can wait on a human
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertPath, s.cfg.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		s.log.Info().Msg("TLS enabled")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Bool("tls", s.cfg.TLS.Enabled).
		Msg("control plane listening")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down control plane")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// requireAuth rejects requests without the configured bearer token.
// Missing credentials are unauthenticated, mismatched ones forbidden;
// repeated failures from one address get rate limited.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.allow(r.RemoteAddr) {
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}

		result := Authorize(s.auth, r)
		if !result.OK {
			s.authLimiter.recordFailure(r.RemoteAddr)
			s.log.Warn().
				Str("remote", r.RemoteAddr).
				Str("reason", result.Reason).
				Msg("request rejected")
			writeJSON(w, result.Status, errorResponse{Error: result.Reason})
			return
		}

		next.ServeHTTP(w, r)
	})
}
