package authcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrDenied is returned by Wait when the user declined access.
var ErrDenied = errors.New("authorization denied")

// CallbackServer is a loopback listener that receives the browser redirect
// and hands every code it sees to Wait. Newer codes are delivered after
// older ones; the exchanger decides which one wins.
type CallbackServer struct {
	addr    string
	logger  *slog.Logger
	codes   chan string
	denials chan string
	srv     *http.Server
	ln      net.Listener
}

// NewCallbackServer prepares a server for addr (host:port, port 0 picks one).
func NewCallbackServer(addr string, logger *slog.Logger) *CallbackServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackServer{
		addr:    addr,
		logger:  logger,
		codes:   make(chan string, 4),
		denials: make(chan string, 1),
	}
}

// Handler returns the router; exposed for tests.
func (s *CallbackServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(CallbackPath, s.handleCallback)
	return r
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if reason := r.URL.Query().Get("error"); reason != "" {
		s.logger.Warn("authorization declined", "reason", reason)
		select {
		case s.denials <- reason:
		default:
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintln(w, "Authorization was declined. You can close this window.")
		return
	}

	code, ok := codeFromURL(r.URL)
	if !ok {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}
	select {
	case s.codes <- code:
	default:
		s.logger.Warn("dropping authorization code, previous codes not consumed")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "shutter is signed in. You can close this window.")
}

// Start binds the listener and serves in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server stopped", "error", err)
		}
	}()
	s.logger.Info("callback server listening", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound address once Start has returned.
func (s *CallbackServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// RedirectURI is the URI to register with the authorization server.
func (s *CallbackServer) RedirectURI() string {
	return "http://" + s.Addr() + CallbackPath
}

// Codes exposes the delivered codes for callers that select on several
// inputs at once.
func (s *CallbackServer) Codes() <-chan string {
	return s.codes
}

// Wait blocks until a code arrives, the user declines, or ctx ends.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case code := <-s.codes:
		return code, nil
	case reason := <-s.denials:
		return "", fmt.Errorf("%w: %s", ErrDenied, reason)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the listener down.
func (s *CallbackServer) Close(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
