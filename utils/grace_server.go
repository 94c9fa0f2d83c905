package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	DEFAULT_READ_TIMEOUT     = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT    = DEFAULT_READ_TIMEOUT
	DEFAULT_SHUTDOWN_TIMEOUT = 30 * time.Second
)

// Server wraps http.Server to drain in-flight requests on SIGINT/SIGTERM.
type Server struct {
	*http.Server

	shutdownTimeout time.Duration
	onShutdown      []func()
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		shutdownTimeout: DEFAULT_SHUTDOWN_TIMEOUT,
	}
}

// OnShutdown registers fn to run after the HTTP server has drained, in
// registration order.
func (srv *Server) OnShutdown(fn func()) {
	srv.onShutdown = append(srv.onShutdown, fn)
}

// Serve accepts on ln until ctx is cancelled, then shuts down gracefully.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Server.Serve(ln) }()

	select {
	case err := <-errCh:
		srv.runHooks()
		return err
	case <-ctx.Done():
	}

	Sugar.Info("graceful shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown success")
	}
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	srv.runHooks()
	return err
}

// ListenAndServe listens on srv.Addr and serves until SIGINT or SIGTERM.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("net.Listen error: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, ln)
}

func (srv *Server) runHooks() {
	for _, fn := range srv.onShutdown {
		fn()
	}
}

// GraceServer starts an HTTP server that drains on SIGINT/SIGTERM and then
// runs the cleanup hooks.
func GraceServer(addr string, handler http.Handler, cleanup ...func()) error {
	srv := NewServer(addr, handler, DEFAULT_READ_TIMEOUT, DEFAULT_WRITE_TIMEOUT)
	for _, fn := range cleanup {
		srv.OnShutdown(fn)
	}
	return srv.ListenAndServe()
}
