// Package debugserver exposes Prometheus metrics and the run store's debug
// pages while a replay is running.
package debugserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/sensor-replay/internal/db"
	"github.com/banshee-data/sensor-replay/internal/metrics"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
	"github.com/banshee-data/sensor-replay/internal/version"
)

const shutdownTimeout = 5 * time.Second

var logf = monitoring.Tagged("debug")

type Server struct {
	mux    *http.ServeMux
	server *http.Server
	ln     net.Listener
}

// New binds addr and builds the handler tree: /metrics always, /debug/
// with the tsweb index, and the run store pages when store is non-nil.
func New(addr string, store *db.DB) (*Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.String())
	if store != nil {
		debug.KV("Run store", store.Path())
		if err := store.AttachAdminRoutes(debug); err != nil {
			return nil, err
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &Server{
		mux: mux,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln: ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logf("listening on %s", s.ln.Addr())
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logf("shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			logf("force close error: %v", err)
		}
	}
	logf("stopped")
	return nil
}
