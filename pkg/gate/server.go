package gate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const landingPage = `<html>
<head><title>btrfs exporter</title></head>
<body>
<h1>btrfs exporter</h1>
<p><a href="%s">Metrics</a></p>
</body>
</html>
`

// Server exposes a Gate over HTTP.
type Server struct {
	addr   string
	path   string
	srv    *http.Server
	ln     net.Listener
	logger *logrus.Logger
}

// NewServer creates a server that serves g on path at addr. baseCtx is the
// parent of every request context, so cancelling it aborts in-flight cycles.
func NewServer(baseCtx context.Context, addr, path string, g *Gate, logger *logrus.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}
	if logger == nil {
		logger = logrus.New()
	}

	mux := http.NewServeMux()
	mux.Handle(path, g)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, landingPage, path)
	})

	return &Server{
		addr: addr,
		path: path,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
		},
		logger: logger,
	}
}

// Start binds the listener and serves in the background. A bind failure is
// returned directly. Serve errors after startup are sent on the returned channel.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.ln = ln

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.WithFields(logrus.Fields{
		"address": ln.Addr().String(),
		"path":    s.path,
	}).Info("Serving metrics")
	return errCh, nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Shutdown stops accepting scrapes and waits for in-flight ones until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
