// Package server exposes a running fibsum process over HTTP: Prometheus
// metrics on /metrics, rank lifecycle phases on /status and a liveness probe
// on /healthz.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agbru/fibsum/internal/logging"
	"github.com/agbru/fibsum/internal/metrics"
)

// readHeaderTimeout bounds slow clients.
const readHeaderTimeout = 5 * time.Second

// Server is the status HTTP server of one process.
type Server struct {
	addr     string
	security SecurityConfig
	metrics  *Metrics
	status   *Status
	logger   logging.Logger
	handler  http.Handler

	httpServer *http.Server
	listener   net.Listener
	done       chan error
}

// New creates a server for addr exporting collector's registry.
func New(addr string, collector *metrics.Collector, logger logging.Logger) (*Server, error) {
	if collector == nil {
		return nil, errors.New("status server needs a metrics collector")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	s := &Server{
		addr:     addr,
		security: DefaultSecurityConfig(),
		metrics:  NewMetrics(collector.Registry()),
		status:   NewStatus(),
		logger:   logger,
	}

	metricsHandler := promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{})
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.wrap("/metrics", metricsHandler.ServeHTTP))
	mux.HandleFunc("/status", s.wrap("/status", s.status.ServeHTTP))
	mux.HandleFunc("/healthz", s.wrap("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	}))
	s.handler = mux
	return s, nil
}

// Status returns the lifecycle board to pass as a phase observer.
func (s *Server) Status() *Status { return s.status }

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.handler, ReadHeaderTimeout: readHeaderTimeout}
	s.done = make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	s.logger.Info("status server listening", logging.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}

func (s *Server) wrap(path string, next http.HandlerFunc) http.HandlerFunc {
	return SecurityMiddleware(s.security, s.metricsMiddleware(path, next))
}

// metricsMiddleware tracks active and served requests.
func (s *Server) metricsMiddleware(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncrementActiveRequests()
		defer s.metrics.DecrementActiveRequests()

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		s.metrics.ObserveRequest(path, rec.code)
		s.logger.Debug("request served",
			logging.String("path", path), logging.Int("code", rec.code))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}
