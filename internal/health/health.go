// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/swap-quoter/internal/logger"
)

const checkTimeout = 5 * time.Second

// Status is the /health response body.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Check is the result of one named check.
type Check struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) (bool, string)

// Server provides /health, /ready and /live.
type Server struct {
	port    int
	version string
	log     logger.LoggerInterface
	checks  map[string]CheckFunc
	mu      sync.RWMutex
	server  *http.Server
}

// NewServer creates a health server. Call Start to listen.
func NewServer(port int, version string, log logger.LoggerInterface) *Server {
	return &Server{
		port:    port,
		version: version,
		log:     log,
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a named check; re-registering replaces it.
func (s *Server) RegisterCheck(name string, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("alive"))
	})
	return mux
}

// Start listens in the background. Listener errors are logged.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "health server stopped", "error", err)
		}
	}()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// run evaluates every check concurrently.
func (s *Server) run(ctx context.Context) (map[string]Check, bool) {
	s.mu.RLock()
	checks := make(map[string]CheckFunc, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(checks))
		healthy = true
		g       errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			ok, msg := check(ctx)
			mu.Lock()
			results[name] = Check{Healthy: ok, Message: msg}
			healthy = healthy && ok
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results, healthy
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results, healthy := s.run(r.Context())

	status := Status{
		Status:    "ok",
		Checks:    results,
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if !healthy {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, healthy := s.run(r.Context()); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
