// Package healthz implements the controller's liveness/readiness surface
// (spec.md §D): /healthz always answers 200 once the process is
// listening, /readyz answers 200 once MarkReady has been called and 503
// before that and after MarkNotReady, and /metrics, when NewServer is
// given a handler, delegates to it. Built on go-chi/chi/v5, the same
// router the webhook server uses.
package healthz

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// Server exposes /healthz, /readyz, and (when a metrics handler is given)
// /metrics on one router.
type Server struct {
	Router *chi.Mux
	ready  atomic.Bool
}

// NewServer builds the router. metricsHandler may be nil to run without a
// /metrics endpoint (e.g. a process that only ever needs liveness/
// readiness, such as cmd/kulta-gen-crd if it ever grew one).
func NewServer(metricsHandler http.Handler) *Server {
	s := &Server{}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	s.Router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// MarkReady flips /readyz to 200. cmd/kulta-controller calls it just
// before starting the manager, without waiting for the informer caches
// to sync.
func (s *Server) MarkReady() {
	s.ready.Store(true)
}

// MarkNotReady flips /readyz back to 503. Call this at the start of
// graceful shutdown so a load balancer stops sending new reconcile-
// triggering requests (webhook calls) before the process actually exits.
func (s *Server) MarkNotReady() {
	s.ready.Store(false)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
