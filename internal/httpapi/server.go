// Package httpapi exposes the FluencyBoost engine over HTTP.
//
// The surface is a small JSON API:
//
//   - /api/words         : word list CRUD
//   - /api/stats         : derived performance statistics
//   - /api/session/...   : the practice session state machine
//   - /metrics           : Prometheus metrics
//   - /healthz, /readyz  : liveness and readiness probes
//
// Handlers hold no practice state of their own; they translate requests into
// calls on the injected stores and session and render the results as JSON.
package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluencyboost/fluencyboost/internal/health"
	"github.com/fluencyboost/fluencyboost/internal/ledger"
	"github.com/fluencyboost/fluencyboost/internal/observe"
	"github.com/fluencyboost/fluencyboost/internal/practice"
	"github.com/fluencyboost/fluencyboost/internal/words"
)

// Server wires the HTTP handlers to the engine. Construct with [NewServer].
type Server struct {
	words    words.Store
	attempts ledger.Ledger
	session  *practice.Session
	metrics  *observe.Metrics
	health   *health.Handler
}

// NewServer creates a Server over the given stores and session. health may be
// nil, in which case the probe endpoints report liveness only.
func NewServer(ws words.Store, l ledger.Ledger, sess *practice.Session, m *observe.Metrics, h *health.Handler) *Server {
	if h == nil {
		h = health.New()
	}
	return &Server{
		words:    ws,
		attempts: l,
		session:  sess,
		metrics:  m,
		health:   h,
	}
}

// Handler returns the fully routed HTTP handler, including the observability
// middleware on the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/words", s.handleListWords)
	mux.HandleFunc("POST /api/words", s.handleCreateWord)
	mux.HandleFunc("DELETE /api/words/{id}", s.handleDeleteWord)

	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("POST /api/session", s.handleStartSession)
	mux.HandleFunc("GET /api/session", s.handleSessionState)
	mux.HandleFunc("DELETE /api/session", s.handleCancelSession)
	mux.HandleFunc("POST /api/session/listen", s.handleListen)
	mux.HandleFunc("POST /api/session/record", s.handleRecord)
	mux.HandleFunc("POST /api/session/result", s.handleResult)
	mux.HandleFunc("POST /api/session/error", s.handleError)
	mux.HandleFunc("POST /api/session/retry", s.handleRetry)
	mux.HandleFunc("POST /api/session/advance", s.handleAdvance)

	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)

	return observe.Middleware(s.metrics)(mux)
}
