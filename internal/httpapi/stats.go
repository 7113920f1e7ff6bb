package httpapi

import (
	"net/http"

	"github.com/fluencyboost/fluencyboost/internal/observe"
	"github.com/fluencyboost/fluencyboost/internal/stats"
)

// handleStats recomputes the statistics report from the current word list and
// attempt ledger. Reports are derived on demand and never cached.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ws, err := s.words.List(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list words failed", "err", err)
		respondError(w, http.StatusInternalServerError, "listing words failed")
		return
	}
	attempts, err := s.attempts.All(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("load attempts failed", "err", err)
		respondError(w, http.StatusInternalServerError, "loading attempts failed")
		return
	}
	respondJSON(w, http.StatusOK, stats.Compute(ws, attempts))
}
