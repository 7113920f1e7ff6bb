package httpapi

import (
	"net/http"

	"github.com/fluencyboost/fluencyboost/internal/ledger"
	"github.com/fluencyboost/fluencyboost/internal/observe"
	"github.com/fluencyboost/fluencyboost/internal/words"
)

// createWordRequest is the JSON body for POST /api/words.
type createWordRequest struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// wordEntry is one element of the GET /api/words response: the word plus its
// recorded attempts in append order. A word without attempts carries an
// empty list, not null.
type wordEntry struct {
	words.Word
	Attempts []ledger.Attempt `json:"attempts"`
}

// handleListWords returns every word together with its attempt history, so a
// client can render the practice list without one ledger query per word.
func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	ws, err := s.words.List(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list words failed", "err", err)
		respondError(w, http.StatusInternalServerError, "listing words failed")
		return
	}
	attempts, err := s.attempts.All(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list attempts failed", "err", err)
		respondError(w, http.StatusInternalServerError, "listing words failed")
		return
	}

	byWord := make(map[string][]ledger.Attempt, len(ws))
	for _, a := range attempts {
		byWord[a.WordID] = append(byWord[a.WordID], a)
	}

	entries := make([]wordEntry, 0, len(ws))
	for _, word := range ws {
		as := byWord[word.ID]
		if as == nil {
			as = []ledger.Attempt{}
		}
		entries = append(entries, wordEntry{Word: word, Attempts: as})
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateWord(w http.ResponseWriter, r *http.Request) {
	var req createWordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	word, err := words.New(req.Text, req.Translation)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.words.Create(r.Context(), word); err != nil {
		observe.Logger(r.Context()).Error("create word failed", "text", word.Text, "err", err)
		respondError(w, http.StatusInternalServerError, "creating word failed")
		return
	}
	respondJSON(w, http.StatusCreated, word)
}

// handleDeleteWord removes a word and cascades the deletion to its recorded
// attempts so they do not dangle in statistics.
func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "word id is required")
		return
	}

	if err := s.words.Delete(r.Context(), id); err != nil {
		observe.Logger(r.Context()).Error("delete word failed", "id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "deleting word failed")
		return
	}
	if err := s.attempts.DeleteAllForWord(r.Context(), id); err != nil {
		observe.Logger(r.Context()).Error("attempt cascade failed", "id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "deleting word attempts failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
