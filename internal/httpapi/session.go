package httpapi

import (
	"errors"
	"net/http"

	"github.com/fluencyboost/fluencyboost/internal/observe"
	"github.com/fluencyboost/fluencyboost/internal/practice"
	"github.com/fluencyboost/fluencyboost/internal/words"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

// sessionState is the JSON snapshot of the practice session returned by every
// session endpoint.
type sessionState struct {
	Phase    practice.Phase     `json:"phase"`
	Word     *words.Word        `json:"word,omitempty"`
	Position int                `json:"position"`
	Total    int                `json:"total"`
	Feedback *practice.Feedback `json:"feedback,omitempty"`
}

// resultRequest is the JSON body for POST /api/session/result: a recognition
// outcome relayed by a client doing its own speech recognition.
type resultRequest struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// errorRequest is the JSON body for POST /api/session/error.
type errorRequest struct {
	Kind practice.ErrorKind `json:"kind"`
}

// startRequest is the optional JSON body for POST /api/session. When WordIDs
// is non-empty the run covers only those words; otherwise the full word list.
type startRequest struct {
	WordIDs []string `json:"word_ids"`
}

// snapshot assembles the current session state for a response.
func (s *Server) snapshot() sessionState {
	pos, total := s.session.Progress()
	st := sessionState{
		Phase:    s.session.Phase(),
		Position: pos,
		Total:    total,
	}
	if w, ok := s.session.Current(); ok {
		st.Word = &w
	}
	if fb, ok := s.session.LastFeedback(); ok {
		st.Feedback = &fb
	}
	return st
}

// respondSession writes the session snapshot, or maps a session error to the
// appropriate status code.
func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, s.snapshot())
	case errors.Is(err, practice.ErrInvalidTransition),
		errors.Is(err, practice.ErrRetryNotOffered):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, practice.ErrNoWords):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		observe.Logger(r.Context()).Error("session operation failed", "err", err)
		respondError(w, http.StatusInternalServerError, "session operation failed")
	}
}

// handleStartSession begins a practice run. An empty body practices the full
// word list; a body with word_ids restricts the run to those words. Unknown
// IDs are a 400, not silently skipped, so a client bug cannot quietly shrink
// the run.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := s.words.List(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list words failed", "err", err)
		respondError(w, http.StatusInternalServerError, "listing words failed")
		return
	}

	if len(req.WordIDs) > 0 {
		byID := make(map[string]words.Word, len(ws))
		for _, word := range ws {
			byID[word.ID] = word
		}
		selected := make([]words.Word, 0, len(req.WordIDs))
		for _, id := range req.WordIDs {
			word, ok := byID[id]
			if !ok {
				respondError(w, http.StatusBadRequest, "unknown word id "+id)
				return
			}
			selected = append(selected, word)
		}
		ws = selected
	}

	s.respondSession(w, r, s.session.Start(r.Context(), ws))
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	s.session.Cancel(r.Context())
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r, s.session.Listen(r.Context()))
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r, s.session.BeginRecording(r.Context()))
}

// handleResult relays a client-side recognition result into the session.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, err := s.session.OnRecognitionResult(r.Context(), recognition.Result{
		Transcript: req.Transcript,
		Confidence: req.Confidence,
	})
	s.respondSession(w, r, err)
}

// handleError relays a client-side recognition failure into the session.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	var req errorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := req.Kind
	if kind != practice.ErrorPermissionDenied {
		kind = practice.ErrorGeneric
	}
	_, err := s.session.OnRecognitionError(r.Context(), kind)
	s.respondSession(w, r, err)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r, s.session.Retry(r.Context()))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r, s.session.Advance(r.Context()))
}
