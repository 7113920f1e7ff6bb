package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fluencyboost/fluencyboost/internal/ledger"
	"github.com/fluencyboost/fluencyboost/internal/practice"
	"github.com/fluencyboost/fluencyboost/internal/stats"
	"github.com/fluencyboost/fluencyboost/internal/words"
)

// newTestServer builds a Server over in-memory stores and an event-driven
// session, plus the stores for test setup.
func newTestServer(t *testing.T) (*Server, *words.MemStore, *ledger.MemStore) {
	t.Helper()
	ws := words.NewMemStore()
	l := ledger.NewMemStore()
	sess := practice.NewSession(l, practice.WithExternalEvents())
	return NewServer(ws, l, sess, nil, nil), ws, l
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) sessionState {
	t.Helper()
	var st sessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode session state: %v (body %q)", err, rec.Body.String())
	}
	return st
}

// ---- words ----

func TestWords_CreateListDelete(t *testing.T) {
	srv, _, l := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/words", createWordRequest{Text: "serendipity", Translation: "Serendipität"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created words.Word
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created word: %v", err)
	}
	if created.ID == "" {
		t.Error("created word has no ID")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/words", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var listed []words.Word
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode word list: %v", err)
	}
	if len(listed) != 1 || listed[0].Text != "serendipity" {
		t.Fatalf("unexpected list: %+v", listed)
	}

	// Seed an attempt so deletion exercises the cascade.
	if err := l.Append(context.Background(), ledger.NewAttempt(created.ID, 42, "serenity")); err != nil {
		t.Fatalf("append attempt: %v", err)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/words/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d, body %s", rec.Code, rec.Body.String())
	}

	attempts, err := l.All(context.Background())
	if err != nil {
		t.Fatalf("ledger read: %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("expected attempt cascade on word delete, %d attempts remain", len(attempts))
	}
}

func TestWords_CreateRejectsBlankText(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/words", createWordRequest{Text: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestWords_CreateRejectsEmptyBody(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/words", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestWords_ListIncludesAttempts(t *testing.T) {
	srv, ws, l := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	practiced, err := words.New("hello", "hallo")
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := words.New("world", "Welt")
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []words.Word{practiced, fresh} {
		if err := ws.Create(ctx, w); err != nil {
			t.Fatalf("seed word %q: %v", w.Text, err)
		}
	}
	for _, score := range []float64{55, 90} {
		if err := l.Append(ctx, ledger.NewAttempt(practiced.ID, score, "hullo")); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/words", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d, body %s", rec.Code, rec.Body.String())
	}
	var listed []wordEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode word list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d words; want 2", len(listed))
	}

	byID := make(map[string]wordEntry, len(listed))
	for _, e := range listed {
		byID[e.ID] = e
	}
	got := byID[practiced.ID]
	if len(got.Attempts) != 2 || got.Attempts[0].Score != 55 || got.Attempts[1].Score != 90 {
		t.Errorf("attempts for practiced word = %+v; want scores [55 90]", got.Attempts)
	}
	if byID[fresh.ID].Attempts == nil || len(byID[fresh.ID].Attempts) != 0 {
		t.Errorf("attempts for fresh word = %+v; want empty, non-nil list", byID[fresh.ID].Attempts)
	}
}

// ---- stats ----

func TestStats_EmptyLedger(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rep stats.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.TotalAttempts != 0 || rep.AverageScore != 0 || rep.SuccessRate != 0 {
		t.Errorf("expected zero report, got %+v", rep)
	}
}

// ---- session ----

func seedWord(t *testing.T, h http.Handler, text string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/words", createWordRequest{Text: text})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed word %q: status %d", text, rec.Code)
	}
}

func TestSession_FullRun(t *testing.T) {
	srv, _, l := newTestServer(t)
	h := srv.Handler()
	seedWord(t, h, "hello")

	rec := doJSON(t, h, http.MethodPost, "/api/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d, body %s", rec.Code, rec.Body.String())
	}
	st := decodeState(t, rec)
	if st.Phase != practice.PhaseIdle {
		t.Fatalf("phase = %q; want idle", st.Phase)
	}
	if st.Word == nil || st.Word.Text != "hello" {
		t.Fatalf("unexpected current word: %+v", st.Word)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/session/record", nil)
	if st := decodeState(t, rec); st.Phase != practice.PhaseRecording {
		t.Fatalf("phase after record = %q; want recording", st.Phase)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/session/result", resultRequest{Transcript: "hello", Confidence: 1})
	st = decodeState(t, rec)
	if st.Phase != practice.PhaseFeedback {
		t.Fatalf("phase after result = %q; want feedback", st.Phase)
	}
	if st.Feedback == nil || st.Feedback.Score != 100 {
		t.Fatalf("unexpected feedback: %+v", st.Feedback)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/session/advance", nil)
	if st := decodeState(t, rec); st.Phase != practice.PhaseComplete {
		t.Fatalf("phase after advance = %q; want complete", st.Phase)
	}

	attempts, err := l.All(context.Background())
	if err != nil {
		t.Fatalf("ledger read: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d", len(attempts))
	}
}

func TestSession_StartWithNoWords(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/session", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestSession_InvalidTransitionConflicts(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()
	seedWord(t, h, "hello")
	doJSON(t, h, http.MethodPost, "/api/session", nil)

	// Advancing from idle is not a legal transition.
	rec := doJSON(t, h, http.MethodPost, "/api/session/advance", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("advance from idle: status = %d; want 409", rec.Code)
	}

	// Delivering a result outside recording is rejected too.
	rec = doJSON(t, h, http.MethodPost, "/api/session/result", resultRequest{Transcript: "hi"})
	if rec.Code != http.StatusConflict {
		t.Errorf("result outside recording: status = %d; want 409", rec.Code)
	}
}

func TestSession_RetryOnlyBelowCloseThreshold(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()
	seedWord(t, h, "hello")
	doJSON(t, h, http.MethodPost, "/api/session", nil)
	doJSON(t, h, http.MethodPost, "/api/session/record", nil)

	// A perfect result lands in the success tier; retry must be refused.
	doJSON(t, h, http.MethodPost, "/api/session/result", resultRequest{Transcript: "hello", Confidence: 1})
	rec := doJSON(t, h, http.MethodPost, "/api/session/retry", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("retry after success: status = %d; want 409", rec.Code)
	}
}

func TestSession_ErrorEventProducesFeedback(t *testing.T) {
	srv, _, l := newTestServer(t)
	h := srv.Handler()
	seedWord(t, h, "hello")
	doJSON(t, h, http.MethodPost, "/api/session", nil)
	doJSON(t, h, http.MethodPost, "/api/session/record", nil)

	rec := doJSON(t, h, http.MethodPost, "/api/session/error", errorRequest{Kind: practice.ErrorPermissionDenied})
	st := decodeState(t, rec)
	if st.Phase != practice.PhaseFeedback {
		t.Fatalf("phase = %q; want feedback", st.Phase)
	}
	if st.Feedback == nil || st.Feedback.Score != 0 || st.Feedback.Recorded {
		t.Fatalf("unexpected feedback: %+v", st.Feedback)
	}

	// Failed recordings never reach the ledger.
	attempts, _ := l.All(context.Background())
	if len(attempts) != 0 {
		t.Errorf("expected no attempts after a failed recording, got %d", len(attempts))
	}
}

func TestSession_FeedbackUsesSnakeCaseKeys(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()
	seedWord(t, h, "hello")
	doJSON(t, h, http.MethodPost, "/api/session", nil)
	doJSON(t, h, http.MethodPost, "/api/session/record", nil)

	rec := doJSON(t, h, http.MethodPost, "/api/session/result", resultRequest{Transcript: "hullo", Confidence: 0.5})
	var raw struct {
		Feedback map[string]json.RawMessage `json:"feedback"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if raw.Feedback == nil {
		t.Fatalf("no feedback object in response: %s", rec.Body.String())
	}
	for _, key := range []string{"score", "tier", "message", "spoken_text", "recorded"} {
		if _, ok := raw.Feedback[key]; !ok {
			t.Errorf("feedback object missing key %q (body %s)", key, rec.Body.String())
		}
	}
}

func TestSession_CancelIsTerminal(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()
	seedWord(t, h, "hello")
	doJSON(t, h, http.MethodPost, "/api/session", nil)

	rec := doJSON(t, h, http.MethodDelete, "/api/session", nil)
	if st := decodeState(t, rec); st.Phase != practice.PhaseComplete {
		t.Errorf("phase after cancel = %q; want complete", st.Phase)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d; want 200", rec.Code)
	}
}

func TestSession_StartWithWordIDs(t *testing.T) {
	srv, ws, _ := newTestServer(t)
	h := srv.Handler()

	ctx := context.Background()
	for _, w := range []words.Word{
		{ID: "w1", Text: "hello"},
		{ID: "w2", Text: "world"},
		{ID: "w3", Text: "apple"},
	} {
		if err := ws.Create(ctx, w); err != nil {
			t.Fatalf("Create(%s): %v", w.ID, err)
		}
	}

	rec := doJSON(t, h, http.MethodPost, "/api/session", startRequest{WordIDs: []string{"w1", "w3"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d, body %s", rec.Code, rec.Body.String())
	}
	if st := decodeState(t, rec); st.Total != 2 {
		t.Errorf("session total = %d; want 2", st.Total)
	}

	// Unknown IDs are rejected outright.
	rec = doJSON(t, h, http.MethodPost, "/api/session", startRequest{WordIDs: []string{"w1", "ghost"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("start with unknown id: status %d; want 400", rec.Code)
	}
}
