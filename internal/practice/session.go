package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fluencyboost/fluencyboost/internal/ledger"
	"github.com/fluencyboost/fluencyboost/internal/observe"
	"github.com/fluencyboost/fluencyboost/internal/words"
	"github.com/fluencyboost/fluencyboost/pkg/provider/playback"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

// defaultRecordingTimeout is how long a recording attempt waits for a
// recognition result before giving up with zero-score feedback.
const defaultRecordingTimeout = 10 * time.Second

// Phase is the state of a practice session's state machine.
type Phase string

const (
	// PhaseIdle means a word is presented and the session is waiting for the
	// learner to listen or record.
	PhaseIdle Phase = "idle"

	// PhaseListening means reference audio is being dispatched. No scoring
	// side effects occur in this phase.
	PhaseListening Phase = "listening"

	// PhaseRecording means the session is waiting for a recognition result.
	PhaseRecording Phase = "recording"

	// PhaseEvaluating means the scorer is running. The transition through
	// this phase is synchronous; observers only ever see it from a
	// re-entrant callback.
	PhaseEvaluating Phase = "evaluating"

	// PhaseFeedback means a result is available and the session is waiting
	// for the learner to retry or advance.
	PhaseFeedback Phase = "feedback"

	// PhaseComplete is terminal: every queued word has been presented, or
	// the session was cancelled.
	PhaseComplete Phase = "complete"
)

// ErrorKind classifies a recognition failure delivered to the session.
type ErrorKind string

const (
	// ErrorPermissionDenied means the host refused audio input access.
	ErrorPermissionDenied ErrorKind = "permission_denied"

	// ErrorGeneric covers every other recognition failure.
	ErrorGeneric ErrorKind = "generic"
)

// User-facing feedback messages. Selected by tier or failure kind.
const (
	msgSuccess     = "Perfect! You're doing great!"
	msgClose       = "Almost there! Try again focusing on the pronunciation."
	msgRetry       = "Let's practice more. Listen to the word again and try to match it."
	msgRetryClose  = "That sounded close! Listen again and watch the ending."
	msgTimeout     = "Recording took too long. Please try again."
	msgPermission  = "Please allow microphone access to use this feature."
	msgGeneric     = "Sorry, there was an error. Please try again."
	msgUnavailable = "Speech recognition is not available here."
)

// Session errors.
var (
	// ErrInvalidTransition is returned when an event arrives in a phase that
	// cannot accept it. The session state is left untouched; this is a
	// defensive rejection, never a crash.
	ErrInvalidTransition = errors.New("practice: invalid session transition")

	// ErrNoWords is returned by Start when the word list is empty.
	ErrNoWords = errors.New("practice: no words to practice")

	// ErrRetryNotOffered is returned by Retry when the last score is not in
	// the retry tier. Only scores below the close threshold offer a retry,
	// so a successful word can never be double-counted through a spurious
	// retry attempt.
	ErrRetryNotOffered = errors.New("practice: retry is only offered for scores below the close threshold")
)

// Feedback is the outcome of one recording attempt, presented to the learner.
// The JSON tags define the wire shape of the session API's feedback object.
type Feedback struct {
	// Score is the final blended score. Zero for failed recordings.
	Score float64 `json:"score"`

	// Tier is the feedback bucket for Score.
	Tier Tier `json:"tier"`

	// Message is the user-facing feedback line.
	Message string `json:"message"`

	// SpokenText is the raw transcript, empty when recognition failed.
	SpokenText string `json:"spoken_text"`

	// Recorded reports whether an attempt was appended to the ledger.
	// Timeouts and recognition errors produce feedback without an attempt.
	Recorded bool `json:"recorded"`
}

// Option is a functional option for configuring a [Session].
type Option func(*Session)

// WithScorer sets the similarity scorer. Default: NewScorer().
func WithScorer(s *Scorer) Option {
	return func(sess *Session) { sess.scorer = s }
}

// WithRecordingTimeout sets how long a recording waits for a recognition
// result before forcing zero-score feedback. Default: 10 s.
func WithRecordingTimeout(d time.Duration) Option {
	return func(sess *Session) { sess.timeout = d }
}

// WithMetrics attaches observability instruments. When nil (the default),
// metric recording is skipped.
func WithMetrics(m *observe.Metrics) Option {
	return func(sess *Session) { sess.metrics = m }
}

// WithPlayback attaches a reference-audio playback provider. When nil (the
// default), Listen is a no-op transition.
func WithPlayback(p playback.Provider) Option {
	return func(sess *Session) { sess.speaker = p }
}

// WithRecognizer attaches a recognition provider that the session drives
// itself: BeginRecording starts a cancellable listen and the provider's
// result (or failure) is delivered back as the corresponding event. When nil
// (the default), the host delivers events via [Session.OnRecognitionResult]
// and friends. If no external delivery is wired either, recording degrades to
// capability-unavailable feedback.
func WithRecognizer(p recognition.Provider) Option {
	return func(sess *Session) { sess.recognizer = p }
}

// WithExternalEvents marks the session as event-driven: recording is
// considered available even without a [recognition.Provider], because the
// host (e.g. a browser client doing its own recognition) posts results via
// [Session.OnRecognitionResult]. The recording timeout still applies.
func WithExternalEvents() Option {
	return func(sess *Session) { sess.externalEvents = true }
}

// Session drives one learner through a shuffled queue of words:
// listen → record → evaluate → feedback → (retry | advance).
//
// All exported methods are safe for concurrent use. The state machine is
// cooperative: events arriving in a phase that cannot accept them are
// rejected with [ErrInvalidTransition] rather than corrupting state, and
// stale recognition outcomes from a cancelled listen are discarded.
type Session struct {
	mu sync.Mutex

	scorer         *Scorer
	ledger         ledger.Ledger
	speaker        playback.Provider
	recognizer     recognition.Provider
	metrics        *observe.Metrics
	timeout        time.Duration
	externalEvents bool

	queue []words.Word
	pos   int
	phase Phase
	last  *Feedback

	// Per-run transient mispronunciation accumulation, cleared by Start.
	// Keyed by word text, then exact spoken text. Separate from the durable
	// ledger, which backs global statistics.
	runMispron map[string]map[string]int

	// cancelListen aborts the in-flight recognition, if any. Set while in
	// PhaseRecording with a driven recognizer or an armed timeout.
	cancelListen context.CancelFunc
	timeoutTimer *time.Timer

	// gen guards against stale deliveries: it increments every time the
	// session leaves PhaseRecording, and asynchronous outcomes carry the gen
	// they were started under.
	gen uint64

	recordingStart time.Time
}

// NewSession creates a Session that appends scored attempts to l.
// The session starts with an empty queue; call [Session.Start].
func NewSession(l ledger.Ledger, opts ...Option) *Session {
	s := &Session{
		scorer:     NewScorer(),
		ledger:     l,
		timeout:    defaultRecordingTimeout,
		phase:      PhaseComplete,
		runMispron: make(map[string]map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins a practice run over ws. The queue is a shuffled copy of ws:
// every word is presented exactly once, in no particular order. Prior
// transient state, including the per-run mispronunciation accumulation, is
// cleared; the durable ledger is untouched.
//
// Returns [ErrNoWords] when ws is empty, leaving the session terminal.
func (s *Session) Start(ctx context.Context, ws []words.Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortListenLocked()
	s.last = nil
	s.runMispron = make(map[string]map[string]int)

	if len(ws) == 0 {
		s.queue = nil
		s.phase = PhaseComplete
		return ErrNoWords
	}

	queue := make([]words.Word, len(ws))
	copy(queue, ws)
	rand.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})

	s.queue = queue
	s.pos = 0
	s.phase = PhaseIdle
	s.metrics.SessionStarted(ctx)

	slog.Info("practice session started", "words", len(queue))
	return nil
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the word at the queue position, or false when the session
// is terminal.
func (s *Session) Current() (words.Word, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseComplete || s.pos >= len(s.queue) {
		return words.Word{}, false
	}
	return s.queue[s.pos], true
}

// Progress returns the zero-based queue position and the queue length.
func (s *Session) Progress() (position, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, len(s.queue)
}

// LastFeedback returns the most recent feedback, or false when none exists.
func (s *Session) LastFeedback() (Feedback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Feedback{}, false
	}
	return *s.last, true
}

// RunMispronunciations returns this run's transient mispronunciation counts,
// keyed by word text then exact spoken text. The returned map is a copy.
func (s *Session) RunMispronunciations() map[string]map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]int, len(s.runMispron))
	for word, spoken := range s.runMispron {
		inner := make(map[string]int, len(spoken))
		for text, n := range spoken {
			inner[text] = n
		}
		out[word] = inner
	}
	return out
}

// Listen dispatches reference playback for the current word. Valid from
// PhaseIdle and PhaseFeedback. Playback is fire-and-forget: the session
// passes through PhaseListening for the duration of the dispatch call and
// returns to the originating phase; a playback failure is logged, not
// surfaced, since it has no scoring side effect.
func (s *Session) Listen(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseIdle && s.phase != PhaseFeedback {
		s.mu.Unlock()
		return s.rejectLocked("listen")
	}
	word := s.queue[s.pos]
	origin := s.phase
	s.phase = PhaseListening
	speaker := s.speaker
	s.mu.Unlock()

	if speaker != nil {
		if err := speaker.Speak(ctx, word.Text); err != nil {
			slog.Warn("reference playback failed", "word", word.Text, "err", err)
		}
	}

	s.mu.Lock()
	if s.phase == PhaseListening {
		s.phase = origin
	}
	s.mu.Unlock()
	return nil
}

// BeginRecording starts a recording attempt for the current word. Valid from
// PhaseIdle and PhaseFeedback (never mid-recording).
//
// When the recognition capability is unavailable (no provider and no
// external event source), the session transitions directly to PhaseFeedback
// with a capability-unavailable message and score zero. That outcome is
// terminal for this word only: the learner can still advance.
//
// Otherwise the session enters PhaseRecording, arms the recording timeout,
// and (when a provider is attached) starts a cancellable listen whose
// outcome is delivered back as the matching event. Exactly one of result,
// timeout, or error follows; the listen handle is released on every path.
func (s *Session) BeginRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseIdle && s.phase != PhaseFeedback {
		return s.rejectLocked("begin recording")
	}
	return s.beginRecordingLocked(ctx)
}

// beginRecordingLocked enters PhaseRecording. Caller holds s.mu and has
// validated the phase.
func (s *Session) beginRecordingLocked(ctx context.Context) error {
	if s.recognizer == nil && !s.externalEvents {
		s.setFeedbackLocked(ctx, Feedback{
			Score:   0,
			Tier:    TierRetry,
			Message: msgUnavailable,
		})
		s.metrics.RecordRecognitionError(ctx, "unavailable")
		return nil
	}

	if s.recognizer != nil {
		if err := s.recognizer.Preflight(ctx); err != nil {
			kind := ErrorGeneric
			if errors.Is(err, recognition.ErrPermissionDenied) {
				kind = ErrorPermissionDenied
			}
			slog.Warn("recognition preflight failed", "err", err)
			s.failRecordingLocked(ctx, kind)
			return nil
		}
	}

	s.phase = PhaseRecording
	s.recordingStart = time.Now()
	gen := s.gen

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelListen = cancel

	// The timeout applies regardless of who delivers the result. Firing it
	// also cancels the in-flight listen so the capture resource is released.
	s.timeoutTimer = time.AfterFunc(s.timeout, func() {
		s.deliverTimeout(gen)
	})

	if s.recognizer != nil {
		go s.runListen(listenCtx, gen)
	}
	return nil
}

// runListen drives the attached recognizer for one attempt and delivers the
// outcome as an event, tagged with the generation it was started under.
func (s *Session) runListen(ctx context.Context, gen uint64) {
	res, err := s.recognizer.Listen(ctx)
	switch {
	case err == nil:
		s.deliverResult(ctx, gen, res)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Cancelled by timeout, retry, or session close. The timeout path
		// produces its own feedback; nothing to deliver here.
	case errors.Is(err, recognition.ErrPermissionDenied):
		s.deliverError(gen, ErrorPermissionDenied)
	default:
		slog.Warn("recognition failed", "err", err)
		s.deliverError(gen, ErrorGeneric)
	}
}

// OnRecognitionResult delivers a recognition result for the in-flight
// recording. Valid only from PhaseRecording; the session transitions through
// PhaseEvaluating to PhaseFeedback synchronously, appending the scored
// attempt to the ledger on the way.
//
// The raw transcript is stored on the attempt before normalisation, for
// display. Confidence is clamped into [0, 1] at this boundary so a
// misbehaving recognizer cannot push scores out of range.
func (s *Session) OnRecognitionResult(ctx context.Context, res recognition.Result) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRecording {
		return Feedback{}, s.rejectLocked("recognition result")
	}
	return s.evaluateLocked(ctx, res), nil
}

// OnRecognitionTimeout forces the in-flight recording to zero-score feedback
// with a "took too long" message. Valid only from PhaseRecording. No attempt
// is appended to the ledger: nothing was actually scored, and non-attempts
// must not pollute statistics.
func (s *Session) OnRecognitionTimeout(ctx context.Context) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRecording {
		return Feedback{}, s.rejectLocked("recognition timeout")
	}
	s.metrics.RecordRecognition(ctx, time.Since(s.recordingStart).Seconds(), "timeout")
	s.metrics.RecordRecognitionError(ctx, "timeout")
	fb := Feedback{Score: 0, Tier: TierRetry, Message: msgTimeout}
	s.setFeedbackLocked(ctx, fb)
	return fb, nil
}

// OnRecognitionError delivers a recognition failure for the in-flight
// recording. Valid only from PhaseRecording. The message distinguishes
// permission denials from generic failures; no attempt is appended.
func (s *Session) OnRecognitionError(ctx context.Context, kind ErrorKind) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRecording {
		return Feedback{}, s.rejectLocked("recognition error")
	}
	s.metrics.RecordRecognition(ctx, time.Since(s.recordingStart).Seconds(), "error")
	return s.failRecordingLocked(ctx, kind), nil
}

// Retry re-enters PhaseRecording for the same word. Valid only from
// PhaseFeedback when the last score is below the close threshold (or the
// recording itself failed). Higher scores return [ErrRetryNotOffered].
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFeedback {
		return s.rejectLocked("retry")
	}
	if s.last != nil && s.last.Score >= ThresholdClose {
		return ErrRetryNotOffered
	}
	s.last = nil
	return s.beginRecordingLocked(ctx)
}

// Advance moves to the next word, or to PhaseComplete after the last one.
// Valid only from PhaseFeedback. After completion the caller is expected to
// fetch a fresh statistics report.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFeedback {
		return s.rejectLocked("advance")
	}
	s.last = nil
	if s.pos+1 < len(s.queue) {
		s.pos++
		s.phase = PhaseIdle
		return nil
	}
	s.phase = PhaseComplete
	s.metrics.SessionEnded(ctx)
	slog.Info("practice session complete", "words", len(s.queue))
	return nil
}

// Cancel aborts the session from any state: any in-flight recognition is
// cancelled (releasing its capture resource), transient state is discarded,
// and the session becomes terminal. The ledger is untouched. Cancelling a
// terminal session is a no-op.
func (s *Session) Cancel(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseComplete {
		return
	}
	s.abortListenLocked()
	s.phase = PhaseComplete
	s.last = nil
	s.metrics.SessionEnded(ctx)
	slog.Info("practice session cancelled")
}

// ---- internal delivery paths (async, generation-guarded) ----

func (s *Session) deliverResult(ctx context.Context, gen uint64, res recognition.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRecording || s.gen != gen {
		return // stale: the recording was cancelled or superseded
	}
	s.metrics.RecordRecognition(ctx, time.Since(s.recordingStart).Seconds(), "result")
	s.evaluateLocked(ctx, res)
}

func (s *Session) deliverTimeout(gen uint64) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRecording || s.gen != gen {
		return
	}
	s.metrics.RecordRecognition(ctx, time.Since(s.recordingStart).Seconds(), "timeout")
	s.metrics.RecordRecognitionError(ctx, "timeout")
	s.setFeedbackLocked(ctx, Feedback{Score: 0, Tier: TierRetry, Message: msgTimeout})
}

func (s *Session) deliverError(gen uint64, kind ErrorKind) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRecording || s.gen != gen {
		return
	}
	s.failRecordingLocked(ctx, kind)
}

// ---- locked helpers ----

// evaluateLocked scores res against the current word, appends the attempt,
// and produces feedback. Caller holds s.mu in PhaseRecording.
func (s *Session) evaluateLocked(ctx context.Context, res recognition.Result) Feedback {
	s.phase = PhaseEvaluating
	word := s.queue[s.pos]

	confidence := min(max(res.Confidence, 0), 1)
	score := s.scorer.Score(res.Transcript, confidence, word.Text)
	tier := TierFor(score)

	attempt := ledger.NewAttempt(word.ID, score, res.Transcript)
	if err := s.ledger.Append(ctx, attempt); err != nil {
		// The learner still gets feedback; only the history entry is lost.
		slog.Error("failed to record attempt", "word_id", word.ID, "err", err)
	}

	fb := Feedback{
		Score:      score,
		Tier:       tier,
		Message:    feedbackMessage(tier, res.Transcript, word.Text),
		SpokenText: res.Transcript,
		Recorded:   true,
	}

	if tier == TierRetry && res.Transcript != "" {
		spoken := s.runMispron[word.Text]
		if spoken == nil {
			spoken = make(map[string]int)
			s.runMispron[word.Text] = spoken
		}
		spoken[res.Transcript]++
	}

	s.metrics.RecordAttempt(ctx, score, string(tier))
	s.setFeedbackLocked(ctx, fb)
	return fb
}

// failRecordingLocked transitions to zero-score feedback for a recognition
// failure without appending an attempt. Caller holds s.mu.
func (s *Session) failRecordingLocked(ctx context.Context, kind ErrorKind) Feedback {
	msg := msgGeneric
	if kind == ErrorPermissionDenied {
		msg = msgPermission
	}
	s.metrics.RecordRecognitionError(ctx, string(kind))
	fb := Feedback{Score: 0, Tier: TierRetry, Message: msg}
	s.setFeedbackLocked(ctx, fb)
	return fb
}

// setFeedbackLocked stores fb, enters PhaseFeedback, and releases any
// in-flight listen. Caller holds s.mu.
func (s *Session) setFeedbackLocked(_ context.Context, fb Feedback) {
	s.abortListenLocked()
	s.last = &fb
	s.phase = PhaseFeedback
}

// abortListenLocked cancels the in-flight recognition and timeout timer, if
// any, and bumps the generation so stale outcomes are discarded. Caller
// holds s.mu.
func (s *Session) abortListenLocked() {
	s.gen++
	if s.cancelListen != nil {
		s.cancelListen()
		s.cancelListen = nil
	}
	if s.timeoutTimer != nil {
		s.timeoutTimer.Stop()
		s.timeoutTimer = nil
	}
}

// rejectLocked logs and returns the invalid-transition error for an event
// name. Caller holds s.mu.
func (s *Session) rejectLocked(event string) error {
	slog.Warn("rejected session event", "event", event, "phase", s.phase)
	return fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, event, s.phase)
}

// feedbackMessage selects the user-facing line for a scored attempt. Retry
// feedback is upgraded to a "sounded close" hint when the spoken text is
// phonetically close to the target.
func feedbackMessage(tier Tier, spoken, target string) string {
	switch tier {
	case TierSuccess:
		return msgSuccess
	case TierClose:
		return msgClose
	default:
		if spoken != "" && SoundsClose(spoken, target) {
			return msgRetryClose
		}
		return msgRetry
	}
}
