package assessments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/compliai/compliai/internal/application"
	"github.com/compliai/compliai/internal/domain/compliance"
	"github.com/compliai/compliai/internal/domain/credentials"
	"github.com/compliai/compliai/internal/domain/identity"
)

// Mode selects how a session triggers analysis.
type Mode string

const (
	// ModeManual runs an analysis only on an explicit submit.
	ModeManual Mode = "manual"
	// ModeLive re-runs the analysis after a debounced reaction to input or
	// selection changes.
	ModeLive Mode = "live"
)

// State of the session's analysis state machine.
type State string

const (
	StateIdle      State = "idle"
	StateChecking  State = "checking"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// retryMessage is the single user-visible failure condition for both
// request and parse failures. The distinction is logged, not surfaced.
const retryMessage = "analysis failed, please retry"

var (
	ErrSessionNotFound = errors.New("assessment session not found")
	ErrNoReport        = errors.New("no report available for export")
	ErrArchiveDisabled = errors.New("export archive is not configured")
	ErrUnknownMode     = errors.New("unknown session mode")
	ErrSessionClosed   = errors.New("assessment session closed")
)

// session is one wizard session. All fields are guarded by mu; the session
// is the single owner of its AnalysisState. seq is a per-attempt monotonic
// sequence number: a completion only applies if it is still the newest
// attempt, so stale in-flight results never overwrite newer state.
type session struct {
	mu        sync.Mutex
	id        string
	userID    identity.UserID
	mode      Mode
	document  string
	selection compliance.Selection
	state     State
	report    *compliance.Report
	message   string
	seq       uint64
	timer     *time.Timer
	closed    bool
}

// Service coordinates Selector -> Builder -> Client -> Parser per session.
// Sessions live in process memory only; nothing is persisted across restarts.
type Service struct {
	Scorer      compliance.Scorer
	Credentials credentials.Repository
	Artifacts   compliance.ArtifactStore // optional; nil disables archiving
	Clock       application.Clock
	Debounce    time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService wires the orchestrator. debounce <= 0 falls back to the
// 1 second window.
func NewService(scorer compliance.Scorer, creds credentials.Repository, artifacts compliance.ArtifactStore, clock application.Clock, debounce time.Duration) *Service {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Service{
		Scorer:      scorer,
		Credentials: creds,
		Artifacts:   artifacts,
		Clock:       clock,
		Debounce:    debounce,
		sessions:    make(map[string]*session),
	}
}

// Create opens a new session for the user in the given mode.
func (s *Service) Create(userID identity.UserID, mode Mode) (*Snapshot, error) {
	if mode == "" {
		mode = ModeManual
	}
	if mode != ModeManual && mode != ModeLive {
		return nil, ErrUnknownMode
	}
	sess := &session{
		id:     uuid.New().String(),
		userID: userID,
		mode:   mode,
		state:  StateIdle,
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return snapshotOf(sess), nil
}

func (s *Service) lookup(userID identity.UserID, id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.userID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Get returns the current snapshot.
func (s *Service) Get(userID identity.UserID, id string) (*Snapshot, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshotOf(sess), nil
}

// Toggle flips a regulation in the session's selection. Live sessions
// schedule a debounced analysis.
func (s *Service) Toggle(ctx context.Context, userID identity.UserID, id string, reg compliance.Regulation) (*Snapshot, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionClosed
	}
	sess.selection.Toggle(reg)
	if sess.mode == ModeLive {
		s.schedule(sess)
	}
	return snapshotOf(sess), nil
}

// SetDocument replaces the document text. Live sessions schedule a debounced
// analysis; any pending trigger is cancelled and the window restarts.
func (s *Service) SetDocument(ctx context.Context, userID identity.UserID, id, text string) (*Snapshot, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionClosed
	}
	sess.document = text
	if sess.mode == ModeLive {
		s.schedule(sess)
	}
	return snapshotOf(sess), nil
}

// Analyze is the explicit submit. Guard failures are returned before any
// network effect and leave the state machine untouched.
func (s *Service) Analyze(ctx context.Context, userID identity.UserID, id string) (*Snapshot, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionClosed
	}
	if err := s.begin(ctx, sess); err != nil {
		return nil, err
	}
	return snapshotOf(sess), nil
}

// Close tears the session down. Pending debounce timers are stopped so no
// stale callback can mutate a disposed session.
func (s *Service) Close(userID identity.UserID, id string) error {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.closed = true
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// schedule restarts the debounce window. Caller holds sess.mu. Only the
// change that survives the full window without a successor fires.
func (s *Service) schedule(sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.timer = time.AfterFunc(s.Debounce, func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.closed {
			return
		}
		if err := s.begin(context.Background(), sess); err != nil {
			// transition refused; surface the validation message on the
			// snapshot instead of entering Checking
			sess.message = err.Error()
		}
	})
}

// begin validates the preconditions and, if they hold, enters Checking and
// dispatches the attempt. Caller holds sess.mu.
func (s *Service) begin(ctx context.Context, sess *session) error {
	if strings.TrimSpace(sess.document) == "" {
		return compliance.ErrEmptyDocument
	}
	if sess.selection.Empty() {
		return compliance.ErrNoRegulations
	}
	cred, err := s.Credentials.Get(ctx, sess.userID, credentials.ProviderOpenRouter)
	if errors.Is(err, credentials.ErrNotFound) {
		return compliance.ErrNoCredential
	}
	if err != nil {
		return err
	}

	sess.seq++
	attempt := sess.seq
	sess.state = StateChecking
	// a new attempt discards the superseded report rather than mutating it
	sess.report = nil
	sess.message = ""

	req := compliance.ScoreRequest{
		Document:    sess.document,
		Regulations: sess.selection.Regulations(),
		Credential:  cred.Key,
	}
	// run with a fresh context so an HTTP caller going away does not cancel
	// the in-flight attempt
	go s.run(context.Background(), sess, attempt, req)
	return nil
}

// run performs the single network call plus parse, then applies the outcome
// if this attempt is still the newest one.
func (s *Service) run(ctx context.Context, sess *session, attempt uint64, req compliance.ScoreRequest) {
	raw, err := s.Scorer.Score(ctx, req)
	var report *compliance.Report
	if err == nil {
		report, err = compliance.ParseReport(raw)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed || attempt != sess.seq {
		slog.Debug("discarding stale analysis result", "session", sess.id, "attempt", attempt, "newest", sess.seq)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, compliance.ErrParse):
			slog.Warn("analysis response rejected by parser", "session", sess.id, "error", err)
		default:
			slog.Warn("analysis request failed", "session", sess.id, "error", err)
		}
		sess.state = StateFailed
		sess.report = nil
		sess.message = retryMessage
		return
	}

	report.Timestamp = s.Clock.Now().UTC()
	sess.state = StateSucceeded
	sess.report = report
	sess.message = ""
}
