package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hades874/Super-CMS-sub001/internal/events"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/session"
)

// DefaultTickInterval is how often a live session samples its clock.
const DefaultTickInterval = time.Second

type attemptService struct {
	catalog      ExamCatalogService
	attempts     repositories.AttemptRepository
	publisher    events.EventPublisher
	logger       *ServiceLogger
	tickInterval time.Duration
	now          func() time.Time

	// parent of every clock loop, cancelled by Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	live map[string]*session.Session
}

type AttemptServiceOption func(*attemptService)

// WithTickInterval sets how often session clocks tick.
func WithTickInterval(d time.Duration) AttemptServiceOption {
	return func(s *attemptService) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithAttemptClock replaces the time source of new sessions.
func WithAttemptClock(now func() time.Time) AttemptServiceOption {
	return func(s *attemptService) { s.now = now }
}

func NewAttemptService(
	catalog ExamCatalogService,
	attempts repositories.AttemptRepository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	opts ...AttemptServiceOption,
) AttemptService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &attemptService{
		catalog:      catalog,
		attempts:     attempts,
		publisher:    publisher,
		logger:       NewServiceLogger(logger, LogConfig{Service: "exam-content", Component: "attempts"}),
		tickInterval: DefaultTickInterval,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		live:         make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start resolves the exam, starts the countdown and returns the session,
// already in progress. Missing and unpublished exams both satisfy
// IsUnavailable.
func (s *attemptService) Start(ctx context.Context, examID string) (view *SessionView, err error) {
	op := s.logger.WithOperation(ctx, "start_attempt")
	defer func() { op.LogResult(examID, "exam", err) }()

	sess := session.New(examID,
		session.WithNow(s.now),
		session.OnFinalize(s.handleFinalized),
	)
	if err := sess.Resolve(ctx, s.catalog); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.live[sess.ID()] = sess
	s.mu.Unlock()

	if err := sess.Start(); err != nil {
		s.remove(sess.ID())
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	clock := sess.Clock()
	clock.Tick()
	go clock.Run(s.ctx, s.tickInterval)

	attempt := sess.Attempt()
	if err := s.publisher.PublishNotificationEvent(ctx, events.NewAttemptStartedEvent(attempt)); err != nil {
		s.logger.Logger().Warn("Failed to publish attempt started event", "attempt_id", attempt.ID, "error", err)
	}

	return s.liveView(sess), nil
}

// Get returns a live session or, once finalized and recorded, the
// stored attempt.
func (s *attemptService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	if sess, ok := s.lookup(sessionID); ok {
		return s.liveView(sess), nil
	}

	attempt, err := s.attempts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return s.recordView(ctx, attempt), nil
}

func (s *attemptService) SetAnswer(ctx context.Context, sessionID string, number int, value models.Answer) (*SessionView, error) {
	sess, err := s.mustLookup(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.SetAnswer(number, value); err != nil {
		return nil, err
	}
	return s.liveView(sess), nil
}

func (s *attemptService) ToggleReview(ctx context.Context, sessionID string, number int) (*SessionView, error) {
	sess, err := s.mustLookup(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.ToggleReview(number); err != nil {
		return nil, err
	}
	return s.liveView(sess), nil
}

// Submit finalizes the session on the learner's request. The record is
// returned even when storing it failed; that failure is only logged.
func (s *attemptService) Submit(ctx context.Context, sessionID string) (attempt *models.ExamAttempt, err error) {
	op := s.logger.WithOperation(ctx, "submit_attempt")
	defer func() { op.LogResult(sessionID, "attempt", err) }()

	sess, err := s.mustLookup(sessionID)
	if err != nil {
		return nil, err
	}
	record, err := sess.Submit()
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Discard tears a live session down without recording it.
func (s *attemptService) Discard(ctx context.Context, sessionID string) error {
	sess, ok := s.remove(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	sess.Close()
	s.logger.Logger().Info("Discarded exam session", "session_id", sessionID, "exam_id", sess.ExamID())
	return nil
}

// ListAttempts returns the recorded attempts of an exam, or all of them
// for an empty id.
func (s *attemptService) ListAttempts(ctx context.Context, examID string) ([]models.ExamAttempt, error) {
	result := []models.ExamAttempt{}
	for _, attempt := range s.attempts.All(ctx) {
		if examID == "" || attempt.ExamID == examID {
			result = append(result, attempt)
		}
	}
	return result, nil
}

func (s *attemptService) Shutdown() {
	s.cancel()

	s.mu.Lock()
	live := s.live
	s.live = make(map[string]*session.Session)
	s.mu.Unlock()

	for _, sess := range live {
		sess.Close()
	}
	s.logger.Logger().Info("Stopped live exam sessions", "count", len(live))
}

// ===== FINALIZATION =====

// handleFinalized runs once per session, from Submit or from the clock
// loop on expiry. A session whose record could not be stored stays live
// so it can still be read.
func (s *attemptService) handleFinalized(attempt models.ExamAttempt) {
	ctx := context.Background()
	logger := s.logger.Logger()

	if _, err := s.attempts.AddMany(ctx, []models.ExamAttempt{attempt}); err != nil {
		logger.Warn("Failed to record finalized attempt",
			"attempt_id", attempt.ID,
			"end_reason", attempt.EndReason,
			"error", err)
	} else {
		s.remove(attempt.ID)
	}

	logger.Info("Exam attempt finalized",
		"attempt_id", attempt.ID,
		"exam_id", attempt.ExamID,
		"end_reason", attempt.EndReason,
		"time_left", attempt.TimeLeft)

	if err := s.publisher.PublishNotificationEvent(ctx, events.NewAttemptFinalizedEvent(attempt)); err != nil {
		logger.Warn("Failed to publish attempt finalized event", "attempt_id", attempt.ID, "error", err)
	}
}

// ===== HELPERS =====

func (s *attemptService) lookup(id string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[id]
	return sess, ok
}

func (s *attemptService) mustLookup(id string) (*session.Session, error) {
	sess, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

func (s *attemptService) remove(id string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[id]
	delete(s.live, id)
	return sess, ok
}

func (s *attemptService) liveView(sess *session.Session) *SessionView {
	view := newSessionView(sess.Attempt())
	view.State = sess.State()
	view.Sections = sess.SectionProgress()
	return view
}

// recordView rebuilds the section counts from the exam when it still
// exists.
func (s *attemptService) recordView(ctx context.Context, attempt models.ExamAttempt) *SessionView {
	view := newSessionView(attempt)
	view.State = session.StateFinalized

	exam, err := s.catalog.Get(ctx, attempt.ExamID)
	if err != nil {
		return view
	}
	view.Sections = make(map[models.SectionKind]map[models.QuestionStatus]int, len(models.Sections))
	for _, section := range models.Sections {
		view.Sections[section] = map[models.QuestionStatus]int{}
	}
	for _, slot := range exam.QuestionSlots() {
		if status, ok := attempt.Statuses[slot.Number]; ok {
			view.Sections[slot.Section][status]++
		}
	}
	return view
}

func newSessionView(attempt models.ExamAttempt) *SessionView {
	return &SessionView{
		ID:            attempt.ID,
		ExamID:        attempt.ExamID,
		ExamTitle:     attempt.ExamTitle,
		TimeLeft:      attempt.TimeLeft,
		QuestionCount: attempt.QuestionCount,
		StartedAt:     attempt.StartedAt,
		FinalizedAt:   attempt.FinalizedAt,
		EndReason:     attempt.EndReason,
		Statuses:      attempt.Statuses,
		Answers:       attempt.Answers,
	}
}
