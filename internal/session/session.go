package session

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/models"
)

type State string

const (
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateInProgress  State = "in_progress"
	StateFinalized   State = "finalized"
	StateUnavailable State = "unavailable"
)

// Resolver looks up an exam that may be taken now.
type Resolver interface {
	GetEligible(ctx context.Context, examID string) (models.ExamConfiguration, error)
}

// Session is one learner's live run through an exam:
//
//	Loading -> Ready -> InProgress -> Finalized
//	Loading -> Unavailable
//
// It becomes InProgress on the first clock tick and Finalized on Submit or
// when the clock expires. Both paths hand the same record shape to the
// finalize callback.
type Session struct {
	id         string
	examID     string
	now        func() time.Time
	onFinalize func(models.ExamAttempt)

	mu        sync.Mutex
	state     State
	closed    bool
	err       error
	exam      models.ExamConfiguration
	slots     []models.QuestionSlot
	statuses  map[int]models.QuestionStatus
	answers   map[int]models.Answer
	clock     *Clock
	startedAt time.Time
	timeLeft  int
	record    *models.ExamAttempt
}

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithNow replaces the time source of the session and its clock.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// OnFinalize registers a callback that receives the attempt record once,
// outside the session lock.
func OnFinalize(fn func(models.ExamAttempt)) Option {
	return func(s *Session) { s.onFinalize = fn }
}

func New(examID string, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		examID:     examID,
		now:        time.Now,
		onFinalize: func(models.ExamAttempt) {},
		state:      StateLoading,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) ExamID() string { return s.examID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeft
}

// Exam returns the resolved configuration; zero before Resolve succeeds.
func (s *Session) Exam() models.ExamConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exam
}

// Clock returns the countdown driving the session, nil before Resolve.
func (s *Session) Clock() *Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Resolve loads the exam. On success every question number gets an
// unanswered status and an empty answer slot and the session is Ready.
// On failure the session is Unavailable for good and the resolver's
// error is returned.
func (s *Session) Resolve(ctx context.Context, resolver Resolver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return fmt.Errorf("resolve in state %s: %w", s.state, apperrors.ErrSessionNotActive)
	}

	exam, err := resolver.GetEligible(ctx, s.examID)
	if err != nil {
		s.state = StateUnavailable
		s.err = err
		return err
	}

	s.exam = exam
	s.slots = exam.QuestionSlots()
	s.statuses = make(map[int]models.QuestionStatus, len(s.slots))
	s.answers = make(map[int]models.Answer, len(s.slots))
	for _, slot := range s.slots {
		s.statuses[slot.Number] = models.StatusUnanswered
		s.answers[slot.Number] = models.NoAnswer
	}
	s.clock = NewClock(exam.Duration(),
		WithClockNow(s.now),
		OnTick(s.handleTick),
		OnExpire(s.handleExpire),
	)
	s.timeLeft = s.clock.Remaining()
	s.state = StateReady
	return nil
}

// Start starts the countdown. The session turns InProgress on the clock's
// first tick.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == StateUnavailable:
		return s.err
	case s.state != StateReady || s.closed:
		return fmt.Errorf("start in state %s: %w", s.state, apperrors.ErrSessionNotActive)
	}

	s.startedAt = s.now()
	return s.clock.Start(s.startedAt)
}

func (s *Session) handleTick(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.state == StateReady {
		s.state = StateInProgress
	}
	if s.state == StateInProgress {
		s.timeLeft = remaining
	}
}

func (s *Session) handleExpire() {
	s.finalize(models.EndReasonTimeOut)
}

// SetAnswer overwrites the answer of question n. The status becomes
// answered, or unanswered for an empty value, unless the question is
// flagged for review, which is kept.
func (s *Session) SetAnswer(n int, value models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMutableLocked(n); err != nil {
		return err
	}

	s.answers[n] = value
	if s.statuses[n] != models.StatusReview {
		s.statuses[n] = impliedStatus(value)
	}
	return nil
}

// ToggleReview flips question n between review and the status its answer
// implies.
func (s *Session) ToggleReview(n int) (models.QuestionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMutableLocked(n); err != nil {
		return "", err
	}

	if s.statuses[n] == models.StatusReview {
		s.statuses[n] = impliedStatus(s.answers[n])
	} else {
		s.statuses[n] = models.StatusReview
	}
	return s.statuses[n], nil
}

func impliedStatus(a models.Answer) models.QuestionStatus {
	if a.IsEmpty() {
		return models.StatusUnanswered
	}
	return models.StatusAnswered
}

func (s *Session) checkMutableLocked(n int) error {
	if s.state != StateInProgress || s.closed {
		return fmt.Errorf("session %s is %s: %w", s.id, s.state, apperrors.ErrSessionNotActive)
	}
	if n < 1 || n > len(s.slots) {
		return fmt.Errorf("question %d outside 1..%d: %w", n, len(s.slots), apperrors.ErrInvalidQuestionIndex)
	}
	return nil
}

// Submit finalizes the session on the learner's request and returns the
// attempt record.
func (s *Session) Submit() (models.ExamAttempt, error) {
	record, ok := s.finalize(models.EndReasonSubmitted)
	if !ok {
		return models.ExamAttempt{}, fmt.Errorf("submit session %s: %w", s.id, apperrors.ErrSessionNotActive)
	}
	return record, nil
}

// finalize moves an InProgress session to Finalized exactly once.
func (s *Session) finalize(reason models.EndReason) (models.ExamAttempt, bool) {
	s.mu.Lock()
	if s.state != StateInProgress || s.closed {
		s.mu.Unlock()
		return models.ExamAttempt{}, false
	}

	if reason == models.EndReasonTimeOut {
		s.timeLeft = 0
	}
	s.state = StateFinalized
	finalizedAt := s.now()
	record := s.attemptLocked()
	record.FinalizedAt = &finalizedAt
	record.EndReason = reason
	s.record = &record
	clock := s.clock
	s.mu.Unlock()

	clock.Stop()
	s.onFinalize(record)
	return record, true
}

// Attempt returns the current attempt state, or the final record once
// the session is finalized.
func (s *Session) Attempt() models.ExamAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record != nil {
		return *s.record
	}
	return s.attemptLocked()
}

func (s *Session) attemptLocked() models.ExamAttempt {
	return models.ExamAttempt{
		ID:              s.id,
		ExamID:          s.examID,
		ExamTitle:       s.exam.Title,
		StartedAt:       s.startedAt,
		DurationSeconds: int(s.exam.Duration().Seconds()),
		TimeLeft:        s.timeLeft,
		QuestionCount:   len(s.slots),
		Statuses:        maps.Clone(s.statuses),
		Answers:         maps.Clone(s.answers),
	}
}

// SectionProgress counts statuses per section.
func (s *Session) SectionProgress() map[models.SectionKind]map[models.QuestionStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress := make(map[models.SectionKind]map[models.QuestionStatus]int, len(models.Sections))
	for _, section := range models.Sections {
		progress[section] = map[models.QuestionStatus]int{
			models.StatusUnanswered: 0,
			models.StatusAnswered:   0,
			models.StatusReview:     0,
		}
	}
	for _, slot := range s.slots {
		progress[slot.Section][s.statuses[slot.Number]]++
	}
	return progress
}

// Slots returns the numbered question slots of the exam.
func (s *Session) Slots() []models.QuestionSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.QuestionSlot(nil), s.slots...)
}

// Close tears the session down and stops its clock. A closed session
// accepts no further changes and never finalizes.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	clock := s.clock
	s.mu.Unlock()

	if clock != nil {
		clock.Stop()
	}
}
