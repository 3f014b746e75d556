package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/hades874/Super-CMS-sub001/internal/models"
)

const (
	eventSource  = "exam-content-service"
	eventVersion = "1.0"
)

// EventType represents different types of notification events
type EventType string

const (
	// Exam events
	EventExamPublished EventType = "exam.published"

	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptFinalized EventType = "attempt.finalized"

	// Content events
	EventQuestionsImported EventType = "content.questions_imported"
	EventSnapshotRestored  EventType = "content.snapshot_restored"
)

// NotificationEvent is the envelope shared by every event. Subject names
// the exam or attempt the event is about and keys its Kafka partition.
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Subject   string                 `json:"subject,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Exam event payloads

type ExamPublishedEvent struct {
	ExamID          string              `json:"exam_id"`
	ExamTitle       string              `json:"exam_title"`
	Category        models.ExamCategory `json:"category"`
	DurationMinutes int                 `json:"duration_minutes"`
	QuestionCount   int                 `json:"question_count"`
	PublishedAt     time.Time           `json:"published_at"`
}

// Attempt event payloads

type AttemptStartedEvent struct {
	AttemptID     string    `json:"attempt_id"`
	ExamID        string    `json:"exam_id"`
	ExamTitle     string    `json:"exam_title"`
	StartedAt     time.Time `json:"started_at"`
	TimeLimit     int       `json:"time_limit"` // seconds
	QuestionCount int       `json:"question_count"`
}

type AttemptFinalizedEvent struct {
	AttemptID     string           `json:"attempt_id"`
	ExamID        string           `json:"exam_id"`
	ExamTitle     string           `json:"exam_title"`
	EndReason     models.EndReason `json:"end_reason"`
	FinalizedAt   time.Time        `json:"finalized_at"`
	TimeLeft      int              `json:"time_left"`
	AnsweredCount int              `json:"answered_count"`
	ReviewCount   int              `json:"review_count"`
	QuestionCount int              `json:"question_count"`
}

// Content event payloads

type QuestionsImportedEvent struct {
	Source       string   `json:"source"` // xlsx or generator
	CreatedCount int      `json:"created_count"`
	ErrorCount   int      `json:"error_count"`
	QuestionIDs  []string `json:"question_ids"`
}

type SnapshotRestoredEvent struct {
	Questions int `json:"questions"`
	Exams     int `json:"exams"`
}

// Event factory functions

func newEvent(eventType EventType, subject string, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewExamPublishedEvent(exam models.ExamConfiguration) *NotificationEvent {
	publishedAt := time.Now()
	if exam.PublishedAt != nil {
		publishedAt = *exam.PublishedAt
	}
	return newEvent(EventExamPublished, exam.ID, ExamPublishedEvent{
		ExamID:          exam.ID,
		ExamTitle:       exam.Title,
		Category:        exam.Category,
		DurationMinutes: exam.DurationMinutes,
		QuestionCount:   exam.QuestionCount(),
		PublishedAt:     publishedAt,
	})
}

func NewAttemptStartedEvent(attempt models.ExamAttempt) *NotificationEvent {
	return newEvent(EventAttemptStarted, attempt.ID, AttemptStartedEvent{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		ExamTitle:     attempt.ExamTitle,
		StartedAt:     attempt.StartedAt,
		TimeLimit:     attempt.DurationSeconds,
		QuestionCount: attempt.QuestionCount,
	})
}

func NewAttemptFinalizedEvent(attempt models.ExamAttempt) *NotificationEvent {
	counts := attempt.CountByStatus(nil)
	finalizedAt := time.Now()
	if attempt.FinalizedAt != nil {
		finalizedAt = *attempt.FinalizedAt
	}
	return newEvent(EventAttemptFinalized, attempt.ID, AttemptFinalizedEvent{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		ExamTitle:     attempt.ExamTitle,
		EndReason:     attempt.EndReason,
		FinalizedAt:   finalizedAt,
		TimeLeft:      attempt.TimeLeft,
		AnsweredCount: counts[models.StatusAnswered],
		ReviewCount:   counts[models.StatusReview],
		QuestionCount: attempt.QuestionCount,
	})
}

func NewQuestionsImportedEvent(source string, created []models.Question, errorCount int) *NotificationEvent {
	ids := make([]string, len(created))
	for i, q := range created {
		ids[i] = q.ID
	}
	return newEvent(EventQuestionsImported, source, QuestionsImportedEvent{
		Source:       source,
		CreatedCount: len(created),
		ErrorCount:   errorCount,
		QuestionIDs:  ids,
	})
}

func NewSnapshotRestoredEvent(questions, exams int) *NotificationEvent {
	return newEvent(EventSnapshotRestored, "", SnapshotRestoredEvent{
		Questions: questions,
		Exams:     exams,
	})
}

// GenerateEventID returns a unique event id.
func GenerateEventID() string {
	return uuid.NewString()
}
