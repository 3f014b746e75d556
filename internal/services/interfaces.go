package services

import (
	"context"
	"io"
	"time"

	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/session"
)

// ===== SERVICE INTERFACES =====

// ExamCatalogService manages the exam lifecycle, draft to published, and
// decides which exams can be taken.
type ExamCatalogService interface {
	Create(ctx context.Context, req *ExamRequest) (*models.ExamConfiguration, error)
	Update(ctx context.Context, id string, req *ExamRequest) (*models.ExamConfiguration, error)
	Get(ctx context.Context, id string) (*models.ExamConfiguration, error)
	List(ctx context.Context, filters repositories.ExamFilters) ([]models.ExamConfiguration, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string) (*models.ExamConfiguration, error)

	// GetEligible returns the exam only when it is published. The error
	// wraps ErrNotFound or ErrNotPublished.
	GetEligible(ctx context.Context, id string) (models.ExamConfiguration, error)
}

// AttemptService runs live exam sessions and records finished attempts.
type AttemptService interface {
	Start(ctx context.Context, examID string) (*SessionView, error)
	Get(ctx context.Context, sessionID string) (*SessionView, error)
	SetAnswer(ctx context.Context, sessionID string, number int, value models.Answer) (*SessionView, error)
	ToggleReview(ctx context.Context, sessionID string, number int) (*SessionView, error)
	Submit(ctx context.Context, sessionID string) (*models.ExamAttempt, error)
	Discard(ctx context.Context, sessionID string) error
	ListAttempts(ctx context.Context, examID string) ([]models.ExamAttempt, error)

	// Shutdown stops every running session clock.
	Shutdown()
}

type QuestionService interface {
	CreateBatch(ctx context.Context, questions []models.Question) ([]models.Question, error)
	UpdateBatch(ctx context.Context, questions []models.Question) (int, error)
	DeleteBatch(ctx context.Context, ids []string) (int, error)
	Get(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error)
}

type AssignmentService interface {
	AssignmentsFor(ctx context.Context, ref models.ContentRef) ([]models.ContentAssignment, error)
	AssignmentsForTarget(ctx context.Context, binding models.Binding) ([]models.ContentAssignment, error)
	Reassign(ctx context.Context, req *ReassignRequest) ([]models.ContentAssignment, error)
	Prune(ctx context.Context) (int, error)
}

type BackupService interface {
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, raw []byte) error
	Clear(ctx context.Context) error
}

type GenerationService interface {
	GenerateAndStore(ctx context.Context, input GenerationInput) ([]models.Question, error)
}

// ImportExportService moves questions in and out of spreadsheets.
type ImportExportService interface {
	ExportQuestionsToExcel(ctx context.Context, req models.ExportRequest) ([]byte, error)
	ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (*models.ImportSummary, error)
}

// ===== REQUEST/RESPONSE TYPES =====

// ExamRequest carries the editable fields of an exam. Status and
// timestamps are owned by the catalog.
type ExamRequest struct {
	Title           string                  `json:"title" validate:"required,min=1,max=200"`
	Category        models.ExamCategory     `json:"category" validate:"required,exam_category"`
	DurationMinutes int                     `json:"duration_minutes" validate:"gt=0"`
	Listening       models.ListeningSection `json:"listening"`
	Reading         models.ReadingSection   `json:"reading"`
	Writing         models.WritingSection   `json:"writing"`
}

// SessionView is what a learner sees of a session.
type SessionView struct {
	ID            string                                                 `json:"id"`
	ExamID        string                                                 `json:"exam_id"`
	ExamTitle     string                                                 `json:"exam_title"`
	State         session.State                                          `json:"state"`
	TimeLeft      int                                                    `json:"time_left"`
	QuestionCount int                                                    `json:"question_count"`
	StartedAt     time.Time                                              `json:"started_at"`
	FinalizedAt   *time.Time                                             `json:"finalized_at,omitempty"`
	EndReason     models.EndReason                                       `json:"end_reason,omitempty"`
	Statuses      map[int]models.QuestionStatus                          `json:"statuses"`
	Answers       map[int]models.Answer                                  `json:"answers"`
	Sections      map[models.SectionKind]map[models.QuestionStatus]int `json:"sections"`
}

type QuestionListResponse struct {
	Questions []models.Question `json:"questions"`
	Total     int               `json:"total"`
	Offset    int               `json:"offset"`
	Limit     int               `json:"limit"`
}

// ReassignRequest replaces every binding of Items with one binding per
// item and entry of Bindings. An empty Bindings unassigns the items.
type ReassignRequest struct {
	Items    []models.ContentRef `json:"items" validate:"dive"`
	Bindings []models.Binding    `json:"bindings" validate:"dive"`
}

// GenerationInput describes the questions to ask the generator for.
type GenerationInput struct {
	Topic      string              `json:"topic" validate:"required"`
	Subject    string              `json:"subject"`
	Class      string              `json:"class"`
	Difficulty string              `json:"difficulty"`
	Type       models.QuestionType `json:"type" validate:"required,question_type"`
	Count      int                 `json:"count" validate:"min=1,max=50"`
	SourceText string              `json:"source_text,omitempty"`
}

// GenerationResult is the structured output of a generator.
type GenerationResult struct {
	GeneratedQuestions []models.Question `json:"generatedQuestions"`
}
