package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
)

const (
	defaultQuestionLimit = 50
	maxQuestionLimit     = 500
)

type questionService struct {
	questions   repositories.QuestionRepository
	assignments repositories.AssignmentRepository
	validator   *validator.Validator
	logger      *ServiceLogger
	now         func() time.Time
}

func NewQuestionService(
	questions repositories.QuestionRepository,
	assignments repositories.AssignmentRepository,
	validator *validator.Validator,
	logger *slog.Logger,
) QuestionService {
	return &questionService{
		questions:   questions,
		assignments: assignments,
		validator:   validator,
		logger:      NewServiceLogger(logger, LogConfig{Service: "exam-content", Component: "questions"}),
		now:         time.Now,
	}
}

// CreateBatch validates every question before adding any. Questions whose
// id already exists are dropped; the added ones are returned.
func (s *questionService) CreateBatch(ctx context.Context, questions []models.Question) (created []models.Question, err error) {
	op := s.logger.WithOperation(ctx, "create_questions")
	defer func() { op.LogResult(fmt.Sprintf("%d", len(questions)), "question_batch", err) }()

	if err := s.validateAll(questions); err != nil {
		return nil, err
	}

	now := s.now()
	for i := range questions {
		if questions[i].CreatedAt.IsZero() {
			questions[i].CreatedAt = now
		}
	}

	created, err = s.questions.AddMany(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}
	if created == nil {
		created = []models.Question{}
	}
	return created, nil
}

func (s *questionService) UpdateBatch(ctx context.Context, questions []models.Question) (updated int, err error) {
	op := s.logger.WithOperation(ctx, "update_questions")
	defer func() { op.LogResult(fmt.Sprintf("%d", len(questions)), "question_batch", err) }()

	for i, q := range questions {
		if q.ID == "" {
			return 0, questionFieldError(i, "id", "is required")
		}
	}
	if err := s.validateAll(questions); err != nil {
		return 0, err
	}

	updated, err = s.questions.UpdateMany(ctx, questions)
	if err != nil {
		return 0, fmt.Errorf("failed to update questions: %w", err)
	}
	return updated, nil
}

// DeleteBatch removes the questions and their assignments.
func (s *questionService) DeleteBatch(ctx context.Context, ids []string) (removed int, err error) {
	op := s.logger.WithOperation(ctx, "delete_questions")
	defer func() { op.LogResult(fmt.Sprintf("%d", len(ids)), "question_batch", err) }()

	if len(ids) == 0 {
		return 0, fmt.Errorf("no question ids given: %w", ErrBadRequest)
	}

	removed, err = s.questions.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete questions: %w", err)
	}

	refs := make([]models.ContentRef, len(ids))
	for i, id := range ids {
		refs[i] = models.ContentRef{ID: id, Type: models.ContentQuestion}
	}
	if _, err := s.assignments.Reassign(ctx, refs, nil); err != nil {
		s.logger.Logger().Warn("Failed to remove question assignments", "count", len(ids), "error", err)
	}
	return removed, nil
}

func (s *questionService) Get(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.questions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultQuestionLimit
	}
	if filters.Limit > maxQuestionLimit {
		filters.Limit = maxQuestionLimit
	}

	matched := []models.Question{}
	for _, q := range s.questions.All(ctx) {
		if filters.Matches(q) {
			matched = append(matched, q)
		}
	}

	return &QuestionListResponse{
		Questions: repositories.Paginate(matched, filters.Offset, filters.Limit),
		Total:     len(matched),
		Offset:    filters.Offset,
		Limit:     filters.Limit,
	}, nil
}

func (s *questionService) validateAll(questions []models.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("no questions given: %w", ErrBadRequest)
	}
	for i := range questions {
		if err := s.validator.Validate(&questions[i]); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

func questionFieldError(index int, field, message string) error {
	return fmt.Errorf("question %d: %w", index+1, NewValidationError(field, message, nil))
}
