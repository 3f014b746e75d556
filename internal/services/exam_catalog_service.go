package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hades874/Super-CMS-sub001/internal/events"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
)

type examCatalogService struct {
	exams       repositories.ExamRepository
	assignments repositories.AssignmentRepository
	publisher   events.EventPublisher
	validator   *validator.Validator
	logger      *ServiceLogger
	now         func() time.Time
}

func NewExamCatalogService(
	exams repositories.ExamRepository,
	assignments repositories.AssignmentRepository,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) ExamCatalogService {
	return &examCatalogService{
		exams:       exams,
		assignments: assignments,
		publisher:   publisher,
		validator:   validator,
		logger:      NewServiceLogger(logger, LogConfig{Service: "exam-content", Component: "exam_catalog"}),
		now:         time.Now,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *examCatalogService) Create(ctx context.Context, req *ExamRequest) (exam *models.ExamConfiguration, err error) {
	op := s.logger.WithOperation(ctx, "create_exam")
	defer func() { op.LogResult(resourceID(exam), "exam", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	draft := s.buildExam(req)
	draft.ID = uuid.NewString()
	draft.Status = models.ExamDraft
	draft.CreatedAt = s.now()
	draft.PublishedAt = nil

	if err := s.validator.Validate(&draft); err != nil {
		return nil, err
	}

	added, err := s.exams.AddMany(ctx, []models.ExamConfiguration{draft})
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	if len(added) == 0 {
		return nil, fmt.Errorf("exam %s was not stored", draft.ID)
	}
	return &added[0], nil
}

// Update replaces the editable fields of a draft exam.
func (s *examCatalogService) Update(ctx context.Context, id string, req *ExamRequest) (exam *models.ExamConfiguration, err error) {
	op := s.logger.WithOperation(ctx, "update_exam")
	defer func() { op.LogResult(id, "exam", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var updated models.ExamConfiguration
	var ruleErr error
	err = s.exams.Mutate(ctx, func(current []models.ExamConfiguration) ([]models.ExamConfiguration, bool) {
		i := slices.IndexFunc(current, func(e models.ExamConfiguration) bool { return e.ID == id })
		if i < 0 {
			ruleErr = fmt.Errorf("exam %s: %w", id, ErrNotFound)
			return current, false
		}
		if current[i].IsPublished() {
			ruleErr = fmt.Errorf("exam %s: %w", id, ErrExamNotEditable)
			return current, false
		}

		next := s.buildExam(req)
		next.ID = current[i].ID
		next.Status = current[i].Status
		next.CreatedAt = current[i].CreatedAt
		if vErr := s.validator.Validate(&next); vErr != nil {
			ruleErr = vErr
			return current, false
		}

		current[i] = next
		updated = next
		return current, true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	if ruleErr != nil {
		return nil, ruleErr
	}
	return &updated, nil
}

func (s *examCatalogService) Get(ctx context.Context, id string) (*models.ExamConfiguration, error) {
	exam, err := s.exams.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (s *examCatalogService) List(ctx context.Context, filters repositories.ExamFilters) ([]models.ExamConfiguration, error) {
	result := []models.ExamConfiguration{}
	for _, exam := range s.exams.All(ctx) {
		if filters.Matches(exam) {
			result = append(result, exam)
		}
	}
	return result, nil
}

// Delete removes the exam together with its assignments.
func (s *examCatalogService) Delete(ctx context.Context, id string) (err error) {
	op := s.logger.WithOperation(ctx, "delete_exam")
	defer func() { op.LogResult(id, "exam", err) }()

	removed, err := s.exams.DeleteOne(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	if !removed {
		return fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}

	if _, err := s.assignments.Reassign(ctx, []models.ContentRef{{ID: id, Type: models.ContentExam}}, nil); err != nil {
		s.logger.Logger().Warn("Failed to remove exam assignments", "exam_id", id, "error", err)
	}
	return nil
}

// ===== LIFECYCLE =====

// Publish moves a draft exam to published. Publishing twice fails with
// ErrAlreadyPublished and keeps the first publication time.
func (s *examCatalogService) Publish(ctx context.Context, id string) (exam *models.ExamConfiguration, err error) {
	op := s.logger.WithOperation(ctx, "publish_exam")
	defer func() { op.LogResult(id, "exam", err) }()

	var published models.ExamConfiguration
	var ruleErr error
	err = s.exams.Mutate(ctx, func(current []models.ExamConfiguration) ([]models.ExamConfiguration, bool) {
		i := slices.IndexFunc(current, func(e models.ExamConfiguration) bool { return e.ID == id })
		switch {
		case i < 0:
			ruleErr = fmt.Errorf("exam %s: %w", id, ErrNotFound)
			return current, false
		case current[i].IsPublished():
			ruleErr = fmt.Errorf("exam %s: %w", id, ErrAlreadyPublished)
			return current, false
		}

		publishedAt := s.now()
		current[i].Status = models.ExamPublished
		current[i].PublishedAt = &publishedAt
		published = current[i]
		return current, true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish exam: %w", err)
	}
	if ruleErr != nil {
		return nil, ruleErr
	}

	if err := s.publisher.PublishNotificationEvent(ctx, events.NewExamPublishedEvent(published)); err != nil {
		s.logger.Logger().Warn("Failed to publish exam event", "exam_id", id, "error", err)
	}
	return &published, nil
}

// GetEligible returns a published exam. Drafts fail with ErrNotPublished,
// unknown ids with ErrNotFound; IsUnavailable covers both.
func (s *examCatalogService) GetEligible(ctx context.Context, id string) (models.ExamConfiguration, error) {
	exam, err := s.exams.Get(ctx, id)
	if err != nil {
		return models.ExamConfiguration{}, err
	}
	if !exam.IsPublished() {
		return models.ExamConfiguration{}, fmt.Errorf("exam %s: %w", id, ErrNotPublished)
	}
	return exam, nil
}

// ===== HELPERS =====

func (s *examCatalogService) buildExam(req *ExamRequest) models.ExamConfiguration {
	exam := models.ExamConfiguration{
		Title:           req.Title,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		Listening:       req.Listening,
		Reading:         req.Reading,
		Writing:         req.Writing,
	}
	assignSectionIDs(&exam)
	return exam
}

// assignSectionIDs gives every part, passage, task and nested question
// without an id a fresh one.
func assignSectionIDs(exam *models.ExamConfiguration) {
	ensure := func(id *string) {
		if *id == "" {
			*id = uuid.NewString()
		}
	}
	ensureQuestions := func(questions []models.Question) {
		for i := range questions {
			ensure(&questions[i].ID)
		}
	}

	for i := range exam.Listening.Parts {
		ensure(&exam.Listening.Parts[i].ID)
		ensureQuestions(exam.Listening.Parts[i].Questions)
	}
	for i := range exam.Reading.Passages {
		ensure(&exam.Reading.Passages[i].ID)
		ensureQuestions(exam.Reading.Passages[i].Questions)
	}
	for i := range exam.Writing.Tasks {
		ensure(&exam.Writing.Tasks[i].ID)
	}
}

func resourceID(exam *models.ExamConfiguration) string {
	if exam == nil {
		return ""
	}
	return exam.ID
}
