package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
)

type assignmentService struct {
	index     repositories.AssignmentRepository
	content   *repositories.ContentRepository
	validator *validator.Validator
	logger    *ServiceLogger
}

func NewAssignmentService(
	index repositories.AssignmentRepository,
	content *repositories.ContentRepository,
	validator *validator.Validator,
	logger *slog.Logger,
) AssignmentService {
	return &assignmentService{
		index:     index,
		content:   content,
		validator: validator,
		logger:    NewServiceLogger(logger, LogConfig{Service: "exam-content", Component: "assignments"}),
	}
}

func (s *assignmentService) AssignmentsFor(ctx context.Context, ref models.ContentRef) ([]models.ContentAssignment, error) {
	if err := s.validator.ValidateStruct(ref); err != nil {
		return nil, err
	}
	return nonNil(s.index.AssignmentsFor(ref.ID, ref.Type)), nil
}

func (s *assignmentService) AssignmentsForTarget(ctx context.Context, binding models.Binding) ([]models.ContentAssignment, error) {
	if err := s.validator.ValidateStruct(binding); err != nil {
		return nil, err
	}
	return nonNil(s.index.AssignmentsForTarget(binding.Type, binding.TargetID)), nil
}

// Reassign replaces all bindings of the requested items. Items must
// exist; bindings are only checked for shape since organizational nodes
// live outside this service.
func (s *assignmentService) Reassign(ctx context.Context, req *ReassignRequest) (result []models.ContentAssignment, err error) {
	op := s.logger.WithOperation(ctx, "reassign_content")
	defer func() { op.LogResult(fmt.Sprintf("%d", len(req.Items)), "content_batch", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	exists := s.existence(ctx)
	for _, item := range req.Items {
		if !exists(item) {
			return nil, fmt.Errorf("%s %s: %w", item.Type, item.ID, ErrNotFound)
		}
	}

	result, err = s.index.Reassign(ctx, req.Items, req.Bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to reassign content: %w", err)
	}
	return nonNil(result), nil
}

// Prune drops bindings whose content item no longer exists.
func (s *assignmentService) Prune(ctx context.Context) (removed int, err error) {
	op := s.logger.WithOperation(ctx, "prune_assignments")
	defer func() { op.LogResult("", "assignments", err) }()

	removed, err = s.index.Prune(ctx, s.existence(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to prune assignments: %w", err)
	}
	return removed, nil
}

// existence snapshots the ids of every content collection once.
func (s *assignmentService) existence(ctx context.Context) func(models.ContentRef) bool {
	known := map[models.ContentType]map[string]struct{}{
		models.ContentExam:        idSet(s.content.Exams.All(ctx)),
		models.ContentQuestion:    idSet(s.content.Questions.All(ctx)),
		models.ContentResource:    idSet(s.content.Resources.All(ctx)),
		models.ContentLiveClass:   idSet(s.content.LiveClasses.All(ctx)),
		models.ContentZoomClass:   idSet(s.content.ZoomClasses.All(ctx)),
		models.ContentFBLiveClass: idSet(s.content.FBLiveClasses.All(ctx)),
	}
	return func(ref models.ContentRef) bool {
		_, ok := known[ref.Type][ref.ID]
		return ok
	}
}

func idSet[T repositories.Entity[T]](items []T) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item.GetID()] = struct{}{}
	}
	return set
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
