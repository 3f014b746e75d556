package repositories

import (
	"context"
	"strings"

	"github.com/hades874/Super-CMS-sub001/internal/models"
)

// ===== REPOSITORY INTERFACES =====

// CollectionRepository is the operation set services need from a content
// collection. *Collection satisfies it.
type CollectionRepository[T any] interface {
	All(ctx context.Context) []T
	Get(ctx context.Context, id string) (T, error)
	AddMany(ctx context.Context, items []T) ([]T, error)
	UpdateOne(ctx context.Context, item T) (bool, error)
	UpdateMany(ctx context.Context, items []T) (int, error)
	DeleteOne(ctx context.Context, id string) (bool, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)
	Mutate(ctx context.Context, fn func(current []T) ([]T, bool)) error
	Subscribe(fn func()) (unsubscribe func())
}

type ExamRepository = CollectionRepository[models.ExamConfiguration]
type QuestionRepository = CollectionRepository[models.Question]
type AttemptRepository = CollectionRepository[models.ExamAttempt]

// AssignmentRepository is the operation set of the assignment index.
type AssignmentRepository interface {
	AssignmentsFor(contentID string, contentType models.ContentType) []models.ContentAssignment
	AssignmentsForTarget(assignmentType models.AssignmentType, targetID string) []models.ContentAssignment
	Reassign(ctx context.Context, items []models.ContentRef, bindings []models.Binding) ([]models.ContentAssignment, error)
	Prune(ctx context.Context, exists func(models.ContentRef) bool) (int, error)
}

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Status   *models.ExamStatus   `json:"status" form:"status"`
	Category *models.ExamCategory `json:"category" form:"category"`
	Search   string               `json:"search" form:"search"`
}

func (f ExamFilters) Matches(e models.ExamConfiguration) bool {
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

type QuestionFilters struct {
	Type       *models.QuestionType `json:"type" form:"type"`
	Subject    string               `json:"subject" form:"subject"`
	Topic      string               `json:"topic" form:"topic"`
	Class      string               `json:"class" form:"class"`
	Difficulty string               `json:"difficulty" form:"difficulty"`
	Limit      int                  `json:"limit" form:"limit"`
	Offset     int                  `json:"offset" form:"offset"`
}

// Matches compares classification filters against the normalized values,
// so a question tagged with several subjects matches any of them.
func (f QuestionFilters) Matches(q models.Question) bool {
	if f.Type != nil && q.Type != *f.Type {
		return false
	}
	checks := []struct {
		want string
		attr models.Classification
	}{
		{f.Subject, q.Subject},
		{f.Topic, q.Topic},
		{f.Class, q.Class},
		{f.Difficulty, q.Difficulty},
	}
	for _, c := range checks {
		if c.want != "" && !c.attr.Contains(c.want) {
			return false
		}
	}
	return true
}

// Paginate applies Offset and Limit to an already filtered list.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
