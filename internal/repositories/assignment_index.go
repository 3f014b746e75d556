package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hades874/Super-CMS-sub001/internal/models"
)

// AssignmentIndex answers which organizational nodes a content item is
// assigned to. The lookup table is rebuilt from the assignments
// collection every time it changes, including changes written by other
// stores sharing the backend.
type AssignmentIndex struct {
	assignments *Collection[models.ContentAssignment]
	logger      *slog.Logger
	now         func() time.Time

	mu          sync.RWMutex
	byContent   map[string][]models.ContentAssignment
	unsubscribe func()
}

func NewAssignmentIndex(ctx context.Context, assignments *Collection[models.ContentAssignment], logger *slog.Logger) *AssignmentIndex {
	idx := &AssignmentIndex{
		assignments: assignments,
		logger:      logger,
		now:         time.Now,
	}
	idx.rebuild(ctx)
	idx.unsubscribe = assignments.Subscribe(func() { idx.rebuild(context.Background()) })
	return idx
}

func (idx *AssignmentIndex) Close() {
	idx.unsubscribe()
}

func (idx *AssignmentIndex) rebuild(ctx context.Context) {
	all := idx.assignments.All(ctx)

	byContent := make(map[string][]models.ContentAssignment, len(all))
	for _, a := range all {
		byContent[a.ContentID] = append(byContent[a.ContentID], a)
	}

	idx.mu.Lock()
	idx.byContent = byContent
	idx.mu.Unlock()

	idx.logger.Debug("Rebuilt assignment index", "assignments", len(all), "content_items", len(byContent))
}

// AssignmentsFor returns the current bindings of one content item.
func (idx *AssignmentIndex) AssignmentsFor(contentID string, contentType models.ContentType) []models.ContentAssignment {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := []models.ContentAssignment{}
	for _, a := range idx.byContent[contentID] {
		if a.ContentType == contentType {
			result = append(result, a)
		}
	}
	return result
}

// AssignmentsForTarget returns every binding to one program, course or chapter.
func (idx *AssignmentIndex) AssignmentsForTarget(assignmentType models.AssignmentType, targetID string) []models.ContentAssignment {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := []models.ContentAssignment{}
	for _, list := range idx.byContent {
		for _, a := range list {
			if a.AssignmentType == assignmentType && a.TargetID == targetID {
				result = append(result, a)
			}
		}
	}
	return result
}

// Reassign replaces the bindings of the given items with one binding per
// (item, binding) pair in a single write. Every prior binding of an item
// in the batch is dropped, so an empty bindings list unassigns the items.
// Items are matched on id and type together; a resource sharing an id
// with a question keeps its bindings. An empty items list does nothing.
func (idx *AssignmentIndex) Reassign(ctx context.Context, items []models.ContentRef, bindings []models.Binding) ([]models.ContentAssignment, error) {
	if len(items) == 0 {
		return []models.ContentAssignment{}, nil
	}

	batch := make(map[models.ContentRef]struct{}, len(items))
	for _, item := range items {
		batch[item] = struct{}{}
	}

	created := make([]models.ContentAssignment, 0, len(items)*len(bindings))
	now := idx.now()
	for _, item := range items {
		for _, b := range dedupeBindings(bindings) {
			created = append(created, models.ContentAssignment{
				ID:             uuid.NewString(),
				ContentID:      item.ID,
				ContentType:    item.Type,
				AssignmentType: b.Type,
				TargetID:       b.TargetID,
				CreatedAt:      now,
			})
		}
	}

	removed := 0
	err := idx.assignments.Mutate(ctx, func(current []models.ContentAssignment) ([]models.ContentAssignment, bool) {
		next := make([]models.ContentAssignment, 0, len(current)+len(created))
		for _, a := range current {
			if _, ok := batch[models.ContentRef{ID: a.ContentID, Type: a.ContentType}]; ok {
				removed++
				continue
			}
			next = append(next, a)
		}
		return append(next, created...), removed > 0 || len(created) > 0
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reassign content: %w", err)
	}

	idx.logger.Info("Reassigned content",
		"items", len(items),
		"removed", removed,
		"created", len(created))
	return created, nil
}

// Prune removes the bindings whose content item no longer exists and
// returns how many were removed.
func (idx *AssignmentIndex) Prune(ctx context.Context, exists func(models.ContentRef) bool) (int, error) {
	removed := 0
	err := idx.assignments.Mutate(ctx, func(current []models.ContentAssignment) ([]models.ContentAssignment, bool) {
		kept := current[:0]
		for _, a := range current {
			if !exists(models.ContentRef{ID: a.ContentID, Type: a.ContentType}) {
				removed++
				continue
			}
			kept = append(kept, a)
		}
		return kept, removed > 0
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune assignments: %w", err)
	}

	if removed > 0 {
		idx.logger.Info("Pruned dangling assignments", "removed", removed)
	}
	return removed, nil
}

func dedupeBindings(bindings []models.Binding) []models.Binding {
	seen := make(map[models.Binding]struct{}, len(bindings))
	out := make([]models.Binding, 0, len(bindings))
	for _, b := range bindings {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}
