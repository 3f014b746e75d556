package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/store"
)

// Store keys of the content collections.
const (
	KeyQuestions     = "questions"
	KeyExams         = "exams"
	KeyResources     = "resources"
	KeyLiveClasses   = "live_classes"
	KeyZoomClasses   = "zoom_classes"
	KeyFBLiveClasses = "fb_live_classes"
	KeyAttempts      = "attempts"
	KeyAssignments   = "assignments"
)

// requiredSnapshotKeys must be present as arrays in every imported backup.
var requiredSnapshotKeys = []string{
	KeyQuestions,
	KeyExams,
	KeyResources,
	KeyLiveClasses,
	KeyZoomClasses,
	KeyFBLiveClasses,
}

// optionalSnapshotKeys are restored when present and left untouched when
// absent, so backups taken before attempts and assignments were exported
// still import.
var optionalSnapshotKeys = []string{KeyAttempts, KeyAssignments}

// Snapshot is the backup document written by ExportSnapshot.
type Snapshot struct {
	Questions     []models.Question          `json:"questions"`
	Exams         []models.ExamConfiguration `json:"exams"`
	Resources     []models.Resource          `json:"resources"`
	LiveClasses   []models.LiveClass         `json:"live_classes"`
	ZoomClasses   []models.ZoomClass         `json:"zoom_classes"`
	FBLiveClasses []models.FBLiveClass       `json:"fb_live_classes"`
	Attempts      []models.ExamAttempt       `json:"attempts"`
	Assignments   []models.ContentAssignment `json:"assignments"`
	Timestamp     time.Time                  `json:"timestamp"`
}

// ContentRepository groups the typed content collections that share one
// store and owns whole-repository operations such as backup and reset.
type ContentRepository struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time

	// serializes snapshot import and reset against each other
	mu sync.Mutex

	Questions     *Collection[models.Question]
	Exams         *Collection[models.ExamConfiguration]
	Resources     *Collection[models.Resource]
	LiveClasses   *Collection[models.LiveClass]
	ZoomClasses   *Collection[models.ZoomClass]
	FBLiveClasses *Collection[models.FBLiveClass]
	Attempts      *Collection[models.ExamAttempt]
	Assignments   *Collection[models.ContentAssignment]
}

func NewContentRepository(s *store.Store, logger *slog.Logger) *ContentRepository {
	return &ContentRepository{
		store:         s,
		logger:        logger,
		now:           time.Now,
		Questions:     NewCollection[models.Question](s, KeyQuestions, logger),
		Exams:         NewCollection[models.ExamConfiguration](s, KeyExams, logger),
		Resources:     NewCollection[models.Resource](s, KeyResources, logger),
		LiveClasses:   NewCollection[models.LiveClass](s, KeyLiveClasses, logger),
		ZoomClasses:   NewCollection[models.ZoomClass](s, KeyZoomClasses, logger),
		FBLiveClasses: NewCollection[models.FBLiveClass](s, KeyFBLiveClasses, logger),
		Attempts:      NewCollection[models.ExamAttempt](s, KeyAttempts, logger),
		Assignments:   NewCollection[models.ContentAssignment](s, KeyAssignments, logger),
	}
}

// Store returns the store the collections live in.
func (r *ContentRepository) Store() *store.Store { return r.store }

// ExportSnapshot serializes every collection plus the export time.
func (r *ContentRepository) ExportSnapshot(ctx context.Context) ([]byte, error) {
	snapshot := Snapshot{
		Questions:     r.Questions.All(ctx),
		Exams:         r.Exams.All(ctx),
		Resources:     r.Resources.All(ctx),
		LiveClasses:   r.LiveClasses.All(ctx),
		ZoomClasses:   r.ZoomClasses.All(ctx),
		FBLiveClasses: r.FBLiveClasses.All(ctx),
		Attempts:      r.Attempts.All(ctx),
		Assignments:   r.Assignments.All(ctx),
		Timestamp:     r.now().UTC(),
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// SnapshotCheck inspects a decoded backup before any collection is written.
type SnapshotCheck func(*Snapshot) error

// ImportSnapshot replaces the collections with the ones in raw. The whole
// payload is checked before anything is written: the top-level shape, id
// uniqueness within each collection and every check passed in. A payload
// failing any of them returns ErrMalformedBackup and changes nothing. If a
// write fails part way the collections already written are restored.
func (r *ContentRepository) ImportSnapshot(ctx context.Context, raw []byte, checks ...SnapshotCheck) error {
	fields, err := parseSnapshotFields(raw)
	if err != nil {
		r.logger.Warn("Rejected malformed backup", "error", err)
		return err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		r.logger.Warn("Rejected malformed backup", "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrMalformedBackup, err)
	}

	checks = append([]SnapshotCheck{checkUniqueIDs}, checks...)
	for _, check := range checks {
		if err := check(&snapshot); err != nil {
			r.logger.Warn("Rejected inconsistent backup", "error", err)
			return fmt.Errorf("%w: %v", apperrors.ErrMalformedBackup, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	type step struct {
		key   string
		apply func() error
	}
	steps := []step{
		{KeyQuestions, func() error { return r.Questions.Replace(ctx, snapshot.Questions) }},
		{KeyExams, func() error { return r.Exams.Replace(ctx, snapshot.Exams) }},
		{KeyResources, func() error { return r.Resources.Replace(ctx, snapshot.Resources) }},
		{KeyLiveClasses, func() error { return r.LiveClasses.Replace(ctx, snapshot.LiveClasses) }},
		{KeyZoomClasses, func() error { return r.ZoomClasses.Replace(ctx, snapshot.ZoomClasses) }},
		{KeyFBLiveClasses, func() error { return r.FBLiveClasses.Replace(ctx, snapshot.FBLiveClasses) }},
	}
	if _, ok := fields[KeyAttempts]; ok {
		steps = append(steps, step{KeyAttempts, func() error { return r.Attempts.Replace(ctx, snapshot.Attempts) }})
	}
	if _, ok := fields[KeyAssignments]; ok {
		steps = append(steps, step{KeyAssignments, func() error { return r.Assignments.Replace(ctx, snapshot.Assignments) }})
	}

	keys := make([]string, len(steps))
	for i, s := range steps {
		keys[i] = s.key
	}
	previous := r.capture(ctx, keys)

	for i, s := range steps {
		if err := s.apply(); err != nil {
			r.logger.Warn("Snapshot import failed, restoring previous collections",
				"collection", s.key,
				"error", err)
			r.restore(ctx, keys[:i], previous)
			return fmt.Errorf("failed to import %s: %w", s.key, err)
		}
	}

	r.logger.Info("Imported snapshot",
		"questions", len(snapshot.Questions),
		"exams", len(snapshot.Exams),
		"collections", len(steps))
	return nil
}

// ClearAll empties every collection. Subscribers see each reset as it is
// written.
func (r *ContentRepository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, key := range r.keys() {
		if err := store.Write(ctx, r.store, key, []json.RawMessage{}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear collections: %w", err)
	}

	r.logger.Info("Cleared all collections")
	return nil
}

func (r *ContentRepository) keys() []string {
	return append(append([]string{}, requiredSnapshotKeys...), optionalSnapshotKeys...)
}

// capture reads the raw stored value of each key; nil marks a key that
// was never written.
func (r *ContentRepository) capture(ctx context.Context, keys []string) map[string][]byte {
	previous := make(map[string][]byte, len(keys))
	for _, key := range keys {
		raw, err := r.store.Get(ctx, key)
		if err != nil {
			previous[key] = nil
			continue
		}
		previous[key] = raw
	}
	return previous
}

func (r *ContentRepository) restore(ctx context.Context, keys []string, previous map[string][]byte) {
	for _, key := range keys {
		var err error
		if raw := previous[key]; raw != nil {
			err = r.store.Set(ctx, key, raw)
		} else {
			err = r.store.Delete(ctx, key)
		}
		if err != nil {
			r.logger.Error("Failed to restore collection after aborted import", "collection", key, "error", err)
		}
	}
}

func checkUniqueIDs(s *Snapshot) error {
	return errors.Join(
		uniqueIDs(KeyQuestions, s.Questions),
		uniqueIDs(KeyExams, s.Exams),
		uniqueIDs(KeyResources, s.Resources),
		uniqueIDs(KeyLiveClasses, s.LiveClasses),
		uniqueIDs(KeyZoomClasses, s.ZoomClasses),
		uniqueIDs(KeyFBLiveClasses, s.FBLiveClasses),
		uniqueIDs(KeyAttempts, s.Attempts),
		uniqueIDs(KeyAssignments, s.Assignments),
	)
}

// uniqueIDs fails when two items of one collection share an id.
func uniqueIDs[T Entity[T]](key string, items []T) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := item.GetID()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate id %q in %s", id, key)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// parseSnapshotFields checks the top-level shape of a backup document.
func parseSnapshotFields(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", apperrors.ErrMalformedBackup, err)
	}

	for _, key := range requiredSnapshotKeys {
		value, ok := fields[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", apperrors.ErrMalformedBackup, key)
		}
		if !isJSONArray(value) {
			return nil, fmt.Errorf("%w: %q is not an array", apperrors.ErrMalformedBackup, key)
		}
	}
	for _, key := range optionalSnapshotKeys {
		if value, ok := fields[key]; ok && !isJSONArray(value) {
			return nil, fmt.Errorf("%w: %q is not an array", apperrors.ErrMalformedBackup, key)
		}
	}
	if ts, ok := fields["timestamp"]; ok {
		var s string
		if err := json.Unmarshal(ts, &s); err != nil {
			return nil, fmt.Errorf("%w: timestamp is not a string", apperrors.ErrMalformedBackup)
		}
	}
	return fields, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
