package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRepository(t *testing.T) *ContentRepository {
	t.Helper()
	s := store.New(store.NewMemoryBackend(), testLogger())
	t.Cleanup(s.Close)
	return NewContentRepository(s, testLogger())
}

// failingBackend refuses writes to one key.
type failingBackend struct {
	*store.MemoryBackend
	failKey string
}

func (f *failingBackend) Set(ctx context.Context, key string, value []byte) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Set(ctx, key, value)
}

func TestCollectionAddMany(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	added, err := repo.Questions.AddMany(ctx, []models.Question{
		{ID: "q1", Text: "first"},
		{ID: "q2", Text: "second"},
		{ID: "q1", Text: "duplicate in batch"},
		{Text: "no id"},
	})
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.NotEmpty(t, added[2].ID)

	added, err = repo.Questions.AddMany(ctx, []models.Question{{ID: "q2", Text: "already stored"}})
	require.NoError(t, err)
	assert.Empty(t, added)

	all := repo.Questions.All(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Text)
	assert.Equal(t, "second", all[1].Text)
}

func TestCollectionUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Resources.AddMany(ctx, []models.Resource{
		{ID: "r1", Title: "Grammar notes"},
		{ID: "r2", Title: "Listening tips"},
	})
	require.NoError(t, err)

	notifications := 0
	repo.Resources.Subscribe(func() { notifications++ })

	t.Run("update matching id", func(t *testing.T) {
		ok, err := repo.Resources.UpdateOne(ctx, models.Resource{ID: "r1", Title: "Grammar notes v2"})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.Resources.Get(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "Grammar notes v2", got.Title)
	})

	t.Run("update unknown id is a no-op", func(t *testing.T) {
		n, err := repo.Resources.UpdateMany(ctx, []models.Resource{{ID: "r9", Title: "ghost"}})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Len(t, repo.Resources.All(ctx), 2)
	})

	t.Run("delete", func(t *testing.T) {
		n, err := repo.Resources.DeleteMany(ctx, []string{"r2", "r9"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = repo.Resources.Get(ctx, "r2")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	assert.Equal(t, 2, notifications, "no-op mutations do not notify")
}

func seed(t *testing.T, repo *ContentRepository) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.Questions.AddMany(ctx, []models.Question{{ID: "q1", Text: "What?", Type: models.ShortAnswer}})
	require.NoError(t, err)
	_, err = repo.Exams.AddMany(ctx, []models.ExamConfiguration{{ID: "E1", Title: "Mock test", DurationMinutes: 60}})
	require.NoError(t, err)
	_, err = repo.ZoomClasses.AddMany(ctx, []models.ZoomClass{{ID: "z1", Title: "Speaking club", MeetingID: "123"}})
	require.NoError(t, err)
}

func TestExportImportSnapshot(t *testing.T) {
	ctx := context.Background()
	source := newTestRepository(t)
	seed(t, source)
	source.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

	raw, err := source.ExportSnapshot(ctx)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range append(requiredSnapshotKeys, optionalSnapshotKeys...) {
		assert.Contains(t, doc, key)
	}
	assert.JSONEq(t, `"2025-03-01T10:00:00Z"`, string(doc["timestamp"]))

	target := newTestRepository(t)
	_, err = target.Resources.AddMany(ctx, []models.Resource{{ID: "old", Title: "replaced"}})
	require.NoError(t, err)

	require.NoError(t, target.ImportSnapshot(ctx, raw))
	assert.Len(t, target.Questions.All(ctx), 1)
	assert.Len(t, target.Exams.All(ctx), 1)
	assert.Empty(t, target.Resources.All(ctx))
	assert.Equal(t, "Speaking club", target.ZoomClasses.All(ctx)[0].Title)
}

func TestImportSnapshotRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"array at top level", `[]`},
		{"missing exams", `{"questions":[],"resources":[],"live_classes":[],"zoom_classes":[],"fb_live_classes":[]}`},
		{"exams not an array", `{"questions":[],"exams":{},"resources":[],"live_classes":[],"zoom_classes":[],"fb_live_classes":[]}`},
		{"bad optional key", `{"questions":[],"exams":[],"resources":[],"live_classes":[],"zoom_classes":[],"fb_live_classes":[],"attempts":"none"}`},
		{"bad timestamp", `{"questions":[],"exams":[],"resources":[],"live_classes":[],"zoom_classes":[],"fb_live_classes":[],"timestamp":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newTestRepository(t)
			seed(t, repo)

			err := repo.ImportSnapshot(ctx, []byte(tt.payload))
			assert.ErrorIs(t, err, apperrors.ErrMalformedBackup)
			assert.True(t, apperrors.IsRecoverable(err))

			assert.Len(t, repo.Questions.All(ctx), 1)
			assert.Len(t, repo.Exams.All(ctx), 1)
			assert.Len(t, repo.ZoomClasses.All(ctx), 1)
		})
	}
}

func TestImportSnapshotRejectsInconsistentContent(t *testing.T) {
	const empty = `"resources":[],"live_classes":[],"zoom_classes":[],"fb_live_classes":[]`
	rejectE1 := func(s *Snapshot) error {
		for _, e := range s.Exams {
			if e.ID == "e1" {
				return errors.New("exam e1 is not allowed")
			}
		}
		return nil
	}

	tests := []struct {
		name    string
		payload string
		checks  []SnapshotCheck
	}{
		{
			name:    "duplicate question ids",
			payload: `{"questions":[{"id":"q1"},{"id":"q1"}],"exams":[],` + empty + `}`,
		},
		{
			name:    "duplicate exam ids",
			payload: `{"questions":[],"exams":[{"id":"e1","duration_minutes":60},{"id":"e1","duration_minutes":30}],` + empty + `}`,
		},
		{
			name:    "duplicate assignment ids",
			payload: `{"questions":[],"exams":[],` + empty + `,"assignments":[{"id":"a1"},{"id":"a1"}]}`,
		},
		{
			name:    "failing caller check",
			payload: `{"questions":[],"exams":[{"id":"e1","duration_minutes":60}],` + empty + `}`,
			checks:  []SnapshotCheck{rejectE1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newTestRepository(t)
			seed(t, repo)

			err := repo.ImportSnapshot(ctx, []byte(tt.payload), tt.checks...)
			assert.ErrorIs(t, err, apperrors.ErrMalformedBackup)

			questions := repo.Questions.All(ctx)
			require.Len(t, questions, 1)
			assert.Equal(t, "q1", questions[0].ID)
			exams := repo.Exams.All(ctx)
			require.Len(t, exams, 1)
			assert.Equal(t, "E1", exams[0].ID)
			assert.Empty(t, repo.Assignments.All(ctx))
		})
	}
}

func TestImportSnapshotLeavesAbsentOptionalCollections(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	_, err := repo.Attempts.AddMany(ctx, []models.ExamAttempt{{ID: "a1", ExamID: "E1"}})
	require.NoError(t, err)

	payload := `{"questions":[],"exams":[],"resources":[],"live_classes":[],"zoom_classes":[],"fb_live_classes":[]}`
	require.NoError(t, repo.ImportSnapshot(ctx, []byte(payload)))
	assert.Len(t, repo.Attempts.All(ctx), 1)
}

func TestImportSnapshotRestoresOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryBackend: store.NewMemoryBackend()}
	s := store.New(backend, testLogger())
	defer s.Close()
	repo := NewContentRepository(s, testLogger())
	seed(t, repo)

	incoming := newTestRepository(t)
	_, err := incoming.Questions.AddMany(ctx, []models.Question{{ID: "new1"}, {ID: "new2"}})
	require.NoError(t, err)
	raw, err := incoming.ExportSnapshot(ctx)
	require.NoError(t, err)

	backend.failKey = KeyResources
	err = repo.ImportSnapshot(ctx, raw)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	questions := repo.Questions.All(ctx)
	require.Len(t, questions, 1)
	assert.Equal(t, "q1", questions[0].ID)
	assert.Len(t, repo.Exams.All(ctx), 1)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	seed(t, repo)

	var seen []models.ExamConfiguration
	repo.Exams.Subscribe(func() { seen = repo.Exams.All(ctx) })

	require.NoError(t, repo.ClearAll(ctx))
	assert.NotNil(t, seen)
	assert.Empty(t, seen)
	assert.Empty(t, repo.Questions.All(ctx))
	assert.Empty(t, repo.ZoomClasses.All(ctx))
}

func TestFiltersAndPaginate(t *testing.T) {
	published := models.ExamPublished
	f := ExamFilters{Status: &published, Search: "mock"}
	assert.True(t, f.Matches(models.ExamConfiguration{Title: "IELTS Mock 1", Status: models.ExamPublished}))
	assert.False(t, f.Matches(models.ExamConfiguration{Title: "IELTS Mock 2", Status: models.ExamDraft}))

	q := models.Question{Type: models.Essay, Subject: models.Multiple("English", "Writing")}
	assert.True(t, QuestionFilters{Subject: "writing"}.Matches(q))
	assert.False(t, QuestionFilters{Topic: "grammar"}.Matches(q))

	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, Paginate(items, 2, 2))
	assert.Equal(t, []int{}, Paginate(items, 9, 2))
	assert.Equal(t, items, Paginate(items, 0, 0))
}
