package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hades874/Super-CMS-sub001/internal/events"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/store"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	content   *repositories.ContentRepository
	index     *repositories.AssignmentIndex
	publisher *events.MockEventPublisher
	validator *validator.Validator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.New(store.NewMemoryBackend(), testLogger())
	t.Cleanup(s.Close)

	content := repositories.NewContentRepository(s, testLogger())
	index := repositories.NewAssignmentIndex(context.Background(), content.Assignments, testLogger())
	t.Cleanup(index.Close)

	return &testEnv{
		content:   content,
		index:     index,
		publisher: events.NewMockEventPublisher(testLogger()),
		validator: validator.New(),
	}
}

func (e *testEnv) catalog() ExamCatalogService {
	return NewExamCatalogService(e.content.Exams, e.index, e.publisher, e.validator, testLogger())
}

type fakeTime struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeTime() *fakeTime {
	return &fakeTime{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func shortAnswers(prefix string, n int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{ID: fmt.Sprintf("%s%d", prefix, i+1), Text: "question", Type: models.ShortAnswer}
	}
	return qs
}

// fortyQuestionRequest lays out 10 listening, 27 reading and 3 writing
// slots over 60 minutes.
func fortyQuestionRequest() *ExamRequest {
	return &ExamRequest{
		Title:           "Academic mock",
		Category:        models.CategoryAcademic,
		DurationMinutes: 60,
		Listening: models.ListeningSection{Parts: []models.ListeningPart{
			{Title: "Part 1", Questions: shortAnswers("l", 10)},
		}},
		Reading: models.ReadingSection{Passages: []models.ReadingPassage{
			{Title: "Passage 1", Questions: shortAnswers("ra", 13)},
			{Title: "Passage 2", Questions: shortAnswers("rb", 14)},
		}},
		Writing: models.WritingSection{Tasks: []models.WritingTask{
			{Prompt: "Task 1"}, {Prompt: "Task 2"}, {Prompt: "Task 3"},
		}},
	}
}

func publishedExam(t *testing.T, catalog ExamCatalogService) *models.ExamConfiguration {
	t.Helper()
	ctx := context.Background()
	exam, err := catalog.Create(ctx, fortyQuestionRequest())
	require.NoError(t, err)
	exam, err = catalog.Publish(ctx, exam.ID)
	require.NoError(t, err)
	return exam
}
