package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver map[string]models.ExamConfiguration

func (r stubResolver) GetEligible(_ context.Context, examID string) (models.ExamConfiguration, error) {
	exam, ok := r[examID]
	if !ok {
		return models.ExamConfiguration{}, fmt.Errorf("exam %s: %w", examID, apperrors.ErrNotFound)
	}
	if !exam.IsPublished() {
		return models.ExamConfiguration{}, fmt.Errorf("exam %s: %w", examID, apperrors.ErrNotPublished)
	}
	return exam, nil
}

func questions(prefix string, n int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{ID: fmt.Sprintf("%s%d", prefix, i+1), Text: "q", Type: models.ShortAnswer}
	}
	return qs
}

// fortyQuestionExam has 10 listening, 27 reading and 3 writing slots.
func fortyQuestionExam(id string, status models.ExamStatus) models.ExamConfiguration {
	return models.ExamConfiguration{
		ID:              id,
		Title:           "Academic mock",
		Category:        models.CategoryAcademic,
		DurationMinutes: 60,
		Status:          status,
		Listening: models.ListeningSection{Parts: []models.ListeningPart{
			{ID: "p1", Questions: questions("l", 10)},
		}},
		Reading: models.ReadingSection{Passages: []models.ReadingPassage{
			{ID: "rp1", Questions: questions("ra", 13)},
			{ID: "rp2", Questions: questions("rb", 14)},
		}},
		Writing: models.WritingSection{Tasks: []models.WritingTask{
			{ID: "w1", Prompt: "Task 1"}, {ID: "w2", Prompt: "Task 2"}, {ID: "w3", Prompt: "Task 3"},
		}},
	}
}

func startedSession(t *testing.T, ft *fakeTime, opts ...Option) *Session {
	t.Helper()
	resolver := stubResolver{"E1": fortyQuestionExam("E1", models.ExamPublished)}

	s := New("E1", append([]Option{WithNow(ft.Now)}, opts...)...)
	require.NoError(t, s.Resolve(context.Background(), resolver))
	require.NoError(t, s.Start())
	s.Clock().Tick()
	require.Equal(t, StateInProgress, s.State())
	return s
}

func TestResolveInitializesEverySlot(t *testing.T) {
	resolver := stubResolver{"E1": fortyQuestionExam("E1", models.ExamPublished)}
	s := New("E1")
	assert.Equal(t, StateLoading, s.State())

	require.NoError(t, s.Resolve(context.Background(), resolver))
	assert.Equal(t, StateReady, s.State())

	attempt := s.Attempt()
	assert.Equal(t, 40, attempt.QuestionCount)
	require.Len(t, attempt.Statuses, 40)
	require.Len(t, attempt.Answers, 40)
	for n := 1; n <= 40; n++ {
		assert.Equal(t, models.StatusUnanswered, attempt.Statuses[n])
		assert.True(t, attempt.Answers[n].IsEmpty())
	}
	assert.Equal(t, 3600, s.TimeLeft())
}

func TestResolveUnavailable(t *testing.T) {
	resolver := stubResolver{"draft": fortyQuestionExam("draft", models.ExamDraft)}

	tests := []struct {
		name   string
		examID string
		kind   error
	}{
		{"missing", "nope", apperrors.ErrNotFound},
		{"unpublished", "draft", apperrors.ErrNotPublished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.examID)
			err := s.Resolve(context.Background(), resolver)
			assert.ErrorIs(t, err, tt.kind)
			assert.True(t, apperrors.IsUnavailable(err))
			assert.Equal(t, StateUnavailable, s.State())

			assert.ErrorIs(t, s.Start(), tt.kind)
			assert.ErrorIs(t, s.SetAnswer(1, models.TextAnswer("A")), apperrors.ErrSessionNotActive)
			assert.ErrorIs(t, s.Resolve(context.Background(), resolver), apperrors.ErrSessionNotActive)
		})
	}
}

func TestMutationsRequireInProgress(t *testing.T) {
	resolver := stubResolver{"E1": fortyQuestionExam("E1", models.ExamPublished)}
	s := New("E1")
	require.NoError(t, s.Resolve(context.Background(), resolver))

	assert.ErrorIs(t, s.SetAnswer(1, models.TextAnswer("A")), apperrors.ErrSessionNotActive)
	_, err := s.ToggleReview(1)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotActive)
	_, err = s.Submit()
	assert.ErrorIs(t, err, apperrors.ErrSessionNotActive)
}

func TestSetAnswer(t *testing.T) {
	ft := newFakeTime()
	s := startedSession(t, ft)

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, s.SetAnswer(3, models.TextAnswer("C")))
		once := s.Attempt()
		require.NoError(t, s.SetAnswer(3, models.TextAnswer("C")))
		assert.Equal(t, once, s.Attempt())
		assert.Equal(t, models.StatusAnswered, once.Statuses[3])
	})

	t.Run("empty value clears the answered status", func(t *testing.T) {
		require.NoError(t, s.SetAnswer(3, models.TextAnswer("")))
		assert.Equal(t, models.StatusUnanswered, s.Attempt().Statuses[3])
	})

	t.Run("list answers", func(t *testing.T) {
		require.NoError(t, s.SetAnswer(12, models.ListAnswer("A", "D")))
		attempt := s.Attempt()
		assert.Equal(t, models.StatusAnswered, attempt.Statuses[12])
		assert.Equal(t, []string{"A", "D"}, attempt.Answers[12].Values())
	})

	t.Run("review is kept while the answer changes", func(t *testing.T) {
		_, err := s.ToggleReview(20)
		require.NoError(t, err)
		require.NoError(t, s.SetAnswer(20, models.TextAnswer("TRUE")))

		attempt := s.Attempt()
		assert.Equal(t, models.StatusReview, attempt.Statuses[20])
		assert.Equal(t, "TRUE", attempt.Answers[20].Text())
	})

	t.Run("out of range", func(t *testing.T) {
		for _, n := range []int{0, -1, 41} {
			assert.ErrorIs(t, s.SetAnswer(n, models.TextAnswer("A")), apperrors.ErrInvalidQuestionIndex)
			_, err := s.ToggleReview(n)
			assert.ErrorIs(t, err, apperrors.ErrInvalidQuestionIndex)
		}
		assert.Len(t, s.Attempt().Statuses, 40, "no slot is created")
	})
}

func TestToggleReviewTwiceRestoresImpliedStatus(t *testing.T) {
	ft := newFakeTime()
	s := startedSession(t, ft)
	require.NoError(t, s.SetAnswer(1, models.TextAnswer("B")))

	tests := []struct {
		number int
		want   models.QuestionStatus
	}{
		{1, models.StatusAnswered},
		{2, models.StatusUnanswered},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			status, err := s.ToggleReview(tt.number)
			require.NoError(t, err)
			assert.Equal(t, models.StatusReview, status)

			status, err = s.ToggleReview(tt.number)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestSubmit(t *testing.T) {
	ft := newFakeTime()
	var finalized []models.ExamAttempt
	s := startedSession(t, ft, OnFinalize(func(a models.ExamAttempt) { finalized = append(finalized, a) }))

	require.NoError(t, s.SetAnswer(40, models.TextAnswer("My essay")))
	ft.Advance(25 * time.Minute)
	s.Clock().Tick()

	record, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, StateFinalized, s.State())
	assert.Equal(t, models.EndReasonSubmitted, record.EndReason)
	assert.Equal(t, 35*60, record.TimeLeft)
	assert.Len(t, record.Statuses, 40)
	assert.False(t, s.Clock().Running())

	_, err = s.Submit()
	assert.ErrorIs(t, err, apperrors.ErrSessionNotActive)
	assert.ErrorIs(t, s.SetAnswer(1, models.TextAnswer("late")), apperrors.ErrSessionNotActive)

	ft.Advance(time.Hour)
	s.Clock().Tick()
	assert.Len(t, finalized, 1, "a finalized session is never resurrected")
}

func TestCloseStopsTheSession(t *testing.T) {
	ft := newFakeTime()
	finalized := false
	s := startedSession(t, ft, OnFinalize(func(models.ExamAttempt) { finalized = true }))

	s.Close()
	ft.Advance(2 * time.Hour)
	s.Clock().Tick()

	assert.False(t, finalized)
	assert.ErrorIs(t, s.SetAnswer(1, models.TextAnswer("A")), apperrors.ErrSessionNotActive)
}

func TestSectionProgress(t *testing.T) {
	ft := newFakeTime()
	s := startedSession(t, ft)

	require.NoError(t, s.SetAnswer(1, models.TextAnswer("A")))
	require.NoError(t, s.SetAnswer(11, models.TextAnswer("B")))
	_, err := s.ToggleReview(39)
	require.NoError(t, err)

	progress := s.SectionProgress()
	assert.Equal(t, 1, progress[models.SectionListening][models.StatusAnswered])
	assert.Equal(t, 9, progress[models.SectionListening][models.StatusUnanswered])
	assert.Equal(t, 1, progress[models.SectionReading][models.StatusAnswered])
	assert.Equal(t, 1, progress[models.SectionWriting][models.StatusReview])
}

func TestTimedOutExamScenario(t *testing.T) {
	ft := newFakeTime()
	var record models.ExamAttempt
	finalizations := 0

	resolver := stubResolver{"E1": fortyQuestionExam("E1", models.ExamPublished)}
	s := New("E1", WithNow(ft.Now), OnFinalize(func(a models.ExamAttempt) {
		record = a
		finalizations++
	}))
	require.NoError(t, s.Resolve(context.Background(), resolver))
	require.NoError(t, s.Start())
	s.Clock().Tick()
	assert.Equal(t, 3600, s.TimeLeft())

	require.NoError(t, s.SetAnswer(5, models.TextAnswer("B")))
	_, err := s.ToggleReview(5)
	require.NoError(t, err)

	attempt := s.Attempt()
	assert.Equal(t, models.StatusReview, attempt.Statuses[5])
	assert.Equal(t, "B", attempt.Answers[5].Text())

	for elapsed := 0; elapsed < 3600; elapsed += 60 {
		ft.Advance(time.Minute)
		s.Clock().Tick()
	}

	require.Equal(t, 1, finalizations)
	assert.Equal(t, StateFinalized, s.State())
	assert.Equal(t, models.EndReasonTimeOut, record.EndReason)
	assert.Zero(t, record.TimeLeft)
	require.NotNil(t, record.FinalizedAt)
	require.Len(t, record.Statuses, 40)
	require.Len(t, record.Answers, 40)

	assert.Equal(t, models.StatusReview, record.Statuses[5])
	assert.Equal(t, "B", record.Answers[5].Text())
	for n := 1; n <= 40; n++ {
		if n == 5 {
			continue
		}
		assert.Equal(t, models.StatusUnanswered, record.Statuses[n], "question %d", n)
		assert.True(t, record.Answers[n].IsEmpty(), "question %d", n)
	}
}
