package services

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/events"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttempts(t *testing.T, env *testEnv, opts ...AttemptServiceOption) AttemptService {
	t.Helper()
	svc := NewAttemptService(env.catalog(), env.content.Attempts, env.publisher, testLogger(), opts...)
	t.Cleanup(svc.Shutdown)
	return svc
}

func TestAttemptService_StartUnavailable(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAttempts(t, env)
	ctx := context.Background()

	draft, err := env.catalog().Create(ctx, fortyQuestionRequest())
	require.NoError(t, err)

	for _, id := range []string{draft.ID, "missing"} {
		view, err := svc.Start(ctx, id)
		assert.Nil(t, view)
		assert.True(t, apperrors.IsUnavailable(err), "exam %s", id)
	}
	assert.Empty(t, env.publisher.EventsOfType(events.EventAttemptStarted))
}

func TestAttemptService_AnswerAndSubmit(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAttempts(t, env, WithTickInterval(time.Hour))
	ctx := context.Background()
	exam := publishedExam(t, env.catalog())

	view, err := svc.Start(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateInProgress, view.State)
	assert.Equal(t, 3600, view.TimeLeft)
	assert.Equal(t, 40, view.QuestionCount)
	assert.Equal(t, 10, view.Sections[models.SectionListening][models.StatusUnanswered])
	require.Len(t, env.publisher.EventsOfType(events.EventAttemptStarted), 1)

	view, err = svc.SetAnswer(ctx, view.ID, 5, models.TextAnswer("B"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnswered, view.Statuses[5])

	view, err = svc.ToggleReview(ctx, view.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReview, view.Statuses[12])
	assert.Equal(t, 1, view.Sections[models.SectionReading][models.StatusReview])

	_, err = svc.SetAnswer(ctx, view.ID, 41, models.TextAnswer("x"))
	assert.ErrorIs(t, err, ErrInvalidQuestionIndex)

	attempt, err := svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EndReasonSubmitted, attempt.EndReason)
	assert.Equal(t, "B", attempt.Answers[5].Text())

	stored, err := env.content.Attempts.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReview, stored.Statuses[12])

	after, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateFinalized, after.State)
	assert.Equal(t, 1, after.Sections[models.SectionReading][models.StatusReview])

	_, err = svc.SetAnswer(ctx, view.ID, 1, models.TextAnswer("A"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Submit(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	finalized := env.publisher.EventsOfType(events.EventAttemptFinalized)
	require.Len(t, finalized, 1)
	assert.Equal(t, models.EndReasonSubmitted, finalized[0].Data.(events.AttemptFinalizedEvent).EndReason)

	lifecycle := env.publisher.EventsFor(view.ID)
	require.Len(t, lifecycle, 2)
	assert.Equal(t, events.EventAttemptStarted, lifecycle[0].Type)
	assert.Equal(t, events.EventAttemptFinalized, lifecycle[1].Type)

	attempts, err := svc.ListAttempts(ctx, exam.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

// A published 60 minute exam auto-submits once an hour of simulated time
// has passed, keeping every slot in the record.
func TestAttemptService_TimesOut(t *testing.T) {
	env := newTestEnv(t)
	ft := newFakeTime()
	svc := newTestAttempts(t, env, WithTickInterval(5*time.Millisecond), WithAttemptClock(ft.Now))
	ctx := context.Background()
	exam := publishedExam(t, env.catalog())

	view, err := svc.Start(ctx, exam.ID)
	require.NoError(t, err)
	require.Equal(t, 3600, view.TimeLeft)

	_, err = svc.SetAnswer(ctx, view.ID, 5, models.TextAnswer("B"))
	require.NoError(t, err)
	_, err = svc.ToggleReview(ctx, view.ID, 5)
	require.NoError(t, err)

	ft.Advance(time.Hour)

	require.Eventually(t, func() bool {
		_, err := env.content.Attempts.Get(ctx, view.ID)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	attempt, err := env.content.Attempts.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EndReasonTimeOut, attempt.EndReason)
	assert.Equal(t, 0, attempt.TimeLeft)
	require.Len(t, attempt.Statuses, 40)
	assert.Equal(t, models.StatusReview, attempt.Statuses[5])
	assert.Equal(t, "B", attempt.Answers[5].Text())
	for n := 1; n <= 40; n++ {
		if n == 5 {
			continue
		}
		assert.Equal(t, models.StatusUnanswered, attempt.Statuses[n])
		assert.True(t, attempt.Answers[n].IsEmpty())
	}
	assert.Len(t, env.publisher.EventsOfType(events.EventAttemptFinalized), 1)
}

func TestAttemptService_Discard(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAttempts(t, env, WithTickInterval(time.Hour))
	ctx := context.Background()
	exam := publishedExam(t, env.catalog())

	view, err := svc.Start(ctx, exam.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, view.ID))
	assert.ErrorIs(t, svc.Discard(ctx, view.ID), ErrSessionNotFound)

	_, err = svc.Get(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, env.content.Attempts.All(ctx))
}
