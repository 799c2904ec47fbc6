package app_test

import (
	"context"
	"testing"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type examFixture struct {
	service  *app.ExamService
	store    *memory.Store
	sessions *memory.SessionStore
}

func newExamFixture(t *testing.T, questions int) examFixture {
	t.Helper()
	store := seededStore(bankQuestions(questions))
	store.PutStudent(domain.Student{ID: "s1", UserID: "u1", Name: "Ana", Category: "B", Points: 10})
	sessions := memory.NewSessionStore()
	variants := []app.Variant{
		app.FixedVariant(),
		app.BankVariant(store, store, store, app.NewSeededSampler(3), nil, nil),
	}
	service := app.NewExamService(sessions, store, store, variants, nil, app.ExamOptions{NewTicker: idleTickers}, nil, nil)
	return examFixture{service: service, store: store, sessions: sessions}
}

func TestExamServiceInsufficientQuestionsCreatesNoSession(t *testing.T) {
	f := newExamFixture(t, 9)
	notices, cancel := f.service.Notices("u1")
	defer cancel()

	_, err := f.service.Open(context.Background(), "u1", app.VariantBank, domain.QuestionFilter{})
	require.ErrorIs(t, err, domain.ErrInsufficientQuestions)
	assert.Equal(t, 0, f.sessions.Len())

	select {
	case n := <-notices:
		assert.Equal(t, domain.NoticeError, n.Level)
	case <-time.After(time.Second):
		t.Fatal("expected a notice")
	}
}

func TestExamServiceBankFlowAwardsPoints(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 10)

	snap, err := f.service.Open(ctx, "u1", app.VariantBank, domain.QuestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, domain.ExamNotStarted, snap.State)
	assert.True(t, snap.Pausable)

	_, err = f.service.Start(ctx, "u1")
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		_, err = f.service.Answer(ctx, "u1", 0)
		require.NoError(t, err)
		_, _ = f.service.Next(ctx, "u1")
	}

	res, err := f.service.Finish(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 80, res.Score)
	assert.True(t, res.Passed)
	assert.NotEmpty(t, res.ID)

	student, _ := f.store.StudentByUserID(ctx, "u1")
	assert.Equal(t, 40, student.Points)

	history, err := f.service.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.ID, history[0].ID)
}

func TestExamServiceRefusesOpenWhileActive(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 10)

	_, err := f.service.Open(ctx, "u1", app.VariantBank, domain.QuestionFilter{})
	require.NoError(t, err)
	_, err = f.service.Start(ctx, "u1")
	require.NoError(t, err)

	_, err = f.service.Open(ctx, "u1", app.VariantBank, domain.QuestionFilter{Category: "legislacao"})
	assert.ErrorIs(t, err, domain.ErrSessionActive)

	_, err = f.service.TogglePause(ctx, "u1")
	require.NoError(t, err)
	_, err = f.service.Open(ctx, "u1", app.VariantFixed, domain.QuestionFilter{})
	assert.ErrorIs(t, err, domain.ErrSessionActive)

	_, err = f.service.Finish(ctx, "u1")
	require.NoError(t, err)
	snap, err := f.service.Open(ctx, "u1", app.VariantFixed, domain.QuestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, app.VariantFixed, snap.Variant)
}

func TestExamServiceFixedQuizWithoutEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 10)

	snap, err := f.service.Open(ctx, "visitor", app.VariantFixed, domain.QuestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Total)
	assert.False(t, snap.Pausable)

	_, err = f.service.Open(ctx, "visitor", app.VariantBank, domain.QuestionFilter{})
	assert.ErrorIs(t, err, domain.ErrNotEnrolled)

	_, err = f.service.History(ctx, "visitor")
	assert.ErrorIs(t, err, domain.ErrNotEnrolled)
}

func TestExamServiceUnknownVariantAndMissingSession(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 10)

	_, err := f.service.Open(ctx, "u1", "oral", domain.QuestionFilter{})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant)

	_, err = f.service.Start(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.service.Finish(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestExamServiceSubscribeAndClose(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 10)

	_, err := f.service.Open(ctx, "u1", app.VariantFixed, domain.QuestionFilter{})
	require.NoError(t, err)
	updates, cancel, err := f.service.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer cancel()
	<-updates

	_, _ = f.service.Start(ctx, "u1")
	snap := <-updates
	assert.Equal(t, domain.ExamRunning, snap.State)

	f.service.Close(ctx, "u1")
	_, ok := <-updates
	assert.False(t, ok)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestExamServiceResetNotifiesWhenBankShrinks(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 10)
	notices, cancel := f.service.Notices("u1")
	defer cancel()

	_, err := f.service.Open(ctx, "u1", app.VariantBank, domain.QuestionFilter{})
	require.NoError(t, err)
	q, _ := f.store.Question("q05")
	q.Active = false
	f.store.PutQuestion(q)

	snap, err := f.service.Reset(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrInsufficientQuestions)
	assert.Equal(t, 0, snap.Total)
	n := <-notices
	assert.Equal(t, domain.NoticeError, n.Level)
}

func TestExamServicePointsAccumulateAcrossResets(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 10)

	_, err := f.service.Open(ctx, "u1", app.VariantBank, domain.QuestionFilter{})
	require.NoError(t, err)

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			_, err = f.service.Reset(ctx, "u1")
			require.NoError(t, err)
		}
		_, err = f.service.Start(ctx, "u1")
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			_, err = f.service.Answer(ctx, "u1", 0)
			require.NoError(t, err)
			_, _ = f.service.Next(ctx, "u1")
		}
		res, err := f.service.Finish(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, 100, res.Score)
	}

	student, err := f.store.StudentByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10+50+50, student.Points)

	history, err := f.service.History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
