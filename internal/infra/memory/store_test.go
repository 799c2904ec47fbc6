package memory

import (
	"context"
	"testing"
	"time"

	"autoescola-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreQuestionFilter(t *testing.T) {
	store := NewStore()
	store.PutQuestion(sampleQuestion("q1"))
	inactive := sampleQuestion("q2")
	inactive.Active = false
	store.PutQuestion(inactive)
	moto := sampleQuestion("q3")
	moto.Licenses = []string{"A"}
	store.PutQuestion(moto)

	qs, err := store.ListQuestions(context.Background(), domain.QuestionFilter{License: "B"})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "q1", qs[0].ID)
}

func TestStoreAttemptsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.CreateAttempt(ctx, domain.Result{
			StudentID: "s1",
			Type:      domain.AttemptTypeSimulado,
			Score:     i * 10,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, _ = store.CreateAttempt(ctx, domain.Result{StudentID: "s2", Type: domain.AttemptTypeSimulado})

	got, err := store.ListAttempts(ctx, domain.AttemptFilter{StudentID: "s1", Type: domain.AttemptTypeSimulado, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 20, got[0].Score)
	assert.Equal(t, 10, got[1].Score)
}

func TestStoreStudentPoints(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	st := store.PutStudent(domain.Student{UserID: "u1", Name: "Ana", Category: "B"})

	require.NoError(t, store.UpdateStudentPoints(ctx, st.ID, 40))
	got, err := store.StudentByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Points)

	_, err = store.StudentByUserID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateStudentPoints(ctx, "missing", 1), domain.ErrNotFound)
}

func TestStoreLessonWindow(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	_, _ = store.CreateLesson(ctx, domain.Lesson{InstructorID: "i1", ScheduledAt: day.Add(9 * time.Hour), Status: domain.LessonScheduled})
	_, _ = store.CreateLesson(ctx, domain.Lesson{InstructorID: "i1", ScheduledAt: day.Add(10 * time.Hour), Status: domain.LessonCancelled})
	_, _ = store.CreateLesson(ctx, domain.Lesson{InstructorID: "i1", ScheduledAt: day.Add(33 * time.Hour), Status: domain.LessonScheduled})

	got, err := store.ListLessons(ctx, domain.LessonFilter{
		InstructorID: "i1",
		Statuses:     []string{domain.LessonScheduled, domain.LessonConfirmed},
		From:         day,
		To:           day.Add(24*time.Hour - time.Nanosecond),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].ScheduledAt.Hour())
}

func TestStoreUserByEmailIgnoresCase(t *testing.T) {
	store := NewStore()
	u := store.PutUser(domain.User{Email: "Ana@Example.com", Name: "Ana"})

	got, err := store.UserByEmail(context.Background(), " ana@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRevocationListExpires(t *testing.T) {
	list := NewRevocationList()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	list.clock = func() time.Time { return now }

	require.NoError(t, list.Revoke(context.Background(), "t1", time.Minute))
	revoked, _ := list.IsRevoked(context.Background(), "t1")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = list.IsRevoked(context.Background(), "t1")
	assert.False(t, revoked)
}
