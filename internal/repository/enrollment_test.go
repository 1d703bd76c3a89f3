package repository

import (
	"context"
	"testing"
	"time"

	"coursepay/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnrollment(buyerID, courseID string) *model.Enrollment {
	return &model.Enrollment{
		ID:         uuid.NewString(),
		BuyerID:    buyerID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
}

func TestCreateEnrollmentUniquePerBuyerCourse(t *testing.T) {
	repo := NewEnrollmentRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newEnrollment("b1", "c1")))

	err := repo.Create(ctx, newEnrollment("b1", "c1"))
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	// different course or buyer is fine
	require.NoError(t, repo.Create(ctx, newEnrollment("b1", "c2")))
	require.NoError(t, repo.Create(ctx, newEnrollment("b2", "c1")))
}

func TestFindByBuyerCourse(t *testing.T) {
	repo := NewEnrollmentRepository(newTestDB(t))
	ctx := context.Background()

	created := newEnrollment("b1", "c1")
	require.NoError(t, repo.Create(ctx, created))

	found, err := repo.FindByBuyerCourse(ctx, "b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByBuyerCourse(ctx, "b1", "missing")
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)
}

func TestUpsertLessonProgressIsIdempotent(t *testing.T) {
	repo := NewEnrollmentRepository(newTestDB(t))
	ctx := context.Background()

	enrollment := newEnrollment("b1", "c1")
	require.NoError(t, repo.Create(ctx, enrollment))

	entry := &model.LessonProgress{
		EnrollmentID:   enrollment.ID,
		LessonID:       "lesson-1",
		WatchedSeconds: 120,
		TotalSeconds:   300,
		Completed:      false,
	}
	require.NoError(t, repo.UpsertLessonProgress(ctx, entry))
	require.NoError(t, repo.UpsertLessonProgress(ctx, &model.LessonProgress{
		EnrollmentID:   enrollment.ID,
		LessonID:       "lesson-1",
		WatchedSeconds: 120,
		TotalSeconds:   300,
		Completed:      false,
	}))

	loaded, err := repo.FindByID(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lessons, 1)
	assert.Equal(t, 120, loaded.Lessons[0].WatchedSeconds)
	assert.False(t, loaded.Lessons[0].Completed)
}

func TestUpsertLessonProgressUpdatesInPlace(t *testing.T) {
	repo := NewEnrollmentRepository(newTestDB(t))
	ctx := context.Background()

	enrollment := newEnrollment("b1", "c1")
	require.NoError(t, repo.Create(ctx, enrollment))

	require.NoError(t, repo.UpsertLessonProgress(ctx, &model.LessonProgress{
		EnrollmentID: enrollment.ID, LessonID: "lesson-1",
		WatchedSeconds: 60, TotalSeconds: 300, Completed: false,
	}))
	require.NoError(t, repo.UpsertLessonProgress(ctx, &model.LessonProgress{
		EnrollmentID: enrollment.ID, LessonID: "lesson-1",
		WatchedSeconds: 300, TotalSeconds: 300, Completed: true,
	}))

	loaded, err := repo.FindByID(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lessons, 1)
	assert.Equal(t, 300, loaded.Lessons[0].WatchedSeconds)
	assert.True(t, loaded.Lessons[0].Completed)

	count, err := repo.CountCompletedLessons(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateProgressCompletionStamp(t *testing.T) {
	repo := NewEnrollmentRepository(newTestDB(t))
	ctx := context.Background()

	enrollment := newEnrollment("b1", "c1")
	require.NoError(t, repo.Create(ctx, enrollment))

	now := time.Now()
	require.NoError(t, repo.UpdateProgress(ctx, enrollment.ID, 100, &now))

	loaded, err := repo.FindByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentCompleted, loaded.Status)
	assert.Equal(t, 100, loaded.Progress)
	require.NotNil(t, loaded.CompletedAt)
}
