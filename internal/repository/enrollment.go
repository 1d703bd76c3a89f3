package repository

import (
	"context"
	"errors"
	"time"

	"coursepay/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyEnrolled means an enrollment already exists for the
// (buyer, course) pair. Callers on the fulfillment path treat it as
// success, not as a failure.
var ErrAlreadyEnrolled = errors.New("buyer already enrolled in course")

var ErrEnrollmentNotFound = errors.New("enrollment not found")

type EnrollmentRepository interface {
	// Create inserts a new enrollment. The (buyer_id, course_id)
	// unique index is the final backstop against a concurrent
	// duplicate; a violation surfaces as ErrAlreadyEnrolled.
	Create(ctx context.Context, enrollment *model.Enrollment) error
	FindByID(ctx context.Context, enrollmentID string) (*model.Enrollment, error)
	FindByBuyerCourse(ctx context.Context, buyerID, courseID string) (*model.Enrollment, error)
	UpsertLessonProgress(ctx context.Context, entry *model.LessonProgress) error
	CountCompletedLessons(ctx context.Context, enrollmentID string) (int, error)
	// UpdateProgress persists a recomputed aggregate. A non-nil
	// completedAt also flips status to completed; that flip is
	// one-directional.
	UpdateProgress(ctx context.Context, enrollmentID string, progress int, completedAt *time.Time) error
}

type enrollmentRepoImpl struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepoImpl{db: db}
}

func (r *enrollmentRepoImpl) Create(ctx context.Context, enrollment *model.Enrollment) error {
	err := r.db.WithContext(ctx).Create(enrollment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyEnrolled
	}
	return err
}

func (r *enrollmentRepoImpl) FindByID(ctx context.Context, enrollmentID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Lessons").
		Where("id = ?", enrollmentID).
		First(&enrollment).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &enrollment, nil
}

func (r *enrollmentRepoImpl) FindByBuyerCourse(ctx context.Context, buyerID, courseID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND course_id = ?", buyerID, courseID).
		First(&enrollment).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &enrollment, nil
}

func (r *enrollmentRepoImpl) UpsertLessonProgress(ctx context.Context, entry *model.LessonProgress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "enrollment_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"watched_seconds": entry.WatchedSeconds,
			"total_seconds":   entry.TotalSeconds,
			"completed":       entry.Completed,
			"updated_at":      time.Now(),
		}),
	}).Create(entry).Error
}

func (r *enrollmentRepoImpl) CountCompletedLessons(ctx context.Context, enrollmentID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("enrollment_id = ? AND completed = ?", enrollmentID, true).
		Count(&count).Error

	return int(count), err
}

func (r *enrollmentRepoImpl) UpdateProgress(ctx context.Context, enrollmentID string, progress int, completedAt *time.Time) error {
	updates := map[string]interface{}{
		"progress":   progress,
		"updated_at": time.Now(),
	}
	if completedAt != nil {
		updates["status"] = model.EnrollmentCompleted
		updates["completed_at"] = *completedAt
	}

	return r.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", enrollmentID).
		Updates(updates).Error
}
