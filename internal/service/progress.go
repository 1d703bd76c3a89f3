package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"coursepay/internal/client"
	"coursepay/internal/dto"
	"coursepay/internal/model"
	"coursepay/internal/repository"
)

// ProgressService records per-lesson watch progress and keeps the
// enrollment's aggregate percentage derived from it.
type ProgressService interface {
	UpdateLessonProgress(ctx context.Context, enrollmentID, buyerID string, req *dto.LessonProgressRequest) (*model.Enrollment, error)
}

type progressServiceImpl struct {
	catalog        client.CatalogClient
	enrollmentRepo repository.EnrollmentRepository
}

func NewProgressService(
	catalog client.CatalogClient,
	enrollmentRepo repository.EnrollmentRepository,
) ProgressService {
	return &progressServiceImpl{
		catalog:        catalog,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *progressServiceImpl) UpdateLessonProgress(ctx context.Context, enrollmentID, buyerID string, req *dto.LessonProgressRequest) (*model.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.BuyerID != buyerID {
		// Someone else's enrollment looks the same as a missing one.
		return nil, repository.ErrEnrollmentNotFound
	}

	err = s.enrollmentRepo.UpsertLessonProgress(ctx, &model.LessonProgress{
		EnrollmentID:   enrollmentID,
		LessonID:       req.LessonID,
		WatchedSeconds: req.WatchedSeconds,
		TotalSeconds:   req.TotalSeconds,
		Completed:      req.Completed,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert lesson progress: %w", err)
	}

	// The denominator is the catalog's lesson count, not the number of
	// entries present: a buyer may not have touched every lesson yet.
	totalLessons, err := s.catalog.CountLessons(ctx, enrollment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}

	if totalLessons > 0 {
		completedCount, err := s.enrollmentRepo.CountCompletedLessons(ctx, enrollmentID)
		if err != nil {
			return nil, fmt.Errorf("count completed lessons: %w", err)
		}

		progress := int(math.Round(100 * float64(completedCount) / float64(totalLessons)))
		if progress > 100 {
			progress = 100
		}

		// Completion is sticky: once an enrollment is completed it
		// never reverts, even if a later edit drops the completed
		// count below 100%.
		var completedAt *time.Time
		if progress >= 100 && enrollment.Status == model.EnrollmentActive {
			now := time.Now()
			completedAt = &now
		}

		if err := s.enrollmentRepo.UpdateProgress(ctx, enrollmentID, progress, completedAt); err != nil {
			return nil, fmt.Errorf("update progress: %w", err)
		}
	}

	return s.enrollmentRepo.FindByID(ctx, enrollmentID)
}
