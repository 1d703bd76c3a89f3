package service

import (
	"context"
	"sync"
	"testing"

	"coursepay/internal/client"
	"coursepay/internal/eventbus"
	"coursepay/internal/model"
	"coursepay/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newFulfillment(t *testing.T) (FulfillmentService, repository.EnrollmentRepository, *gorm.DB) {
	t.Helper()

	catalog := &fakeCatalog{
		courses: map[string]*client.Course{
			"paid-course": {ID: "paid-course", InstructorID: "i1", Price: 1000, Currency: "INR"},
			"free-course": {ID: "free-course", InstructorID: "i1", Price: 0, Currency: "INR"},
		},
		lessons: map[string]int{"paid-course": 5, "free-course": 3},
	}
	db := newTestDB(t)
	repo := repository.NewEnrollmentRepository(db)
	return NewFulfillmentService(catalog, repo), repo, db
}

func TestFulfillmentIsIdempotent(t *testing.T) {
	fulfillment, repo, _ := newFulfillment(t)
	ctx := context.Background()

	event := eventbus.PaymentSucceeded{
		PaymentID: "pay-1", BuyerID: "b1", CourseID: "paid-course", Amount: 1000, Currency: "INR",
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, fulfillment.HandlePaymentSucceeded(ctx, event))
	}

	enrollment, err := repo.FindByBuyerCourse(ctx, "b1", "paid-course")
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
	require.NotNil(t, enrollment.PaymentID)
	assert.Equal(t, "pay-1", *enrollment.PaymentID)
}

func TestConcurrentFulfillmentCreatesSingleEnrollment(t *testing.T) {
	fulfillment, repo, db := newFulfillment(t)

	event := eventbus.PaymentSucceeded{
		PaymentID: "pay-race", BuyerID: "b1", CourseID: "paid-course", Amount: 1000, Currency: "INR",
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fulfillment.HandlePaymentSucceeded(context.Background(), event)
		}()
	}
	wg.Wait()

	_, err := repo.FindByBuyerCourse(context.Background(), "b1", "paid-course")
	require.NoError(t, err)

	// the unique index is the backstop: exactly one row survived
	var enrollments []model.Enrollment
	require.NoError(t, db.Where("buyer_id = ? AND course_id = ?", "b1", "paid-course").Find(&enrollments).Error)
	assert.Len(t, enrollments, 1)
}

func TestFulfillmentSwallowsBadPayload(t *testing.T) {
	fulfillment, _, _ := newFulfillment(t)

	assert.NoError(t, fulfillment.HandlePaymentSucceeded(context.Background(), "not-an-event"))
}

func TestEnrollFree(t *testing.T) {
	fulfillment, repo, _ := newFulfillment(t)
	ctx := context.Background()

	enrollment, err := fulfillment.EnrollFree(ctx, "b1", "free-course")
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
	assert.Nil(t, enrollment.PaymentID)

	stored, err := repo.FindByBuyerCourse(ctx, "b1", "free-course")
	require.NoError(t, err)
	assert.Equal(t, enrollment.ID, stored.ID)
}

func TestEnrollFreeRejectsPaidCourse(t *testing.T) {
	fulfillment, _, _ := newFulfillment(t)

	_, err := fulfillment.EnrollFree(context.Background(), "b1", "paid-course")
	assert.ErrorIs(t, err, ErrCourseNotFree)
}

func TestEnrollFreeDuplicateReported(t *testing.T) {
	fulfillment, _, _ := newFulfillment(t)
	ctx := context.Background()

	_, err := fulfillment.EnrollFree(ctx, "b1", "free-course")
	require.NoError(t, err)

	_, err = fulfillment.EnrollFree(ctx, "b1", "free-course")
	assert.ErrorIs(t, err, repository.ErrAlreadyEnrolled)
}

func TestEnrollFreeUnknownCourse(t *testing.T) {
	fulfillment, _, _ := newFulfillment(t)

	_, err := fulfillment.EnrollFree(context.Background(), "b1", "missing")
	assert.ErrorIs(t, err, client.ErrCourseNotFound)
}
