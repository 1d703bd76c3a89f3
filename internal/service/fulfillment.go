package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/client"
	"coursepay/internal/eventbus"
	"coursepay/internal/model"
	"coursepay/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrCourseNotFree means the free-enrollment flow was asked to enroll
// a buyer into a priced course.
var ErrCourseNotFree = errors.New("course is not free")

// FulfillmentService grants course access after a payment settles. Its
// HandlePaymentSucceeded is the payment.succeeded subscriber and is the
// idempotency boundary of the whole pipeline: webhook delivery is
// at-least-once and the bus does not deduplicate, so the enrollment
// check-then-create plus the store-level unique index are what keep
// one payment from granting access twice.
type FulfillmentService interface {
	HandlePaymentSucceeded(ctx context.Context, payload any) error
	EnrollFree(ctx context.Context, buyerID, courseID string) (*model.Enrollment, error)
}

type fulfillmentServiceImpl struct {
	catalog        client.CatalogClient
	enrollmentRepo repository.EnrollmentRepository
}

func NewFulfillmentService(
	catalog client.CatalogClient,
	enrollmentRepo repository.EnrollmentRepository,
) FulfillmentService {
	return &fulfillmentServiceImpl{
		catalog:        catalog,
		enrollmentRepo: enrollmentRepo,
	}
}

// Subscribe registers the fulfillment handler on the bus.
func Subscribe(bus *eventbus.Bus, f FulfillmentService) *eventbus.Subscription {
	return bus.Subscribe(eventbus.TopicPaymentSucceeded, f.HandlePaymentSucceeded)
}

// HandlePaymentSucceeded never lets an error escape: the payment is
// already settled, and failing the webhook response would only trigger
// redelivery storms for something redelivery cannot fix. Gaps are an
// operational incident surfaced through the error log.
func (s *fulfillmentServiceImpl) HandlePaymentSucceeded(ctx context.Context, payload any) error {
	event, ok := payload.(eventbus.PaymentSucceeded)
	if !ok {
		log.Error().Interface("payload", payload).Msg("fulfillment: unexpected payload type")
		return nil
	}

	if err := s.fulfill(ctx, &event); err != nil {
		log.Error().
			Err(err).
			Str("payment_id", event.PaymentID).
			Str("buyer_id", event.BuyerID).
			Str("course_id", event.CourseID).
			Msg("fulfillment failed, enrollment gap needs reconciliation")
	}

	return nil
}

func (s *fulfillmentServiceImpl) fulfill(ctx context.Context, event *eventbus.PaymentSucceeded) error {
	_, err := s.enrollmentRepo.FindByBuyerCourse(ctx, event.BuyerID, event.CourseID)
	if err == nil {
		// Already enrolled; duplicate delivery is a no-op.
		return nil
	}
	if !errors.Is(err, repository.ErrEnrollmentNotFound) {
		return fmt.Errorf("check existing enrollment: %w", err)
	}

	paymentID := event.PaymentID
	err = s.enrollmentRepo.Create(ctx, &model.Enrollment{
		ID:         uuid.NewString(),
		BuyerID:    event.BuyerID,
		CourseID:   event.CourseID,
		PaymentID:  &paymentID,
		Status:     model.EnrollmentActive,
		Progress:   0,
		EnrolledAt: time.Now(),
	})
	// A concurrent delivery can win the race between the check and the
	// insert; the unique index turns that into already-enrolled.
	if errors.Is(err, repository.ErrAlreadyEnrolled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	log.Info().
		Str("payment_id", event.PaymentID).
		Str("buyer_id", event.BuyerID).
		Str("course_id", event.CourseID).
		Msg("enrollment created")

	return nil
}

// EnrollFree grants access to a zero-priced course with no payment
// attached. Duplicates are reported to the caller, unlike on the
// fulfillment path.
func (s *fulfillmentServiceImpl) EnrollFree(ctx context.Context, buyerID, courseID string) (*model.Enrollment, error) {
	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course.Price > 0 {
		return nil, ErrCourseNotFree
	}

	enrollment := &model.Enrollment{
		ID:         uuid.NewString(),
		BuyerID:    buyerID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		Progress:   0,
		EnrolledAt: time.Now(),
	}
	if err := s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		return nil, err
	}

	return enrollment, nil
}
