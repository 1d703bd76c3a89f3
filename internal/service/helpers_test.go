package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"testing"

	"coursepay/internal/client"
	"coursepay/internal/eventbus"
	"coursepay/internal/model"
	"coursepay/internal/provider"
	"coursepay/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Payment{},
		&model.Enrollment{},
		&model.LessonProgress{},
		&model.WebhookEvent{},
	))

	return db
}

type fakeCatalog struct {
	courses map[string]*client.Course
	lessons map[string]int
}

func (f *fakeCatalog) GetCourse(ctx context.Context, courseID string) (*client.Course, error) {
	course, ok := f.courses[courseID]
	if !ok {
		return nil, client.ErrCourseNotFound
	}
	return course, nil
}

func (f *fakeCatalog) CountLessons(ctx context.Context, courseID string) (int, error) {
	count, ok := f.lessons[courseID]
	if !ok {
		return 0, client.ErrCourseNotFound
	}
	return count, nil
}

// fakeProvider is a scriptable payment provider adapter.
type fakeProvider struct {
	name          string
	refKind       model.RefKind
	nextRef       string
	confirmStatus string
	confirmErr    error
	initiated     int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Initiate(ctx context.Context, req provider.InitiateRequest) (*provider.InitiateResult, error) {
	f.initiated++
	return &provider.InitiateResult{
		Ref:          model.Reference{Kind: f.refKind, ID: f.nextRef},
		ClientSecret: f.nextRef + "_secret",
	}, nil
}

func (f *fakeProvider) Confirm(ctx context.Context, externalID string) (*provider.ConfirmResult, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &provider.ConfirmResult{
		Completed: f.confirmStatus == provider.WalletOrderCompleted,
		Status:    f.confirmStatus,
		Raw:       json.RawMessage(`{}`),
	}, nil
}

// pipeline bundles a fully wired payment stack over a test database.
type pipeline struct {
	db          *gorm.DB
	bus         *eventbus.Bus
	payments    repository.PaymentRepository
	enrollments repository.EnrollmentRepository
	payment     PaymentService
	fulfillment FulfillmentService
}

func newPipeline(t *testing.T, catalog client.CatalogClient, providers ...provider.Provider) *pipeline {
	t.Helper()

	db := newTestDB(t)
	bus := eventbus.New()
	paymentRepo := repository.NewPaymentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	fulfillment := NewFulfillmentService(catalog, enrollmentRepo)
	Subscribe(bus, fulfillment)

	payment := NewPaymentService(
		catalog,
		provider.NewRegistry(providers...),
		bus,
		paymentRepo,
		enrollmentRepo,
		webhookEventRepo,
		20,
		testWebhookSecret,
	)

	return &pipeline{
		db:          db,
		bus:         bus,
		payments:    paymentRepo,
		enrollments: enrollmentRepo,
		payment:     payment,
		fulfillment: fulfillment,
	}
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func cardEvent(eventID, eventType, intentID string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{"id": intentID},
		},
	})
	return body
}

func countEnrollments(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.Enrollment{}).Count(&count).Error)
	return count
}
