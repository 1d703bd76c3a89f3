package dto

import "time"

type InitiateRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Provider string `json:"provider" validate:"required"`
}

type InitiateResponse struct {
	PaymentID    string `json:"payment_id"`
	ExternalID   string `json:"external_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	ApproveURL   string `json:"approve_url,omitempty"`
}

type CaptureResponse struct {
	Success      bool   `json:"success"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}

type FreeEnrollRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

type EnrollmentResponse struct {
	EnrollmentID string     `json:"enrollment_id"`
	CourseID     string     `json:"course_id"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	EnrolledAt   time.Time  `json:"enrolled_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type LessonProgressRequest struct {
	LessonID       string `json:"lesson_id" validate:"required"`
	WatchedSeconds int    `json:"watched_seconds" validate:"gte=0"`
	TotalSeconds   int    `json:"total_seconds" validate:"gt=0"`
	Completed      bool   `json:"completed"`
}

type PurchaseItem struct {
	PaymentID string    `json:"payment_id"`
	CourseID  string    `json:"course_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type EarningItem struct {
	PaymentID   string    `json:"payment_id"`
	CourseID    string    `json:"course_id"`
	Amount      int64     `json:"amount"`
	Fee         int64     `json:"fee"`
	PayeeAmount int64     `json:"payee_amount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

type PagedResponse[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
