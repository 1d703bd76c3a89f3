package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Enrollment is the access grant for one buyer on one course. It is
// created exactly once per (buyer, course) pair; the composite unique
// index is the store-level backstop for that invariant.
type Enrollment struct {
	ID       string `gorm:"primaryKey;size:64;not null"`
	BuyerID  string `gorm:"size:64;not null;uniqueIndex:ux_enrollments_buyer_course,priority:1"`
	CourseID string `gorm:"size:64;not null;uniqueIndex:ux_enrollments_buyer_course,priority:2"`

	// Nil for free-course enrollments.
	PaymentID *string `gorm:"size:64;index"`

	Status   EnrollmentStatus `gorm:"size:16;not null"`
	Progress int              `gorm:"not null"` // 0-100, derived

	EnrolledAt  time.Time
	CompletedAt *time.Time

	Lessons []LessonProgress `gorm:"foreignKey:EnrollmentID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LessonProgress is one per-lesson watch record inside an enrollment.
// At most one row exists per (enrollment, lesson).
type LessonProgress struct {
	ID           uint   `gorm:"primaryKey"`
	EnrollmentID string `gorm:"size:64;not null;uniqueIndex:ux_lesson_progress_enrollment_lesson,priority:1"`
	LessonID     string `gorm:"size:64;not null;uniqueIndex:ux_lesson_progress_enrollment_lesson,priority:2"`

	WatchedSeconds int  `gorm:"not null"`
	TotalSeconds   int  `gorm:"not null"`
	Completed      bool `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
