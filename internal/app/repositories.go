package app

import (
	"context"
	"io"

	"autoescola-portal/internal/domain"
)

// QuestionBank is the remote question store the bank exam samples from.
type QuestionBank interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	UpdateQuestionStats(ctx context.Context, questionID string, stats domain.QuestionStats) error
}

// AttemptStore persists finished exam attempts.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, result domain.Result) (string, error)
	ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Result, error)
}

// StudentStore reads student profiles and writes their point balance.
type StudentStore interface {
	StudentByUserID(ctx context.Context, userID string) (domain.Student, error)
	UpdateStudentPoints(ctx context.Context, studentID string, points int) error
}

// InstructorStore lists instructors for booking.
type InstructorStore interface {
	ListInstructors(ctx context.Context, filter domain.InstructorFilter) ([]domain.Instructor, error)
	GetInstructor(ctx context.Context, id string) (domain.Instructor, error)
}

// VehicleStore lists school vehicles.
type VehicleStore interface {
	ListVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error)
}

// LessonStore lists and creates lessons.
type LessonStore interface {
	ListLessons(ctx context.Context, filter domain.LessonFilter) ([]domain.Lesson, error)
	CreateLesson(ctx context.Context, lesson domain.Lesson) (string, error)
}

// NotificationStore lists and creates persisted notifications.
type NotificationStore interface {
	ListNotifications(ctx context.Context, filter domain.NotificationFilter) ([]domain.Notification, error)
	CreateNotification(ctx context.Context, n domain.Notification) (string, error)
}

// PaymentStore reads and updates student payments.
type PaymentStore interface {
	ListPayments(ctx context.Context, studentID string) ([]domain.Payment, error)
	GetPayment(ctx context.Context, id string) (domain.Payment, error)
	UpdatePayment(ctx context.Context, payment domain.Payment) error
}

// Mailer delivers outbound e-mail.
type Mailer interface {
	Send(ctx context.Context, msg domain.Email) error
}

// ReceiptStore keeps rendered payment receipts and returns their public URL.
type ReceiptStore interface {
	UploadReceipt(ctx context.Context, name string, body io.Reader) (string, error)
}
