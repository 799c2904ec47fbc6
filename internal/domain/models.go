package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ExamBudget is the countdown every exam session starts with.
	ExamBudget = 30 * time.Minute
	// PassThreshold is the minimum score (percent) that passes an exam.
	PassThreshold = 70
	// MinBankQuestions is the smallest filtered pool a bank exam may start from.
	MinBankQuestions = 10
	// MaxBankQuestions caps how many sampled questions a bank exam uses.
	MaxBankQuestions = 30
	// PointsBaseline is subtracted from a score to compute the gamification award.
	PointsBaseline = 50

	// Unanswered marks an answer slot with no selected option.
	Unanswered = -1

	// AttemptTypeSimulado tags practice-exam attempt records.
	AttemptTypeSimulado = "simulado"
)

// QuestionStats are the running answer counters of a bank question.
type QuestionStats struct {
	TotalAnswers   int     `json:"totalAnswers"`
	CorrectAnswers int     `json:"correctAnswers"`
	SuccessRate    float64 `json:"successRate"`
}

// Record returns the statistics after one more answer.
func (s QuestionStats) Record(correct bool) QuestionStats {
	next := QuestionStats{
		TotalAnswers:   s.TotalAnswers + 1,
		CorrectAnswers: s.CorrectAnswers,
	}
	if correct {
		next.CorrectAnswers++
	}
	next.SuccessRate = float64(next.CorrectAnswers) / float64(next.TotalAnswers) * 100
	return next
}

// Question models a multiple-choice item with exactly one correct option.
type Question struct {
	ID          string        `json:"id" yaml:"id"`
	Prompt      string        `json:"question" yaml:"question"`
	Options     []string      `json:"options" yaml:"options"`
	Correct     int           `json:"correct" yaml:"correct"`
	Explanation string        `json:"explanation" yaml:"explanation"`
	Category    string        `json:"category" yaml:"category"`
	Subcategory string        `json:"subcategory,omitempty" yaml:"subcategory"`
	Difficulty  string        `json:"difficulty,omitempty" yaml:"difficulty"`
	Licenses    []string      `json:"license,omitempty" yaml:"license"`
	Image       string        `json:"image,omitempty" yaml:"image"`
	Active      bool          `json:"active" yaml:"active"`
	Stats       QuestionStats `json:"statistics" yaml:"-"`
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if q.ID == "" {
		return ErrInvalidQuestion
	}
	if len(q.Options) < 2 {
		return ErrInvalidQuestion
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ErrInvalidQuestion
	}
	return nil
}

// HasLicense reports whether the question applies to the given license category.
func (q Question) HasLicense(license string) bool {
	for _, l := range q.Licenses {
		if l == license {
			return true
		}
	}
	return false
}

// QuestionFilter narrows the question bank. Empty Category/Difficulty mean "any".
type QuestionFilter struct {
	License    string `json:"license"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	// Limit of zero means no limit.
	Limit int `json:"limit,omitempty"`
}

// Matches applies the filter to an in-memory question. Only active questions match.
func (f QuestionFilter) Matches(q Question) bool {
	if !q.Active {
		return false
	}
	if f.License != "" && !q.HasLicense(f.License) {
		return false
	}
	if f.Category != "" && q.Category != f.Category {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	return true
}

// Result is the scored summary of a finished exam session and its persisted attempt record.
type Result struct {
	ID              string    `json:"id,omitempty"`
	StudentID       string    `json:"studentId,omitempty"`
	Type            string    `json:"type"`
	License         string    `json:"category,omitempty"`
	QuestionIDs     []string  `json:"questions"`
	Answers         []int     `json:"answers"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectAnswers  int       `json:"correctAnswers"`
	Score           int       `json:"score"`
	Passed          bool      `json:"passed"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"startTime"`
	EndedAt         time.Time `json:"endTime"`
	ElapsedSeconds  int       `json:"elapsedSeconds"`
	DurationMinutes int       `json:"duration"`
	CreatedAt       time.Time `json:"createdAt"`
}

const (
	ResultApproved = "approved"
	ResultFailed   = "failed"
)

// AttemptFilter selects attempt records for history views.
type AttemptFilter struct {
	StudentID string
	Type      string
	Limit     int
}

// Student is the participant profile consumed by the portal.
type Student struct {
	ID                  string   `json:"id"`
	UserID              string   `json:"userId"`
	Name                string   `json:"name"`
	Category            string   `json:"category"`
	Status              string   `json:"status"`
	TheoreticalHours    int      `json:"theoreticalHours"`
	PracticalHours      int      `json:"practicalHours"`
	TheoreticalRequired int      `json:"theoreticalRequired"`
	PracticalRequired   int      `json:"practicalRequired"`
	Points              int      `json:"points"`
	Badges              []string `json:"badges,omitempty"`
	Email               string   `json:"email,omitempty"`
}

// User is an authenticatable account.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash []byte `json:"-"`
}

// Instructor teaches one or more license categories on a weekly schedule.
type Instructor struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Rating     float64  `json:"rating"`
	Avatar     string   `json:"avatar,omitempty"`
	Status     string   `json:"status"`
	// Schedule maps lowercase English weekday names to "HH:MM-HH:MM" ranges.
	Schedule map[string][]string `json:"schedule"`
}

const InstructorActive = "active"

// InstructorFilter selects instructors for the booking form.
type InstructorFilter struct {
	Category string
	Status   string
}

// Vehicle is a school car or motorcycle.
type Vehicle struct {
	ID       string `json:"id"`
	Model    string `json:"model"`
	Brand    string `json:"brand"`
	Plate    string `json:"plate,omitempty"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

const (
	VehicleAvailable   = "available"
	VehicleInUse       = "in_use"
	VehicleMaintenance = "maintenance"
)

// VehicleFilter selects vehicles by category and status set.
type VehicleFilter struct {
	Category string
	Statuses []string
}

// Lesson is a booked theory or practice class.
type Lesson struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"studentId"`
	InstructorID    string    `json:"instructorId"`
	Type            string    `json:"type"`
	ScheduledAt     time.Time `json:"scheduledDate"`
	DurationMinutes int       `json:"duration"`
	Status          string    `json:"status"`
	VehicleID       string    `json:"vehicle,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

const (
	LessonTheory   = "theory"
	LessonPractice = "practice"

	LessonScheduled = "scheduled"
	LessonConfirmed = "confirmed"
	LessonCompleted = "completed"
	LessonCancelled = "cancelled"
)

// LessonFilter selects lessons. Zero values are ignored; From/To bound ScheduledAt inclusively.
type LessonFilter struct {
	StudentID    string
	InstructorID string
	Statuses     []string
	From         time.Time
	To           time.Time
	Limit        int
}

// Notification is a persisted message to a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Channels  []string  `json:"channels"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationRead    = "read"
)

// NotificationFilter selects notifications, newest first.
type NotificationFilter struct {
	UserID   string
	Statuses []string
	Limit    int
}

// Payment is one installment or fee owed by a student.
type Payment struct {
	ID                string          `json:"id"`
	StudentID         string          `json:"studentId"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method,omitempty"`
	Status            string          `json:"status"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Installments      int             `json:"installments"`
	InstallmentNumber int             `json:"installmentNumber"`
	DueDate           time.Time       `json:"dueDate"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	Receipt           string          `json:"receipt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentApproved   = "approved"
	PaymentRefused    = "refused"
	PaymentRefunded   = "refunded"
	PaymentCancelled  = "cancelled"
)

// Email is an outbound message handed to a mailer.
type Email struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Text    string
}

// Notice is a transient, user-facing message (a toast in the portal UI).
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)
