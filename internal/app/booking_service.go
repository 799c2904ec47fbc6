package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"autoescola-portal/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	bookingWindowDays     = 30
	theoryLessonMinutes   = 60
	practiceLessonMinutes = 50
)

// BookingRequest is a student's request for one lesson.
type BookingRequest struct {
	InstructorID string `json:"instructorId" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required,datetime=15:04"`
	Type         string `json:"type" validate:"required,oneof=theory practice"`
	VehicleID    string `json:"vehicleId"`
}

// BookingOptions is what the booking form offers to a student.
type BookingOptions struct {
	Student     domain.Student      `json:"student"`
	Instructors []domain.Instructor `json:"instructors"`
	Vehicles    []domain.Vehicle    `json:"vehicles"`
	MaxDate     string              `json:"maxDate"`
}

type BookingService struct {
	students      StudentStore
	instructors   InstructorStore
	vehicles      VehicleStore
	lessons       LessonStore
	notifications NotificationStore
	mailer        Mailer
	validate      *validator.Validate
	loc           *time.Location
	clock         func() time.Time
	log           *logrus.Entry
	metrics       *metrics.Metrics
}

// BookingDeps groups the collaborators of BookingService.
type BookingDeps struct {
	Students      StudentStore
	Instructors   InstructorStore
	Vehicles      VehicleStore
	Lessons       LessonStore
	Notifications NotificationStore
	Mailer        Mailer
	Validate      *validator.Validate
	Location      *time.Location
	Clock         func() time.Time
	Log           *logrus.Entry
	Metrics       *metrics.Metrics
}

func NewBookingService(deps BookingDeps) *BookingService {
	if deps.Validate == nil {
		deps.Validate = validator.New()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	return &BookingService{
		students:      deps.Students,
		instructors:   deps.Instructors,
		vehicles:      deps.Vehicles,
		lessons:       deps.Lessons,
		notifications: deps.Notifications,
		mailer:        deps.Mailer,
		validate:      deps.Validate,
		loc:           deps.Location,
		clock:         deps.Clock,
		log:           deps.Log,
		metrics:       deps.Metrics,
	}
}

// Options lists active instructors and usable vehicles for the student's license category.
func (s *BookingService) Options(ctx context.Context, userID string) (BookingOptions, error) {
	student, err := s.student(ctx, userID)
	if err != nil {
		return BookingOptions{}, err
	}
	instructors, err := s.instructors.ListInstructors(ctx, domain.InstructorFilter{
		Category: student.Category,
		Status:   domain.InstructorActive,
	})
	if err != nil {
		return BookingOptions{}, fmt.Errorf("list instructors: %w", err)
	}
	vehicles, err := s.vehicles.ListVehicles(ctx, domain.VehicleFilter{
		Category: student.Category,
		Statuses: []string{domain.VehicleAvailable, domain.VehicleInUse},
	})
	if err != nil {
		return BookingOptions{}, fmt.Errorf("list vehicles: %w", err)
	}
	return BookingOptions{
		Student:     student,
		Instructors: instructors,
		Vehicles:    vehicles,
		MaxDate:     s.today().AddDate(0, 0, bookingWindowDays).Format("2006-01-02"),
	}, nil
}

// AvailableSlots derives the instructor's free hour slots on date.
func (s *BookingService) AvailableSlots(ctx context.Context, instructorID string, date time.Time) ([]string, error) {
	instructor, err := s.instructors.GetInstructor(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("get instructor: %w", err)
	}
	date = date.In(s.loc)
	from, to := dayBounds(date)
	lessons, err := s.lessons.ListLessons(ctx, domain.LessonFilter{
		InstructorID: instructorID,
		Statuses:     []string{domain.LessonScheduled, domain.LessonConfirmed},
		From:         from,
		To:           to,
	})
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	booked := make([]time.Time, len(lessons))
	for i, l := range lessons {
		booked[i] = l.ScheduledAt
	}
	return DeriveSlots(instructor.Schedule, date, booked), nil
}

// Book creates a lesson in a free slot, then notifies the student in-app and by e-mail.
func (s *BookingService) Book(ctx context.Context, userID string, req BookingRequest) (domain.Lesson, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.Lesson{}, err
	}
	if req.Type == domain.LessonPractice && req.VehicleID == "" {
		return domain.Lesson{}, domain.ErrVehicleRequired
	}
	student, err := s.student(ctx, userID)
	if err != nil {
		return domain.Lesson{}, err
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
	if err != nil {
		return domain.Lesson{}, err
	}
	today := s.today()
	if date.Before(today) || date.After(today.AddDate(0, 0, bookingWindowDays)) {
		return domain.Lesson{}, domain.ErrDateOutOfRange
	}

	slots, err := s.AvailableSlots(ctx, req.InstructorID, date)
	if err != nil {
		return domain.Lesson{}, err
	}
	if !contains(slots, req.Time) {
		return domain.Lesson{}, domain.ErrSlotUnavailable
	}
	clock, _ := time.Parse("15:04", req.Time)
	y, m, d := date.Date()
	at := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, s.loc)

	lesson := domain.Lesson{
		StudentID:       student.ID,
		InstructorID:    req.InstructorID,
		Type:            req.Type,
		ScheduledAt:     at,
		DurationMinutes: theoryLessonMinutes,
		Status:          domain.LessonScheduled,
		CreatedAt:       s.clock(),
	}
	if req.Type == domain.LessonPractice {
		lesson.DurationMinutes = practiceLessonMinutes
		lesson.VehicleID = req.VehicleID
	}
	id, err := s.lessons.CreateLesson(ctx, lesson)
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("create lesson: %w", err)
	}
	lesson.ID = id
	s.metrics.LessonBooked()

	message := fmt.Sprintf("Your %s lesson was booked for %s at %s", req.Type, at.Format("02/01/2006"), req.Time)
	entry := s.log.WithFields(logrus.Fields{"user_id": userID, "lesson_id": id})
	if _, err := s.notifications.CreateNotification(ctx, domain.Notification{
		UserID:    userID,
		Title:     "Lesson booked",
		Message:   message,
		Type:      "lesson",
		Priority:  "normal",
		Status:    domain.NotificationPending,
		Channels:  []string{"app", "email"},
		CreatedAt: s.clock(),
	}); err != nil {
		entry.WithError(err).Warn("lesson notification not saved")
	}
	if student.Email != "" && s.mailer != nil {
		if err := s.mailer.Send(ctx, domain.Email{
			To:      student.Email,
			ToName:  student.Name,
			Subject: "Lesson booked",
			Text:    message,
		}); err != nil {
			entry.WithError(err).Warn("lesson e-mail not sent")
		}
	}
	return lesson, nil
}

func (s *BookingService) student(ctx context.Context, userID string) (domain.Student, error) {
	student, err := s.students.StudentByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Student{}, domain.ErrNotEnrolled
	}
	return student, err
}

func (s *BookingService) today() time.Time {
	start, _ := dayBounds(s.clock().In(s.loc))
	return start
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
