package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"autoescola-portal/internal/domain"
)

const (
	dashboardLessons       = 5
	dashboardNotifications = 5
)

// Progress is a student's course completion in percent.
type Progress struct {
	Theoretical int `json:"theoretical"`
	Practical   int `json:"practical"`
	Overall     int `json:"overall"`
}

// Dashboard is the landing page of a signed-in student.
type Dashboard struct {
	Student       domain.Student        `json:"student"`
	Progress      Progress              `json:"progress"`
	Upcoming      []domain.Lesson       `json:"upcomingLessons"`
	Notifications []domain.Notification `json:"notifications"`
	Points        int                   `json:"points"`
	Badges        []string              `json:"badges"`
}

type DashboardService struct {
	students      StudentStore
	lessons       LessonStore
	notifications NotificationStore
	clock         func() time.Time
}

func NewDashboardService(students StudentStore, lessons LessonStore, notifications NotificationStore, clock func() time.Time) *DashboardService {
	if clock == nil {
		clock = time.Now
	}
	return &DashboardService{students: students, lessons: lessons, notifications: notifications, clock: clock}
}

func (s *DashboardService) Overview(ctx context.Context, userID string) (Dashboard, error) {
	student, err := s.students.StudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Dashboard{}, domain.ErrNotEnrolled
		}
		return Dashboard{}, err
	}

	lessons, err := s.lessons.ListLessons(ctx, domain.LessonFilter{
		StudentID: student.ID,
		Statuses:  []string{domain.LessonScheduled, domain.LessonConfirmed},
		From:      s.clock(),
		Limit:     dashboardLessons,
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list lessons: %w", err)
	}
	notifications, err := s.notifications.ListNotifications(ctx, domain.NotificationFilter{
		UserID:   userID,
		Statuses: []string{domain.NotificationPending, domain.NotificationSent},
		Limit:    dashboardNotifications,
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list notifications: %w", err)
	}

	badges := student.Badges
	if badges == nil {
		badges = []string{}
	}
	return Dashboard{
		Student:       student,
		Progress:      ProgressOf(student),
		Upcoming:      lessons,
		Notifications: notifications,
		Points:        student.Points,
		Badges:        badges,
	}, nil
}

// ProgressOf computes completion percentages; a zero requirement counts as 0%.
func ProgressOf(s domain.Student) Progress {
	return Progress{
		Theoretical: percent(s.TheoreticalHours, s.TheoreticalRequired),
		Practical:   percent(s.PracticalHours, s.PracticalRequired),
		Overall:     percent(s.TheoreticalHours+s.PracticalHours, s.TheoreticalRequired+s.PracticalRequired),
	}
}

func percent(done, required int) int {
	if required <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(required) * 100))
}
