package app_test

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/infra/memory"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-04 is a Monday.
var bookingNow = time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)

func newBookingFixture(t *testing.T) (*app.BookingService, *memory.Store, *recordingMailer) {
	t.Helper()
	store := memory.NewStore()
	store.PutStudent(domain.Student{ID: "s1", UserID: "u1", Name: "Ana", Category: "B", Email: "ana@example.com"})
	store.PutInstructor(domain.Instructor{
		ID: "i1", Name: "Carlos", Categories: []string{"A", "B"}, Status: domain.InstructorActive,
		Schedule: map[string][]string{"monday": {"08:00-11:00"}, "tuesday": {"14:00-16:00"}},
	})
	store.PutInstructor(domain.Instructor{ID: "i2", Name: "Beatriz", Categories: []string{"D"}, Status: domain.InstructorActive})
	store.PutInstructor(domain.Instructor{ID: "i3", Name: "Davi", Categories: []string{"B"}, Status: "inactive"})
	store.PutVehicle(domain.Vehicle{ID: "v1", Model: "Onix", Category: "B", Status: domain.VehicleAvailable})
	store.PutVehicle(domain.Vehicle{ID: "v2", Model: "Gol", Category: "B", Status: domain.VehicleMaintenance})
	store.PutVehicle(domain.Vehicle{ID: "v3", Model: "CG 160", Category: "A", Status: domain.VehicleAvailable})

	mailer := &recordingMailer{}
	service := app.NewBookingService(app.BookingDeps{
		Students:      store,
		Instructors:   store,
		Vehicles:      store,
		Lessons:       store,
		Notifications: store,
		Mailer:        mailer,
		Location:      time.UTC,
		Clock:         func() time.Time { return bookingNow },
	})
	return service, store, mailer
}

func TestBookingOptionsFilterByCategory(t *testing.T) {
	service, _, _ := newBookingFixture(t)

	opts, err := service.Options(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, opts.Instructors, 1)
	assert.Equal(t, "i1", opts.Instructors[0].ID)
	require.Len(t, opts.Vehicles, 1)
	assert.Equal(t, "v1", opts.Vehicles[0].ID)
	assert.Equal(t, "2024-04-03", opts.MaxDate)

	_, err = service.Options(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotEnrolled)
}

func TestBookPracticeLesson(t *testing.T) {
	ctx := context.Background()
	service, store, mailer := newBookingFixture(t)

	lesson, err := service.Book(ctx, "u1", app.BookingRequest{
		InstructorID: "i1", Date: "2024-03-11", Time: "09:00", Type: domain.LessonPractice, VehicleID: "v1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.ID)
	assert.Equal(t, 50, lesson.DurationMinutes)
	assert.Equal(t, domain.LessonScheduled, lesson.Status)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), lesson.ScheduledAt)

	slots, err := service.AvailableSlots(ctx, "i1", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "10:00"}, slots)

	notes, _ := store.ListNotifications(ctx, domain.NotificationFilter{UserID: "u1"})
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"app", "email"}, notes[0].Channels)
	require.Len(t, mailer.messages(), 1)
	assert.Equal(t, "ana@example.com", mailer.messages()[0].To)

	_, err = service.Book(ctx, "u1", app.BookingRequest{
		InstructorID: "i1", Date: "2024-03-11", Time: "09:00", Type: domain.LessonTheory,
	})
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
}

func TestBookRejections(t *testing.T) {
	service, _, _ := newBookingFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  app.BookingRequest
		want error
	}{
		{"practice without vehicle", app.BookingRequest{InstructorID: "i1", Date: "2024-03-11", Time: "09:00", Type: domain.LessonPractice}, domain.ErrVehicleRequired},
		{"in the past", app.BookingRequest{InstructorID: "i1", Date: "2024-03-01", Time: "09:00", Type: domain.LessonTheory}, domain.ErrDateOutOfRange},
		{"beyond window", app.BookingRequest{InstructorID: "i1", Date: "2024-04-08", Time: "09:00", Type: domain.LessonTheory}, domain.ErrDateOutOfRange},
		{"outside schedule", app.BookingRequest{InstructorID: "i1", Date: "2024-03-11", Time: "15:00", Type: domain.LessonTheory}, domain.ErrSlotUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Book(ctx, "u1", tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := service.Book(ctx, "u1", app.BookingRequest{InstructorID: "i1", Date: "11/03/2024", Time: "9h", Type: "driving"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 3)
}

func TestBookSurvivesMailFailure(t *testing.T) {
	service, _, mailer := newBookingFixture(t)
	mailer.err = errBoom

	_, err := service.Book(context.Background(), "u1", app.BookingRequest{
		InstructorID: "i1", Date: "2024-03-04", Time: "10:00", Type: domain.LessonTheory,
	})
	assert.NoError(t, err)
}

func TestBookKeepsWallClockOnDaylightSavingDay(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	store := memory.NewStore()
	store.PutStudent(domain.Student{ID: "s1", UserID: "u1", Name: "Ana", Category: "B", Email: "ana@example.com"})
	store.PutInstructor(domain.Instructor{
		ID: "i1", Name: "Carlos", Categories: []string{"B"}, Status: domain.InstructorActive,
		Schedule: map[string][]string{"sunday": {"08:00-11:00"}},
	})
	service := app.NewBookingService(app.BookingDeps{
		Students:      store,
		Instructors:   store,
		Vehicles:      store,
		Lessons:       store,
		Notifications: store,
		Mailer:        &recordingMailer{},
		Location:      loc,
		Clock:         func() time.Time { return bookingNow },
	})

	// clocks jump from 02:00 to 03:00 on 2024-03-10
	lesson, err := service.Book(ctx, "u1", app.BookingRequest{
		InstructorID: "i1", Date: "2024-03-10", Time: "09:00", Type: domain.LessonTheory,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, loc), lesson.ScheduledAt)
	assert.Equal(t, 9, lesson.ScheduledAt.In(loc).Hour())

	slots, err := service.AvailableSlots(ctx, "i1", time.Date(2024, 3, 10, 0, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "10:00"}, slots)
}
