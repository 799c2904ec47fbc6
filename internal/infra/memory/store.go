package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"autoescola-portal/internal/domain"
	"github.com/google/uuid"
)

// Store keeps every portal record in process memory. It backs local runs and tests
// and implements all app store interfaces plus auth.UserStore.
type Store struct {
	mu            sync.RWMutex
	questions     map[string]domain.Question
	attempts      []domain.Result
	students      map[string]domain.Student
	users         map[string]domain.User
	instructors   map[string]domain.Instructor
	vehicles      map[string]domain.Vehicle
	lessons       []domain.Lesson
	notifications []domain.Notification
	payments      map[string]domain.Payment
}

func NewStore() *Store {
	return &Store{
		questions:   make(map[string]domain.Question),
		students:    make(map[string]domain.Student),
		users:       make(map[string]domain.User),
		instructors: make(map[string]domain.Instructor),
		vehicles:    make(map[string]domain.Vehicle),
		payments:    make(map[string]domain.Payment),
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// Seeding helpers. Records without an id get a random one.

func (s *Store) PutQuestion(q domain.Question) domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = newID(q.ID)
	s.questions[q.ID] = q
	return q
}

func (s *Store) PutStudent(st domain.Student) domain.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = newID(st.ID)
	s.students[st.ID] = st
	return st
}

func (s *Store) PutUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = newID(u.ID)
	u.Email = strings.ToLower(u.Email)
	s.users[u.ID] = u
	return u
}

func (s *Store) PutInstructor(in domain.Instructor) domain.Instructor {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = newID(in.ID)
	s.instructors[in.ID] = in
	return in
}

func (s *Store) PutVehicle(v domain.Vehicle) domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = newID(v.ID)
	s.vehicles[v.ID] = v
	return v
}

func (s *Store) PutPayment(p domain.Payment) domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID(p.ID)
	s.payments[p.ID] = p
	return p
}

// Questions

func (s *Store) ListQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if filter.Matches(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpdateQuestionStats(_ context.Context, questionID string, stats domain.QuestionStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrNotFound
	}
	q.Stats = stats
	s.questions[questionID] = q
	return nil
}

// Question returns one question by id.
func (s *Store) Question(id string) (domain.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	return q, ok
}

// Attempts

func (s *Store) CreateAttempt(_ context.Context, result domain.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = newID(result.ID)
	result.Answers = append([]int(nil), result.Answers...)
	result.QuestionIDs = append([]string(nil), result.QuestionIDs...)
	s.attempts = append(s.attempts, result)
	return result.ID, nil
}

func (s *Store) ListAttempts(_ context.Context, filter domain.AttemptFilter) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, a := range s.attempts {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Students

func (s *Store) StudentByUserID(_ context.Context, userID string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.UserID == userID {
			return st, nil
		}
	}
	return domain.Student{}, domain.ErrNotFound
}

func (s *Store) UpdateStudentPoints(_ context.Context, studentID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return domain.ErrNotFound
	}
	st.Points = points
	s.students[studentID] = st
	return nil
}

// Users

func (s *Store) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrNotFound
}

// Instructors and vehicles

func (s *Store) ListInstructors(_ context.Context, filter domain.InstructorFilter) ([]domain.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Instructor, 0)
	for _, in := range s.instructors {
		if filter.Status != "" && in.Status != filter.Status {
			continue
		}
		if filter.Category != "" && !containsString(in.Categories, filter.Category) {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetInstructor(_ context.Context, id string) (domain.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if in, ok := s.instructors[id]; ok {
		return in, nil
	}
	return domain.Instructor{}, domain.ErrNotFound
}

func (s *Store) ListVehicles(_ context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Vehicle, 0)
	for _, v := range s.vehicles {
		if filter.Category != "" && v.Category != filter.Category {
			continue
		}
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, v.Status) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// Lessons

func (s *Store) ListLessons(_ context.Context, filter domain.LessonFilter) ([]domain.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Lesson, 0)
	for _, l := range s.lessons {
		if filter.StudentID != "" && l.StudentID != filter.StudentID {
			continue
		}
		if filter.InstructorID != "" && l.InstructorID != filter.InstructorID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, l.Status) {
			continue
		}
		if !filter.From.IsZero() && l.ScheduledAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && l.ScheduledAt.After(filter.To) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CreateLesson(_ context.Context, lesson domain.Lesson) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lesson.ID = newID(lesson.ID)
	s.lessons = append(s.lessons, lesson)
	return lesson.ID, nil
}

// Notifications

func (s *Store) ListNotifications(_ context.Context, filter domain.NotificationFilter) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, 0)
	for _, n := range s.notifications {
		if filter.UserID != "" && n.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, n.Status) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CreateNotification(_ context.Context, n domain.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = newID(n.ID)
	s.notifications = append(s.notifications, n)
	return n.ID, nil
}

// Payments

func (s *Store) ListPayments(_ context.Context, studentID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Payment, 0)
	for _, p := range s.payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[id]; ok {
		return p, nil
	}
	return domain.Payment{}, domain.ErrNotFound
}

func (s *Store) UpdatePayment(_ context.Context, payment domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[payment.ID]; !ok {
		return domain.ErrNotFound
	}
	s.payments[payment.ID] = payment
	return nil
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
