package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"autoescola-portal/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

// Store implements the portal's store interfaces on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// where accumulates positional filter clauses.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *where) limit(n int) string {
	if n <= 0 {
		return ""
	}
	w.args = append(w.args, n)
	return fmt.Sprintf(" LIMIT $%d", len(w.args))
}

// Questions

const questionColumns = `id, prompt, options, correct, explanation, category, subcategory, difficulty,
	licenses, image, active, total_answers, correct_answers, success_rate`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q       domain.Question
		options []byte
	)
	err := row.Scan(&q.ID, &q.Prompt, &options, &q.Correct, &q.Explanation, &q.Category, &q.Subcategory,
		&q.Difficulty, &q.Licenses, &q.Image, &q.Active, &q.Stats.TotalAnswers, &q.Stats.CorrectAnswers, &q.Stats.SuccessRate)
	if err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("decode options of %s: %w", q.ID, err)
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	w := &where{clauses: []string{"active"}}
	if filter.License != "" {
		w.add("$%d = ANY(licenses)", filter.License)
	}
	if filter.Category != "" {
		w.add("category = $%d", filter.Category)
	}
	if filter.Difficulty != "" {
		w.add("difficulty = $%d", filter.Difficulty)
	}
	query := `SELECT ` + questionColumns + ` FROM questions` + w.String() + ` ORDER BY id` + w.limit(filter.Limit)

	rows, err := s.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuestionStats(ctx context.Context, questionID string, stats domain.QuestionStats) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET total_answers=$2, correct_answers=$3, success_rate=$4 WHERE id=$1`,
		questionID, stats.TotalAnswers, stats.CorrectAnswers, stats.SuccessRate)
	if err != nil {
		return fmt.Errorf("update question stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpsertQuestion inserts or replaces a bank question, keeping its statistics.
func (s *Store) UpsertQuestion(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO questions (id, prompt, options, correct, explanation, category, subcategory, difficulty, licenses, image, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET prompt=EXCLUDED.prompt, options=EXCLUDED.options, correct=EXCLUDED.correct,
			explanation=EXCLUDED.explanation, category=EXCLUDED.category, subcategory=EXCLUDED.subcategory,
			difficulty=EXCLUDED.difficulty, licenses=EXCLUDED.licenses, image=EXCLUDED.image, active=EXCLUDED.active`,
		q.ID, q.Prompt, options, q.Correct, q.Explanation, q.Category, q.Subcategory, q.Difficulty, q.Licenses, q.Image, q.Active)
	if err != nil {
		return fmt.Errorf("upsert question %s: %w", q.ID, err)
	}
	return nil
}

// Attempts

func (s *Store) CreateAttempt(ctx context.Context, r domain.Result) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attempts (id, student_id, type, license, question_ids, answers, total_questions, correct_answers,
			score, passed, status, started_at, ended_at, elapsed_seconds, duration_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id, r.StudentID, r.Type, r.License, r.QuestionIDs, toInt32(r.Answers), r.TotalQuestions, r.CorrectAnswers,
		r.Score, r.Passed, r.Status, r.StartedAt, r.EndedAt, r.ElapsedSeconds, r.DurationMinutes, r.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

func (s *Store) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Result, error) {
	w := &where{}
	if filter.StudentID != "" {
		w.add("student_id = $%d", filter.StudentID)
	}
	if filter.Type != "" {
		w.add("type = $%d", filter.Type)
	}
	query := `SELECT id, student_id, type, license, question_ids, answers, total_questions, correct_answers, score,
		passed, status, started_at, ended_at, elapsed_seconds, duration_minutes, created_at
		FROM attempts` + w.String() + ` ORDER BY created_at DESC` + w.limit(filter.Limit)

	rows, err := s.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Result, 0)
	for rows.Next() {
		var (
			r       domain.Result
			answers []int32
		)
		if err := rows.Scan(&r.ID, &r.StudentID, &r.Type, &r.License, &r.QuestionIDs, &answers, &r.TotalQuestions,
			&r.CorrectAnswers, &r.Score, &r.Passed, &r.Status, &r.StartedAt, &r.EndedAt, &r.ElapsedSeconds,
			&r.DurationMinutes, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Answers = make([]int, len(answers))
		for i, a := range answers {
			r.Answers[i] = int(a)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func toInt32(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}

// Users and students

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.user(ctx, `lower(email) = lower($1)`, email)
}

func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	return s.user(ctx, `id = $1`, id)
}

func (s *Store) user(ctx context.Context, cond string, arg string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `SELECT id, email, name, role, password_hash FROM users WHERE `+cond, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}

func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role, password_hash) VALUES ($1, lower($2), $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET email=EXCLUDED.email, name=EXCLUDED.name, role=EXCLUDED.role,
			password_hash=EXCLUDED.password_hash`,
		u.ID, u.Email, u.Name, u.Role, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) StudentByUserID(ctx context.Context, userID string) (domain.Student, error) {
	var st domain.Student
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, category, status, theoretical_hours, practical_hours,
			theoretical_required, practical_required, points, badges
		FROM students WHERE user_id = $1`, userID).
		Scan(&st.ID, &st.UserID, &st.Name, &st.Email, &st.Category, &st.Status, &st.TheoreticalHours,
			&st.PracticalHours, &st.TheoreticalRequired, &st.PracticalRequired, &st.Points, &st.Badges)
	if err != nil {
		return domain.Student{}, notFound(err)
	}
	return st, nil
}

func (s *Store) UpdateStudentPoints(ctx context.Context, studentID string, points int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE students SET points = $2 WHERE id = $1`, studentID, points)
	if err != nil {
		return fmt.Errorf("update points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertStudent(ctx context.Context, st domain.Student) error {
	if st.Badges == nil {
		st.Badges = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (id, user_id, name, email, category, status, theoretical_hours, practical_hours,
			theoretical_required, practical_required, points, badges)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, category=EXCLUDED.category,
			status=EXCLUDED.status, theoretical_hours=EXCLUDED.theoretical_hours, practical_hours=EXCLUDED.practical_hours,
			theoretical_required=EXCLUDED.theoretical_required, practical_required=EXCLUDED.practical_required,
			points=EXCLUDED.points, badges=EXCLUDED.badges`,
		st.ID, st.UserID, st.Name, st.Email, st.Category, st.Status, st.TheoreticalHours, st.PracticalHours,
		st.TheoreticalRequired, st.PracticalRequired, st.Points, st.Badges)
	if err != nil {
		return fmt.Errorf("upsert student %s: %w", st.ID, err)
	}
	return nil
}

// Instructors and vehicles

const instructorColumns = `id, name, categories, rating, avatar, status, schedule`

func scanInstructor(row pgx.Row) (domain.Instructor, error) {
	var (
		in       domain.Instructor
		schedule []byte
	)
	if err := row.Scan(&in.ID, &in.Name, &in.Categories, &in.Rating, &in.Avatar, &in.Status, &schedule); err != nil {
		return domain.Instructor{}, err
	}
	if err := json.Unmarshal(schedule, &in.Schedule); err != nil {
		return domain.Instructor{}, fmt.Errorf("decode schedule of %s: %w", in.ID, err)
	}
	return in, nil
}

func (s *Store) ListInstructors(ctx context.Context, filter domain.InstructorFilter) ([]domain.Instructor, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.Category != "" {
		w.add("$%d = ANY(categories)", filter.Category)
	}
	rows, err := s.pool.Query(ctx, `SELECT `+instructorColumns+` FROM instructors`+w.String()+` ORDER BY name`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query instructors: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Instructor, 0)
	for rows.Next() {
		in, err := scanInstructor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) GetInstructor(ctx context.Context, id string) (domain.Instructor, error) {
	in, err := scanInstructor(s.pool.QueryRow(ctx, `SELECT `+instructorColumns+` FROM instructors WHERE id = $1`, id))
	if err != nil {
		return domain.Instructor{}, notFound(err)
	}
	return in, nil
}

func (s *Store) UpsertInstructor(ctx context.Context, in domain.Instructor) error {
	schedule, err := json.Marshal(in.Schedule)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO instructors (id, name, categories, rating, avatar, status, schedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, categories=EXCLUDED.categories, rating=EXCLUDED.rating,
			avatar=EXCLUDED.avatar, status=EXCLUDED.status, schedule=EXCLUDED.schedule`,
		in.ID, in.Name, in.Categories, in.Rating, in.Avatar, in.Status, schedule)
	if err != nil {
		return fmt.Errorf("upsert instructor %s: %w", in.ID, err)
	}
	return nil
}

func (s *Store) ListVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error) {
	w := &where{}
	if filter.Category != "" {
		w.add("category = $%d", filter.Category)
	}
	if len(filter.Statuses) > 0 {
		w.add("status = ANY($%d)", filter.Statuses)
	}
	rows, err := s.pool.Query(ctx, `SELECT id, model, brand, plate, category, status FROM vehicles`+w.String()+` ORDER BY model`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Vehicle, 0)
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Model, &v.Brand, &v.Plate, &v.Category, &v.Status); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpsertVehicle(ctx context.Context, v domain.Vehicle) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vehicles (id, model, brand, plate, category, status) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET model=EXCLUDED.model, brand=EXCLUDED.brand, plate=EXCLUDED.plate,
			category=EXCLUDED.category, status=EXCLUDED.status`,
		v.ID, v.Model, v.Brand, v.Plate, v.Category, v.Status)
	if err != nil {
		return fmt.Errorf("upsert vehicle %s: %w", v.ID, err)
	}
	return nil
}

// Lessons

func (s *Store) ListLessons(ctx context.Context, filter domain.LessonFilter) ([]domain.Lesson, error) {
	w := &where{}
	if filter.StudentID != "" {
		w.add("student_id = $%d", filter.StudentID)
	}
	if filter.InstructorID != "" {
		w.add("instructor_id = $%d", filter.InstructorID)
	}
	if len(filter.Statuses) > 0 {
		w.add("status = ANY($%d)", filter.Statuses)
	}
	if !filter.From.IsZero() {
		w.add("scheduled_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		w.add("scheduled_at <= $%d", filter.To)
	}
	query := `SELECT id, student_id, instructor_id, type, scheduled_at, duration_minutes, status, vehicle_id, created_at
		FROM lessons` + w.String() + ` ORDER BY scheduled_at` + w.limit(filter.Limit)

	rows, err := s.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Lesson, 0)
	for rows.Next() {
		var l domain.Lesson
		if err := rows.Scan(&l.ID, &l.StudentID, &l.InstructorID, &l.Type, &l.ScheduledAt, &l.DurationMinutes,
			&l.Status, &l.VehicleID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) CreateLesson(ctx context.Context, l domain.Lesson) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lessons (id, student_id, instructor_id, type, scheduled_at, duration_minutes, status, vehicle_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, l.StudentID, l.InstructorID, l.Type, l.ScheduledAt, l.DurationMinutes, l.Status, l.VehicleID, l.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert lesson: %w", err)
	}
	return id, nil
}

// Notifications

func (s *Store) ListNotifications(ctx context.Context, filter domain.NotificationFilter) ([]domain.Notification, error) {
	w := &where{}
	if filter.UserID != "" {
		w.add("user_id = $%d", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		w.add("status = ANY($%d)", filter.Statuses)
	}
	query := `SELECT id, user_id, title, message, type, priority, status, channels, created_at
		FROM notifications` + w.String() + ` ORDER BY created_at DESC` + w.limit(filter.Limit)

	rows, err := s.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.Status,
			&n.Channels, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (string, error) {
	id := uuid.NewString()
	if n.Channels == nil {
		n.Channels = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, priority, status, channels, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, n.UserID, n.Title, n.Message, n.Type, n.Priority, n.Status, n.Channels, n.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// Payments. Amounts travel as text so no precision is lost on the way to decimal.Decimal.

const paymentColumns = `id, student_id, amount::text, method, status, description, category, installments,
	installment_number, due_date, paid_at, receipt, created_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var (
		p      domain.Payment
		amount string
	)
	if err := row.Scan(&p.ID, &p.StudentID, &amount, &p.Method, &p.Status, &p.Description, &p.Category,
		&p.Installments, &p.InstallmentNumber, &p.DueDate, &p.PaidAt, &p.Receipt, &p.CreatedAt); err != nil {
		return domain.Payment{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("decode amount of %s: %w", p.ID, err)
	}
	p.Amount = d
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, studentID string) ([]domain.Payment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPayment(ctx context.Context, id string) (domain.Payment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return domain.Payment{}, notFound(err)
	}
	return p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p domain.Payment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET status=$2, method=$3, paid_at=$4, receipt=$5 WHERE id=$1`,
		p.ID, p.Status, p.Method, p.PaidAt, p.Receipt)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertPayment(ctx context.Context, p domain.Payment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payments (id, student_id, amount, method, status, description, category, installments,
			installment_number, due_date, paid_at, receipt, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET amount=EXCLUDED.amount, method=EXCLUDED.method, status=EXCLUDED.status,
			description=EXCLUDED.description, category=EXCLUDED.category, installments=EXCLUDED.installments,
			installment_number=EXCLUDED.installment_number, due_date=EXCLUDED.due_date, paid_at=EXCLUDED.paid_at,
			receipt=EXCLUDED.receipt`,
		p.ID, p.StudentID, p.Amount.String(), p.Method, p.Status, p.Description, p.Category, p.Installments,
		p.InstallmentNumber, p.DueDate, p.PaidAt, p.Receipt, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert payment %s: %w", p.ID, err)
	}
	return nil
}
