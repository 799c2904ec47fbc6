package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"autoescola-portal/internal/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	StepAttempt    = "attempt"
	StepStatistics = "statistics"
	StepPoints     = "points"
)

// Finalization is everything a finalizer needs about a finished session.
type Finalization struct {
	SessionID string
	Variant   string
	Student   domain.Student
	License   string
	Questions []domain.Question
	Result    domain.Result
}

// StepFailure records one failed finalization write.
type StepFailure struct {
	Step       string
	QuestionID string
	Err        error
}

func (f StepFailure) Error() string {
	if f.QuestionID != "" {
		return fmt.Sprintf("%s %s: %v", f.Step, f.QuestionID, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Step, f.Err)
}

func (f StepFailure) Unwrap() error { return f.Err }

// Report summarizes what a finalizer did.
type Report struct {
	AttemptID    string
	PointsEarned int
	Failures     []StepFailure
}

// Err joins all failures, or nil when every write succeeded.
func (r Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Finalizer runs the side effects of a finished session. It never changes session state.
type Finalizer interface {
	Finalize(ctx context.Context, fin Finalization) Report
}

// NopFinalizer is used by the fixed quiz, which persists nothing.
type NopFinalizer struct{}

func (NopFinalizer) Finalize(context.Context, Finalization) Report { return Report{} }

// SagaFinalizer performs the three independent writes of a bank exam, in order:
// the attempt record, per-question statistics, then the point award.
// A failed step is reported and never stops or rolls back the others.
type SagaFinalizer struct {
	attempts    AttemptStore
	bank        QuestionBank
	students    StudentStore
	parallelism int
	log         *logrus.Entry
	metrics     *metrics.Metrics
}

func NewSagaFinalizer(attempts AttemptStore, bank QuestionBank, students StudentStore, log *logrus.Entry, m *metrics.Metrics) *SagaFinalizer {
	if log == nil {
		log = logger.Discard()
	}
	return &SagaFinalizer{
		attempts:    attempts,
		bank:        bank,
		students:    students,
		parallelism: 4,
		log:         log,
		metrics:     m,
	}
}

func (f *SagaFinalizer) Finalize(ctx context.Context, fin Finalization) Report {
	var report Report
	fail := func(sf StepFailure) {
		report.Failures = append(report.Failures, sf)
		f.metrics.FinalizeFailed(sf.Step)
		f.log.WithFields(logrus.Fields{
			"session_id":  fin.SessionID,
			"student_id":  fin.Student.ID,
			"step":        sf.Step,
			"question_id": sf.QuestionID,
		}).WithError(sf.Err).Error("exam finalization step failed")
	}

	record := fin.Result
	record.StudentID = fin.Student.ID
	record.License = fin.License
	id, err := f.attempts.CreateAttempt(ctx, record)
	if err != nil {
		fail(StepFailure{Step: StepAttempt, Err: err})
	} else {
		report.AttemptID = id
	}

	for _, sf := range f.updateStatistics(ctx, fin) {
		fail(sf)
	}

	if earned := PointsFor(fin.Result.Score); earned > 0 {
		if err := f.awardPoints(ctx, fin.Student, earned); err != nil {
			fail(StepFailure{Step: StepPoints, Err: err})
		} else {
			report.PointsEarned = earned
		}
	}
	return report
}

// awardPoints adds earned to the balance as stored now, not as it was when the session opened.
func (f *SagaFinalizer) awardPoints(ctx context.Context, student domain.Student, earned int) error {
	current, err := f.students.StudentByUserID(ctx, student.UserID)
	if err != nil {
		return fmt.Errorf("reload student: %w", err)
	}
	return f.students.UpdateStudentPoints(ctx, current.ID, current.Points+earned)
}

// updateStatistics runs one independent task per question; a failure never cancels siblings.
func (f *SagaFinalizer) updateStatistics(ctx context.Context, fin Finalization) []StepFailure {
	var (
		mu       sync.Mutex
		failures []StepFailure
		g        errgroup.Group
	)
	g.SetLimit(f.parallelism)

	for i, q := range fin.Questions {
		answer := domain.Unanswered
		if i < len(fin.Result.Answers) {
			answer = fin.Result.Answers[i]
		}
		q := q
		stats := q.Stats.Record(answer != domain.Unanswered && answer == q.Correct)
		g.Go(func() error {
			if err := f.bank.UpdateQuestionStats(ctx, q.ID, stats); err != nil {
				mu.Lock()
				failures = append(failures, StepFailure{Step: StepStatistics, QuestionID: q.ID, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}
