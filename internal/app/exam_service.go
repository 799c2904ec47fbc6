package app

import (
	"context"
	"errors"
	"time"

	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"autoescola-portal/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	VariantFixed = "fixed"
	VariantBank  = "bank"

	defaultLicense = "B"
	historyLimit   = 10
)

// SessionRepository abstracts where open exam sessions live (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Get(userID string) (*Session, bool)
	Put(userID string, session *Session)
	Delete(userID string)
}

// ExamOptions tune session timing; zero values use production defaults.
type ExamOptions struct {
	Budget          time.Duration
	Interval        time.Duration
	FinalizeTimeout time.Duration
	Clock           func() time.Time
	NewTicker       TickerFunc
}

// ExamService wires the session engine to its two call sites and keys sessions by user.
type ExamService struct {
	sessions SessionRepository
	students StudentStore
	attempts AttemptStore
	variants map[string]Variant
	notices  *NoticeBoard
	opts     ExamOptions
	log      *logrus.Entry
	metrics  *metrics.Metrics
}

// FixedVariant is the curated ten-question quiz: no pause, nothing persisted.
func FixedVariant() Variant {
	return Variant{
		Name:      VariantFixed,
		Source:    NewFixedSource(domain.FixedQuiz()),
		Finalizer: NopFinalizer{},
	}
}

// BankVariant samples the question bank and runs the finalization saga.
func BankVariant(bank QuestionBank, attempts AttemptStore, students StudentStore, sampler *Sampler, log *logrus.Entry, m *metrics.Metrics) Variant {
	return Variant{
		Name:      VariantBank,
		Source:    NewBankSource(bank, sampler),
		Finalizer: NewSagaFinalizer(attempts, bank, students, log, m),
		Pausable:  true,
	}
}

func NewExamService(sessions SessionRepository, students StudentStore, attempts AttemptStore, variants []Variant, notices *NoticeBoard, opts ExamOptions, log *logrus.Entry, m *metrics.Metrics) *ExamService {
	if log == nil {
		log = logger.Discard()
	}
	if notices == nil {
		notices = NewNoticeBoard()
	}
	byName := make(map[string]Variant, len(variants))
	for _, v := range variants {
		byName[v.Name] = v
	}
	return &ExamService{
		sessions: sessions,
		students: students,
		attempts: attempts,
		variants: byName,
		notices:  notices,
		opts:     opts,
		log:      log,
		metrics:  m,
	}
}

// Open acquires a question set and creates a NotStarted session for the user.
// It refuses while the user's previous session is running or paused, so a filter
// change can never silently abandon an attempt in progress.
func (s *ExamService) Open(ctx context.Context, userID, variantName string, filter domain.QuestionFilter) (domain.Snapshot, error) {
	variant, ok := s.variants[variantName]
	if !ok {
		return domain.Snapshot{}, domain.ErrUnknownVariant
	}
	if prev, ok := s.sessions.Get(userID); ok && prev.Active() {
		return domain.Snapshot{}, domain.ErrSessionActive
	}

	student, err := s.students.StudentByUserID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if variant.Name != VariantFixed {
			return domain.Snapshot{}, domain.ErrNotEnrolled
		}
	case err != nil:
		return domain.Snapshot{}, err
	}
	if filter.License == "" {
		filter.License = student.Category
	}
	if filter.License == "" {
		filter.License = defaultLicense
	}

	session, err := NewSession(ctx, SessionConfig{
		Variant:         variant,
		Filter:          filter,
		Student:         student,
		Budget:          s.opts.Budget,
		Interval:        s.opts.Interval,
		FinalizeTimeout: s.opts.FinalizeTimeout,
		Clock:           s.opts.Clock,
		NewTicker:       s.opts.NewTicker,
		Notify:          func(n domain.Notice) { s.notices.Publish(userID, n) },
		Log:             s.log.WithField("user_id", userID),
		Metrics:         s.metrics,
	})
	if err != nil {
		msg := "Could not load questions"
		outcome := "error"
		if errors.Is(err, domain.ErrInsufficientQuestions) {
			msg = "Not enough questions for this filter"
			outcome = "insufficient"
		}
		s.metrics.ExamOpened(variant.Name, outcome)
		s.notices.Publish(userID, domain.Notice{Level: domain.NoticeError, Message: msg, At: s.clock()})
		s.log.WithFields(logrus.Fields{"user_id": userID, "variant": variant.Name}).WithError(err).Warn("exam session not opened")
		return domain.Snapshot{}, err
	}

	if prev, ok := s.sessions.Get(userID); ok {
		prev.Close()
	}
	s.sessions.Put(userID, session)
	s.metrics.ExamOpened(variant.Name, "ok")
	return session.Snapshot(), nil
}

func (s *ExamService) Start(_ context.Context, userID string) (domain.Snapshot, error) {
	return s.apply(userID, (*Session).Start)
}

func (s *ExamService) Answer(_ context.Context, userID string, option int) (domain.Snapshot, error) {
	return s.apply(userID, func(session *Session) error { return session.SelectAnswer(option) })
}

func (s *ExamService) Next(_ context.Context, userID string) (domain.Snapshot, error) {
	return s.apply(userID, (*Session).Next)
}

func (s *ExamService) Previous(_ context.Context, userID string) (domain.Snapshot, error) {
	return s.apply(userID, (*Session).Previous)
}

func (s *ExamService) Jump(_ context.Context, userID string, index int) (domain.Snapshot, error) {
	return s.apply(userID, func(session *Session) error { return session.Jump(index) })
}

func (s *ExamService) TogglePause(_ context.Context, userID string) (domain.Snapshot, error) {
	return s.apply(userID, (*Session).TogglePause)
}

// Finish ends the user's attempt. The returned result is authoritative even when
// persisting it failed; such failures arrive as notices.
func (s *ExamService) Finish(ctx context.Context, userID string) (domain.Result, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Result{}, domain.ErrSessionNotFound
	}
	return session.Finish(ctx)
}

// Reset returns the user's session to NotStarted with a freshly acquired question set.
func (s *ExamService) Reset(ctx context.Context, userID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.Reset(ctx); err != nil {
		if errors.Is(err, domain.ErrInsufficientQuestions) {
			s.notices.Publish(userID, domain.Notice{Level: domain.NoticeError, Message: "Not enough questions for this filter", At: s.clock()})
		}
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// Snapshot returns the user's current session view.
func (s *ExamService) Snapshot(_ context.Context, userID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe streams snapshots of the user's current session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ExamService) Subscribe(_ context.Context, userID string) (<-chan domain.Snapshot, func(), error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Notices streams transient notices for the user.
func (s *ExamService) Notices(userID string) (<-chan domain.Notice, func()) {
	return s.notices.Subscribe(userID)
}

// Close tears down the user's session, cancelling its countdown.
func (s *ExamService) Close(_ context.Context, userID string) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(userID)
}

// History returns the student's latest practice exam attempts, newest first.
func (s *ExamService) History(ctx context.Context, userID string) ([]domain.Result, error) {
	student, err := s.students.StudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotEnrolled
		}
		return nil, err
	}
	return s.attempts.ListAttempts(ctx, domain.AttemptFilter{
		StudentID: student.ID,
		Type:      domain.AttemptTypeSimulado,
		Limit:     historyLimit,
	})
}

func (s *ExamService) apply(userID string, op func(*Session) error) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := op(session); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

func (s *ExamService) clock() time.Time {
	if s.opts.Clock != nil {
		return s.opts.Clock()
	}
	return time.Now()
}
