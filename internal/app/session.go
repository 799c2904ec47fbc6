package app

import (
	"context"
	"sync"
	"time"

	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"autoescola-portal/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Variant parameterizes the session engine for one call site.
type Variant struct {
	Name      string
	Source    QuestionSource
	Finalizer Finalizer
	Pausable  bool
}

// SessionConfig configures a new Session. Zero values get production defaults.
type SessionConfig struct {
	ID      string
	Variant Variant
	Filter  domain.QuestionFilter
	Student domain.Student

	Budget          time.Duration
	Interval        time.Duration
	FinalizeTimeout time.Duration
	Clock           func() time.Time
	NewTicker       TickerFunc

	// Notify delivers transient notices to the participant.
	Notify  func(domain.Notice)
	Log     *logrus.Entry
	Metrics *metrics.Metrics
}

type operation int

const (
	opStart operation = iota
	opAnswer
	opNavigate
	opPause
	opFinish
)

// transitions lists the states each operation is valid in. Reset is valid everywhere
// and Tick is a no-op outside Running, so neither appears here.
// Paused blocks answering but still allows reviewing questions.
var transitions = map[operation]map[domain.ExamState]bool{
	opStart:    {domain.ExamNotStarted: true},
	opAnswer:   {domain.ExamRunning: true},
	opNavigate: {domain.ExamRunning: true, domain.ExamPaused: true},
	opPause:    {domain.ExamRunning: true, domain.ExamPaused: true},
	opFinish:   {domain.ExamRunning: true, domain.ExamPaused: true},
}

// Session is one timed attempt by one participant at one question set.
type Session struct {
	id      string
	variant Variant
	filter  domain.QuestionFilter
	student domain.Student

	budget          time.Duration
	interval        time.Duration
	finalizeTimeout time.Duration
	now             func() time.Time
	newTicker       TickerFunc
	notify          func(domain.Notice)
	log             *logrus.Entry
	metrics         *metrics.Metrics

	mu          sync.RWMutex
	state       domain.ExamState
	questions   []domain.Question
	answers     []int
	current     int
	remaining   time.Duration
	result      *domain.Result
	timer       *countdown
	timerGen    uint64
	epoch       uint64
	closed      bool
	subscribers map[chan domain.Snapshot]struct{}
}

// NewSession acquires the question set and returns a session in NotStarted.
// When acquisition fails no session is created.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	s := newSession(cfg)
	questions, err := s.variant.Source.Acquire(ctx, s.filter)
	if err != nil {
		return nil, err
	}
	s.questions = questions
	s.answers = unansweredSlots(len(questions))
	return s, nil
}

func newSession(cfg SessionConfig) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Budget <= 0 {
		cfg.Budget = domain.ExamBudget
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewRealTicker
	}
	if cfg.Notify == nil {
		cfg.Notify = func(domain.Notice) {}
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	if cfg.Variant.Finalizer == nil {
		cfg.Variant.Finalizer = NopFinalizer{}
	}
	return &Session{
		id:              cfg.ID,
		variant:         cfg.Variant,
		filter:          cfg.Filter,
		student:         cfg.Student,
		budget:          cfg.Budget,
		interval:        cfg.Interval,
		finalizeTimeout: cfg.FinalizeTimeout,
		now:             cfg.Clock,
		newTicker:       cfg.NewTicker,
		notify:          cfg.Notify,
		log:             cfg.Log.WithFields(logrus.Fields{"session_id": cfg.ID, "variant": cfg.Variant.Name}),
		metrics:         cfg.Metrics,
		state:           domain.ExamNotStarted,
		remaining:       cfg.Budget,
		subscribers:     make(map[chan domain.Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() domain.ExamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Active reports whether the session is Running or Paused.
func (s *Session) Active() bool {
	st := s.State()
	return st == domain.ExamRunning || st == domain.ExamPaused
}

// Start begins the attempt: pointer to the first question, all slots unanswered, full budget.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !transitions[opStart][s.state] || s.closed {
		return domain.ErrInvalidTransition
	}
	if len(s.questions) == 0 {
		return domain.ErrNoQuestions
	}
	s.current = 0
	s.answers = unansweredSlots(len(s.questions))
	s.remaining = s.budget
	s.result = nil
	s.state = domain.ExamRunning
	s.armLocked()
	s.broadcastLocked()
	s.log.WithField("questions", len(s.questions)).Debug("exam session started")
	return nil
}

// SelectAnswer records option for the current question; last write wins.
// An index outside the question's options is ignored.
func (s *Session) SelectAnswer(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !transitions[opAnswer][s.state] {
		return domain.ErrInvalidTransition
	}
	q := s.questions[s.current]
	if option < 0 || option >= len(q.Options) {
		return nil
	}
	s.answers[s.current] = option
	s.broadcastLocked()
	return nil
}

// Next moves to the following question; a no-op on the last one.
func (s *Session) Next() error {
	return s.navigate(func(cur int) int { return cur + 1 })
}

// Previous moves to the preceding question; a no-op on the first one.
func (s *Session) Previous() error {
	return s.navigate(func(cur int) int { return cur - 1 })
}

// Jump moves to index, clamped into the question range.
func (s *Session) Jump(index int) error {
	return s.navigate(func(int) int { return index })
}

func (s *Session) navigate(move func(cur int) int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !transitions[opNavigate][s.state] {
		return domain.ErrInvalidTransition
	}
	next := clamp(move(s.current), 0, len(s.questions)-1)
	if next != s.current {
		s.current = next
		s.broadcastLocked()
	}
	return nil
}

// TogglePause switches between Running and Paused. The countdown does not advance while paused.
func (s *Session) TogglePause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !transitions[opPause][s.state] {
		return domain.ErrInvalidTransition
	}
	if !s.variant.Pausable {
		return domain.ErrPauseUnsupported
	}
	if s.state == domain.ExamRunning {
		s.disarmLocked()
		s.state = domain.ExamPaused
	} else {
		s.state = domain.ExamRunning
		s.armLocked()
	}
	s.broadcastLocked()
	return nil
}

// Tick advances the countdown by one second. At zero the session finishes itself.
func (s *Session) Tick() {
	s.tick(0, false)
}

func (s *Session) tick(gen uint64, checkGen bool) {
	s.mu.Lock()
	if s.state != domain.ExamRunning || s.closed {
		s.mu.Unlock()
		return
	}
	if checkGen && (s.timer == nil || s.timer.gen != gen) {
		s.mu.Unlock()
		return
	}

	s.remaining -= time.Second
	if s.remaining > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return
	}

	s.remaining = 0
	fin := s.finishLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.finalizeTimeout)
	defer cancel()
	s.finalize(ctx, fin, "timeout")
}

// Finish scores the session and runs the variant's side effects exactly once.
// Calling it on a finished session returns the existing result and ErrSessionFinished.
func (s *Session) Finish(ctx context.Context) (domain.Result, error) {
	s.mu.Lock()
	if s.state == domain.ExamFinished {
		res := *s.result
		s.mu.Unlock()
		return res, domain.ErrSessionFinished
	}
	if !transitions[opFinish][s.state] {
		s.mu.Unlock()
		return domain.Result{}, domain.ErrInvalidTransition
	}
	fin := s.finishLocked()
	s.mu.Unlock()

	return s.finalize(ctx, fin, "manual"), nil
}

// finishLocked freezes the session and computes its result. Callers hold s.mu and
// are the single winner of the transition into Finished.
func (s *Session) finishLocked() Finalization {
	s.disarmLocked()

	end := s.now()
	elapsed := s.budget - s.remaining
	res := scoreSession(s.questions, s.answers, end.Add(-elapsed), end, elapsed)
	res.StudentID = s.student.ID
	res.License = s.filter.License
	s.result = &res
	s.state = domain.ExamFinished
	s.broadcastLocked()

	return Finalization{
		SessionID: s.id,
		Variant:   s.variant.Name,
		Student:   s.student,
		License:   s.filter.License,
		Questions: append([]domain.Question(nil), s.questions...),
		Result:    res,
	}
}

// finalize runs side effects outside the lock. Failures are reported, never fed back into the state machine.
func (s *Session) finalize(ctx context.Context, fin Finalization, trigger string) domain.Result {
	s.metrics.ExamFinished(fin.Variant, fin.Result.Passed, trigger)
	s.log.WithFields(logrus.Fields{
		"trigger": trigger,
		"score":   fin.Result.Score,
		"passed":  fin.Result.Passed,
	}).Info("exam session finished")

	report := s.variant.Finalizer.Finalize(ctx, fin)
	res := fin.Result
	if report.AttemptID != "" {
		res.ID = report.AttemptID
		s.mu.Lock()
		if s.result != nil {
			s.result.ID = report.AttemptID
		}
		s.mu.Unlock()
	}

	if len(report.Failures) > 0 {
		s.notify(domain.Notice{Level: domain.NoticeError, Message: "Could not save the exam result", At: s.now()})
	}
	if trigger == "timeout" {
		s.notify(domain.Notice{Level: domain.NoticeInfo, Message: "Time is up, the exam was submitted", At: s.now()})
	}
	return res
}

// Reset abandons the attempt from any state and loads a fresh question set.
// When the reload fails the session stays in NotStarted with no questions, so Start refuses.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.disarmLocked()
	s.epoch++
	epoch := s.epoch
	s.state = domain.ExamNotStarted
	s.current = 0
	s.remaining = s.budget
	s.result = nil
	s.questions = nil
	s.answers = nil
	s.broadcastLocked()
	s.mu.Unlock()

	questions, err := s.variant.Source.Acquire(ctx, s.filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.closed {
		return nil
	}
	if err != nil {
		s.log.WithError(err).Warn("reloading questions failed")
		return err
	}
	s.questions = questions
	s.answers = unansweredSlots(len(questions))
	s.broadcastLocked()
	return nil
}

// Close tears the session down: the countdown is cancelled and subscribers are released.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.disarmLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Snapshot returns the current read model.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	// ch is fresh and buffered, so this cannot block.
	ch <- s.snapshotLocked()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) armLocked() {
	s.disarmLocked()
	s.timerGen++
	s.timer = startCountdown(s.timerGen, s.newTicker(s.interval), func(gen uint64) {
		s.tick(gen, true)
	})
}

func (s *Session) disarmLocked() {
	if s.timer != nil {
		s.timer.cancel()
		s.timer = nil
	}
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:        s.id,
		Variant:          s.variant.Name,
		State:            s.state,
		Current:          s.current,
		Total:            len(s.questions),
		Answers:          append([]int(nil), s.answers...),
		RemainingSeconds: int(s.remaining / time.Second),
		Pausable:         s.variant.Pausable,
	}
	if s.current < len(s.questions) {
		view := domain.ViewOf(s.questions[s.current])
		snap.Question = &view
	}
	if s.result != nil {
		res := *s.result
		snap.Result = &res
		snap.Review = reviewOf(s.questions, s.answers)
	}
	return snap
}

func unansweredSlots(n int) []int {
	slots := make([]int, n)
	for i := range slots {
		slots[i] = domain.Unanswered
	}
	return slots
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
