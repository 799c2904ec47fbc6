package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/infra/memory"
)

var errBoom = errors.New("boom")

// idleTicker never fires; tests drive the countdown with Session.Tick.
type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

func idleTickers(time.Duration) app.Ticker { return idleTicker{} }

// manualTicker fires when the test sends on ch.
type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (f *tickerFactory) New(time.Duration) app.Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) last() *manualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

func (f *tickerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

type countingFinalizer struct {
	calls atomic.Int32
	last  atomic.Value
}

func (f *countingFinalizer) Finalize(_ context.Context, fin app.Finalization) app.Report {
	f.calls.Add(1)
	f.last.Store(fin)
	return app.Report{AttemptID: "attempt-1"}
}

type failingFinalizer struct{}

func (failingFinalizer) Finalize(context.Context, app.Finalization) app.Report {
	return app.Report{Failures: []app.StepFailure{{Step: app.StepAttempt, Err: errBoom}}}
}

// bankQuestions builds n valid active category-B questions whose correct option is 0.
func bankQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:       fmt.Sprintf("q%02d", i+1),
			Prompt:   fmt.Sprintf("Pergunta %d", i+1),
			Options:  []string{"a", "b", "c", "d"},
			Correct:  0,
			Category: "legislacao",
			Licenses: []string{"B"},
			Active:   true,
		}
	}
	return qs
}

func seededStore(questions []domain.Question) *memory.Store {
	store := memory.NewStore()
	for _, q := range questions {
		store.PutQuestion(q)
	}
	return store
}

// flakyBank fails stats updates for the listed question ids.
type flakyBank struct {
	*memory.Store
	failStats map[string]bool
}

func (b *flakyBank) UpdateQuestionStats(ctx context.Context, id string, stats domain.QuestionStats) error {
	if b.failStats[id] {
		return errBoom
	}
	return b.Store.UpdateQuestionStats(ctx, id, stats)
}

type failingAttempts struct{ *memory.Store }

func (failingAttempts) CreateAttempt(context.Context, domain.Result) (string, error) {
	return "", errBoom
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []domain.Email
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg domain.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []domain.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Email(nil), m.sent...)
}
