package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedQuestionBank caches filtered question lists with a TTL so repeated exam
// openings do not hit the backing bank every time.
type CachedQuestionBank struct {
	bank  app.QuestionBank
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionBank(bank app.QuestionBank, ttl time.Duration) *CachedQuestionBank {
	return &CachedQuestionBank{
		bank:  bank,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuestions),
	}
}

func (r *CachedQuestionBank) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := filterKey(filter)
	if qs, ok := r.lookup(key); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if qs, ok := r.lookup(key); ok {
			return qs, nil
		}
		qs, err := r.bank.ListQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}
		expiresAt := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		r.cache[key] = cachedQuestions{
			questions: qs,
			expiresAt: expiresAt,
		}
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

// UpdateQuestionStats writes through and drops every cached list, since any of them may hold the question.
func (r *CachedQuestionBank) UpdateQuestionStats(ctx context.Context, questionID string, stats domain.QuestionStats) error {
	if err := r.bank.UpdateQuestionStats(ctx, questionID, stats); err != nil {
		return err
	}
	r.mu.Lock()
	r.cache = make(map[string]cachedQuestions)
	r.mu.Unlock()
	return nil
}

func (r *CachedQuestionBank) lookup(key string) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return append([]domain.Question(nil), entry.questions...), true
}

func (r *CachedQuestionBank) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func filterKey(f domain.QuestionFilter) string {
	return fmt.Sprintf("%s|%s|%s|%d", f.License, f.Category, f.Difficulty, f.Limit)
}
