package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches filtered question lists in Redis and falls back to the bank on a miss.
// Lists are stored as JSON under questions:list:{filter}; every key is tracked in the
// questions:keys set so a stats update can drop them all.
type QuestionCache struct {
	client *redis.Client
	bank   app.QuestionBank
	ttl    time.Duration
	log    *logrus.Entry
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, bank app.QuestionBank, ttl time.Duration, log *logrus.Entry) *QuestionCache {
	if log == nil {
		log = logger.Discard()
	}
	return &QuestionCache{
		client: client,
		bank:   bank,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionCache) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := r.listKey(filter)
	if qs, ok := r.cached(ctx, key); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if qs, ok := r.cached(ctx, key); ok {
			return qs, nil
		}
		qs, err := r.bank.ListQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(qs)
		if err != nil {
			return nil, fmt.Errorf("encode questions: %w", err)
		}
		pipe := r.client.TxPipeline()
		pipe.Set(ctx, key, payload, r.ttlWithJitter())
		pipe.SAdd(ctx, keysIndex, key)
		// best-effort: a failed write only costs a reload next time
		_, _ = pipe.Exec(ctx)
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// UpdateQuestionStats writes through to the bank and drops every cached list.
// Once the bank write succeeds a failed invalidation is only logged; stale lists expire with the TTL.
func (r *QuestionCache) UpdateQuestionStats(ctx context.Context, questionID string, stats domain.QuestionStats) error {
	if err := r.bank.UpdateQuestionStats(ctx, questionID, stats); err != nil {
		return err
	}
	if err := r.Invalidate(ctx); err != nil {
		r.log.WithField("question_id", questionID).WithError(err).Warn("dropping cached question lists failed")
	}
	return nil
}

// Invalidate removes all cached question lists.
func (r *QuestionCache) Invalidate(ctx context.Context) error {
	keys, err := r.client.SMembers(ctx, keysIndex).Result()
	if err != nil {
		return fmt.Errorf("list cached keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, append(keys, keysIndex)...).Err()
}

func (r *QuestionCache) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(payload, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

const keysIndex = "questions:keys"

func (r *QuestionCache) listKey(f domain.QuestionFilter) string {
	return fmt.Sprintf("questions:list:%s:%s:%s:%d", f.License, f.Category, f.Difficulty, f.Limit)
}

func (r *QuestionCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
