package app

import (
	"math/rand"
	"sync"
	"time"

	"autoescola-portal/internal/domain"
)

// Sampler draws a uniformly shuffled subset of questions. Safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSampler seeds from the clock.
func NewSampler() *Sampler {
	return NewSeededSampler(time.Now().UnixNano())
}

// NewSeededSampler gives reproducible draws for a given seed.
func NewSeededSampler(seed int64) *Sampler {
	return &Sampler{rnd: rand.New(rand.NewSource(seed))}
}

// Sample returns up to n questions in Fisher-Yates shuffled order. The input is not modified.
func (s *Sampler) Sample(pool []domain.Question, n int) []domain.Question {
	out := append([]domain.Question(nil), pool...)

	s.mu.Lock()
	for i := len(out) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	s.mu.Unlock()

	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
