package app

import (
	"context"
	"fmt"

	"autoescola-portal/internal/domain"
)

// QuestionSource produces the ordered question set of a session.
type QuestionSource interface {
	Acquire(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// FixedSource always yields the same curated questions in authored order.
type FixedSource struct {
	questions []domain.Question
}

func NewFixedSource(questions []domain.Question) *FixedSource {
	return &FixedSource{questions: questions}
}

func (s *FixedSource) Acquire(_ context.Context, _ domain.QuestionFilter) ([]domain.Question, error) {
	return append([]domain.Question(nil), s.questions...), nil
}

// BankSource samples a filtered question bank.
type BankSource struct {
	bank    QuestionBank
	sampler *Sampler
	min     int
	max     int
}

func NewBankSource(bank QuestionBank, sampler *Sampler) *BankSource {
	if sampler == nil {
		sampler = NewSampler()
	}
	return &BankSource{
		bank:    bank,
		sampler: sampler,
		min:     domain.MinBankQuestions,
		max:     domain.MaxBankQuestions,
	}
}

// Acquire lists active questions for the license (and optional category/difficulty),
// refuses pools smaller than the minimum and keeps a shuffled subset of at most max.
func (s *BankSource) Acquire(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	pool, err := s.bank.ListQuestions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	valid := pool[:0:0]
	for _, q := range pool {
		if q.Validate() == nil {
			valid = append(valid, q)
		}
	}
	if len(valid) < s.min {
		return nil, fmt.Errorf("%w: %d matching, need %d", domain.ErrInsufficientQuestions, len(valid), s.min)
	}
	return s.sampler.Sample(valid, s.max), nil
}
