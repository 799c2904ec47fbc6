package app_test

import (
	"testing"

	"autoescola-portal/internal/app"
)

func TestSamplerReproducibleWithSeed(t *testing.T) {
	pool := bankQuestions(40)
	a := app.NewSeededSampler(42).Sample(pool, 30)
	b := app.NewSeededSampler(42).Sample(pool, 30)

	if len(a) != 30 || len(b) != 30 {
		t.Fatalf("expected 30 questions, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("same seed must give same order, differs at %d", i)
		}
	}
}

func TestSamplerKeepsDistinctQuestions(t *testing.T) {
	pool := bankQuestions(15)
	out := app.NewSeededSampler(1).Sample(pool, 30)
	if len(out) != 15 {
		t.Fatalf("expected whole pool, got %d", len(out))
	}
	seen := map[string]bool{}
	for _, q := range out {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
	}
	if pool[0].ID != "q01" || pool[14].ID != "q15" {
		t.Fatalf("input pool must not be reordered")
	}
}
