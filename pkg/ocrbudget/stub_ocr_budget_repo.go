package ocrbudget

import (
	"context"
	"sync"
)

type StubOcrBudgetRepo struct {
	mu    sync.Mutex
	usage map[string]MonthlyUsage
}

func NewStubOcrBudgetRepo() *StubOcrBudgetRepo {
	return &StubOcrBudgetRepo{usage: map[string]MonthlyUsage{}}
}

func (s *StubOcrBudgetRepo) Get(ctx context.Context, month string) (MonthlyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage, ok := s.usage[month]
	if !ok {
		return MonthlyUsage{Month: month}, nil
	}
	return usage, nil
}

func (s *StubOcrBudgetRepo) Add(ctx context.Context, month string, costCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage := s.usage[month]
	usage.Month = month
	usage.SpentCents += costCents
	usage.CallCount++
	s.usage[month] = usage
	return nil
}

func (s *StubOcrBudgetRepo) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = map[string]MonthlyUsage{}
}
