package stats

import (
	"context"

	"github.com/obratrack/obratrack/pkg/project"
)

type StubStatsRepo struct {
	Allocations  []AllocationRow
	Transactions []TransactionRow
}

func (s *StubStatsRepo) ExpenseAllocations(ctx context.Context) ([]AllocationRow, error) {
	return s.Allocations, nil
}

func (s *StubStatsRepo) ExpenseTransactions(ctx context.Context) ([]TransactionRow, error) {
	return s.Transactions, nil
}

func (s *StubStatsRepo) Cleanup() {
	s.Allocations = nil
	s.Transactions = nil
}

type StubProjectLister struct {
	Projects []project.Project
}

func (s *StubProjectLister) GetAll(ctx context.Context) ([]project.Project, error) {
	return s.Projects, nil
}

func (s *StubProjectLister) Cleanup() {
	s.Projects = nil
}
