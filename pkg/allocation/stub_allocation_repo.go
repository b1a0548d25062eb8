package allocation

import (
	"context"
)

type StubAllocationRepo struct {
	nextId       int64
	amounts      map[int64]float64
	allocations  map[int64][]Allocation
	projectCache map[int64]*int64
}

func NewStubAllocationRepo() *StubAllocationRepo {
	return &StubAllocationRepo{
		amounts:      map[int64]float64{},
		allocations:  map[int64][]Allocation{},
		projectCache: map[int64]*int64{},
	}
}

// AddTransaction registers a transaction amount the ledger can allocate.
func (s *StubAllocationRepo) AddTransaction(id int64, amount float64) {
	s.amounts[id] = amount
}

// ProjectCache exposes the denormalized project id for assertions.
func (s *StubAllocationRepo) ProjectCache(transactionID int64) *int64 {
	return s.projectCache[transactionID]
}

func (s *StubAllocationRepo) GetTransactionAmount(ctx context.Context, transactionID int64) (float64, error) {
	amount, ok := s.amounts[transactionID]
	if !ok {
		return 0, ErrTransactionNotFound
	}
	return amount, nil
}

func (s *StubAllocationRepo) Replace(ctx context.Context, transactionID int64, entries []Entry, firstProjectID *int64) error {
	rows := make([]Allocation, 0, len(entries))
	for _, entry := range entries {
		s.nextId++
		rows = append(rows, Allocation{
			ID:            s.nextId,
			TransactionID: transactionID,
			ProjectID:     entry.ProjectID,
			Amount:        entry.Amount,
		})
	}
	s.allocations[transactionID] = rows
	s.projectCache[transactionID] = firstProjectID
	return nil
}

func (s *StubAllocationRepo) GetForTransaction(ctx context.Context, transactionID int64) ([]Allocation, error) {
	return s.allocations[transactionID], nil
}

func (s *StubAllocationRepo) Cleanup() {
	s.nextId = 0
	s.amounts = map[int64]float64{}
	s.allocations = map[int64][]Allocation{}
	s.projectCache = map[int64]*int64{}
}
