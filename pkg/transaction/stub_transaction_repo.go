package transaction

import (
	"context"
	"sort"
	"time"

	"github.com/obratrack/obratrack/pkg/category"
)

type StubTransactionRepo struct {
	nextId int64
	data   map[int64]Transaction
}

func NewStubTransactionRepo() *StubTransactionRepo {
	return &StubTransactionRepo{data: map[int64]Transaction{}}
}

func (s *StubTransactionRepo) Store(ctx context.Context, tx Transaction) (int64, error) {
	s.nextId++
	tx.ID = s.nextId
	s.data[tx.ID] = tx
	return tx.ID, nil
}

func (s *StubTransactionRepo) Get(ctx context.Context, id int64) (Transaction, error) {
	tx, ok := s.data[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *StubTransactionRepo) List(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	var txs []Transaction
	for _, tx := range s.sorted() {
		if !filter.IncludeArchived && tx.Archived {
			continue
		}
		if filter.ProjectID != nil && (tx.ProjectID == nil || *tx.ProjectID != *filter.ProjectID) {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *StubTransactionRepo) Update(ctx context.Context, tx Transaction) (bool, error) {
	existing, ok := s.data[tx.ID]
	if !ok {
		return false, nil
	}
	existing.Date = tx.Date
	existing.Amount = tx.Amount
	existing.Concept = tx.Concept
	existing.ExpenseCategory = tx.ExpenseCategory
	existing.IsFixed = tx.IsFixed
	existing.Notes = tx.Notes
	s.data[tx.ID] = existing
	return true, nil
}

func (s *StubTransactionRepo) Archive(ctx context.Context, id int64) (bool, error) {
	tx, ok := s.data[id]
	if !ok {
		return false, nil
	}
	tx.Archived = true
	s.data[id] = tx
	return true, nil
}

func (s *StubTransactionRepo) FindByExternalID(ctx context.Context, externalID string) (Transaction, error) {
	for _, tx := range s.data {
		if tx.ExternalID == externalID {
			return tx, nil
		}
	}
	return Transaction{}, ErrTransactionNotFound
}

func (s *StubTransactionRepo) UpdateSyncedFields(ctx context.Context, id int64, date time.Time, amount float64, concept, rawCategory string) (bool, error) {
	tx, ok := s.data[id]
	if !ok {
		return false, nil
	}
	tx.Date = date
	tx.Amount = amount
	tx.Concept = concept
	tx.RawCategory = rawCategory
	s.data[id] = tx
	return true, nil
}

func (s *StubTransactionRepo) UpdateField(ctx context.Context, id int64, field PropagationField, cat *category.ExpenseCategory, isFixed *bool) (bool, error) {
	tx, ok := s.data[id]
	if !ok {
		return false, nil
	}
	switch field {
	case FieldCategory:
		tx.ExpenseCategory = cat
	case FieldFixedFlag:
		tx.IsFixed = isFixed
	}
	s.data[id] = tx
	return true, nil
}

func (s *StubTransactionRepo) PropagateField(ctx context.Context, normalizedConcept string, sourceID int64, field PropagationField, cat *category.ExpenseCategory, isFixed *bool, limit int) (int64, error) {
	var updated int64
	for _, tx := range s.sorted() {
		if updated >= int64(limit) {
			break
		}
		if tx.ID == sourceID {
			continue
		}
		if NormalizeConcept(tx.Concept) != normalizedConcept {
			continue
		}
		switch field {
		case FieldCategory:
			tx.ExpenseCategory = cat
		case FieldFixedFlag:
			tx.IsFixed = isFixed
		}
		s.data[tx.ID] = tx
		updated++
	}
	return updated, nil
}

func (s *StubTransactionRepo) FindExpenseCandidates(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	for _, tx := range s.sorted() {
		if tx.IsExpense() && !tx.Archived {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (s *StubTransactionRepo) SetHasInvoice(ctx context.Context, id int64, hasInvoice bool) error {
	tx, ok := s.data[id]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.HasInvoice = hasInvoice
	s.data[id] = tx
	return nil
}

// SetProjectID mimics the allocation ledger updating the denormalized cache.
func (s *StubTransactionRepo) SetProjectID(id int64, projectID *int64) {
	tx := s.data[id]
	tx.ProjectID = projectID
	s.data[id] = tx
}

func (s *StubTransactionRepo) sorted() []Transaction {
	ids := make([]int64, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	txs := make([]Transaction, 0, len(ids))
	for _, id := range ids {
		txs = append(txs, s.data[id])
	}
	return txs
}

func (s *StubTransactionRepo) Cleanup() {
	s.data = map[int64]Transaction{}
	s.nextId = 0
}
