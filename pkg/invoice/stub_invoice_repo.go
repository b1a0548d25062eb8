package invoice

import (
	"context"
)

type StubInvoiceRepo struct {
	nextId   int64
	invoices map[int64]Invoice
	// FailStore makes the next Store call return this error, for exercising
	// the compensating cleanup path.
	FailStore error
}

func NewStubInvoiceRepo() *StubInvoiceRepo {
	return &StubInvoiceRepo{invoices: map[int64]Invoice{}}
}

func (s *StubInvoiceRepo) Store(ctx context.Context, inv Invoice) (int64, error) {
	if s.FailStore != nil {
		err := s.FailStore
		s.FailStore = nil
		return 0, err
	}
	s.nextId++
	inv.ID = s.nextId
	s.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (s *StubInvoiceRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (s *StubInvoiceRepo) GetAll(ctx context.Context) ([]Invoice, error) {
	invoices := make([]Invoice, 0, len(s.invoices))
	for id := int64(1); id <= s.nextId; id++ {
		if inv, ok := s.invoices[id]; ok {
			invoices = append(invoices, inv)
		}
	}
	return invoices, nil
}

func (s *StubInvoiceRepo) UpdateStatus(ctx context.Context, id int64, status OcrStatus) error {
	inv, ok := s.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.OcrStatus = status
	s.invoices[id] = inv
	return nil
}

func (s *StubInvoiceRepo) UpdateOcrResult(ctx context.Context, updated Invoice) error {
	inv, ok := s.invoices[updated.ID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.OcrStatus = updated.OcrStatus
	inv.OcrFields = updated.OcrFields
	inv.OcrError = updated.OcrError
	inv.OcrCostCents = updated.OcrCostCents
	s.invoices[updated.ID] = inv
	return nil
}

func (s *StubInvoiceRepo) SetTransaction(ctx context.Context, id int64, transactionID *int64) error {
	inv, ok := s.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.TransactionID = transactionID
	s.invoices[id] = inv
	return nil
}

func (s *StubInvoiceRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := s.invoices[id]; !ok {
		return false, nil
	}
	delete(s.invoices, id)
	return true, nil
}

func (s *StubInvoiceRepo) CountForTransaction(ctx context.Context, transactionID int64) (int64, error) {
	var count int64
	for _, inv := range s.invoices {
		if inv.TransactionID != nil && *inv.TransactionID == transactionID {
			count++
		}
	}
	return count, nil
}

func (s *StubInvoiceRepo) Cleanup() {
	s.nextId = 0
	s.invoices = map[int64]Invoice{}
	s.FailStore = nil
}
