package transaction

import (
	"context"
	"fmt"

	"github.com/obratrack/obratrack/internal/event_bus"
	"github.com/obratrack/obratrack/pkg/category"
	log "github.com/sirupsen/logrus"
)

type TransactionService interface {
	Create(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, error)
	Update(ctx context.Context, tx Transaction) (bool, error)
	Archive(ctx context.Context, id int64) (bool, error)
	Categorize(ctx context.Context, id int64, cat *category.ExpenseCategory, propagate bool) error
	SetFixedFlag(ctx context.Context, id int64, isFixed *bool, propagate bool) error
}

type TransactionServiceImpl struct {
	repo TransactionRepo
	bus  *event_bus.EventBus
}

func NewTransactionService(repo TransactionRepo, bus *event_bus.EventBus) *TransactionServiceImpl {
	return &TransactionServiceImpl{repo: repo, bus: bus}
}

// Create registers a manually entered transaction.
func (s *TransactionServiceImpl) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.ExpenseCategory != nil {
		if _, err := category.Parse(string(*tx.ExpenseCategory)); err != nil {
			return Transaction{}, err
		}
	}
	tx.IsManual = true
	tx.ExternalID = ""
	id, err := s.repo.Store(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

func (s *TransactionServiceImpl) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *TransactionServiceImpl) List(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	return s.repo.List(ctx, filter)
}

func (s *TransactionServiceImpl) Update(ctx context.Context, tx Transaction) (bool, error) {
	if tx.ExpenseCategory != nil {
		if _, err := category.Parse(string(*tx.ExpenseCategory)); err != nil {
			return false, err
		}
	}
	updated, err := s.repo.Update(ctx, tx)
	if err != nil {
		return false, err
	}
	if !updated {
		log.Warnf("transaction not updated, probably because it does not exist (%d)", tx.ID)
		return false, nil
	}
	return true, nil
}

// Archive hides the transaction from listings and from all aggregations.
// Transactions are never hard-deleted.
func (s *TransactionServiceImpl) Archive(ctx context.Context, id int64) (bool, error) {
	return s.repo.Archive(ctx, id)
}

// Categorize assigns the expense category on one transaction. This is a
// manual edit, so it publishes the categorization event; when propagate is
// set, the propagation engine picks it up and copies the category onto
// concept-matching transactions.
func (s *TransactionServiceImpl) Categorize(ctx context.Context, id int64, cat *category.ExpenseCategory, propagate bool) error {
	if cat != nil {
		if _, err := category.Parse(string(*cat)); err != nil {
			return err
		}
	}
	updated, err := s.repo.UpdateField(ctx, id, FieldCategory, cat, nil)
	if err != nil {
		return err
	}
	if !updated {
		return ErrTransactionNotFound
	}
	if propagate {
		return s.publishCategorized(ctx, id, FieldCategory)
	}
	return nil
}

func (s *TransactionServiceImpl) SetFixedFlag(ctx context.Context, id int64, isFixed *bool, propagate bool) error {
	updated, err := s.repo.UpdateField(ctx, id, FieldFixedFlag, nil, isFixed)
	if err != nil {
		return err
	}
	if !updated {
		return ErrTransactionNotFound
	}
	if propagate {
		return s.publishCategorized(ctx, id, FieldFixedFlag)
	}
	return nil
}

func (s *TransactionServiceImpl) publishCategorized(ctx context.Context, id int64, field PropagationField) error {
	event := event_bus.NewEvent(ctx, event_bus.TransactionCategorizedEvent, event_bus.TransactionCategorized{
		TransactionID: id,
		Field:         string(field),
	})
	if err := s.bus.Publish(event); err != nil {
		return fmt.Errorf("failed to publish categorization event: %w", err)
	}
	return nil
}
