package allocation

import (
	"context"
	"fmt"
	"math"

	"github.com/obratrack/obratrack/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// ProjectChecker is the slice of the project repository the ledger needs.
type ProjectChecker interface {
	Exists(ctx context.Context, ids []int64) (bool, error)
}

type LedgerService interface {
	// Replace validates and atomically replaces the transaction's allocation
	// set. An empty entry list unassigns the transaction.
	Replace(ctx context.Context, transactionID int64, entries []Entry) error
	// AssignProject is the single-project shortcut: one allocation carrying
	// the full transaction amount.
	AssignProject(ctx context.Context, transactionID int64, projectID int64) error
	Unassign(ctx context.Context, transactionID int64) error
	GetForTransaction(ctx context.Context, transactionID int64) ([]Allocation, error)
}

type LedgerServiceImpl struct {
	repo     AllocationRepo
	projects ProjectChecker
	bus      *event_bus.EventBus
}

func NewLedgerService(repo AllocationRepo, projects ProjectChecker, bus *event_bus.EventBus) *LedgerServiceImpl {
	return &LedgerServiceImpl{repo: repo, projects: projects, bus: bus}
}

func (s *LedgerServiceImpl) Replace(ctx context.Context, transactionID int64, entries []Entry) error {
	amount, err := s.repo.GetTransactionAmount(ctx, transactionID)
	if err != nil {
		return err
	}

	if err := s.validate(ctx, amount, entries); err != nil {
		return err
	}

	var firstProjectID *int64
	if len(entries) > 0 {
		firstProjectID = &entries[0].ProjectID
	}

	if err := s.repo.Replace(ctx, transactionID, entries, firstProjectID); err != nil {
		return err
	}

	projectIDs := make([]int64, 0, len(entries))
	for _, entry := range entries {
		projectIDs = append(projectIDs, entry.ProjectID)
	}
	event := event_bus.NewEvent(ctx, event_bus.AllocationsReplacedEvent, event_bus.AllocationsReplaced{
		TransactionID: transactionID,
		ProjectIDs:    projectIDs,
	})
	if err := s.bus.Publish(event); err != nil {
		// The replace itself committed; subscribers are informational.
		log.Warnf("allocations replaced but event delivery failed: %v", err)
	}
	return nil
}

func (s *LedgerServiceImpl) AssignProject(ctx context.Context, transactionID int64, projectID int64) error {
	amount, err := s.repo.GetTransactionAmount(ctx, transactionID)
	if err != nil {
		return err
	}
	return s.Replace(ctx, transactionID, []Entry{{ProjectID: projectID, Amount: amount}})
}

func (s *LedgerServiceImpl) Unassign(ctx context.Context, transactionID int64) error {
	return s.Replace(ctx, transactionID, nil)
}

func (s *LedgerServiceImpl) GetForTransaction(ctx context.Context, transactionID int64) ([]Allocation, error) {
	return s.repo.GetForTransaction(ctx, transactionID)
}

func (s *LedgerServiceImpl) validate(ctx context.Context, transactionAmount float64, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	sum := 0.0
	projectIDs := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if !sameSign(transactionAmount, entry.Amount) {
			return fmt.Errorf("%w: transaction %.2f, allocation %.2f", ErrSignMismatch, transactionAmount, entry.Amount)
		}
		sum += entry.Amount
		projectIDs = append(projectIDs, entry.ProjectID)
	}

	if math.Abs(sum-transactionAmount) > AmountTolerance {
		return fmt.Errorf("%w: transaction %.2f, allocations sum %.2f", ErrAllocationMismatch, transactionAmount, sum)
	}

	ok, err := s.projects.Exists(ctx, projectIDs)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidProject
	}
	return nil
}

func sameSign(a, b float64) bool {
	if a < 0 {
		return b < 0
	}
	return b > 0
}
