package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type AllocationRepo interface {
	// GetTransactionAmount returns the amount of the transaction, or
	// ErrTransactionNotFound.
	GetTransactionAmount(ctx context.Context, transactionID int64) (float64, error)
	// Replace atomically deletes all allocation rows of the transaction,
	// inserts the new set and updates the denormalized project id cache.
	// No reader may observe a half-replaced state.
	Replace(ctx context.Context, transactionID int64, entries []Entry, firstProjectID *int64) error
	GetForTransaction(ctx context.Context, transactionID int64) ([]Allocation, error)
}

type AllocationRepoImpl struct {
	db *sql.DB
}

func NewAllocationRepo(db *sql.DB) *AllocationRepoImpl {
	return &AllocationRepoImpl{db: db}
}

func (r *AllocationRepoImpl) GetTransactionAmount(ctx context.Context, transactionID int64) (float64, error) {
	var amount float64
	row := r.db.QueryRowContext(ctx, "SELECT amount FROM bank_transaction WHERE id = ?", transactionID)
	if err := row.Scan(&amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTransactionNotFound
		}
		err := fmt.Errorf("could not read transaction amount: %w", err)
		log.Error(err)
		return 0, err
	}
	return amount, nil
}

func (r *AllocationRepoImpl) Replace(ctx context.Context, transactionID int64, entries []Entry, firstProjectID *int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("could not begin transaction: %w", err)
		log.Error(err)
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM allocation WHERE transaction_id = ?", transactionID); err != nil {
		err := fmt.Errorf("could not delete allocations: %w", err)
		log.Error(err)
		return err
	}

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO allocation (transaction_id, project_id, amount) VALUES (?, ?, ?)",
			transactionID, entry.ProjectID, entry.Amount,
		)
		if err != nil {
			err := fmt.Errorf("could not insert allocation: %w", err)
			log.Error(err)
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bank_transaction SET project_id = ? WHERE id = ?",
		firstProjectID, transactionID,
	); err != nil {
		err := fmt.Errorf("could not update project id cache: %w", err)
		log.Error(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("could not commit allocation replace: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *AllocationRepoImpl) GetForTransaction(ctx context.Context, transactionID int64) ([]Allocation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, transaction_id, project_id, amount FROM allocation WHERE transaction_id = ? ORDER BY id",
		transactionID,
	)
	if err != nil {
		err := fmt.Errorf("could not query allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var allocations []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.ProjectID, &a.Amount); err != nil {
			err := fmt.Errorf("could not scan allocation: %w", err)
			log.Error(err)
			return nil, err
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return allocations, nil
}
