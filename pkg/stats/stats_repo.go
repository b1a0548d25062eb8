package stats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/obratrack/obratrack/pkg/category"
	log "github.com/sirupsen/logrus"
)

// AllocationRow is one allocation slice joined with its transaction's
// categorization fields. Only non-archived expense rows are returned.
type AllocationRow struct {
	ProjectID int64
	Amount    float64
	Category  *category.ExpenseCategory
	IsFixed   *bool
}

// TransactionRow is one non-archived expense transaction, allocated or not.
type TransactionRow struct {
	Amount   float64
	Category *category.ExpenseCategory
	IsFixed  *bool
}

type StatsRepo interface {
	// ExpenseAllocations returns all allocation slices of non-archived
	// expense transactions. Project filtering happens in the service so that
	// company-wide figures always see the full data set.
	ExpenseAllocations(ctx context.Context) ([]AllocationRow, error)
	// ExpenseTransactions returns all non-archived expense transactions.
	ExpenseTransactions(ctx context.Context) ([]TransactionRow, error)
}

type StatsRepoImpl struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepoImpl {
	return &StatsRepoImpl{db: db}
}

func (r *StatsRepoImpl) ExpenseAllocations(ctx context.Context) ([]AllocationRow, error) {
	query := `SELECT a.project_id, a.amount, t.expense_category, t.is_fixed
		FROM allocation a
		JOIN bank_transaction t ON t.id = a.transaction_id
		WHERE t.archived = 0 AND a.amount < 0`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query expense allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var result []AllocationRow
	for rows.Next() {
		var row AllocationRow
		var cat sql.NullString
		var isFixed sql.NullBool
		if err := rows.Scan(&row.ProjectID, &row.Amount, &cat, &isFixed); err != nil {
			err := fmt.Errorf("could not scan expense allocation: %w", err)
			log.Error(err)
			return nil, err
		}
		row.Category, row.IsFixed = categorization(cat, isFixed)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return result, nil
}

func (r *StatsRepoImpl) ExpenseTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT amount, expense_category, is_fixed FROM bank_transaction WHERE archived = 0 AND amount < 0",
	)
	if err != nil {
		err := fmt.Errorf("could not query expense transactions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var result []TransactionRow
	for rows.Next() {
		var row TransactionRow
		var cat sql.NullString
		var isFixed sql.NullBool
		if err := rows.Scan(&row.Amount, &cat, &isFixed); err != nil {
			err := fmt.Errorf("could not scan expense transaction: %w", err)
			log.Error(err)
			return nil, err
		}
		row.Category, row.IsFixed = categorization(cat, isFixed)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return result, nil
}

func categorization(cat sql.NullString, isFixed sql.NullBool) (*category.ExpenseCategory, *bool) {
	var c *category.ExpenseCategory
	if cat.Valid {
		parsed := category.ExpenseCategory(cat.String)
		c = &parsed
	}
	var f *bool
	if isFixed.Valid {
		f = &isFixed.Bool
	}
	return c, f
}
