package ocrbudget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type OcrBudgetRepo interface {
	// Get returns the usage for the month, or zero usage when no row exists.
	Get(ctx context.Context, month string) (MonthlyUsage, error)
	// Add increments the month's spend and call count in a single upsert so
	// concurrent callers never lose an update.
	Add(ctx context.Context, month string, costCents int64) error
}

type OcrBudgetRepoImpl struct {
	db *sql.DB
}

func NewOcrBudgetRepo(db *sql.DB) *OcrBudgetRepoImpl {
	return &OcrBudgetRepoImpl{db: db}
}

func (r *OcrBudgetRepoImpl) Get(ctx context.Context, month string) (MonthlyUsage, error) {
	usage := MonthlyUsage{Month: month}
	row := r.db.QueryRowContext(ctx,
		"SELECT spent_cents, call_count FROM monthly_ocr_budget WHERE month = ?", month,
	)
	if err := row.Scan(&usage.SpentCents, &usage.CallCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usage, nil
		}
		err := fmt.Errorf("could not read monthly ocr budget: %w", err)
		log.Error(err)
		return MonthlyUsage{}, err
	}
	return usage, nil
}

func (r *OcrBudgetRepoImpl) Add(ctx context.Context, month string, costCents int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_ocr_budget (month, spent_cents, call_count) VALUES (?, ?, 1)
		ON CONFLICT (month) DO UPDATE SET
			spent_cents = spent_cents + excluded.spent_cents,
			call_count = call_count + 1`,
		month, costCents,
	)
	if err != nil {
		err := fmt.Errorf("could not record ocr spend: %w", err)
		log.Error(err)
		return err
	}
	return nil
}
