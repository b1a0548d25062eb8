package app

import (
	"context"
	"testing"
	"time"

	"github.com/obratrack/obratrack/internal/config"
	"github.com/obratrack/obratrack/internal/test_utils"
	"github.com/obratrack/obratrack/pkg/allocation"
	"github.com/obratrack/obratrack/pkg/category"
	"github.com/obratrack/obratrack/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDependencies(t *testing.T) {
	db := test_utils.SetupTestDB(t)
	cfg := config.Application{Ocr: config.Ocr{MonthlyCapCents: 5000, CallCostCents: 10}}
	deps, err := BuildDependencies(db, cfg)
	require.NoError(t, err)
	ctx := context.Background()

	storeTx := func(t *testing.T, concept string, amount float64) transaction.Transaction {
		t.Helper()
		tx, err := deps.TransactionService.Create(ctx, transaction.Transaction{
			Date:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Amount:  amount,
			Concept: concept,
		})
		require.NoError(t, err)
		return tx
	}

	t.Run("should propagate a manual categorization to accented concept matches", func(t *testing.T) {
		// given two bank rows sharing a non-ASCII concept
		source := storeTx(t, "CAÑERÍAS GARCÍA", -120)
		other := storeTx(t, "CAÑERÍAS GARCÍA", -80)

		// when the category is set manually with propagation on
		cat := category.MaterialYManoDeObra
		err := deps.TransactionService.Categorize(ctx, source.ID, &cat, true)

		// then the sibling row picked it up through the event bus
		require.NoError(t, err)
		got, err := deps.TransactionService.Get(ctx, other.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ExpenseCategory)
		assert.Equal(t, category.MaterialYManoDeObra, *got.ExpenseCategory)
	})

	t.Run("should deliver the allocations replaced event to its subscriber", func(t *testing.T) {
		// given
		_, err := db.Exec("INSERT INTO project (id, name) VALUES (1, 'Kitchen')")
		require.NoError(t, err)
		tx := storeTx(t, "BAÑOS RUIZ", -1000)

		// when
		err = deps.LedgerService.Replace(ctx, tx.ID, []allocation.Entry{{ProjectID: 1, Amount: -1000}})

		// then the subscribed audit hook ran without failing the replace
		require.NoError(t, err)
		allocations, err := deps.LedgerService.GetForTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, allocations, 1)
		assert.Equal(t, int64(1), allocations[0].ProjectID)
	})
}
