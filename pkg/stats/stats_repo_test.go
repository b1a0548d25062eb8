package stats

import (
	"context"
	"testing"

	"github.com/obratrack/obratrack/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRepoImpl(t *testing.T) {
	db := test_utils.SetupTestDB(t)
	repo := NewStatsRepo(db)
	ctx := context.Background()

	_, err := db.Exec("INSERT INTO project (id, name) VALUES (1, 'Kitchen'), (2, 'Bathroom')")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO bank_transaction (id, tx_date, amount, concept, expense_category, is_fixed, archived) VALUES
		(10, '2026-03-01', -600, 'obra', 'MATERIAL_Y_MANO_DE_OBRA', 0, 0),
		(11, '2026-03-02', -200, 'luz', 'SUMINISTROS', 1, 0),
		(12, '2026-03-03', -999, 'duplicada', 'SUMINISTROS', 1, 1),
		(13, '2026-03-04', 500, 'ingreso', NULL, NULL, 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO allocation (transaction_id, project_id, amount) VALUES
		(10, 1, -400), (10, 2, -200),
		(11, 1, -200),
		(12, 1, -999)`)
	require.NoError(t, err)

	t.Run("should return allocation slices of non-archived expenses only", func(t *testing.T) {
		rows, err := repo.ExpenseAllocations(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for _, row := range rows {
			assert.NotEqual(t, -999.0, row.Amount)
		}
	})

	t.Run("should carry the transaction categorization on each slice", func(t *testing.T) {
		rows, err := repo.ExpenseAllocations(ctx)
		require.NoError(t, err)
		var bathroom []AllocationRow
		for _, row := range rows {
			if row.ProjectID == 2 {
				bathroom = append(bathroom, row)
			}
		}
		require.Len(t, bathroom, 1)
		assert.Equal(t, -200.0, bathroom[0].Amount)
		require.NotNil(t, bathroom[0].Category)
		assert.Equal(t, "MATERIAL_Y_MANO_DE_OBRA", string(*bathroom[0].Category))
	})

	t.Run("should exclude archived transactions and income from the expense list", func(t *testing.T) {
		rows, err := repo.ExpenseTransactions(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Negative(t, row.Amount)
			assert.NotEqual(t, -999.0, row.Amount)
		}
	})
}
