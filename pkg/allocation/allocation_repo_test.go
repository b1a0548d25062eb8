package allocation

import (
	"context"
	"testing"

	"github.com/obratrack/obratrack/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationRepoImpl_Replace(t *testing.T) {
	db := test_utils.SetupTestDB(t)
	repo := NewAllocationRepo(db)
	ctx := context.Background()

	seed := func(t *testing.T) {
		t.Helper()
		_, err := db.Exec("DELETE FROM allocation")
		require.NoError(t, err)
		_, err = db.Exec("DELETE FROM bank_transaction")
		require.NoError(t, err)
		_, err = db.Exec("DELETE FROM project")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO project (id, name) VALUES (1, 'Kitchen'), (2, 'Bathroom')")
		require.NoError(t, err)
		_, err = db.Exec(
			"INSERT INTO bank_transaction (id, tx_date, amount, concept) VALUES (10, '2026-03-01', -1000, 'LEROY MERLIN')",
		)
		require.NoError(t, err)
	}

	t.Run("should replace the allocation set and the project id cache atomically", func(t *testing.T) {
		// given
		seed(t)
		err := repo.Replace(ctx, 10, []Entry{{ProjectID: 1, Amount: -1000}}, ptr(int64(1)))
		require.NoError(t, err)

		// when
		err = repo.Replace(ctx, 10, []Entry{
			{ProjectID: 1, Amount: -600},
			{ProjectID: 2, Amount: -400},
		}, ptr(int64(1)))

		// then
		require.NoError(t, err)
		allocations, err := repo.GetForTransaction(ctx, 10)
		require.NoError(t, err)
		require.Len(t, allocations, 2)
		assert.Equal(t, int64(1), allocations[0].ProjectID)
		assert.Equal(t, -600.0, allocations[0].Amount)
		assert.Equal(t, int64(2), allocations[1].ProjectID)
		assert.Equal(t, -400.0, allocations[1].Amount)

		var cached *int64
		err = db.QueryRow("SELECT project_id FROM bank_transaction WHERE id = 10").Scan(&cached)
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, int64(1), *cached)
	})

	t.Run("should clear all allocations and the cache when replacing with an empty set", func(t *testing.T) {
		// given
		seed(t)
		err := repo.Replace(ctx, 10, []Entry{{ProjectID: 1, Amount: -1000}}, ptr(int64(1)))
		require.NoError(t, err)

		// when
		err = repo.Replace(ctx, 10, nil, nil)

		// then
		require.NoError(t, err)
		allocations, err := repo.GetForTransaction(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, allocations)

		var cached *int64
		err = db.QueryRow("SELECT project_id FROM bank_transaction WHERE id = 10").Scan(&cached)
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("should roll back the whole replace when one insert violates a constraint", func(t *testing.T) {
		// given
		seed(t)
		err := repo.Replace(ctx, 10, []Entry{{ProjectID: 1, Amount: -1000}}, ptr(int64(1)))
		require.NoError(t, err)

		// when a referenced project does not exist
		err = repo.Replace(ctx, 10, []Entry{
			{ProjectID: 2, Amount: -500},
			{ProjectID: 99, Amount: -500},
		}, ptr(int64(2)))

		// then the previous set is still intact
		require.Error(t, err)
		allocations, getErr := repo.GetForTransaction(ctx, 10)
		require.NoError(t, getErr)
		require.Len(t, allocations, 1)
		assert.Equal(t, int64(1), allocations[0].ProjectID)
	})
}

func TestAllocationRepoImpl_GetTransactionAmount(t *testing.T) {
	db := test_utils.SetupTestDB(t)
	repo := NewAllocationRepo(db)
	ctx := context.Background()

	_, err := db.Exec(
		"INSERT INTO bank_transaction (id, tx_date, amount, concept) VALUES (10, '2026-03-01', -1000, 'LEROY MERLIN')",
	)
	require.NoError(t, err)

	t.Run("should return the transaction amount", func(t *testing.T) {
		amount, err := repo.GetTransactionAmount(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, -1000.0, amount)
	})

	t.Run("should return a not found error for an unknown transaction", func(t *testing.T) {
		_, err := repo.GetTransactionAmount(ctx, 404)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func ptr[T any](v T) *T {
	return &v
}
