package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/obratrack/obratrack/internal/test_utils"
	"github.com/obratrack/obratrack/pkg/category"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepoImpl_PropagateField(t *testing.T) {
	db := test_utils.SetupTestDB(t)
	repo := NewTransactionRepo(db)
	propagator := NewPropagator(repo)
	ctx := context.Background()

	store := func(t *testing.T, concept string) int64 {
		t.Helper()
		id, err := repo.Store(ctx, Transaction{
			Date:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Amount:  -100,
			Concept: concept,
		})
		require.NoError(t, err)
		return id
	}
	reset := func(t *testing.T) {
		t.Helper()
		_, err := db.Exec("DELETE FROM bank_transaction")
		require.NoError(t, err)
	}
	categoryOf := func(t *testing.T, id int64) *category.ExpenseCategory {
		t.Helper()
		tx, err := repo.Get(ctx, id)
		require.NoError(t, err)
		return tx.ExpenseCategory
	}

	t.Run("should propagate to byte-identical concepts with non-ASCII letters", func(t *testing.T) {
		// given
		reset(t)
		sourceID := store(t, "CAÑERÍAS GARCÍA")
		firstID := store(t, "CAÑERÍAS GARCÍA")
		secondID := store(t, "CAÑERÍAS GARCÍA")

		cat := category.MaterialYManoDeObra
		_, err := repo.UpdateField(ctx, sourceID, FieldCategory, &cat, nil)
		require.NoError(t, err)

		// when
		updated, err := propagator.Propagate(ctx, sourceID, FieldCategory)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated)
		for _, id := range []int64{firstID, secondID} {
			got := categoryOf(t, id)
			require.NotNil(t, got)
			assert.Equal(t, category.MaterialYManoDeObra, *got)
		}
	})

	t.Run("should fold case and whitespace of accented concepts", func(t *testing.T) {
		// given
		reset(t)
		sourceID := store(t, "cañerías garcía")
		matchID := store(t, "  CAÑERÍAS GARCÍA ")
		otherID := store(t, "FONTANERÍA RUIZ")

		cat := category.Suministros
		_, err := repo.UpdateField(ctx, sourceID, FieldCategory, &cat, nil)
		require.NoError(t, err)

		// when
		updated, err := propagator.Propagate(ctx, sourceID, FieldCategory)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)
		got := categoryOf(t, matchID)
		require.NotNil(t, got)
		assert.Equal(t, category.Suministros, *got)
		assert.Nil(t, categoryOf(t, otherID))
	})

	t.Run("should match the whole concept only, never a substring", func(t *testing.T) {
		// given
		reset(t)
		sourceID := store(t, "LEROY MERLIN")
		supersetID := store(t, "LEROY MERLIN MADRID")

		cat := category.Mobiliario
		_, err := repo.UpdateField(ctx, sourceID, FieldCategory, &cat, nil)
		require.NoError(t, err)

		// when
		updated, err := propagator.Propagate(ctx, sourceID, FieldCategory)

		// then
		require.NoError(t, err)
		assert.Zero(t, updated)
		assert.Nil(t, categoryOf(t, supersetID))
	})

	t.Run("should stop at the row limit in stable id order", func(t *testing.T) {
		// given
		reset(t)
		sourceID := store(t, "IBERDROLA")
		firstID := store(t, "IBERDROLA")
		secondID := store(t, "IBERDROLA")
		thirdID := store(t, "IBERDROLA")

		cat := category.Suministros

		// when
		updated, err := repo.PropagateField(ctx, NormalizeConcept("IBERDROLA"), sourceID, FieldCategory, &cat, nil, 2)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated)
		assert.NotNil(t, categoryOf(t, firstID))
		assert.NotNil(t, categoryOf(t, secondID))
		assert.Nil(t, categoryOf(t, thirdID))
	})

	t.Run("should propagate the fixed flag after a synced concept update", func(t *testing.T) {
		// given a re-synced concept, so the normalized form was rewritten
		reset(t)
		sourceID := store(t, "GRÚAS DEL SUR")
		matchID := store(t, "placeholder")
		ok, err := repo.UpdateSyncedFields(ctx, matchID, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), -200, "grúas del sur", "TRANSFER")
		require.NoError(t, err)
		require.True(t, ok)

		isFixed := true
		_, err = repo.UpdateField(ctx, sourceID, FieldFixedFlag, nil, &isFixed)
		require.NoError(t, err)

		// when
		updated, err := propagator.Propagate(ctx, sourceID, FieldFixedFlag)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)
		tx, err := repo.Get(ctx, matchID)
		require.NoError(t, err)
		require.NotNil(t, tx.IsFixed)
		assert.True(t, *tx.IsFixed)
	})
}
