package invoice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/obratrack/obratrack/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func completedInvoice(amount float64, extractedDate time.Time, vendor string) Invoice {
	return Invoice{
		ID:        1,
		OcrStatus: StatusCompleted,
		OcrFields: OcrFields{
			Amount: &amount,
			Date:   &extractedDate,
			Vendor: &vendor,
		},
	}
}

func TestMatcher_Suggest(t *testing.T) {
	ctx := context.Background()

	t.Run("should refuse an invoice without a completed extraction", func(t *testing.T) {
		matcher := NewMatcher(transaction.NewStubTransactionRepo())

		_, err := matcher.Suggest(ctx, Invoice{ID: 1, OcrStatus: StatusPending})

		assert.ErrorIs(t, err, ErrOcrNotCompleted)
	})

	t.Run("should give the full score to an exact match on all three signals", func(t *testing.T) {
		// given
		txRepo := transaction.NewStubTransactionRepo()
		_, err := txRepo.Store(ctx, transaction.Transaction{
			Date:    date(2026, 3, 10),
			Amount:  -121.50,
			Concept: "FERRETERIA LOPEZ SL",
		})
		require.NoError(t, err)
		matcher := NewMatcher(txRepo)

		// when
		suggestions, err := matcher.Suggest(ctx, completedInvoice(121.50, date(2026, 3, 10), "Ferreteria Lopez"))

		// then
		require.NoError(t, err)
		require.Len(t, suggestions, 1)
		assert.Equal(t, 100, suggestions[0].Score)
	})

	t.Run("should keep every score an integer between 0 and 100", func(t *testing.T) {
		// given candidates at varying distances from the extracted fields
		txRepo := transaction.NewStubTransactionRepo()
		amounts := []float64{-121.50, -121.55, -130, -90, -121.50, -5000}
		days := []int{10, 11, 14, 3, 25, 10}
		for i, amount := range amounts {
			_, err := txRepo.Store(ctx, transaction.Transaction{
				Date:    date(2026, 3, days[i]),
				Amount:  amount,
				Concept: fmt.Sprintf("PROVEEDOR %d", i),
			})
			require.NoError(t, err)
		}
		matcher := NewMatcher(txRepo)

		// when
		suggestions, err := matcher.Suggest(ctx, completedInvoice(121.50, date(2026, 3, 10), "Ferreteria Lopez"))

		// then
		require.NoError(t, err)
		for _, suggestion := range suggestions {
			assert.GreaterOrEqual(t, suggestion.Score, 0)
			assert.LessOrEqual(t, suggestion.Score, 100)
		}
	})

	t.Run("should return at most ten suggestions sorted by score descending", func(t *testing.T) {
		// given 15 candidates that all match on amount
		txRepo := transaction.NewStubTransactionRepo()
		for i := 0; i < 15; i++ {
			_, err := txRepo.Store(ctx, transaction.Transaction{
				Date:    date(2026, 3, 1+i),
				Amount:  -121.50,
				Concept: "FERRETERIA LOPEZ SL",
			})
			require.NoError(t, err)
		}
		matcher := NewMatcher(txRepo)

		// when
		suggestions, err := matcher.Suggest(ctx, completedInvoice(121.50, date(2026, 3, 10), "Ferreteria Lopez"))

		// then
		require.NoError(t, err)
		require.Len(t, suggestions, 10)
		for i := 1; i < len(suggestions); i++ {
			assert.GreaterOrEqual(t, suggestions[i-1].Score, suggestions[i].Score)
		}
	})

	t.Run("should break score ties by the most recent date", func(t *testing.T) {
		// given two candidates two days before and after the extracted date
		txRepo := transaction.NewStubTransactionRepo()
		_, err := txRepo.Store(ctx, transaction.Transaction{
			Date:    date(2026, 3, 8),
			Amount:  -121.50,
			Concept: "FERRETERIA LOPEZ SL",
		})
		require.NoError(t, err)
		laterID, err := txRepo.Store(ctx, transaction.Transaction{
			Date:    date(2026, 3, 12),
			Amount:  -121.50,
			Concept: "FERRETERIA LOPEZ SL",
		})
		require.NoError(t, err)
		matcher := NewMatcher(txRepo)

		// when
		suggestions, err := matcher.Suggest(ctx, completedInvoice(121.50, date(2026, 3, 10), "Ferreteria Lopez"))

		// then
		require.NoError(t, err)
		require.Len(t, suggestions, 2)
		assert.Equal(t, suggestions[0].Score, suggestions[1].Score)
		assert.Equal(t, laterID, suggestions[0].Transaction.ID)
	})

	t.Run("should exclude the transaction already linked to the invoice", func(t *testing.T) {
		// given
		txRepo := transaction.NewStubTransactionRepo()
		linkedID, err := txRepo.Store(ctx, transaction.Transaction{
			Date:    date(2026, 3, 10),
			Amount:  -121.50,
			Concept: "FERRETERIA LOPEZ SL",
		})
		require.NoError(t, err)
		matcher := NewMatcher(txRepo)
		inv := completedInvoice(121.50, date(2026, 3, 10), "Ferreteria Lopez")
		inv.TransactionID = &linkedID

		// when
		suggestions, err := matcher.Suggest(ctx, inv)

		// then
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})
}
