package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/obratrack/obratrack/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceRepoImpl(t *testing.T) {
	db := test_utils.SetupTestDB(t)
	repo := NewInvoiceRepo(db)
	ctx := context.Background()

	_, err := db.Exec(
		"INSERT INTO bank_transaction (id, tx_date, amount, concept) VALUES (10, '2026-03-01', -100, 'obra')",
	)
	require.NoError(t, err)

	uploadedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("should store and read back an invoice with its ocr sub-record", func(t *testing.T) {
		// given
		amount := 121.50
		extractedDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		vendor := "Ferreteria Lopez"
		id, err := repo.Store(ctx, Invoice{
			FileName:    "factura.pdf",
			StorageKey:  "key-1",
			ContentType: "application/pdf",
			UploadedAt:  uploadedAt,
			OcrStatus:   StatusPending,
		})
		require.NoError(t, err)

		// when
		err = repo.UpdateOcrResult(ctx, Invoice{
			ID:           id,
			OcrStatus:    StatusCompleted,
			OcrFields:    OcrFields{Amount: &amount, Date: &extractedDate, Vendor: &vendor},
			OcrCostCents: 400,
		})
		require.NoError(t, err)

		// then
		stored, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, stored.OcrStatus)
		require.NotNil(t, stored.OcrFields.Amount)
		assert.Equal(t, 121.50, *stored.OcrFields.Amount)
		require.NotNil(t, stored.OcrFields.Date)
		assert.True(t, extractedDate.Equal(*stored.OcrFields.Date))
		require.NotNil(t, stored.OcrFields.Vendor)
		assert.Equal(t, "Ferreteria Lopez", *stored.OcrFields.Vendor)
		assert.Equal(t, int64(400), stored.OcrCostCents)
		assert.True(t, uploadedAt.Equal(stored.UploadedAt))
	})

	t.Run("should count invoices per transaction", func(t *testing.T) {
		// given two invoices linked to the same transaction
		txID := int64(10)
		for i := 0; i < 2; i++ {
			id, err := repo.Store(ctx, Invoice{
				FileName: "factura.pdf", StorageKey: "key", UploadedAt: uploadedAt, OcrStatus: StatusNone,
			})
			require.NoError(t, err)
			require.NoError(t, repo.SetTransaction(ctx, id, &txID))
		}

		// when
		count, err := repo.CountForTransaction(ctx, txID)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("should return not found for an unknown invoice", func(t *testing.T) {
		_, err := repo.Get(ctx, 404)
		assert.ErrorIs(t, err, ErrInvoiceNotFound)
	})
}
