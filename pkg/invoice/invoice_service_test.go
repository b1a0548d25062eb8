package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/obratrack/obratrack/internal/utils"
	"github.com/obratrack/obratrack/pkg/ocrbudget"
	"github.com/obratrack/obratrack/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo      *StubInvoiceRepo
	store     *InMemoryDocumentStore
	extractor *StubExtractor
	txRepo    *transaction.StubTransactionRepo
	clock     *utils.MockClock
	governor  ocrbudget.Governor
	service   *InvoiceServiceImpl
}

func newFixture(capCents, estimatedCostCents int64) *fixture {
	f := &fixture{
		repo:      NewStubInvoiceRepo(),
		store:     NewInMemoryDocumentStore(),
		extractor: &StubExtractor{},
		txRepo:    transaction.NewStubTransactionRepo(),
		clock:     &utils.MockClock{FixedNow: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)},
	}
	f.governor = ocrbudget.NewGovernor(ocrbudget.NewStubOcrBudgetRepo(), f.clock, capCents)
	f.service = NewInvoiceService(
		f.repo, f.store, f.extractor, f.governor, NewMatcher(f.txRepo), f.txRepo, f.clock, estimatedCostCents,
	)
	return f
}

func pdf(name string) FileUpload {
	return FileUpload{FileName: name, ContentType: "application/pdf", Content: []byte("%PDF-" + name)}
}

func TestInvoiceService_BulkUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject a batch above the file limit", func(t *testing.T) {
		f := newFixture(100000, 400)
		files := make([]FileUpload, MaxBulkFiles+1)
		for i := range files {
			files[i] = pdf("a.pdf")
		}

		_, err := f.service.BulkUpload(ctx, files)

		assert.ErrorIs(t, err, ErrTooManyFiles)
	})

	t.Run("should deny the file that would exceed the monthly cap and keep it stored", func(t *testing.T) {
		// given a cap of 1000 and extraction calls costing 400 each
		f := newFixture(1000, 400)
		f.extractor.CostCents = 400

		// when
		results, err := f.service.BulkUpload(ctx, []FileUpload{
			pdf("one.pdf"), pdf("two.pdf"), pdf("three.pdf"),
		})

		// then
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, StatusCompleted, results[0].Invoice.OcrStatus)
		assert.Equal(t, StatusCompleted, results[1].Invoice.OcrStatus)
		assert.Equal(t, StatusBudgetExceeded, results[2].Invoice.OcrStatus)
		assert.Equal(t, 3, f.store.Size())

		status, err := f.governor.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(800), status.SpentCents)
	})

	t.Run("should mark a failed extraction FAILED and still charge its cost", func(t *testing.T) {
		// given
		f := newFixture(1000, 400)
		f.extractor.CostCents = 400
		f.extractor.Err = errors.New("unreadable document")

		// when
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("blurry.pdf")})

		// then
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.NotNil(t, results[0].Invoice)
		assert.Equal(t, StatusFailed, results[0].Invoice.OcrStatus)
		require.NotNil(t, results[0].Invoice.OcrError)
		assert.Equal(t, "unreadable document", *results[0].Invoice.OcrError)

		status, err := f.governor.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(400), status.SpentCents)
	})

	t.Run("should process the rest of the batch when one file fails to persist", func(t *testing.T) {
		// given the first insert fails
		f := newFixture(100000, 400)
		f.repo.FailStore = errors.New("disk full")

		// when
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("one.pdf"), pdf("two.pdf")})

		// then
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Error(t, results[0].Err)
		assert.Nil(t, results[0].Invoice)
		require.NotNil(t, results[1].Invoice)
		assert.Equal(t, StatusCompleted, results[1].Invoice.OcrStatus)
		// the first file's blob was cleaned up
		assert.Equal(t, 1, f.store.Size())
	})

	t.Run("should return suggestions for a completed extraction", func(t *testing.T) {
		// given a transaction matching the extracted fields
		f := newFixture(100000, 400)
		amount := 121.50
		extractedDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		vendor := "Ferreteria Lopez"
		f.extractor.Fields = OcrFields{Amount: &amount, Date: &extractedDate, Vendor: &vendor}
		txID, err := f.txRepo.Store(ctx, transaction.Transaction{
			Date:    extractedDate,
			Amount:  -121.50,
			Concept: "FERRETERIA LOPEZ SL",
		})
		require.NoError(t, err)

		// when
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("factura.pdf")})

		// then
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Len(t, results[0].Suggestions, 1)
		assert.Equal(t, txID, results[0].Suggestions[0].Transaction.ID)
		assert.Equal(t, 100, results[0].Suggestions[0].Score)
	})
}

func TestInvoiceService_Link(t *testing.T) {
	ctx := context.Background()

	t.Run("should set the reference and recompute the has invoice flag", func(t *testing.T) {
		// given an uploaded invoice and a transaction
		f := newFixture(100000, 400)
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("factura.pdf")})
		require.NoError(t, err)
		invoiceID := results[0].Invoice.ID
		txID, err := f.txRepo.Store(ctx, transaction.Transaction{
			Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Amount: -50, Concept: "obra",
		})
		require.NoError(t, err)

		// when
		err = f.service.Link(ctx, invoiceID, txID)

		// then
		require.NoError(t, err)
		tx, err := f.txRepo.Get(ctx, txID)
		require.NoError(t, err)
		assert.True(t, tx.HasInvoice)

		// and unlinking clears the flag again
		require.NoError(t, err)
		require.NoError(t, f.service.Unlink(ctx, invoiceID))
		tx, err = f.txRepo.Get(ctx, txID)
		require.NoError(t, err)
		assert.False(t, tx.HasInvoice)
	})

	t.Run("should fail for an unknown transaction", func(t *testing.T) {
		f := newFixture(100000, 400)
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("factura.pdf")})
		require.NoError(t, err)

		err = f.service.Link(ctx, results[0].Invoice.ID, 404)

		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("should clear the flag when the linked invoice is deleted", func(t *testing.T) {
		// given a linked invoice
		f := newFixture(100000, 400)
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("factura.pdf")})
		require.NoError(t, err)
		invoiceID := results[0].Invoice.ID
		txID, err := f.txRepo.Store(ctx, transaction.Transaction{
			Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Amount: -50, Concept: "obra",
		})
		require.NoError(t, err)
		require.NoError(t, f.service.Link(ctx, invoiceID, txID))

		// when
		err = f.service.Delete(ctx, invoiceID)

		// then
		require.NoError(t, err)
		tx, err := f.txRepo.Get(ctx, txID)
		require.NoError(t, err)
		assert.False(t, tx.HasInvoice)
		assert.Zero(t, f.store.Size())
	})
}

func TestInvoiceService_CorrectOcr(t *testing.T) {
	ctx := context.Background()

	t.Run("should overwrite the extracted fields and recompute suggestions", func(t *testing.T) {
		// given an extraction that misread the amount
		f := newFixture(100000, 400)
		wrongAmount := 999.99
		f.extractor.Fields = OcrFields{Amount: &wrongAmount}
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("factura.pdf")})
		require.NoError(t, err)
		invoiceID := results[0].Invoice.ID

		txID, err := f.txRepo.Store(ctx, transaction.Transaction{
			Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Amount: -121.50, Concept: "FERRETERIA LOPEZ SL",
		})
		require.NoError(t, err)

		// when the user fixes the amount
		correctedAmount := 121.50
		suggestions, err := f.service.CorrectOcr(ctx, invoiceID, OcrFields{Amount: &correctedAmount})

		// then the matching transaction surfaces
		require.NoError(t, err)
		require.NotEmpty(t, suggestions)
		assert.Equal(t, txID, suggestions[0].Transaction.ID)

		stored, err := f.service.Get(ctx, invoiceID)
		require.NoError(t, err)
		require.NotNil(t, stored.OcrFields.Amount)
		assert.Equal(t, 121.50, *stored.OcrFields.Amount)
		assert.Equal(t, StatusCompleted, stored.OcrStatus)
	})
}

func TestInvoiceService_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("should run a new attempt after the month rolls over", func(t *testing.T) {
		// given an invoice denied by an exhausted budget
		f := newFixture(300, 400)
		f.extractor.CostCents = 400
		results, err := f.service.BulkUpload(ctx, []FileUpload{pdf("factura.pdf")})
		require.NoError(t, err)
		invoiceID := results[0].Invoice.ID
		require.Equal(t, StatusBudgetExceeded, results[0].Invoice.OcrStatus)

		// when a new month begins and the cap allows the call
		f.clock.SetNow(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
		f.governor = ocrbudget.NewGovernor(ocrbudget.NewStubOcrBudgetRepo(), f.clock, 1000)
		f.service = NewInvoiceService(
			f.repo, f.store, f.extractor, f.governor, NewMatcher(f.txRepo), f.txRepo, f.clock, 400,
		)
		inv, _, err := f.service.Retry(ctx, invoiceID)

		// then
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, inv.OcrStatus)
	})

	t.Run("should refuse a retry while an attempt is in progress", func(t *testing.T) {
		f := newFixture(100000, 400)
		id, err := f.repo.Store(ctx, Invoice{
			FileName: "factura.pdf", StorageKey: "key", UploadedAt: f.clock.Now(), OcrStatus: StatusProcessing,
		})
		require.NoError(t, err)

		_, _, err = f.service.Retry(ctx, id)

		assert.ErrorIs(t, err, ErrOcrNotTerminal)
	})
}
