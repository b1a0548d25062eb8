package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/obratrack/obratrack/internal/utils"
	"github.com/obratrack/obratrack/pkg/ocrbudget"
	"github.com/obratrack/obratrack/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

const downloadURLTTL = 15 * time.Minute

// TransactionStore is the slice of the transaction repository the invoice
// service needs.
type TransactionStore interface {
	TransactionFinder
	Get(ctx context.Context, id int64) (transaction.Transaction, error)
	SetHasInvoice(ctx context.Context, id int64, hasInvoice bool) error
}

// FileUpload is one document in a bulk upload call.
type FileUpload struct {
	FileName    string
	ContentType string
	Content     []byte
}

// UploadResult is the per-file outcome of a bulk upload. Err is set only when
// the file could not be stored at all; extraction failures and budget denials
// land on the invoice's OCR status instead.
type UploadResult struct {
	FileName    string
	Invoice     *Invoice
	Suggestions []Suggestion
	Err         error
}

type InvoiceService interface {
	// BulkUpload stores up to MaxBulkFiles documents and runs the extraction
	// pipeline on each. Files are processed independently; one file's failure
	// never aborts the rest of the batch.
	BulkUpload(ctx context.Context, files []FileUpload) ([]UploadResult, error)
	List(ctx context.Context) ([]Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	Delete(ctx context.Context, id int64) error
	DownloadURL(ctx context.Context, id int64) (string, error)
	Suggest(ctx context.Context, id int64) ([]Suggestion, error)
	Link(ctx context.Context, invoiceID int64, transactionID int64) error
	Unlink(ctx context.Context, invoiceID int64) error
	// CorrectOcr overwrites the extracted fields with the user's values and
	// recomputes suggestions from them.
	CorrectOcr(ctx context.Context, id int64, fields OcrFields) ([]Suggestion, error)
	// Retry starts a new extraction attempt for an invoice in a terminal
	// OCR state.
	Retry(ctx context.Context, id int64) (Invoice, []Suggestion, error)
}

type InvoiceServiceImpl struct {
	repo               InvoiceRepo
	store              DocumentStore
	extractor          Extractor
	governor           ocrbudget.Governor
	matcher            *Matcher
	transactions       TransactionStore
	clock              utils.Clock
	estimatedCostCents int64
}

func NewInvoiceService(
	repo InvoiceRepo,
	store DocumentStore,
	extractor Extractor,
	governor ocrbudget.Governor,
	matcher *Matcher,
	transactions TransactionStore,
	clock utils.Clock,
	estimatedCostCents int64,
) *InvoiceServiceImpl {
	return &InvoiceServiceImpl{
		repo:               repo,
		store:              store,
		extractor:          extractor,
		governor:           governor,
		matcher:            matcher,
		transactions:       transactions,
		clock:              clock,
		estimatedCostCents: estimatedCostCents,
	}
}

func (s *InvoiceServiceImpl) BulkUpload(ctx context.Context, files []FileUpload) ([]UploadResult, error) {
	if len(files) > MaxBulkFiles {
		return nil, fmt.Errorf("%w: got %d, maximum is %d", ErrTooManyFiles, len(files), MaxBulkFiles)
	}

	results := make([]UploadResult, 0, len(files))
	for _, file := range files {
		results = append(results, s.uploadOne(ctx, file))
	}
	return results, nil
}

func (s *InvoiceServiceImpl) uploadOne(ctx context.Context, file FileUpload) UploadResult {
	result := UploadResult{FileName: file.FileName}

	key, err := s.store.Put(ctx, file.FileName, file.Content, file.ContentType)
	if err != nil {
		log.Errorf("Could not store document %s: %v", file.FileName, err)
		result.Err = err
		return result
	}

	inv := Invoice{
		FileName:    file.FileName,
		StorageKey:  key,
		ContentType: file.ContentType,
		UploadedAt:  s.clock.Now(),
		OcrStatus:   StatusPending,
	}
	id, err := s.repo.Store(ctx, inv)
	if err != nil {
		// Compensating cleanup so the blob does not leak; not atomic.
		if deleteErr := s.store.Delete(ctx, key); deleteErr != nil {
			log.Warnf("Could not delete orphaned document %s: %v", key, deleteErr)
		}
		result.Err = err
		return result
	}
	inv.ID = id

	processed, suggestions, err := s.process(ctx, inv, file.Content)
	if err != nil {
		result.Err = err
		result.Invoice = &inv
		return result
	}
	result.Invoice = &processed
	result.Suggestions = suggestions
	return result
}

// process runs one extraction attempt: authorize against the monthly budget,
// call the extractor, record the consumed cost and store the outcome.
func (s *InvoiceServiceImpl) process(ctx context.Context, inv Invoice, content []byte) (Invoice, []Suggestion, error) {
	inv.OcrStatus = StatusProcessing
	if err := s.repo.UpdateStatus(ctx, inv.ID, StatusProcessing); err != nil {
		return inv, nil, err
	}

	allowed, err := s.governor.Authorize(ctx, s.estimatedCostCents)
	if err != nil {
		return inv, nil, err
	}
	if !allowed {
		inv.OcrStatus = StatusBudgetExceeded
		if err := s.repo.UpdateStatus(ctx, inv.ID, StatusBudgetExceeded); err != nil {
			return inv, nil, err
		}
		return inv, nil, nil
	}

	fields, costCents, extractErr := s.extractor.Extract(ctx, content, inv.ContentType)
	if recordErr := s.governor.Record(ctx, costCents); recordErr != nil {
		log.Errorf("Could not record ocr spend of %d cents: %v", costCents, recordErr)
	}
	inv.OcrCostCents = costCents

	if extractErr != nil {
		message := extractErr.Error()
		inv.OcrStatus = StatusFailed
		inv.OcrFields = OcrFields{}
		inv.OcrError = &message
		if err := s.repo.UpdateOcrResult(ctx, inv); err != nil {
			return inv, nil, err
		}
		return inv, nil, nil
	}

	inv.OcrStatus = StatusCompleted
	inv.OcrFields = fields
	inv.OcrError = nil
	if err := s.repo.UpdateOcrResult(ctx, inv); err != nil {
		return inv, nil, err
	}

	suggestions, err := s.matcher.Suggest(ctx, inv)
	if err != nil {
		log.Warnf("Could not compute suggestions for invoice %d: %v", inv.ID, err)
		return inv, nil, nil
	}
	return inv, suggestions, nil
}

func (s *InvoiceServiceImpl) List(ctx context.Context) ([]Invoice, error) {
	return s.repo.GetAll(ctx)
}

func (s *InvoiceServiceImpl) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *InvoiceServiceImpl) Delete(ctx context.Context, id int64) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrInvoiceNotFound
	}

	if inv.TransactionID != nil {
		if err := s.recomputeHasInvoice(ctx, *inv.TransactionID); err != nil {
			return err
		}
	}

	// Best effort: the row is the source of truth, the blob just costs money.
	if err := s.store.Delete(ctx, inv.StorageKey); err != nil {
		log.Warnf("Could not delete document %s of invoice %d: %v", inv.StorageKey, id, err)
	}
	return nil
}

func (s *InvoiceServiceImpl) DownloadURL(ctx context.Context, id int64) (string, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.SignedDownloadURL(ctx, inv.StorageKey, downloadURLTTL)
}

func (s *InvoiceServiceImpl) Suggest(ctx context.Context, id int64) ([]Suggestion, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.matcher.Suggest(ctx, inv)
}

func (s *InvoiceServiceImpl) Link(ctx context.Context, invoiceID int64, transactionID int64) error {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if _, err := s.transactions.Get(ctx, transactionID); err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}

	previous := inv.TransactionID
	if err := s.repo.SetTransaction(ctx, invoiceID, &transactionID); err != nil {
		return err
	}
	if err := s.recomputeHasInvoice(ctx, transactionID); err != nil {
		return err
	}
	if previous != nil && *previous != transactionID {
		if err := s.recomputeHasInvoice(ctx, *previous); err != nil {
			return err
		}
	}
	return nil
}

func (s *InvoiceServiceImpl) Unlink(ctx context.Context, invoiceID int64) error {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.TransactionID == nil {
		return nil
	}

	previous := *inv.TransactionID
	if err := s.repo.SetTransaction(ctx, invoiceID, nil); err != nil {
		return err
	}
	return s.recomputeHasInvoice(ctx, previous)
}

func (s *InvoiceServiceImpl) CorrectOcr(ctx context.Context, id int64, fields OcrFields) ([]Suggestion, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// The user is the final authority over extracted fields.
	inv.OcrStatus = StatusCompleted
	inv.OcrFields = fields
	inv.OcrError = nil
	if err := s.repo.UpdateOcrResult(ctx, inv); err != nil {
		return nil, err
	}
	return s.matcher.Suggest(ctx, inv)
}

func (s *InvoiceServiceImpl) Retry(ctx context.Context, id int64) (Invoice, []Suggestion, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	if !inv.OcrStatus.IsTerminal() && inv.OcrStatus != StatusNone {
		return Invoice{}, nil, ErrOcrNotTerminal
	}

	content, err := s.store.Get(ctx, inv.StorageKey)
	if err != nil {
		return Invoice{}, nil, err
	}

	inv.OcrStatus = StatusPending
	if err := s.repo.UpdateStatus(ctx, inv.ID, StatusPending); err != nil {
		return Invoice{}, nil, err
	}
	return s.process(ctx, inv, content)
}

// recomputeHasInvoice derives the transaction flag from the invoice count so
// link, unlink and delete all converge on the same value.
func (s *InvoiceServiceImpl) recomputeHasInvoice(ctx context.Context, transactionID int64) error {
	count, err := s.repo.CountForTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	return s.transactions.SetHasInvoice(ctx, transactionID, count > 0)
}
