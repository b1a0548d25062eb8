package invoice

import (
	"errors"
	"time"
)

// MaxBulkFiles bounds how many documents one upload call may carry.
const MaxBulkFiles = 10

// OcrStatus tracks one extraction attempt. COMPLETED, FAILED and
// BUDGET_EXCEEDED are terminal; a retry starts a new attempt by moving the
// invoice back to PENDING.
type OcrStatus string

const (
	StatusNone           OcrStatus = "NONE"
	StatusPending        OcrStatus = "PENDING"
	StatusProcessing     OcrStatus = "PROCESSING"
	StatusCompleted      OcrStatus = "COMPLETED"
	StatusFailed         OcrStatus = "FAILED"
	StatusBudgetExceeded OcrStatus = "BUDGET_EXCEEDED"
)

// IsTerminal reports whether the status ends an extraction attempt.
func (s OcrStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusBudgetExceeded
}

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrTooManyFiles means an upload call exceeded MaxBulkFiles.
	ErrTooManyFiles = errors.New("too many files in one upload")
	// ErrOcrNotCompleted means suggestions were requested for an invoice
	// without extracted fields.
	ErrOcrNotCompleted = errors.New("invoice ocr is not completed")
	// ErrOcrNotTerminal means a retry was requested while an extraction
	// attempt is still running.
	ErrOcrNotTerminal = errors.New("invoice ocr attempt is still in progress")

	ErrTransactionNotFound = errors.New("transaction not found")
)

// OcrFields are the values the extraction service (or a manual correction)
// produced for a document. All fields are optional; extraction is fallible.
type OcrFields struct {
	Amount        *float64
	Date          *time.Time
	Vendor        *string
	InvoiceNumber *string
}

// Invoice is a stored document reference, optionally linked to a transaction.
// A nil TransactionID means the invoice is an orphan awaiting a match.
type Invoice struct {
	ID            int64
	TransactionID *int64
	FileName      string
	StorageKey    string
	ContentType   string
	UploadedAt    time.Time
	OcrStatus     OcrStatus
	OcrFields     OcrFields
	OcrError      *string
	OcrCostCents  int64
}
