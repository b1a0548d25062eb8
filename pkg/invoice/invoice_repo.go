package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	uploadedAtFormat = time.RFC3339
	ocrDateFormat    = "2006-01-02"
)

type InvoiceRepo interface {
	Store(ctx context.Context, inv Invoice) (int64, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	GetAll(ctx context.Context) ([]Invoice, error)
	UpdateStatus(ctx context.Context, id int64, status OcrStatus) error
	// UpdateOcrResult overwrites the full OCR sub-record: status, extracted
	// fields, error text and cost.
	UpdateOcrResult(ctx context.Context, inv Invoice) error
	SetTransaction(ctx context.Context, id int64, transactionID *int64) error
	Delete(ctx context.Context, id int64) (bool, error)
	// CountForTransaction returns how many invoices reference the transaction.
	CountForTransaction(ctx context.Context, transactionID int64) (int64, error)
}

type InvoiceRepoImpl struct {
	db *sql.DB
}

func NewInvoiceRepo(db *sql.DB) *InvoiceRepoImpl {
	return &InvoiceRepoImpl{db: db}
}

const invoiceColumns = `id, transaction_id, file_name, storage_key, content_type, uploaded_at,
	ocr_status, ocr_amount, ocr_date, ocr_vendor, ocr_invoice_number, ocr_error, ocr_cost_cents`

func (r *InvoiceRepoImpl) Store(ctx context.Context, inv Invoice) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO invoice (
			transaction_id, file_name, storage_key, content_type, uploaded_at,
			ocr_status, ocr_amount, ocr_date, ocr_vendor, ocr_invoice_number, ocr_error, ocr_cost_cents
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.TransactionID,
		inv.FileName,
		inv.StorageKey,
		inv.ContentType,
		inv.UploadedAt.Format(uploadedAtFormat),
		string(inv.OcrStatus),
		inv.OcrFields.Amount,
		formatOcrDate(inv.OcrFields.Date),
		inv.OcrFields.Vendor,
		inv.OcrFields.InvoiceNumber,
		inv.OcrError,
		inv.OcrCostCents,
	)
	if err != nil {
		err := fmt.Errorf("could not insert invoice: %w", err)
		log.Error(err)
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("could not retrieve last insert id: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *InvoiceRepoImpl) Get(ctx context.Context, id int64) (Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM invoice WHERE id = ?", invoiceColumns), id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		err := fmt.Errorf("could not scan invoice: %w", err)
		log.Error(err)
		return Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepoImpl) GetAll(ctx context.Context) ([]Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM invoice ORDER BY uploaded_at DESC, id DESC", invoiceColumns))
	if err != nil {
		err := fmt.Errorf("could not query invoices: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			err := fmt.Errorf("could not scan invoice: %w", err)
			log.Error(err)
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return invoices, nil
}

func (r *InvoiceRepoImpl) UpdateStatus(ctx context.Context, id int64, status OcrStatus) error {
	_, err := r.db.ExecContext(ctx, "UPDATE invoice SET ocr_status = ? WHERE id = ?", string(status), id)
	if err != nil {
		err := fmt.Errorf("could not update invoice status: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *InvoiceRepoImpl) UpdateOcrResult(ctx context.Context, inv Invoice) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invoice SET
			ocr_status = ?, ocr_amount = ?, ocr_date = ?, ocr_vendor = ?,
			ocr_invoice_number = ?, ocr_error = ?, ocr_cost_cents = ?
		WHERE id = ?`,
		string(inv.OcrStatus),
		inv.OcrFields.Amount,
		formatOcrDate(inv.OcrFields.Date),
		inv.OcrFields.Vendor,
		inv.OcrFields.InvoiceNumber,
		inv.OcrError,
		inv.OcrCostCents,
		inv.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not update invoice ocr result: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *InvoiceRepoImpl) SetTransaction(ctx context.Context, id int64, transactionID *int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE invoice SET transaction_id = ? WHERE id = ?", transactionID, id)
	if err != nil {
		err := fmt.Errorf("could not set invoice transaction: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *InvoiceRepoImpl) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM invoice WHERE id = ?", id)
	if err != nil {
		err := fmt.Errorf("could not delete invoice: %w", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *InvoiceRepoImpl) CountForTransaction(ctx context.Context, transactionID int64) (int64, error) {
	var count int64
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoice WHERE transaction_id = ?", transactionID)
	if err := row.Scan(&count); err != nil {
		err := fmt.Errorf("could not count invoices: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	var transactionID sql.NullInt64
	var uploadedAt, status string
	var ocrAmount sql.NullFloat64
	var ocrDate, ocrVendor, ocrNumber, ocrError sql.NullString

	err := row.Scan(
		&inv.ID,
		&transactionID,
		&inv.FileName,
		&inv.StorageKey,
		&inv.ContentType,
		&uploadedAt,
		&status,
		&ocrAmount,
		&ocrDate,
		&ocrVendor,
		&ocrNumber,
		&ocrError,
		&inv.OcrCostCents,
	)
	if err != nil {
		return Invoice{}, err
	}

	if transactionID.Valid {
		v := transactionID.Int64
		inv.TransactionID = &v
	}
	parsedUploadedAt, err := time.Parse(uploadedAtFormat, uploadedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("could not parse uploaded_at: %w", err)
	}
	inv.UploadedAt = parsedUploadedAt
	inv.OcrStatus = OcrStatus(status)
	if ocrAmount.Valid {
		v := ocrAmount.Float64
		inv.OcrFields.Amount = &v
	}
	if ocrDate.Valid {
		parsed, err := time.Parse(ocrDateFormat, ocrDate.String)
		if err != nil {
			return Invoice{}, fmt.Errorf("could not parse ocr_date: %w", err)
		}
		inv.OcrFields.Date = &parsed
	}
	if ocrVendor.Valid {
		inv.OcrFields.Vendor = &ocrVendor.String
	}
	if ocrNumber.Valid {
		inv.OcrFields.InvoiceNumber = &ocrNumber.String
	}
	if ocrError.Valid {
		inv.OcrError = &ocrError.String
	}
	return inv, nil
}

func formatOcrDate(date *time.Time) interface{} {
	if date == nil {
		return nil
	}
	return date.Format(ocrDateFormat)
}
