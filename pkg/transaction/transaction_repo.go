package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/obratrack/obratrack/pkg/category"
	log "github.com/sirupsen/logrus"
)

const dateFormat = "2006-01-02"

type ListFilter struct {
	ProjectID       *int64
	IncludeArchived bool
}

type TransactionRepo interface {
	Store(ctx context.Context, tx Transaction) (int64, error)
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, error)
	// Update overwrites the manually editable fields (date, amount, concept,
	// category, fixed flag, notes). ProjectID and HasInvoice are owned by the
	// allocation ledger and the invoice service respectively.
	Update(ctx context.Context, tx Transaction) (bool, error)
	Archive(ctx context.Context, id int64) (bool, error)
	FindByExternalID(ctx context.Context, externalID string) (Transaction, error)
	// UpdateSyncedFields overwrites only the fields a bank re-sync owns:
	// date, amount, concept and raw category.
	UpdateSyncedFields(ctx context.Context, id int64, date time.Time, amount float64, concept, rawCategory string) (bool, error)
	// UpdateField sets the category or fixed flag on a single transaction.
	UpdateField(ctx context.Context, id int64, field PropagationField, cat *category.ExpenseCategory, isFixed *bool) (bool, error)
	// PropagateField applies the field value to every other transaction whose
	// normalized concept equals the given one, bounded to at most limit rows
	// in stable id order. Returns the number of rows updated.
	PropagateField(ctx context.Context, normalizedConcept string, sourceID int64, field PropagationField, cat *category.ExpenseCategory, isFixed *bool, limit int) (int64, error)
	// FindExpenseCandidates returns non-archived expense transactions, used
	// by the invoice matcher.
	FindExpenseCandidates(ctx context.Context) ([]Transaction, error)
	SetHasInvoice(ctx context.Context, id int64, hasInvoice bool) error
}

type TransactionRepoImpl struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepoImpl {
	return &TransactionRepoImpl{db: db}
}

const transactionColumns = `id, external_id, tx_date, amount, concept, raw_category,
	expense_category, is_fixed, is_manual, archived, has_invoice, notes, project_id`

func (r *TransactionRepoImpl) Store(ctx context.Context, tx Transaction) (int64, error) {
	var externalID interface{}
	if tx.ExternalID != "" {
		externalID = tx.ExternalID
	}
	var cat interface{}
	if tx.ExpenseCategory != nil {
		cat = string(*tx.ExpenseCategory)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO bank_transaction (
			external_id, tx_date, amount, concept, normalized_concept, raw_category,
			expense_category, is_fixed, is_manual, archived, has_invoice, notes, project_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		externalID,
		tx.Date.Format(dateFormat),
		tx.Amount,
		tx.Concept,
		NormalizeConcept(tx.Concept),
		tx.RawCategory,
		cat,
		tx.IsFixed,
		tx.IsManual,
		tx.Archived,
		tx.HasInvoice,
		tx.Notes,
		tx.ProjectID,
	)
	if err != nil {
		err := fmt.Errorf("could not insert transaction: %w", err)
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

func (r *TransactionRepoImpl) Get(ctx context.Context, id int64) (Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM bank_transaction WHERE id = ?", transactionColumns), id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		err := fmt.Errorf("could not scan transaction: %w", err)
		log.Error(err)
		return Transaction{}, err
	}
	return tx, nil
}

func (r *TransactionRepoImpl) List(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM bank_transaction WHERE 1=1", transactionColumns)
	args := []interface{}{}
	if !filter.IncludeArchived {
		query += " AND archived = 0"
	}
	if filter.ProjectID != nil {
		query += " AND project_id = ?"
		args = append(args, *filter.ProjectID)
	}
	query += " ORDER BY tx_date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query transactions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *TransactionRepoImpl) Update(ctx context.Context, tx Transaction) (bool, error) {
	var cat interface{}
	if tx.ExpenseCategory != nil {
		cat = string(*tx.ExpenseCategory)
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE bank_transaction SET
			tx_date = ?, amount = ?, concept = ?, normalized_concept = ?,
			expense_category = ?, is_fixed = ?, notes = ?
		WHERE id = ?`,
		tx.Date.Format(dateFormat), tx.Amount, tx.Concept, NormalizeConcept(tx.Concept), cat, tx.IsFixed, tx.Notes, tx.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not update transaction: %w", err)
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

func (r *TransactionRepoImpl) Archive(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "UPDATE bank_transaction SET archived = 1 WHERE id = ?", id)
	if err != nil {
		err := fmt.Errorf("could not archive transaction: %w", err)
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

func (r *TransactionRepoImpl) FindByExternalID(ctx context.Context, externalID string) (Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM bank_transaction WHERE external_id = ?", transactionColumns), externalID)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		err := fmt.Errorf("could not scan transaction: %w", err)
		log.Error(err)
		return Transaction{}, err
	}
	return tx, nil
}

func (r *TransactionRepoImpl) UpdateSyncedFields(ctx context.Context, id int64, date time.Time, amount float64, concept, rawCategory string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE bank_transaction SET tx_date = ?, amount = ?, concept = ?, normalized_concept = ?, raw_category = ? WHERE id = ?",
		date.Format(dateFormat), amount, concept, NormalizeConcept(concept), rawCategory, id,
	)
	if err != nil {
		err := fmt.Errorf("could not update synced fields: %w", err)
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

func (r *TransactionRepoImpl) UpdateField(ctx context.Context, id int64, field PropagationField, cat *category.ExpenseCategory, isFixed *bool) (bool, error) {
	var result sql.Result
	var err error
	switch field {
	case FieldCategory:
		var value interface{}
		if cat != nil {
			value = string(*cat)
		}
		result, err = r.db.ExecContext(ctx, "UPDATE bank_transaction SET expense_category = ? WHERE id = ?", value, id)
	case FieldFixedFlag:
		result, err = r.db.ExecContext(ctx, "UPDATE bank_transaction SET is_fixed = ? WHERE id = ?", isFixed, id)
	default:
		return false, fmt.Errorf("unknown propagation field: %s", field)
	}
	if err != nil {
		err := fmt.Errorf("could not update field %s: %w", field, err)
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

func (r *TransactionRepoImpl) PropagateField(ctx context.Context, normalizedConcept string, sourceID int64, field PropagationField, cat *category.ExpenseCategory, isFixed *bool, limit int) (int64, error) {
	var setClause string
	var value interface{}
	switch field {
	case FieldCategory:
		setClause = "expense_category = ?"
		if cat != nil {
			value = string(*cat)
		}
	case FieldFixedFlag:
		setClause = "is_fixed = ?"
		value = isFixed
	default:
		return 0, fmt.Errorf("unknown propagation field: %s", field)
	}

	// Matching happens on the persisted normalized_concept column. Folding
	// the raw concept in SQL would diverge from NormalizeConcept on anything
	// outside ASCII.
	query := fmt.Sprintf(`UPDATE bank_transaction SET %s WHERE id IN (
		SELECT id FROM bank_transaction
		WHERE normalized_concept = ? AND id != ?
		ORDER BY id LIMIT ?
	)`, setClause)

	result, err := r.db.ExecContext(ctx, query, value, normalizedConcept, sourceID, limit)
	if err != nil {
		err := fmt.Errorf("could not propagate %s: %w", field, err)
		log.Error(err)
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return 0, err
	}
	return rowsAffected, nil
}

func (r *TransactionRepoImpl) FindExpenseCandidates(ctx context.Context) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM bank_transaction WHERE amount < 0 AND archived = 0 ORDER BY tx_date DESC, id DESC", transactionColumns))
	if err != nil {
		err := fmt.Errorf("could not query candidates: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *TransactionRepoImpl) SetHasInvoice(ctx context.Context, id int64, hasInvoice bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE bank_transaction SET has_invoice = ? WHERE id = ?", hasInvoice, id)
	if err != nil {
		err := fmt.Errorf("could not set has_invoice: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var tx Transaction
	var externalID, cat, notes sql.NullString
	var dateString string
	var isFixed sql.NullBool
	var projectID sql.NullInt64

	err := row.Scan(
		&tx.ID,
		&externalID,
		&dateString,
		&tx.Amount,
		&tx.Concept,
		&tx.RawCategory,
		&cat,
		&isFixed,
		&tx.IsManual,
		&tx.Archived,
		&tx.HasInvoice,
		&notes,
		&projectID,
	)
	if err != nil {
		return Transaction{}, err
	}

	if externalID.Valid {
		tx.ExternalID = externalID.String
	}
	date, err := time.Parse(dateFormat, dateString)
	if err != nil {
		return Transaction{}, fmt.Errorf("could not parse transaction date: %w", err)
	}
	tx.Date = date
	if cat.Valid {
		c := category.ExpenseCategory(cat.String)
		tx.ExpenseCategory = &c
	}
	if isFixed.Valid {
		v := isFixed.Bool
		tx.IsFixed = &v
	}
	if notes.Valid {
		tx.Notes = notes.String
	}
	if projectID.Valid {
		v := projectID.Int64
		tx.ProjectID = &v
	}
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	var txs []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			err := fmt.Errorf("could not scan transaction: %w", err)
			log.Error(err)
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return txs, nil
}
