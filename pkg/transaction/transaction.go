package transaction

import (
	"errors"
	"strings"
	"time"

	"github.com/obratrack/obratrack/pkg/category"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// PropagationField selects which field of the source transaction a
// propagation run copies onto concept-matching transactions.
type PropagationField string

const (
	FieldCategory  PropagationField = "category"
	FieldFixedFlag PropagationField = "fixedFlag"
)

// Transaction is a single money movement. Negative amounts are expenses.
// ProjectID is a denormalized cache of the first allocation's project,
// maintained exclusively by the allocation ledger; the allocation rows are
// the source of truth.
type Transaction struct {
	ID int64
	// ExternalID identifies a bank-synced record; empty for manual entries.
	ExternalID      string
	Date            time.Time
	Amount          float64
	Concept         string
	RawCategory     string
	ExpenseCategory *category.ExpenseCategory
	IsFixed         *bool
	IsManual        bool
	Archived        bool
	HasInvoice      bool
	Notes           string
	ProjectID       *int64
}

// IsExpense reports whether the movement is an outflow.
func (t Transaction) IsExpense() bool {
	return t.Amount < 0
}

// NormalizeConcept folds case and trims whitespace so historically identical
// concepts compare equal. Propagation matches on this exact form only; it is
// never a substring match. The repository persists this form in the
// normalized_concept column on every write; folding happens here rather than
// in SQL because SQLite's LOWER folds ASCII only and would never match
// accented concepts.
func NormalizeConcept(concept string) string {
	return strings.ToLower(strings.TrimSpace(concept))
}
