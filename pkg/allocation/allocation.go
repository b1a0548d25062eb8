package allocation

import "errors"

// AmountTolerance is the maximum absolute difference allowed between a
// transaction's amount and the sum of its allocation amounts. The value is a
// fixed contract with the stored data; change it only together with a data
// backfill.
const AmountTolerance = 0.01

var (
	// ErrAllocationMismatch means the allocation amounts do not add up to the
	// transaction amount within AmountTolerance.
	ErrAllocationMismatch = errors.New("allocation amounts do not match transaction amount")
	// ErrSignMismatch means an allocation amount has the opposite sign of the
	// transaction amount (an expense cannot contain an income line).
	ErrSignMismatch = errors.New("allocation amount sign differs from transaction amount")
	// ErrInvalidProject means a referenced project does not exist.
	ErrInvalidProject = errors.New("allocation references an unknown project")

	ErrTransactionNotFound = errors.New("transaction not found")
)

// Allocation is one (transaction, project, amount) row. The full set of rows
// for a transaction is always replaced atomically, never patched.
type Allocation struct {
	ID            int64
	TransactionID int64
	ProjectID     int64
	Amount        float64
}

// Entry is one requested slice of a transaction in a replace call.
type Entry struct {
	ProjectID int64
	Amount    float64
}
