package event_bus

const (
	// TransactionCategorizedEvent fires only on manual categorization edits,
	// never during bank synchronization. The propagation engine subscribes
	// to it.
	TransactionCategorizedEvent EventType = "transaction.categorized"

	// AllocationsReplacedEvent fires after a transaction's allocation set is
	// atomically replaced.
	AllocationsReplacedEvent EventType = "allocations.replaced"
)

// TransactionCategorized is the payload for TransactionCategorizedEvent.
// Field names which field of the source transaction changed.
type TransactionCategorized struct {
	TransactionID int64
	Field         string // "category" or "fixedFlag"
}

// AllocationsReplaced is the payload for AllocationsReplacedEvent.
type AllocationsReplaced struct {
	TransactionID int64
	ProjectIDs    []int64
}
