package ocrbudget

// MonthlyUsage is the running extraction-spend counter for one calendar
// month. Months without a stored row have zero usage; rollover happens by
// the month key changing, never by an explicit reset.
type MonthlyUsage struct {
	Month      string
	SpentCents int64
	CallCount  int64
}

// Status is the spend position reported to clients.
type Status struct {
	Month          string
	SpentCents     int64
	CapCents       int64
	RemainingCents int64
	CallCount      int64
}

// monthKeyFormat keys the counter by calendar month.
const monthKeyFormat = "2006-01"
