package stats

import (
	"github.com/obratrack/obratrack/pkg/category"
)

// ProjectStats is the spend position of one project. Spend figures are
// positive numbers (expense amounts with the sign flipped).
type ProjectStats struct {
	ProjectID   int64
	ProjectName string
	TotalBudget float64
	Spend       float64
	ByCategory  map[category.ExpenseCategory]float64
}

// BudgetAlert is emitted when spend exceeds a configured budget greater than
// zero. Category is nil for a project-total alert.
type BudgetAlert struct {
	ProjectID   int64
	ProjectName string
	Category    *category.ExpenseCategory
	Budget      float64
	Spend       float64
	Percentage  float64
}

// FixedVariableSplit groups expense amounts by the transaction's fixed flag.
// Transactions without the flag set land in Unflagged.
type FixedVariableSplit struct {
	Fixed     float64
	Variable  float64
	Unflagged float64
}

type StatsSummary struct {
	Projects []ProjectStats
	// Categories holds company-wide spend per expense category. Global
	// categories are aggregated from transaction amounts, the rest from
	// allocation amounts.
	Categories map[category.ExpenseCategory]float64
	Alerts     []BudgetAlert
	Split      FixedVariableSplit
}
