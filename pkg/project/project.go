package project

import (
	"errors"

	"github.com/obratrack/obratrack/pkg/category"
)

var ErrProjectNotFound = errors.New("project not found")

// ErrProjectHasAllocations is returned when deleting a project that still owns
// allocation rows.
var ErrProjectHasAllocations = errors.New("project still has allocations")

// Project is a renovation project with a total budget and a per-category
// budget breakdown. Budgets are configuration, not computed figures.
type Project struct {
	ID          int64
	Name        string
	TotalBudget float64
	// CategoryBudgets maps an expense category to its configured budget.
	// Missing keys mean no budget is configured for that category.
	CategoryBudgets map[category.ExpenseCategory]float64
}
