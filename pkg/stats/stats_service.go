package stats

import (
	"context"
	"sort"

	"github.com/obratrack/obratrack/pkg/category"
	"github.com/obratrack/obratrack/pkg/project"
	log "github.com/sirupsen/logrus"
)

// ProjectLister is the slice of the project repository the aggregator needs.
type ProjectLister interface {
	GetAll(ctx context.Context) ([]project.Project, error)
}

type StatsService interface {
	// GetStats recomputes all spend figures from the allocation rows. A
	// projectID filter restricts the per-project figures and their alerts;
	// company-wide category totals and the fixed/variable split are not
	// filtered.
	GetStats(ctx context.Context, projectID *int64) (StatsSummary, error)
}

type StatsServiceImpl struct {
	repo     StatsRepo
	projects ProjectLister
}

func NewStatsService(repo StatsRepo, projects ProjectLister) *StatsServiceImpl {
	return &StatsServiceImpl{repo: repo, projects: projects}
}

func (s *StatsServiceImpl) GetStats(ctx context.Context, projectID *int64) (StatsSummary, error) {
	projects, err := s.projects.GetAll(ctx)
	if err != nil {
		return StatsSummary{}, err
	}
	if projectID != nil {
		filtered := make([]project.Project, 0, 1)
		for _, p := range projects {
			if p.ID == *projectID {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	// The full row set is aggregated regardless of the filter: the filter
	// only narrows which projects (and alerts) are reported, while the
	// category totals and the split stay company-wide.
	allocations, err := s.repo.ExpenseAllocations(ctx)
	if err != nil {
		return StatsSummary{}, err
	}
	transactions, err := s.repo.ExpenseTransactions(ctx)
	if err != nil {
		return StatsSummary{}, err
	}
	log.Tracef("Aggregating %d allocation rows and %d transactions", len(allocations), len(transactions))

	spendByProject := map[int64]float64{}
	spendByProjectCategory := map[int64]map[category.ExpenseCategory]float64{}
	categories := map[category.ExpenseCategory]float64{}

	for _, row := range allocations {
		if row.Category != nil && row.Category.IsGlobal() {
			// Global categories never count against a project.
			continue
		}
		spend := -row.Amount
		spendByProject[row.ProjectID] += spend
		if row.Category != nil {
			byCategory := spendByProjectCategory[row.ProjectID]
			if byCategory == nil {
				byCategory = map[category.ExpenseCategory]float64{}
				spendByProjectCategory[row.ProjectID] = byCategory
			}
			byCategory[*row.Category] += spend
			categories[*row.Category] += spend
		}
	}

	split := FixedVariableSplit{}
	for _, row := range transactions {
		if row.Category != nil && row.Category.IsGlobal() {
			// Aggregated company-wide from the full transaction amount.
			categories[*row.Category] += -row.Amount
		}
		switch {
		case row.IsFixed == nil:
			split.Unflagged += -row.Amount
		case *row.IsFixed:
			split.Fixed += -row.Amount
		default:
			split.Variable += -row.Amount
		}
	}

	projectStats := make([]ProjectStats, 0, len(projects))
	var alerts []BudgetAlert
	for _, p := range projects {
		stats := ProjectStats{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			TotalBudget: p.TotalBudget,
			Spend:       spendByProject[p.ID],
			ByCategory:  spendByProjectCategory[p.ID],
		}
		if stats.ByCategory == nil {
			stats.ByCategory = map[category.ExpenseCategory]float64{}
		}
		projectStats = append(projectStats, stats)
		alerts = append(alerts, projectAlerts(p, stats)...)
	}
	sort.Slice(projectStats, func(i, j int) bool {
		return projectStats[i].ProjectID < projectStats[j].ProjectID
	})

	return StatsSummary{
		Projects:   projectStats,
		Categories: categories,
		Alerts:     alerts,
		Split:      split,
	}, nil
}

func projectAlerts(p project.Project, stats ProjectStats) []BudgetAlert {
	var alerts []BudgetAlert
	for _, cat := range category.All() {
		budget := p.CategoryBudgets[cat]
		spend := stats.ByCategory[cat]
		if budget > 0 && spend > budget {
			c := cat
			alerts = append(alerts, BudgetAlert{
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Category:    &c,
				Budget:      budget,
				Spend:       spend,
				Percentage:  spend / budget * 100,
			})
		}
	}
	if p.TotalBudget > 0 && stats.Spend > p.TotalBudget {
		alerts = append(alerts, BudgetAlert{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Budget:      p.TotalBudget,
			Spend:       stats.Spend,
			Percentage:  stats.Spend / p.TotalBudget * 100,
		})
	}
	return alerts
}
