package stats

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/obratrack/obratrack/pkg/category"
	log "github.com/sirupsen/logrus"
)

type StatsRenderer interface {
	RenderStats(stats StatsSummary) (string, error)
}

type CsvStatsRendererImpl struct {
}

func NewCsvStatsRenderer() *CsvStatsRendererImpl {
	return &CsvStatsRendererImpl{}
}

// RenderStats writes one row per project with a column per expense category,
// followed by a company-wide TOTAL row built from the category totals.
func (t *CsvStatsRendererImpl) RenderStats(stats StatsSummary) (string, error) {
	allCategories := category.All()

	header := make([]string, 0, len(allCategories)+3)
	header = append(header, "Project")
	for _, cat := range allCategories {
		header = append(header, string(cat))
	}
	header = append(header, "Total spend", "Total budget")

	data := make([][]string, 0, len(stats.Projects)+2)
	data = append(data, header)

	for _, projectStats := range stats.Projects {
		row := make([]string, 0, len(header))
		row = append(row, projectStats.ProjectName)
		for _, cat := range allCategories {
			row = append(row, amountToString(projectStats.ByCategory[cat]))
		}
		row = append(row, amountToString(projectStats.Spend), amountToString(projectStats.TotalBudget))
		data = append(data, row)
	}

	totalSpend := 0.0
	totalBudget := 0.0
	for _, projectStats := range stats.Projects {
		totalSpend += projectStats.Spend
		totalBudget += projectStats.TotalBudget
	}
	for _, cat := range allCategories {
		if cat.IsGlobal() {
			totalSpend += stats.Categories[cat]
		}
	}
	totalRow := make([]string, 0, len(header))
	totalRow = append(totalRow, "TOTAL")
	for _, cat := range allCategories {
		totalRow = append(totalRow, amountToString(stats.Categories[cat]))
	}
	totalRow = append(totalRow, amountToString(totalSpend), amountToString(totalBudget))
	data = append(data, totalRow)

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func amountToString(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
