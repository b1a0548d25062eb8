package stats

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/obratrack/obratrack/pkg/category"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvStatsRendererImpl_RenderStats(t *testing.T) {
	renderer := NewCsvStatsRenderer()

	t.Run("should render one row per project plus a total row", func(t *testing.T) {
		// given
		stats := StatsSummary{
			Projects: []ProjectStats{
				{
					ProjectID:   1,
					ProjectName: "Kitchen",
					TotalBudget: 10000,
					Spend:       600,
					ByCategory: map[category.ExpenseCategory]float64{
						category.MaterialYManoDeObra: 600,
					},
				},
			},
			Categories: map[category.ExpenseCategory]float64{
				category.MaterialYManoDeObra: 600,
				category.Nominas:             2000,
			},
		}

		// when
		out, err := renderer.RenderStats(stats)

		// then
		require.NoError(t, err)
		records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "Project", records[0][0])
		assert.Equal(t, "Kitchen", records[1][0])
		assert.Equal(t, "600.00", records[1][1])
		assert.Equal(t, "600.00", records[1][len(records[1])-2])
		assert.Equal(t, "10000.00", records[1][len(records[1])-1])
		assert.Equal(t, "TOTAL", records[2][0])
		// global payroll spend lands in the total row only
		assert.Equal(t, "2600.00", records[2][len(records[2])-2])
	})
}
