package stats

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type ProjectStatsDTO struct {
	ProjectID   int64              `json:"projectId"`
	ProjectName string             `json:"projectName"`
	TotalBudget float64            `json:"totalBudget"`
	Spend       float64            `json:"spend"`
	ByCategory  map[string]float64 `json:"byCategory"`
}

type BudgetAlertDTO struct {
	ProjectID   int64   `json:"projectId"`
	ProjectName string  `json:"projectName"`
	Category    *string `json:"category,omitempty"`
	Budget      float64 `json:"budget"`
	Spend       float64 `json:"spend"`
	Percentage  float64 `json:"percentage"`
}

type FixedVariableSplitDTO struct {
	Fixed     float64 `json:"fixed"`
	Variable  float64 `json:"variable"`
	Unflagged float64 `json:"unflagged"`
}

type StatsSummaryDTO struct {
	Projects   []ProjectStatsDTO     `json:"projects"`
	Categories map[string]float64    `json:"categories"`
	Alerts     []BudgetAlertDTO      `json:"alerts"`
	Split      FixedVariableSplitDTO `json:"split"`
}

type StatsHandler struct {
	statsService     StatsService
	csvStatsRenderer StatsRenderer
}

func NewStatsHandler(statsService StatsService, csvStatsRenderer StatsRenderer) *StatsHandler {
	return &StatsHandler{statsService, csvStatsRenderer}
}

func (handler *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := handler.computeStats(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Accept") == "text/csv" {
		handler.writeCsv(w, stats)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summaryToDTO(stats)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *StatsHandler) GetStatsCsv(w http.ResponseWriter, r *http.Request) {
	stats, ok := handler.computeStats(w, r)
	if !ok {
		return
	}
	handler.writeCsv(w, stats)
}

func (handler *StatsHandler) computeStats(w http.ResponseWriter, r *http.Request) (StatsSummary, bool) {
	var projectID *int64
	if raw := r.URL.Query().Get("projectId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid projectId", http.StatusBadRequest)
			return StatsSummary{}, false
		}
		projectID = &parsed
	}

	stats, err := handler.statsService.GetStats(r.Context(), projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return StatsSummary{}, false
	}
	return stats, true
}

func (handler *StatsHandler) writeCsv(w http.ResponseWriter, stats StatsSummary) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	csv, err := handler.csvStatsRenderer.RenderStats(stats)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csv)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func summaryToDTO(stats StatsSummary) StatsSummaryDTO {
	projects := make([]ProjectStatsDTO, 0, len(stats.Projects))
	for _, projectStats := range stats.Projects {
		byCategory := make(map[string]float64, len(projectStats.ByCategory))
		for cat, spend := range projectStats.ByCategory {
			byCategory[string(cat)] = spend
		}
		projects = append(projects, ProjectStatsDTO{
			ProjectID:   projectStats.ProjectID,
			ProjectName: projectStats.ProjectName,
			TotalBudget: projectStats.TotalBudget,
			Spend:       projectStats.Spend,
			ByCategory:  byCategory,
		})
	}

	categories := make(map[string]float64, len(stats.Categories))
	for cat, spend := range stats.Categories {
		categories[string(cat)] = spend
	}

	alerts := make([]BudgetAlertDTO, 0, len(stats.Alerts))
	for _, alert := range stats.Alerts {
		dto := BudgetAlertDTO{
			ProjectID:   alert.ProjectID,
			ProjectName: alert.ProjectName,
			Budget:      alert.Budget,
			Spend:       alert.Spend,
			Percentage:  alert.Percentage,
		}
		if alert.Category != nil {
			cat := string(*alert.Category)
			dto.Category = &cat
		}
		alerts = append(alerts, dto)
	}

	return StatsSummaryDTO{
		Projects:   projects,
		Categories: categories,
		Alerts:     alerts,
		Split: FixedVariableSplitDTO{
			Fixed:     stats.Split.Fixed,
			Variable:  stats.Split.Variable,
			Unflagged: stats.Split.Unflagged,
		},
	}
}
