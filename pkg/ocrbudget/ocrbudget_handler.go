package ocrbudget

import (
	"encoding/json"
	"net/http"
)

type StatusDTO struct {
	Month          string `json:"month"`
	SpentCents     int64  `json:"spentCents"`
	CapCents       int64  `json:"capCents"`
	RemainingCents int64  `json:"remainingCents"`
	CallCount      int64  `json:"callCount"`
}

type OcrBudgetHandler struct {
	governor Governor
}

func NewOcrBudgetHandler(governor Governor) *OcrBudgetHandler {
	return &OcrBudgetHandler{governor}
}

func (h *OcrBudgetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status, err := h.governor.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(StatusDTO(status)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
