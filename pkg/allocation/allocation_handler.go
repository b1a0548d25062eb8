package allocation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// ReplaceDTO accepts either the single-project shortcut (projectId set) or an
// explicit allocation array. Both absent means unassign.
type ReplaceDTO struct {
	ProjectID   *int64     `json:"projectId,omitempty"`
	Allocations []EntryDTO `json:"allocations,omitempty"`
}

type EntryDTO struct {
	ProjectID int64   `json:"projectId"`
	Amount    float64 `json:"amount"`
}

type AllocationDTO struct {
	ID            int64   `json:"id"`
	TransactionID int64   `json:"transactionId"`
	ProjectID     int64   `json:"projectId"`
	Amount        float64 `json:"amount"`
}

type LedgerHandler struct {
	service LedgerService
}

func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{service}
}

func (h *LedgerHandler) Replace(w http.ResponseWriter, r *http.Request) {
	log.Debug("Replacing allocations")
	transactionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var dto ReplaceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case dto.ProjectID != nil && len(dto.Allocations) > 0:
		http.Error(w, "Provide either projectId or allocations, not both", http.StatusBadRequest)
		return
	case dto.ProjectID != nil:
		err = h.service.AssignProject(r.Context(), transactionID, *dto.ProjectID)
	case len(dto.Allocations) > 0:
		entries := make([]Entry, 0, len(dto.Allocations))
		for _, e := range dto.Allocations {
			entries = append(entries, Entry{ProjectID: e.ProjectID, Amount: e.Amount})
		}
		err = h.service.Replace(r.Context(), transactionID, entries)
	default:
		err = h.service.Unassign(r.Context(), transactionID)
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			http.Error(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, ErrAllocationMismatch),
			errors.Is(err, ErrSignMismatch),
			errors.Is(err, ErrInvalidProject):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *LedgerHandler) GetForTransaction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	transactionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	allocations, err := h.service.GetForTransaction(r.Context(), transactionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]AllocationDTO, 0, len(allocations))
	for _, a := range allocations {
		dtos = append(dtos, AllocationDTO(a))
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
