package banksync

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

type FeedRecordDTO struct {
	ExternalID  string  `json:"externalId"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Concept     string  `json:"concept"`
	RawCategory string  `json:"rawCategory"`
}

type RecordResultDTO struct {
	ExternalID string `json:"externalId"`
	Created    bool   `json:"created"`
	Error      string `json:"error,omitempty"`
}

type SyncHandler struct {
	service SyncService
}

func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service}
}

func (h *SyncHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	log.Debug("Processing bank feed batch")
	w.Header().Set("Content-Type", "application/json")

	var dtos []FeedRecordDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records := make([]FeedRecord, 0, len(dtos))
	for _, dto := range dtos {
		date, err := time.Parse("2006-01-02", dto.Date)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records = append(records, FeedRecord{
			ExternalID:  dto.ExternalID,
			Date:        date,
			Amount:      dto.Amount,
			Concept:     dto.Concept,
			RawCategory: dto.RawCategory,
		})
	}

	results := h.service.ProcessBatch(r.Context(), records)

	resultDTOs := make([]RecordResultDTO, 0, len(results))
	for _, result := range results {
		dto := RecordResultDTO{ExternalID: result.ExternalID, Created: result.Created}
		if result.Err != nil {
			dto.Error = result.Err.Error()
		}
		resultDTOs = append(resultDTOs, dto)
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resultDTOs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
