package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/obratrack/obratrack/pkg/category"
	log "github.com/sirupsen/logrus"
)

type TransactionDTO struct {
	ID              int64   `json:"id"`
	ExternalID      string  `json:"externalId,omitempty"`
	Date            string  `json:"date"`
	Amount          float64 `json:"amount"`
	Concept         string  `json:"concept"`
	RawCategory     string  `json:"rawCategory,omitempty"`
	ExpenseCategory *string `json:"expenseCategory,omitempty"`
	IsFixed         *bool   `json:"isFixed,omitempty"`
	IsManual        bool    `json:"isManual"`
	Archived        bool    `json:"archived"`
	HasInvoice      bool    `json:"hasInvoice"`
	Notes           string  `json:"notes,omitempty"`
	ProjectID       *int64  `json:"projectId,omitempty"`
}

type CategorizeDTO struct {
	ExpenseCategory *string `json:"expenseCategory,omitempty"`
	IsFixed         *bool   `json:"isFixed,omitempty"`
	Propagate       bool    `json:"propagate"`
}

type TransactionHandler struct {
	service TransactionService
}

func NewTransactionHandler(service TransactionService) *TransactionHandler {
	return &TransactionHandler{service}
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating manual transaction")
	w.Header().Set("Content-Type", "application/json")

	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := dtoToTransaction(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), tx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(transactionToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	filter := ListFilter{IncludeArchived: r.URL.Query().Has("includeArchived")}
	if projectIdString := r.URL.Query().Get("projectId"); projectIdString != "" {
		projectId, err := strconv.ParseInt(projectIdString, 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.ProjectID = &projectId
	}

	txs, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, transactionToDTO(tx))
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dto.ID = id
	tx, err := dtoToTransaction(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := h.service.Update(r.Context(), tx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !ok {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *TransactionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := h.service.Archive(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Categorize updates the expense category and/or fixed flag of one
// transaction, optionally propagating each edit to concept-matching
// transactions.
func (h *TransactionHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var dto CategorizeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if dto.ExpenseCategory != nil {
		cat, err := category.Parse(*dto.ExpenseCategory)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.service.Categorize(r.Context(), id, &cat, dto.Propagate); err != nil {
			writeCategorizeError(w, err)
			return
		}
	}
	if dto.IsFixed != nil {
		if err := h.service.SetFixedFlag(r.Context(), id, dto.IsFixed, dto.Propagate); err != nil {
			writeCategorizeError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func writeCategorizeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrTransactionNotFound) {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func transactionToDTO(tx Transaction) TransactionDTO {
	var cat *string
	if tx.ExpenseCategory != nil {
		s := string(*tx.ExpenseCategory)
		cat = &s
	}
	return TransactionDTO{
		ID:              tx.ID,
		ExternalID:      tx.ExternalID,
		Date:            tx.Date.Format(dateFormat),
		Amount:          tx.Amount,
		Concept:         tx.Concept,
		RawCategory:     tx.RawCategory,
		ExpenseCategory: cat,
		IsFixed:         tx.IsFixed,
		IsManual:        tx.IsManual,
		Archived:        tx.Archived,
		HasInvoice:      tx.HasInvoice,
		Notes:           tx.Notes,
		ProjectID:       tx.ProjectID,
	}
}

func dtoToTransaction(dto TransactionDTO) (Transaction, error) {
	date, err := time.Parse(dateFormat, dto.Date)
	if err != nil {
		return Transaction{}, err
	}
	var cat *category.ExpenseCategory
	if dto.ExpenseCategory != nil {
		parsed, err := category.Parse(*dto.ExpenseCategory)
		if err != nil {
			return Transaction{}, err
		}
		cat = &parsed
	}
	return Transaction{
		ID:              dto.ID,
		Date:            date,
		Amount:          dto.Amount,
		Concept:         dto.Concept,
		RawCategory:     dto.RawCategory,
		ExpenseCategory: cat,
		IsFixed:         dto.IsFixed,
		Notes:           dto.Notes,
	}, nil
}
