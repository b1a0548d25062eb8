package invoice

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// maxUploadMemory bounds the in-memory part of multipart parsing.
const maxUploadMemory = 32 << 20

type InvoiceDTO struct {
	ID               int64    `json:"id"`
	TransactionID    *int64   `json:"transactionId,omitempty"`
	FileName         string   `json:"fileName"`
	ContentType      string   `json:"contentType,omitempty"`
	UploadedAt       string   `json:"uploadedAt"`
	OcrStatus        string   `json:"ocrStatus"`
	OcrAmount        *float64 `json:"ocrAmount,omitempty"`
	OcrDate          *string  `json:"ocrDate,omitempty"`
	OcrVendor        *string  `json:"ocrVendor,omitempty"`
	OcrInvoiceNumber *string  `json:"ocrInvoiceNumber,omitempty"`
	OcrError         *string  `json:"ocrError,omitempty"`
	OcrCostCents     int64    `json:"ocrCostCents"`
}

type SuggestedTransactionDTO struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Concept   string  `json:"concept"`
	ProjectID *int64  `json:"projectId,omitempty"`
}

type SuggestionDTO struct {
	Transaction SuggestedTransactionDTO `json:"transaction"`
	Score       int                     `json:"score"`
}

type UploadResultDTO struct {
	FileName    string          `json:"fileName"`
	Status      string          `json:"status"`
	Invoice     *InvoiceDTO     `json:"invoice,omitempty"`
	Suggestions []SuggestionDTO `json:"suggestions,omitempty"`
	Error       *string         `json:"error,omitempty"`
}

type LinkDTO struct {
	TransactionID *int64 `json:"transactionId"`
}

type OcrCorrectionDTO struct {
	Amount        *float64 `json:"amount,omitempty"`
	Date          *string  `json:"date,omitempty"`
	Vendor        *string  `json:"vendor,omitempty"`
	InvoiceNumber *string  `json:"invoiceNumber,omitempty"`
}

type InvoiceHandler struct {
	service InvoiceService
}

func NewInvoiceHandler(service InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service}
}

func (h *InvoiceHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	log.Debug("Uploading invoice documents")
	w.Header().Set("Content-Type", "application/json")

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		http.Error(w, "No files provided", http.StatusBadRequest)
		return
	}

	files := make([]FileUpload, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files = append(files, FileUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	results, err := h.service.BulkUpload(r.Context(), files)
	if err != nil {
		if errors.Is(err, ErrTooManyFiles) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]UploadResultDTO, 0, len(results))
	for _, result := range results {
		dtos = append(dtos, uploadResultToDTO(result))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	invoices, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]InvoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		dtos = append(dtos, invoiceToDTO(inv))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeInvoiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	url, err := h.service.DownloadURL(r.Context(), id)
	if err != nil {
		writeInvoiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"url": url}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *InvoiceHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	suggestions, err := h.service.Suggest(r.Context(), id)
	if err != nil {
		writeInvoiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(suggestionsToDTO(suggestions)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *InvoiceHandler) Link(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto LinkDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	if dto.TransactionID == nil {
		err = h.service.Unlink(r.Context(), id)
	} else {
		err = h.service.Link(r.Context(), id, *dto.TransactionID)
	}
	if err != nil {
		writeInvoiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *InvoiceHandler) CorrectOcr(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto OcrCorrectionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fields, err := dtoToOcrFields(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	suggestions, err := h.service.CorrectOcr(r.Context(), id, fields)
	if err != nil {
		writeInvoiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(suggestionsToDTO(suggestions)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *InvoiceHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, suggestions, err := h.service.Retry(r.Context(), id)
	if err != nil {
		writeInvoiceError(w, err)
		return
	}

	dto := uploadResultToDTO(UploadResult{
		FileName:    inv.FileName,
		Invoice:     &inv,
		Suggestions: suggestions,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeInvoiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrTransactionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrOcrNotCompleted), errors.Is(err, ErrOcrNotTerminal):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func invoiceToDTO(inv Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:               inv.ID,
		TransactionID:    inv.TransactionID,
		FileName:         inv.FileName,
		ContentType:      inv.ContentType,
		UploadedAt:       inv.UploadedAt.Format(time.RFC3339),
		OcrStatus:        string(inv.OcrStatus),
		OcrAmount:        inv.OcrFields.Amount,
		OcrVendor:        inv.OcrFields.Vendor,
		OcrInvoiceNumber: inv.OcrFields.InvoiceNumber,
		OcrError:         inv.OcrError,
		OcrCostCents:     inv.OcrCostCents,
	}
	if inv.OcrFields.Date != nil {
		date := inv.OcrFields.Date.Format(ocrDateFormat)
		dto.OcrDate = &date
	}
	return dto
}

func uploadResultToDTO(result UploadResult) UploadResultDTO {
	dto := UploadResultDTO{FileName: result.FileName}
	if result.Err != nil {
		message := result.Err.Error()
		dto.Status = "ERROR"
		dto.Error = &message
	}
	if result.Invoice != nil {
		invoiceDTO := invoiceToDTO(*result.Invoice)
		dto.Invoice = &invoiceDTO
		if result.Err == nil {
			dto.Status = string(result.Invoice.OcrStatus)
		}
	}
	dto.Suggestions = suggestionsToDTO(result.Suggestions)
	return dto
}

func suggestionsToDTO(suggestions []Suggestion) []SuggestionDTO {
	dtos := make([]SuggestionDTO, 0, len(suggestions))
	for _, suggestion := range suggestions {
		tx := suggestion.Transaction
		dtos = append(dtos, SuggestionDTO{
			Transaction: SuggestedTransactionDTO{
				ID:        tx.ID,
				Date:      tx.Date.Format(ocrDateFormat),
				Amount:    tx.Amount,
				Concept:   tx.Concept,
				ProjectID: tx.ProjectID,
			},
			Score: suggestion.Score,
		})
	}
	return dtos
}

func dtoToOcrFields(dto OcrCorrectionDTO) (OcrFields, error) {
	fields := OcrFields{
		Amount:        dto.Amount,
		Vendor:        dto.Vendor,
		InvoiceNumber: dto.InvoiceNumber,
	}
	if dto.Date != nil {
		parsed, err := time.Parse(ocrDateFormat, *dto.Date)
		if err != nil {
			return OcrFields{}, err
		}
		fields.Date = &parsed
	}
	return fields, nil
}
