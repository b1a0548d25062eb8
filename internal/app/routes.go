package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Projects
	r.HandleFunc("/api/project", deps.ProjectHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/project", deps.ProjectHandler.Create).Methods("POST")
	r.HandleFunc("/api/project/{id}", deps.ProjectHandler.Get).Methods("GET")
	r.HandleFunc("/api/project/{id}", deps.ProjectHandler.Update).Methods("PUT")
	r.HandleFunc("/api/project/{id}", deps.ProjectHandler.Delete).Methods("DELETE")

	// Transactions
	r.HandleFunc("/api/transaction", deps.TransactionHandler.List).Methods("GET")
	r.HandleFunc("/api/transaction", deps.TransactionHandler.Create).Methods("POST")
	r.HandleFunc("/api/transaction/{id}", deps.TransactionHandler.Update).Methods("PUT")
	r.HandleFunc("/api/transaction/{id}/archive", deps.TransactionHandler.Archive).Methods("POST")
	r.HandleFunc("/api/transaction/{id}/category", deps.TransactionHandler.Categorize).Methods("PUT")

	// Allocations
	r.HandleFunc("/api/transaction/{id}/allocations", deps.LedgerHandler.GetForTransaction).Methods("GET")
	r.HandleFunc("/api/transaction/{id}/allocations", deps.LedgerHandler.Replace).Methods("PUT")

	// Bank feed
	r.HandleFunc("/api/banksync", deps.SyncHandler.ProcessBatch).Methods("POST")

	// Stats
	r.HandleFunc("/api/stats", deps.StatsHandler.GetStats).Methods("GET")
	r.HandleFunc("/api/stats/csv", deps.StatsHandler.GetStatsCsv).Methods("GET")

	// Invoices
	r.HandleFunc("/api/invoice", deps.InvoiceHandler.List).Methods("GET")
	r.HandleFunc("/api/invoice", deps.InvoiceHandler.BulkUpload).Methods("POST")
	r.HandleFunc("/api/invoice/{id}", deps.InvoiceHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/invoice/{id}/download", deps.InvoiceHandler.Download).Methods("GET")
	r.HandleFunc("/api/invoice/{id}/suggestions", deps.InvoiceHandler.Suggestions).Methods("GET")
	r.HandleFunc("/api/invoice/{id}/link", deps.InvoiceHandler.Link).Methods("POST")
	r.HandleFunc("/api/invoice/{id}/ocr", deps.InvoiceHandler.CorrectOcr).Methods("PUT")
	r.HandleFunc("/api/invoice/{id}/retry", deps.InvoiceHandler.Retry).Methods("POST")

	// OCR budget
	r.HandleFunc("/api/ocr-budget", deps.OcrBudgetHandler.GetStatus).Methods("GET")
}
