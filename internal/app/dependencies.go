package app

import (
	"context"
	"database/sql"

	"github.com/obratrack/obratrack/internal/config"
	"github.com/obratrack/obratrack/internal/event_bus"
	"github.com/obratrack/obratrack/internal/utils"
	"github.com/obratrack/obratrack/pkg/allocation"
	"github.com/obratrack/obratrack/pkg/banksync"
	"github.com/obratrack/obratrack/pkg/invoice"
	"github.com/obratrack/obratrack/pkg/ocrbudget"
	"github.com/obratrack/obratrack/pkg/project"
	"github.com/obratrack/obratrack/pkg/stats"
	"github.com/obratrack/obratrack/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus

	ProjectRepo    project.ProjectRepo
	ProjectService *project.ProjectServiceImpl
	ProjectHandler *project.ProjectHandler

	TransactionRepo    transaction.TransactionRepo
	TransactionService *transaction.TransactionServiceImpl
	TransactionHandler *transaction.TransactionHandler
	Propagator         *transaction.Propagator

	SyncService *banksync.SyncServiceImpl
	SyncHandler *banksync.SyncHandler

	AllocationRepo *allocation.AllocationRepoImpl
	LedgerService  *allocation.LedgerServiceImpl
	LedgerHandler  *allocation.LedgerHandler

	StatsRepo        stats.StatsRepo
	StatsService     *stats.StatsServiceImpl
	CsvStatsRenderer *stats.CsvStatsRendererImpl
	StatsHandler     *stats.StatsHandler

	OcrBudgetRepo    ocrbudget.OcrBudgetRepo
	Governor         ocrbudget.Governor
	OcrBudgetHandler *ocrbudget.OcrBudgetHandler

	DocumentStore  invoice.DocumentStore
	Extractor      invoice.Extractor
	Matcher        *invoice.Matcher
	InvoiceRepo    invoice.InvoiceRepo
	InvoiceService *invoice.InvoiceServiceImpl
	InvoiceHandler *invoice.InvoiceHandler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.ProjectRepo = project.NewProjectRepo(db)
	deps.ProjectService = project.NewProjectService(deps.ProjectRepo)
	deps.ProjectHandler = project.NewProjectHandler(deps.ProjectService)

	deps.TransactionRepo = transaction.NewTransactionRepo(db)
	deps.TransactionService = transaction.NewTransactionService(deps.TransactionRepo, deps.EventBus)
	deps.TransactionHandler = transaction.NewTransactionHandler(deps.TransactionService)
	deps.Propagator = transaction.NewPropagator(deps.TransactionRepo)

	// Propagation fires on manual categorization edits only. Bank sync writes
	// through the repository and never publishes this event.
	event_bus.SubscribeTyped(deps.EventBus, event_bus.TransactionCategorizedEvent,
		func(ctx context.Context, data event_bus.TransactionCategorized) error {
			_, err := deps.Propagator.Propagate(ctx, data.TransactionID, transaction.PropagationField(data.Field))
			return err
		})

	deps.SyncService = banksync.NewSyncService(deps.TransactionRepo)
	deps.SyncHandler = banksync.NewSyncHandler(deps.SyncService)

	deps.AllocationRepo = allocation.NewAllocationRepo(db)
	deps.LedgerService = allocation.NewLedgerService(deps.AllocationRepo, deps.ProjectRepo, deps.EventBus)
	deps.LedgerHandler = allocation.NewLedgerHandler(deps.LedgerService)

	// Audit trail for project assignment changes. Allocation replaces are the
	// only writes to the project id cache, so this line is the full history
	// of which projects a transaction's money moved between.
	event_bus.SubscribeTyped(deps.EventBus, event_bus.AllocationsReplacedEvent,
		func(ctx context.Context, data event_bus.AllocationsReplaced) error {
			log.Infof("allocations replaced for transaction %d, now assigned to project(s) %v", data.TransactionID, data.ProjectIDs)
			return nil
		})

	deps.StatsRepo = stats.NewStatsRepo(db)
	deps.StatsService = stats.NewStatsService(deps.StatsRepo, deps.ProjectRepo)
	deps.CsvStatsRenderer = stats.NewCsvStatsRenderer()
	deps.StatsHandler = stats.NewStatsHandler(deps.StatsService, deps.CsvStatsRenderer)

	deps.OcrBudgetRepo = ocrbudget.NewOcrBudgetRepo(db)
	deps.Governor = ocrbudget.NewGovernor(deps.OcrBudgetRepo, deps.Clock, cfg.Ocr.MonthlyCapCents)
	deps.OcrBudgetHandler = ocrbudget.NewOcrBudgetHandler(deps.Governor)

	if cfg.Storage.Bucket != "" {
		store, err := invoice.NewGcsDocumentStore(context.Background(), cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, err
		}
		deps.DocumentStore = store
	} else {
		log.Warn("No storage bucket configured, documents are kept in memory")
		deps.DocumentStore = invoice.NewInMemoryDocumentStore()
	}
	deps.Extractor = invoice.UnconfiguredExtractor{}
	deps.Matcher = invoice.NewMatcher(deps.TransactionRepo)
	deps.InvoiceRepo = invoice.NewInvoiceRepo(db)
	deps.InvoiceService = invoice.NewInvoiceService(
		deps.InvoiceRepo,
		deps.DocumentStore,
		deps.Extractor,
		deps.Governor,
		deps.Matcher,
		deps.TransactionRepo,
		deps.Clock,
		cfg.Ocr.CallCostCents,
	)
	deps.InvoiceHandler = invoice.NewInvoiceHandler(deps.InvoiceService)

	return deps, nil
}
