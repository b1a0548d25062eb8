package banksync

import (
	"context"
	"errors"
	"time"

	"github.com/obratrack/obratrack/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

// FeedRecord is one raw movement delivered by the bank feed.
type FeedRecord struct {
	ExternalID  string
	Date        time.Time
	Amount      float64
	Concept     string
	RawCategory string
}

// RecordResult reports the outcome of one feed record. A batch never fails as
// a whole; each record is processed in isolation.
type RecordResult struct {
	ExternalID string
	Created    bool
	Err        error
}

type SyncService interface {
	ProcessBatch(ctx context.Context, records []FeedRecord) []RecordResult
}

type SyncServiceImpl struct {
	repo transaction.TransactionRepo
}

func NewSyncService(repo transaction.TransactionRepo) *SyncServiceImpl {
	return &SyncServiceImpl{repo: repo}
}

// ProcessBatch upserts every record by its external id, item by item. On
// re-sync only date, amount, concept and raw category are overwritten;
// manual categorization, project assignment, notes, the fixed flag and any
// linked invoices survive untouched. Categorization is never propagated from
// here: propagation belongs to manual edits only.
func (s *SyncServiceImpl) ProcessBatch(ctx context.Context, records []FeedRecord) []RecordResult {
	results := make([]RecordResult, 0, len(records))
	for _, record := range records {
		result := RecordResult{ExternalID: record.ExternalID}
		result.Created, result.Err = s.upsert(ctx, record)
		if result.Err != nil {
			log.Errorf("bank sync: record %s failed: %v", record.ExternalID, result.Err)
		}
		results = append(results, result)
	}
	return results
}

func (s *SyncServiceImpl) upsert(ctx context.Context, record FeedRecord) (created bool, err error) {
	if record.ExternalID == "" {
		return false, errors.New("feed record has no external id")
	}

	existing, err := s.repo.FindByExternalID(ctx, record.ExternalID)
	if err != nil {
		if !errors.Is(err, transaction.ErrTransactionNotFound) {
			return false, err
		}
		_, err := s.repo.Store(ctx, transaction.Transaction{
			ExternalID:  record.ExternalID,
			Date:        record.Date,
			Amount:      record.Amount,
			Concept:     record.Concept,
			RawCategory: record.RawCategory,
			IsManual:    false,
		})
		return true, err
	}

	_, err = s.repo.UpdateSyncedFields(ctx, existing.ID, record.Date, record.Amount, record.Concept, record.RawCategory)
	return false, err
}
