package transaction

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// PropagationCap bounds how many rows a single manual categorization click
// may touch. If more transactions share the concept, the first
// PropagationCap in id order are updated and the rest are left alone; that
// is still a success, not an error.
const PropagationCap = 500

// Propagator copies a manual categorization decision onto every other
// transaction with the exact same normalized concept. It runs only in
// response to manual edits (wired through the event bus); bank
// synchronization never triggers it.
type Propagator struct {
	repo TransactionRepo
}

func NewPropagator(repo TransactionRepo) *Propagator {
	return &Propagator{repo: repo}
}

// Propagate applies the source transaction's current value of the given
// field to concept-matching transactions. Returns the number of rows updated.
func (p *Propagator) Propagate(ctx context.Context, sourceID int64, field PropagationField) (int64, error) {
	source, err := p.repo.Get(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to load source transaction: %w", err)
	}

	normalized := NormalizeConcept(source.Concept)
	if normalized == "" {
		log.Debugf("transaction %d has an empty concept, nothing to propagate", sourceID)
		return 0, nil
	}

	updated, err := p.repo.PropagateField(ctx, normalized, sourceID, field, source.ExpenseCategory, source.IsFixed, PropagationCap)
	if err != nil {
		return 0, err
	}
	log.Infof("propagated %s from transaction %d to %d matching transaction(s)", field, sourceID, updated)
	return updated, nil
}
