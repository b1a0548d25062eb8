package ocrbudget

import (
	"context"

	"github.com/obratrack/obratrack/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Governor guards the monthly spend cap of the external extraction service.
type Governor interface {
	// Authorize reports whether an extraction call costing costCents may be
	// made this month. It never mutates the counter; callers that proceed
	// with the call must Record the cost afterwards.
	Authorize(ctx context.Context, costCents int64) (bool, error)
	// Record adds the cost of an executed extraction call to the current
	// month's counter. The cost is charged whether or not the extraction
	// itself succeeded.
	Record(ctx context.Context, costCents int64) error
	Status(ctx context.Context) (Status, error)
}

type GovernorImpl struct {
	repo     OcrBudgetRepo
	clock    utils.Clock
	capCents int64
}

func NewGovernor(repo OcrBudgetRepo, clock utils.Clock, capCents int64) *GovernorImpl {
	return &GovernorImpl{repo: repo, clock: clock, capCents: capCents}
}

func (g *GovernorImpl) Authorize(ctx context.Context, costCents int64) (bool, error) {
	month := g.monthKey()
	usage, err := g.repo.Get(ctx, month)
	if err != nil {
		return false, err
	}
	allowed := usage.SpentCents+costCents <= g.capCents
	if !allowed {
		log.Infof("OCR budget exhausted for %s: spent %d + cost %d exceeds cap %d",
			month, usage.SpentCents, costCents, g.capCents)
	}
	return allowed, nil
}

func (g *GovernorImpl) Record(ctx context.Context, costCents int64) error {
	return g.repo.Add(ctx, g.monthKey(), costCents)
}

func (g *GovernorImpl) Status(ctx context.Context) (Status, error) {
	month := g.monthKey()
	usage, err := g.repo.Get(ctx, month)
	if err != nil {
		return Status{}, err
	}
	remaining := g.capCents - usage.SpentCents
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Month:          month,
		SpentCents:     usage.SpentCents,
		CapCents:       g.capCents,
		RemainingCents: remaining,
		CallCount:      usage.CallCount,
	}, nil
}

func (g *GovernorImpl) monthKey() string {
	return g.clock.Now().Format(monthKeyFormat)
}
