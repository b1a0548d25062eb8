package invoice

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/obratrack/obratrack/pkg/transaction"
)

const (
	maxSuggestions = 10

	amountWeight = 50
	dateWeight   = 30
	vendorWeight = 20

	// amountBand is the relative difference past which the amount signal
	// reaches zero.
	amountBand = 0.10
	// dateWindowDays is the window past which the date signal reaches zero.
	dateWindowDays = 7
)

// Suggestion is one candidate transaction with its match score.
type Suggestion struct {
	Transaction transaction.Transaction
	Score       int
}

// TransactionFinder is the slice of the transaction repository the matcher
// needs.
type TransactionFinder interface {
	FindExpenseCandidates(ctx context.Context) ([]transaction.Transaction, error)
}

// Matcher scores non-archived expense transactions against an invoice's
// extracted fields.
type Matcher struct {
	transactions TransactionFinder
}

func NewMatcher(transactions TransactionFinder) *Matcher {
	return &Matcher{transactions: transactions}
}

// Suggest returns up to maxSuggestions candidates sorted by score descending,
// ties broken by most recent date. The invoice must have a completed
// extraction; a transaction already linked to the invoice is excluded.
func (m *Matcher) Suggest(ctx context.Context, inv Invoice) ([]Suggestion, error) {
	if inv.OcrStatus != StatusCompleted {
		return nil, ErrOcrNotCompleted
	}

	candidates, err := m.transactions.FindExpenseCandidates(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(candidates))
	for _, tx := range candidates {
		if inv.TransactionID != nil && tx.ID == *inv.TransactionID {
			continue
		}
		score := scoreCandidate(inv.OcrFields, tx)
		if score <= 0 {
			continue
		}
		suggestions = append(suggestions, Suggestion{Transaction: tx, Score: score})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		if !suggestions[i].Transaction.Date.Equal(suggestions[j].Transaction.Date) {
			return suggestions[i].Transaction.Date.After(suggestions[j].Transaction.Date)
		}
		return suggestions[i].Transaction.ID > suggestions[j].Transaction.ID
	})

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}

func scoreCandidate(fields OcrFields, tx transaction.Transaction) int {
	score := amountScore(fields.Amount, tx.Amount) +
		dateScore(fields.Date, tx.Date) +
		vendorScore(fields.Vendor, tx.Concept)

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func amountScore(extracted *float64, txAmount float64) float64 {
	if extracted == nil || *extracted <= 0 {
		return 0
	}
	diff := math.Abs(math.Abs(txAmount) - *extracted)
	if diff <= 0.01 {
		return amountWeight
	}
	relative := diff / *extracted
	if relative >= amountBand {
		return 0
	}
	return amountWeight * (1 - relative/amountBand)
}

func dateScore(extracted *time.Time, txDate time.Time) float64 {
	if extracted == nil {
		return 0
	}
	days := math.Abs(txDate.Sub(*extracted).Hours()) / 24
	if days > dateWindowDays {
		return 0
	}
	return dateWeight * (dateWindowDays - days) / dateWindowDays
}

func vendorScore(vendor *string, concept string) float64 {
	if vendor == nil {
		return 0
	}
	normalizedVendor := strings.ToLower(strings.TrimSpace(*vendor))
	normalizedConcept := strings.ToLower(strings.TrimSpace(concept))
	if normalizedVendor == "" || normalizedConcept == "" {
		return 0
	}

	if strings.Contains(normalizedConcept, normalizedVendor) ||
		strings.Contains(normalizedVendor, normalizedConcept) {
		return vendorWeight
	}

	vendorTokens := strings.Fields(normalizedVendor)
	if len(vendorTokens) == 0 {
		return 0
	}
	conceptTokens := map[string]bool{}
	for _, token := range strings.Fields(normalizedConcept) {
		conceptTokens[token] = true
	}
	shared := 0
	for _, token := range vendorTokens {
		if conceptTokens[token] {
			shared++
		}
	}
	return vendorWeight * float64(shared) / float64(len(vendorTokens))
}
