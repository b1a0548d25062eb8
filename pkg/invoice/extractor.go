package invoice

import (
	"context"
	"errors"
)

// Extractor calls the external OCR service on a document. The returned cost
// in minor currency units is charged against the monthly budget whether the
// extraction succeeded or not, because the external call was made either way.
type Extractor interface {
	Extract(ctx context.Context, content []byte, contentType string) (OcrFields, int64, error)
}

// UnconfiguredExtractor is wired when no extraction service is configured.
// Every attempt fails without consuming budget.
type UnconfiguredExtractor struct{}

func (e UnconfiguredExtractor) Extract(ctx context.Context, content []byte, contentType string) (OcrFields, int64, error) {
	return OcrFields{}, 0, errors.New("no extraction service configured")
}

// StubExtractor returns canned results for tests.
type StubExtractor struct {
	Fields    OcrFields
	CostCents int64
	Err       error
	Calls     int
}

func (e *StubExtractor) Extract(ctx context.Context, content []byte, contentType string) (OcrFields, int64, error) {
	e.Calls++
	if e.Err != nil {
		return OcrFields{}, e.CostCents, e.Err
	}
	return e.Fields, e.CostCents, nil
}

func (e *StubExtractor) Cleanup() {
	e.Fields = OcrFields{}
	e.CostCents = 0
	e.Err = nil
	e.Calls = 0
}
