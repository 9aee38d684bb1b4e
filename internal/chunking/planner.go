// Package chunking plans how a paged document is split into model-sized
// chunks and assembles the per-chunk PDF payloads.
//
// Every chunk repeats the document's header pages so each model call sees
// invoice-level context, then carries a contiguous slice of body pages.
package chunking

import (
	"errors"
	"fmt"
)

// Margin is the fraction of the context budget chunks may actually use,
// leaving headroom for the prompt and response.
const Margin = 0.8

// ErrBudgetTooSmall indicates the margin-adjusted context budget cannot fit
// the header pages plus at least one body page.
var ErrBudgetTooSmall = errors.New("context budget too small for header pages plus one body page")

// Params are the planning inputs for one document.
type Params struct {
	// BudgetTokens is the model's usable context size.
	BudgetTokens int
	// TokensPerPage is the estimated token cost of one page.
	TokensPerPage int
	// HeaderPages is how many leading pages repeat into every chunk.
	HeaderPages int
}

// Validate checks the params describe a feasible plan.
func (p Params) Validate() error {
	if p.BudgetTokens <= 0 {
		return fmt.Errorf("context budget must be positive: %d", p.BudgetTokens)
	}
	if p.TokensPerPage <= 0 {
		return fmt.Errorf("tokens per page must be positive: %d", p.TokensPerPage)
	}
	if p.HeaderPages < 0 {
		return fmt.Errorf("header page count cannot be negative: %d", p.HeaderPages)
	}
	if p.PagesPerChunk() < 1 {
		return fmt.Errorf("%w: budget %d tokens, %d tokens/page, %d header pages",
			ErrBudgetTooSmall, p.BudgetTokens, p.TokensPerPage, p.HeaderPages)
	}
	return nil
}

// windowPages is how many pages fit the margin-adjusted budget.
func (p Params) windowPages() int {
	return int(float64(p.BudgetTokens) * Margin / float64(p.TokensPerPage))
}

// PagesPerChunk is how many body pages each chunk carries alongside the
// repeated header pages.
func (p Params) PagesPerChunk() int {
	return p.windowPages() - p.HeaderPages
}

// FitsWhole reports whether the document fits the margin-adjusted budget
// without chunking.
func (p Params) FitsWhole(pageCount int) bool {
	return float64(pageCount*p.TokensPerPage) <= float64(p.BudgetTokens)*Margin
}

// Chunk is one planned unit of extraction. Page indexes are zero-based and
// ranges are half-open: header pages are [0, HeaderEnd), body pages are
// [BodyStart, BodyEnd).
type Chunk struct {
	Index     int `json:"index"`
	HeaderEnd int `json:"headerEnd"`
	BodyStart int `json:"bodyStart"`
	BodyEnd   int `json:"bodyEnd"`
}

// PageCount is the total pages the chunk sends to the model.
func (c Chunk) PageCount() int {
	return c.HeaderEnd + (c.BodyEnd - c.BodyStart)
}

// Plan splits a document of pageCount pages into chunks.
//
// Documents that fit the margin-adjusted budget, and documents whose pages
// are all header pages, yield a single chunk covering every page. Otherwise
// body pages are dealt into contiguous runs of PagesPerChunk, each prefixed
// by the header pages, with the final chunk taking the remainder.
func Plan(pageCount int, p Params) ([]Chunk, error) {
	if pageCount < 1 {
		return nil, fmt.Errorf("document has no pages")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if p.FitsWhole(pageCount) || p.HeaderPages >= pageCount {
		return []Chunk{{Index: 0, HeaderEnd: 0, BodyStart: 0, BodyEnd: pageCount}}, nil
	}

	perChunk := p.PagesPerChunk()
	bodyPages := pageCount - p.HeaderPages
	count := (bodyPages + perChunk - 1) / perChunk

	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		start := p.HeaderPages + i*perChunk
		end := min(start+perChunk, pageCount)
		chunks = append(chunks, Chunk{
			Index:     i,
			HeaderEnd: p.HeaderPages,
			BodyStart: start,
			BodyEnd:   end,
		})
	}

	return chunks, nil
}
