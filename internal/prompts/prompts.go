// Package prompts builds the model prompts for document classification and
// structured invoice extraction.
package prompts

import (
	"fmt"
	"strings"
)

// DefaultFields is the header checklist the extraction prompt asks the
// model to account for as present or missing.
var DefaultFields = []string{
	"invoiceNumber",
	"vendorName",
	"invoiceDate",
	"dueDate",
	"currency",
	"poNumber",
	"subtotal",
	"tax",
	"total",
}

// Classify returns the document classification prompt.
func Classify() string {
	var b strings.Builder

	b.WriteString(classifyInstructions)
	b.WriteString("\n\nRespond with JSON matching exactly this shape:\n")
	b.WriteString(classificationSpec)

	return b.String()
}

// ExtractParams situate one extraction call within the chunked document.
type ExtractParams struct {
	ChunkIndex  int
	ChunkCount  int
	HeaderPages int
	Fields      []string
}

// Extract returns the structured extraction prompt for one chunk.
func Extract(p ExtractParams) string {
	fields := p.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}

	var b strings.Builder

	b.WriteString(extractInstructions)

	b.WriteString("\n\nHeader fields to account for, reported as present or missing:\n")
	for _, field := range fields {
		fmt.Fprintf(&b, "- %s\n", field)
	}

	if p.ChunkCount > 1 {
		fmt.Fprintf(&b,
			"\nThis document is part %d of %d. The first %d page(s) of this PDF are the invoice header pages, repeated in every part; the remaining pages are one contiguous slice of the line item body. Extract every line item visible in the body pages.\n",
			p.ChunkIndex+1, p.ChunkCount, p.HeaderPages)
	} else {
		b.WriteString("\nThis PDF is the complete document.\n")
	}

	b.WriteString("\nRespond with JSON matching exactly this shape:\n")
	b.WriteString(resultSpec)

	return b.String()
}
