// Package extraction defines the structured invoice extraction model, the
// Gemini client that produces per-chunk results, and the merge that folds
// chunk results into one document-level result.
package extraction

// Match statuses a line item can carry against its purchase order line.
const (
	MatchMatched = "matched"
	MatchNoMatch = "no_match"
)

// Evidence points at where in the document a value was read.
type Evidence struct {
	Page    int    `json:"page"`
	Field   string `json:"field,omitempty"`
	Snippet string `json:"snippet"`
}

// LineItem is one extracted charge line, keyed by a stable line identifier
// so occurrences of the same line across chunks can be folded together.
type LineItem struct {
	LineID      string     `json:"lineId"`
	Description string     `json:"description"`
	Quantity    float64    `json:"quantity"`
	UnitPrice   string     `json:"unitPrice"`
	Amount      string     `json:"amount"`
	MatchStatus string     `json:"matchStatus"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// Result is the structured output of one extraction call, and the shape of
// the merged document-level result.
type Result struct {
	HeaderFields       map[string]string `json:"headerFields"`
	LineItems          []LineItem        `json:"lineItems"`
	UnassignedEvidence []Evidence        `json:"unassignedEvidence,omitempty"`
	PresentFields      []string          `json:"presentFields"`
	MissingFields      []string          `json:"missingFields"`
	Confidence         float64           `json:"confidence"`
}

// ChunkOutcome records one chunk's extraction attempt: a result on success,
// an error summary on failure.
type ChunkOutcome struct {
	ChunkIndex int     `json:"chunkIndex"`
	Result     *Result `json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Succeeded reports whether the chunk produced a result.
func (o ChunkOutcome) Succeeded() bool {
	return o.Result != nil
}

// Merged is the document-level result plus chunk accounting.
type Merged struct {
	Result
	ChunkCount   int `json:"chunkCount"`
	FailedChunks int `json:"failedChunks"`
}

// Classification is the output of the document classification call.
type Classification struct {
	DocumentType string  `json:"documentType"`
	Confidence   float64 `json:"confidence"`
}

// Document types the classifier distinguishes.
const (
	DocTypeInvoice = "invoice"
	DocTypeOther   = "other"
)
