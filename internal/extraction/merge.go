package extraction

import "slices"

// Merge folds per-chunk outcomes into one document-level result.
//
// Zero successful outcomes produce an empty result with confidence 0, and a
// single success passes through unchanged. With several successes: header
// fields come from the first success, line items are deduplicated by line ID
// with later occurrences contributing only their evidence, field sets are
// unioned, and confidence is the arithmetic mean over successes only.
func Merge(outcomes []ChunkOutcome) Merged {
	merged := Merged{ChunkCount: len(outcomes)}

	successes := make([]*Result, 0, len(outcomes))
	for _, outcome := range outcomes {
		if !outcome.Succeeded() {
			merged.FailedChunks++
			continue
		}
		successes = append(successes, outcome.Result)
	}

	switch len(successes) {
	case 0:
		merged.Result = emptyResult()
		return merged
	case 1:
		merged.Result = *successes[0]
		return merged
	}

	result := Result{
		HeaderFields: successes[0].HeaderFields,
	}

	var (
		confidence  float64
		itemAt      = make(map[string]int)
		presentSeen = make(map[string]bool)
		missingSeen = make(map[string]bool)
	)

	for _, chunk := range successes {
		confidence += chunk.Confidence

		for _, item := range chunk.LineItems {
			at, exists := itemAt[item.LineID]
			if !exists {
				kept := item
				kept.Evidence = slices.Clone(item.Evidence)
				itemAt[item.LineID] = len(result.LineItems)
				result.LineItems = append(result.LineItems, kept)
				continue
			}

			kept := &result.LineItems[at]
			kept.Evidence = append(kept.Evidence, item.Evidence...)
			if kept.MatchStatus == MatchNoMatch && item.MatchStatus == MatchMatched {
				kept.MatchStatus = MatchMatched
			}
		}

		result.UnassignedEvidence = append(result.UnassignedEvidence, chunk.UnassignedEvidence...)
		result.PresentFields = appendUnion(result.PresentFields, presentSeen, chunk.PresentFields)
		result.MissingFields = appendUnion(result.MissingFields, missingSeen, chunk.MissingFields)
	}

	// A field found by any chunk is not missing from the document.
	missing := make([]string, 0, len(result.MissingFields))
	for _, field := range result.MissingFields {
		if !presentSeen[field] {
			missing = append(missing, field)
		}
	}
	result.MissingFields = missing

	result.Confidence = confidence / float64(len(successes))
	merged.Result = result
	return merged
}

func emptyResult() Result {
	return Result{
		HeaderFields:  map[string]string{},
		LineItems:     []LineItem{},
		PresentFields: []string{},
		MissingFields: []string{},
	}
}

func appendUnion(dst []string, seen map[string]bool, values []string) []string {
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true
		dst = append(dst, value)
	}
	return dst
}
