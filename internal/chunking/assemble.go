package chunking

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Selection returns the chunk's pages as pdfcpu page selection ranges,
// one-based and in document order.
func (c Chunk) Selection() []string {
	var selection []string
	if c.HeaderEnd > 0 {
		selection = append(selection, pageRange(0, c.HeaderEnd))
	}
	if c.BodyEnd > c.BodyStart {
		selection = append(selection, pageRange(c.BodyStart, c.BodyEnd))
	}
	return selection
}

// pageRange renders a zero-based half-open range as a one-based inclusive
// pdfcpu selection.
func pageRange(start, end int) string {
	first, last := start+1, end
	if first == last {
		return strconv.Itoa(first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

// Assemble builds the PDF payload for one chunk: the header pages followed
// by the chunk's body pages. A chunk covering the whole document returns
// the source bytes unchanged.
func Assemble(document []byte, chunk Chunk) ([]byte, error) {
	if chunk.HeaderEnd == 0 && chunk.BodyStart == 0 {
		return document, nil
	}

	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(document), &out, chunk.Selection(), nil); err != nil {
		return nil, fmt.Errorf("failed to assemble chunk %d: %w", chunk.Index, err)
	}
	return out.Bytes(), nil
}
