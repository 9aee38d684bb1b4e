package export

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerworks/conveyor/internal/documents"
	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/internal/runs"
)

func testRecord() (documents.Document, runs.ExtractionRecord) {
	doc := documents.Document{
		ID:        uuid.New(),
		FileName:  "acme-march.pdf",
		PageCount: 12,
	}

	record := runs.ExtractionRecord{
		ID:         uuid.New(),
		RunID:      uuid.New(),
		DocumentID: doc.ID,
		Merged: extraction.Merged{
			Result: extraction.Result{
				HeaderFields: map[string]string{
					"invoiceNumber": "INV-1042",
					"vendorName":    "Acme Corp",
					"total":         "1260.00",
					"glCode":        "6010",
				},
				LineItems: []extraction.LineItem{
					{
						LineID:      "L1",
						Description: "Widget assembly",
						Quantity:    2.5,
						UnitPrice:   "400.00",
						Amount:      "1000.00",
						MatchStatus: extraction.MatchMatched,
						Evidence: []extraction.Evidence{
							{Page: 3, Snippet: "Widget assembly 2.5 x 400.00"},
							{Page: 2, Snippet: "carried forward"},
						},
					},
					{
						LineID:      "L2",
						Description: "Freight",
						Quantity:    1,
						UnitPrice:   "260.00",
						Amount:      "260.00",
						MatchStatus: extraction.MatchNoMatch,
					},
				},
				UnassignedEvidence: []extraction.Evidence{
					{Page: 12, Field: "remitTo", Snippet: "Remit to: PO Box 99"},
				},
				PresentFields: []string{"invoiceNumber", "vendorName", "total"},
				MissingFields: []string{"poNumber", "dueDate"},
				Confidence:    0.91,
			},
			ChunkCount:   4,
			FailedChunks: 1,
		},
	}

	return doc, record
}

func TestRenderWorkbook(t *testing.T) {
	doc, record := testRecord()
	wb := NewWorkbook(slog.Default())

	data, err := wb.Render(doc, record)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Invoice", "Line Items", "Evidence"}, f.GetSheetList())

	cell := func(sheet, ref string) string {
		value, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return value
	}

	assert.Equal(t, "Document", cell("Invoice", "A1"))
	assert.Equal(t, "acme-march.pdf", cell("Invoice", "B1"))
	assert.Equal(t, "12", cell("Invoice", "B2"))
	assert.Equal(t, record.RunID.String(), cell("Invoice", "B3"))

	// Header fields follow the canonical order, extras after.
	assert.Equal(t, "Invoice Number", cell("Invoice", "A6"))
	assert.Equal(t, "INV-1042", cell("Invoice", "B6"))
	assert.Equal(t, "Vendor Name", cell("Invoice", "A7"))
	assert.Equal(t, "Total", cell("Invoice", "A8"))
	assert.Equal(t, "Gl Code", cell("Invoice", "A9"))

	assert.Equal(t, "Line ID", cell("Line Items", "A1"))
	assert.Equal(t, "L1", cell("Line Items", "A2"))
	assert.Equal(t, "Widget assembly", cell("Line Items", "B2"))
	assert.Equal(t, "2.5", cell("Line Items", "C2"))
	assert.Equal(t, "matched", cell("Line Items", "F2"))
	assert.Equal(t, "2, 3", cell("Line Items", "G2"))
	assert.Equal(t, "no_match", cell("Line Items", "F3"))

	assert.Equal(t, "L1", cell("Evidence", "A2"))
	assert.Equal(t, "Widget assembly 2.5 x 400.00", cell("Evidence", "D2"))
	assert.Equal(t, "", cell("Evidence", "A4"))
	assert.Equal(t, "remitTo", cell("Evidence", "C4"))
	assert.Equal(t, "Remit to: PO Box 99", cell("Evidence", "D4"))
}

func TestSummaryChunkAccounting(t *testing.T) {
	doc, record := testRecord()
	wb := NewWorkbook(slog.Default())

	data, err := wb.Render(doc, record)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Invoice")
	require.NoError(t, err)

	flat := make(map[string]string)
	for _, row := range rows {
		if len(row) >= 2 {
			flat[row[0]] = row[1]
		}
	}

	assert.Equal(t, "0.91", flat["Confidence"])
	assert.Equal(t, "4", flat["Chunks"])
	assert.Equal(t, "1", flat["Failed Chunks"])
	assert.Equal(t, "poNumber, dueDate", flat["Missing Fields"])
}
