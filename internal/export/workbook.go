// Package export renders merged extraction results into XLSX workbooks for
// delivery to downstream accounting systems.
package export

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/ledgerworks/conveyor/internal/documents"
	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/internal/prompts"
	"github.com/ledgerworks/conveyor/internal/runs"
)

const (
	summarySheet  = "Invoice"
	lineSheet     = "Line Items"
	evidenceSheet = "Evidence"
)

// Workbook renders extraction records as XLSX bytes.
type Workbook struct {
	logger *slog.Logger
}

// NewWorkbook creates the workbook renderer.
func NewWorkbook(logger *slog.Logger) *Workbook {
	return &Workbook{logger: logger.With("system", "export")}
}

// Render produces a three-sheet workbook from a run's extraction record:
// header fields and chunk accounting, line items, and evidence.
func (wb *Workbook) Render(doc documents.Document, record runs.ExtractionRecord) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, sheet := range []string{lineSheet, evidenceSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	if index, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(index)
	}

	wb.writeSummary(f, doc, record)
	wb.writeLineItems(f, record.Merged.LineItems)
	wb.writeEvidence(f, record.Merged)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	wb.logger.Info("workbook rendered",
		"run", record.RunID,
		"lineItems", len(record.Merged.LineItems),
		"bytes", buf.Len(),
		"elapsed", time.Since(start))

	return buf.Bytes(), nil
}

func (wb *Workbook) writeSummary(f *excelize.File, doc documents.Document, record runs.ExtractionRecord) {
	merged := record.Merged

	row := 1
	pair := func(label string, value any) {
		write(f, summarySheet, 1, row, label)
		write(f, summarySheet, 2, row, value)
		row++
	}

	pair("Document", doc.FileName)
	pair("Pages", doc.PageCount)
	pair("Run", record.RunID.String())
	pair("Exported", time.Now().UTC().Format(time.RFC3339))
	row++

	for _, name := range orderedFieldNames(merged.HeaderFields) {
		pair(fieldLabel(name), merged.HeaderFields[name])
	}
	row++

	pair("Confidence", fmt.Sprintf("%.2f", merged.Confidence))
	pair("Chunks", merged.ChunkCount)
	if merged.FailedChunks > 0 {
		pair("Failed Chunks", merged.FailedChunks)
	}
	if len(merged.MissingFields) > 0 {
		pair("Missing Fields", strings.Join(merged.MissingFields, ", "))
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 44)
}

var lineHeaders = []string{"Line ID", "Description", "Quantity", "Unit Price", "Amount", "Match Status", "Pages"}

func (wb *Workbook) writeLineItems(f *excelize.File, items []extraction.LineItem) {
	for col, header := range lineHeaders {
		write(f, lineSheet, col+1, 1, header)
	}

	for i, item := range items {
		row := i + 2
		write(f, lineSheet, 1, row, item.LineID)
		write(f, lineSheet, 2, row, item.Description)
		write(f, lineSheet, 3, row, item.Quantity)
		write(f, lineSheet, 4, row, item.UnitPrice)
		write(f, lineSheet, 5, row, item.Amount)
		write(f, lineSheet, 6, row, item.MatchStatus)
		write(f, lineSheet, 7, row, evidencePages(item.Evidence))
	}

	_ = f.SetColWidth(lineSheet, "A", "A", 12)
	_ = f.SetColWidth(lineSheet, "B", "B", 48)
	_ = f.SetColWidth(lineSheet, "C", "E", 12)
	_ = f.SetColWidth(lineSheet, "F", "G", 14)
}

var evidenceHeaders = []string{"Line ID", "Page", "Field", "Snippet"}

func (wb *Workbook) writeEvidence(f *excelize.File, merged extraction.Merged) {
	for col, header := range evidenceHeaders {
		write(f, evidenceSheet, col+1, 1, header)
	}

	row := 2
	add := func(lineID string, ev extraction.Evidence) {
		write(f, evidenceSheet, 1, row, lineID)
		write(f, evidenceSheet, 2, row, ev.Page)
		write(f, evidenceSheet, 3, row, ev.Field)
		write(f, evidenceSheet, 4, row, ev.Snippet)
		row++
	}

	for _, item := range merged.LineItems {
		for _, ev := range item.Evidence {
			add(item.LineID, ev)
		}
	}
	for _, ev := range merged.UnassignedEvidence {
		add("", ev)
	}

	_ = f.SetColWidth(evidenceSheet, "A", "A", 12)
	_ = f.SetColWidth(evidenceSheet, "B", "B", 8)
	_ = f.SetColWidth(evidenceSheet, "C", "C", 18)
	_ = f.SetColWidth(evidenceSheet, "D", "D", 64)
}

func write(f *excelize.File, sheet string, col, row int, value any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, value)
}

// orderedFieldNames lists header fields in the canonical prompt order, then
// any extra fields alphabetically.
func orderedFieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for _, name := range prompts.DefaultFields {
		if _, ok := fields[name]; ok {
			names = append(names, name)
		}
	}

	extras := make([]string, 0)
	for name := range fields {
		if !slices.Contains(prompts.DefaultFields, name) {
			extras = append(extras, name)
		}
	}
	slices.Sort(extras)

	return append(names, extras...)
}

func fieldLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func evidencePages(evidence []extraction.Evidence) string {
	pages := make([]int, 0, len(evidence))
	seen := make(map[int]bool, len(evidence))
	for _, ev := range evidence {
		if !seen[ev.Page] {
			seen[ev.Page] = true
			pages = append(pages, ev.Page)
		}
	}
	slices.Sort(pages)

	parts := make([]string, len(pages))
	for i, page := range pages {
		parts[i] = strconv.Itoa(page)
	}
	return strings.Join(parts, ", ")
}
