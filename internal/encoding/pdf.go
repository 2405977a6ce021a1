package encoding

import (
	"bytes"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodePDF lays the records out as a table on landscape A4 pages. The
// creation date is pinned so the same export always produces the same bytes.
func encodePDF(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCreationDate(time.Unix(0, 0))
	pdf.SetModificationDate(time.Unix(0, 0))
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Data Export", "", 1, "L", false, 0, "")

	if opts.IncludeMetadata {
		pdf.SetFont("Helvetica", "", 9)
		for _, pair := range metadataPairs(opts.Meta) {
			pdf.CellFormat(0, 5, fmt.Sprintf("%s: %s", pair[0], pair[1]), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	if len(fields) > 0 {
		pageW, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		colW := (pageW - left - right) / float64(len(fields))
		if colW < 12 {
			colW = 12
		}

		header := func() {
			pdf.SetFont("Helvetica", "B", 8)
			pdf.SetFillColor(240, 240, 240)
			for _, f := range fields {
				pdf.CellFormat(colW, 7, clipCell(f, 32), "1", 0, "L", true, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetFont("Helvetica", "", 8)
		}
		header()
		for _, cells := range projectRows(rs, fields) {
			for _, v := range cells {
				pdf.CellFormat(colW, 6, clipCell(v, 32), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// clipCell truncates on rune boundaries so a multi-byte character is never
// split at the clip point.
func clipCell(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
