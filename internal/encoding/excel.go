package encoding

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

const (
	dataSheet     = "Export Data"
	metadataSheet = "Metadata"
)

// encodeExcel writes the records to an "Export Data" sheet with a header row.
// When metadata is requested it lands on a separate "Metadata" sheet so the
// data sheet stays clean for pivoting.
func encodeExcel(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	f := excelize.NewFile()
	defer f.Close()

	// Pinned document properties keep repeat encodings byte-identical.
	if err := f.SetDocProps(&excelize.DocProperties{
		Created:  "1970-01-01T00:00:00Z",
		Modified: "1970-01-01T00:00:00Z",
	}); err != nil {
		return nil, fmt.Errorf("set xlsx doc props: %w", err)
	}

	if _, err := f.NewSheet(dataSheet); err != nil {
		return nil, fmt.Errorf("create data sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(dataSheet)
	if err != nil {
		return nil, fmt.Errorf("locate data sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, h := range fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(dataSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write xlsx header: %w", err)
		}
	}
	for rowIdx, cells := range projectRows(rs, fields) {
		for colIdx, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(dataSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write xlsx cell: %w", err)
			}
		}
	}

	if opts.IncludeMetadata {
		if _, err := f.NewSheet(metadataSheet); err != nil {
			return nil, fmt.Errorf("create metadata sheet: %w", err)
		}
		for i, pair := range metadataPairs(opts.Meta) {
			keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
			valCell, _ := excelize.CoordinatesToCellName(2, i+1)
			_ = f.SetCellValue(metadataSheet, keyCell, pair[0])
			_ = f.SetCellValue(metadataSheet, valCell, pair[1])
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
