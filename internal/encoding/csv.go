package encoding

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeCSV writes a header row followed by one record per row. CSV carries
// no metadata block even when metadata is requested; consumers that need it
// use json or yaml instead.
func encodeCSV(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(fields) > 0 {
		if err := w.Write(fields); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, cells := range projectRows(rs, fields) {
		if err := w.Write(cells); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
