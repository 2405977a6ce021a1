package encoding

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeParquet writes the rows with an all-string schema inferred from the
// field order. Typing every column as string keeps the schema independent of
// row contents, so chunked fetches cannot flip a column's physical type
// between exports.
func encodeParquet(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	if len(fields) == 0 {
		fields = []string{"empty"}
	}

	group := parquet.Group{}
	for _, f := range fields {
		group[f] = parquet.String()
	}
	schema := parquet.NewSchema("export", group)

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[map[string]any](&buf, schema)

	rows := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rec := make(map[string]any, len(fields))
		for _, f := range fields {
			rec[f] = stringify(row[f])
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
