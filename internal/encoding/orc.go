package encoding

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/scritchley/orc"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeORC writes the rows as an ORC stripe with every column typed string,
// mirroring the parquet and avro encoders.
func encodeORC(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	if len(fields) == 0 {
		fields = []string{"empty"}
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = avroName(f, i) + ":string"
	}
	schema, err := orc.ParseSchema("struct<" + strings.Join(cols, ",") + ">")
	if err != nil {
		return nil, fmt.Errorf("build orc schema: %w", err)
	}

	var buf bytes.Buffer
	w, err := orc.NewWriter(&buf, orc.SetSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("open orc writer: %w", err)
	}
	for _, row := range rs.Rows {
		vals := make([]interface{}, len(fields))
		for i, f := range fields {
			vals[i] = stringify(row[f])
		}
		if err := w.Write(vals...); err != nil {
			return nil, fmt.Errorf("write orc row: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close orc writer: %w", err)
	}
	return buf.Bytes(), nil
}
