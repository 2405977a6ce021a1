package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hamba/avro/v2/ocf"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// avroSyncBlock is fixed so the OCF container bytes are reproducible.
var avroSyncBlock = [16]byte{
	0x4d, 0x35, 0x34, 0x2d, 0x65, 0x78, 0x70, 0x6f,
	0x72, 0x74, 0x2d, 0x73, 0x79, 0x6e, 0x63, 0x00,
}

// encodeAvro writes an Avro object container file with a record schema of
// all-string fields. Column names are sanitised into valid Avro identifiers.
func encodeAvro(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	if len(fields) == 0 {
		fields = []string{"empty"}
	}

	type avroField struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Default string `json:"default"`
	}
	schemaFields := make([]avroField, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = avroName(f, i)
		schemaFields[i] = avroField{Name: names[i], Type: "string", Default: ""}
	}
	schemaJSON, err := json.Marshal(map[string]any{
		"type":   "record",
		"name":   "ExportRecord",
		"fields": schemaFields,
	})
	if err != nil {
		return nil, fmt.Errorf("build avro schema: %w", err)
	}

	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(string(schemaJSON), &buf, ocf.WithSyncBlock(avroSyncBlock))
	if err != nil {
		return nil, fmt.Errorf("open avro container: %w", err)
	}
	for _, row := range rs.Rows {
		rec := make(map[string]any, len(fields))
		for i, f := range fields {
			rec[names[i]] = stringify(row[f])
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode avro record: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close avro container: %w", err)
	}
	return buf.Bytes(), nil
}

// avroName maps a column name onto [A-Za-z_][A-Za-z0-9_]*.
func avroName(s string, pos int) string {
	if s == "" {
		return fmt.Sprintf("field_%d", pos)
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		valid := c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(i > 0 && c >= '0' && c <= '9')
		if valid {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = append([]byte{'_'}, out...)
	}
	return string(out)
}
