// Package encoding renders a domain.RowSet into each of the supported output
// formats. Every encoder is deterministic: the same rows, field order and
// metadata always produce the same bytes, which keeps checksums stable.
package encoding

import (
	"fmt"
	"sort"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// Metadata describes the export a payload came from. It is embedded in the
// output when the request asked for metadata and the format can carry it.
type Metadata struct {
	ExportID    string
	ExportType  domain.ExportType
	Format      domain.Format
	ExportedAt  time.Time
	RecordCount int
	Filters     map[string]any
	Fields      []string
}

// Options controls projection and metadata embedding for one encode call.
type Options struct {
	// Fields projects the output to these columns, in this order. Empty means
	// every column the row set carries.
	Fields []string
	// IncludeMetadata embeds Meta into formats that support a metadata block.
	IncludeMetadata bool
	Meta            Metadata
}

type encodeFunc func(rs domain.RowSet, opts Options) ([]byte, error)

var encoders = map[domain.Format]encodeFunc{
	domain.FormatCSV:      encodeCSV,
	domain.FormatJSON:     encodeJSON,
	domain.FormatXML:      encodeXML,
	domain.FormatExcel:    encodeExcel,
	domain.FormatParquet:  encodeParquet,
	domain.FormatAvro:     encodeAvro,
	domain.FormatORC:      encodeORC,
	domain.FormatHTML:     encodeHTML,
	domain.FormatPDF:      encodePDF,
	domain.FormatMarkdown: encodeMarkdown,
	domain.FormatYAML:     encodeYAML,
}

// Encode renders the row set in the given format. Formats are validated at
// submit time; the check here only guards against records written before a
// format was retired.
func Encode(format domain.Format, rs domain.RowSet, opts Options) ([]byte, error) {
	enc, ok := encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	return enc(rs, opts)
}

// fieldOrder resolves the column order for an encode call: the caller's
// projection wins, then the row set's source order, then the sorted keys of
// the first row as a last resort.
func fieldOrder(rs domain.RowSet, opts Options) []string {
	if len(opts.Fields) > 0 {
		return opts.Fields
	}
	if len(rs.Columns) > 0 {
		return rs.Columns
	}
	if len(rs.Rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rs.Rows[0]))
	for k := range rs.Rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringify renders one cell value. Missing and nil values become the empty
// string; times use RFC 3339 so every format agrees on timestamp text.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", val)
	case float32:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// metadataPairs flattens Meta into ordered key/value pairs for formats that
// render metadata as rows rather than structured objects.
func metadataPairs(m Metadata) [][2]string {
	pairs := [][2]string{
		{"export_id", m.ExportID},
		{"export_type", string(m.ExportType)},
		{"format", string(m.Format)},
		{"exported_at", m.ExportedAt.UTC().Format(time.RFC3339)},
		{"record_count", fmt.Sprintf("%d", m.RecordCount)},
	}
	if len(m.Filters) > 0 {
		keys := make([]string, 0, len(m.Filters))
		for k := range m.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pairs = append(pairs, [2]string{"filter." + k, stringify(m.Filters[k])})
		}
	}
	return pairs
}

// metadataObject is the structured form embedded in json and yaml outputs.
func metadataObject(m Metadata) map[string]any {
	obj := map[string]any{
		"export_id":    m.ExportID,
		"export_type":  string(m.ExportType),
		"format":       string(m.Format),
		"exported_at":  m.ExportedAt.UTC().Format(time.RFC3339),
		"record_count": m.RecordCount,
	}
	if len(m.Filters) > 0 {
		obj["filters"] = m.Filters
	}
	if len(m.Fields) > 0 {
		obj["fields"] = m.Fields
	}
	return obj
}

// projectRows materialises rows as ordered string cells following fields.
func projectRows(rs domain.RowSet, fields []string) [][]string {
	out := make([][]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		cells := make([]string, len(fields))
		for i, f := range fields {
			cells[i] = stringify(row[f])
		}
		out = append(out, cells)
	}
	return out
}
