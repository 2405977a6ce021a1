package encoding

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeYAML mirrors the json encoder: a bare sequence of records, or a
// mapping of metadata plus data. yaml.v3 sorts map keys, keeping output stable.
func encodeYAML(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	records := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rec := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := row[f]; ok {
				rec[f] = v
			} else {
				rec[f] = nil
			}
		}
		records = append(records, rec)
	}

	var payload any = records
	if opts.IncludeMetadata {
		payload = map[string]any{
			"metadata": metadataObject(opts.Meta),
			"data":     records,
		}
	}
	out, err := yaml.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml export: %w", err)
	}
	return out, nil
}
