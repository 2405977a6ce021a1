package encoding

import (
	"encoding/json"
	"fmt"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeJSON renders either a bare array of records or, with metadata, an
// object holding a metadata block and the data array. Map keys are emitted in
// sorted order by encoding/json, which keeps the output stable.
func encodeJSON(rs domain.RowSet, opts Options) ([]byte, error) {
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
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json export: %w", err)
	}
	return append(out, '\n'), nil
}
