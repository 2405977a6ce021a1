package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/ports"
)

// DataSource serves export rows from seeded fixtures. Filtering follows the
// same rules as the postgres source: equality on plain keys, time bounds on
// *_after/*_before and the date range keys.
type DataSource struct {
	mu   sync.Mutex
	data map[domain.ExportType][]map[string]any
}

func NewDataSource() *DataSource {
	return &DataSource{data: make(map[domain.ExportType][]map[string]any)}
}

// Seed replaces the rows served for one export type.
func (d *DataSource) Seed(t domain.ExportType, rows []map[string]any) {
	d.mu.Lock()
	d.data[t] = rows
	d.mu.Unlock()
}

func (d *DataSource) Fetch(_ context.Context, q ports.RowQuery) (domain.RowSet, error) {
	d.mu.Lock()
	rows := append([]map[string]any(nil), d.data[q.ExportType]...)
	d.mu.Unlock()

	var matched []map[string]any
	for _, row := range rows {
		if matchesFilters(q.ExportType, row, q.Filters) {
			matched = append(matched, row)
		}
	}

	column, ascending := domain.SortOrder(q.ExportType)
	if column != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			if ascending {
				return lessValues(matched[i][column], matched[j][column])
			}
			return lessValues(matched[j][column], matched[i][column])
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return domain.RowSet{Columns: domain.Columns(q.ExportType), Rows: matched}, nil
}

func matchesFilters(t domain.ExportType, row map[string]any, filters map[string]any) bool {
	for key, want := range filters {
		if key == "limit" || key == "offset" {
			continue
		}
		column, op := filterColumn(t, key)
		switch op {
		case "after":
			have, ok := asTime(row[column])
			bound, ok2 := asTime(want)
			if !ok || !ok2 || have.Before(bound) {
				return false
			}
		case "before":
			have, ok := asTime(row[column])
			bound, ok2 := asTime(want)
			if !ok || !ok2 || have.After(bound) {
				return false
			}
		default:
			if valueString(row[column]) != valueString(want) {
				return false
			}
		}
	}
	return true
}

// entityIDFilters map the filter key naming the exported entity itself onto
// the row's id column. Foreign keys like conversations.user_id pass through.
var entityIDFilters = map[domain.ExportType]string{
	domain.ExportTypeUsers:         "user_id",
	domain.ExportTypeConversations: "conversation_id",
	domain.ExportTypeMessages:      "message_id",
}

// filterColumn maps a filter key onto the row column it constrains and the
// comparison it implies.
func filterColumn(t domain.ExportType, key string) (column, op string) {
	rangeColumn, _ := domain.SortOrder(t)
	switch key {
	case "start_date", "start_time":
		return rangeColumn, "after"
	case "end_date", "end_time":
		return rangeColumn, "before"
	}
	if suffix, ok := strings.CutSuffix(key, "_after"); ok {
		return timeColumn(suffix), "after"
	}
	if suffix, ok := strings.CutSuffix(key, "_before"); ok {
		return timeColumn(suffix), "before"
	}
	if entityIDFilters[t] == key {
		return "id", ""
	}
	return key, ""
}

func timeColumn(prefix string) string {
	switch prefix {
	case "created":
		return "created_at"
	case "started":
		return "started_at"
	default:
		return prefix
	}
}

func asTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, val); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func lessValues(a, b any) bool {
	at, aok := asTime(a)
	bt, bok := asTime(b)
	if aok && bok {
		return at.Before(bt)
	}
	return valueString(a) < valueString(b)
}
