package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/ports"
)

// DataSource translates allow-listed export queries into SQL against the
// platform's read replica. Every filter key maps onto a fixed column
// expression; nothing from the request ever reaches the query text directly.
type DataSource struct {
	db *gorm.DB
	// namedQueries holds the vetted statements the custom export type may
	// run, keyed by query_name.
	namedQueries map[string]string
}

func NewDataSource(db *gorm.DB, namedQueries map[string]string) *DataSource {
	if namedQueries == nil {
		namedQueries = map[string]string{}
	}
	return &DataSource{db: db, namedQueries: namedQueries}
}

// typeQuery fixes the base select and the filter-to-condition mapping for one
// export type. Conditions are parameterised; filter values only ever bind.
type typeQuery struct {
	base       string
	conditions map[string]string
	sortExpr   string
}

var typeQueries = map[domain.ExportType]typeQuery{
	domain.ExportTypeUsers: {
		base: `SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at FROM users u`,
		conditions: map[string]string{
			"user_id":        "u.id = ?",
			"email":          "u.email = ?",
			"role":           "u.role = ?",
			"created_after":  "u.created_at >= ?",
			"created_before": "u.created_at <= ?",
		},
		sortExpr: "u.created_at DESC",
	},
	domain.ExportTypeConversations: {
		base: `SELECT c.id, c.user_id, c.admin_id, c.title, c.status, c.started_at, c.ended_at,
       u.name AS user_name, a.name AS admin_name
  FROM conversations c
  LEFT JOIN users u ON u.id = c.user_id
  LEFT JOIN users a ON a.id = c.admin_id`,
		conditions: map[string]string{
			"conversation_id": "c.id = ?",
			"user_id":         "c.user_id = ?",
			"admin_id":        "c.admin_id = ?",
			"status":          "c.status = ?",
			"started_after":   "c.started_at >= ?",
			"started_before":  "c.started_at <= ?",
		},
		sortExpr: "c.started_at DESC",
	},
	domain.ExportTypeMessages: {
		base: `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.message_type, m.created_at,
       c.title AS conversation_title, u.name AS sender_name
  FROM messages m
  LEFT JOIN conversations c ON c.id = m.conversation_id
  LEFT JOIN users u ON u.id = m.sender_id`,
		conditions: map[string]string{
			"message_id":      "m.id = ?",
			"conversation_id": "m.conversation_id = ?",
			"sender_id":       "m.sender_id = ?",
			"message_type":    "m.message_type = ?",
			"created_after":   "m.created_at >= ?",
			"created_before":  "m.created_at <= ?",
		},
		sortExpr: "m.created_at ASC",
	},
	domain.ExportTypeAnalytics: {
		base: `SELECT d.date, d.total_users, d.active_users, d.total_conversations, d.total_messages,
       d.avg_conversation_duration
  FROM daily_analytics d`,
		conditions: map[string]string{
			"start_date": "d.date >= ?",
			"end_date":   "d.date <= ?",
		},
		sortExpr: "d.date DESC",
	},
	domain.ExportTypeAuditLogs: {
		base: `SELECT l.id, l.admin_id, l.action, l.resource, l.details, l.created_at FROM admin_audit_logs l`,
		conditions: map[string]string{
			"admin_id":       "l.admin_id = ?",
			"action":         "l.action = ?",
			"created_after":  "l.created_at >= ?",
			"created_before": "l.created_at <= ?",
		},
		sortExpr: "l.created_at DESC",
	},
	domain.ExportTypePersonalizationData: {
		base: `SELECT p.user_id, p.preferences, p.interaction_style, p.topics_of_interest, p.last_updated,
       u.name AS user_name, u.email AS user_email
  FROM personalization_profiles p
  LEFT JOIN users u ON u.id = p.user_id`,
		conditions: map[string]string{
			"user_id":             "p.user_id = ?",
			"last_updated_after":  "p.last_updated >= ?",
			"last_updated_before": "p.last_updated <= ?",
		},
		sortExpr: "p.last_updated DESC",
	},
	domain.ExportTypeSystemMetrics: {
		base: `SELECT s.metric_name, s.metric_value, s.timestamp, s.service_name, s.instance_id FROM system_metrics s`,
		conditions: map[string]string{
			"start_time": "s.timestamp >= ?",
			"end_time":   "s.timestamp <= ?",
		},
		sortExpr: "s.timestamp DESC",
	},
}

func (d *DataSource) Fetch(ctx context.Context, q ports.RowQuery) (domain.RowSet, error) {
	if q.ExportType == domain.ExportTypeCustom {
		return d.fetchNamed(ctx, q)
	}
	tq, ok := typeQueries[q.ExportType]
	if !ok {
		return domain.RowSet{}, fmt.Errorf("%w: no query for export type %q", domain.ErrInvalidInput, q.ExportType)
	}

	keys := make([]string, 0, len(tq.conditions))
	for key := range tq.conditions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for _, key := range keys {
		if value, present := q.Filters[key]; present {
			clauses = append(clauses, tq.conditions[key])
			args = append(args, value)
		}
	}
	sql := tq.base
	if len(clauses) > 0 {
		sql += " WHERE " + strings.Join(clauses, " AND ")
	}
	sql += " ORDER BY " + tq.sortExpr
	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	var rows []map[string]any
	if err := d.db.WithContext(ctx).Raw(sql, args...).Find(&rows).Error; err != nil {
		return domain.RowSet{}, err
	}
	return domain.RowSet{Columns: domain.Columns(q.ExportType), Rows: rows}, nil
}

// fetchNamed runs one of the vetted custom queries. The query_name filter
// selects the statement; unknown names are rejected.
func (d *DataSource) fetchNamed(ctx context.Context, q ports.RowQuery) (domain.RowSet, error) {
	name, _ := q.Filters["query_name"].(string)
	sql, ok := d.namedQueries[name]
	if !ok {
		return domain.RowSet{}, fmt.Errorf("%w: unknown named query %q", domain.ErrInvalidFilter, name)
	}
	if q.Limit > 0 {
		sql = fmt.Sprintf("SELECT * FROM (%s) nq LIMIT %d OFFSET %d", sql, q.Limit, q.Offset)
	}
	var rows []map[string]any
	if err := d.db.WithContext(ctx).Raw(sql).Find(&rows).Error; err != nil {
		return domain.RowSet{}, err
	}
	var columns []string
	if len(rows) > 0 {
		for col := range rows[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}
	return domain.RowSet{Columns: columns, Rows: rows}, nil
}
