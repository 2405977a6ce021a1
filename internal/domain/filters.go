package domain

import "fmt"

// paginationKeys are accepted for every export type on top of its allow-list.
var paginationKeys = map[string]bool{"limit": true, "offset": true}

// filterAllowList fixes the filter keys each export type accepts.
// Anything else is rejected at submit time with ErrInvalidFilter.
var filterAllowList = map[ExportType][]string{
	ExportTypeUsers:               {"user_id", "email", "role", "created_after", "created_before"},
	ExportTypeConversations:       {"conversation_id", "user_id", "admin_id", "status", "started_after", "started_before"},
	ExportTypeMessages:            {"message_id", "conversation_id", "sender_id", "message_type", "created_after", "created_before"},
	ExportTypeAnalytics:           {"start_date", "end_date"},
	ExportTypeAuditLogs:           {"admin_id", "action", "created_after", "created_before"},
	ExportTypePersonalizationData: {"user_id", "last_updated_after", "last_updated_before"},
	ExportTypeSystemMetrics:       {"start_time", "end_time"},
	ExportTypeCustom:              {"query_name"},
}

// exportColumns fixes the canonical column order each export type produces,
// enrichment columns included. Encoders fall back to this order when the
// caller does not project explicit fields.
var exportColumns = map[ExportType][]string{
	ExportTypeUsers:               {"id", "email", "name", "role", "created_at", "updated_at"},
	ExportTypeConversations:       {"id", "user_id", "admin_id", "title", "status", "started_at", "ended_at", "user_name", "admin_name"},
	ExportTypeMessages:            {"id", "conversation_id", "sender_id", "content", "message_type", "created_at", "conversation_title", "sender_name"},
	ExportTypeAnalytics:           {"date", "total_users", "active_users", "total_conversations", "total_messages", "avg_conversation_duration"},
	ExportTypeAuditLogs:           {"id", "admin_id", "action", "resource", "details", "created_at"},
	ExportTypePersonalizationData: {"user_id", "preferences", "interaction_style", "topics_of_interest", "last_updated", "user_name", "user_email"},
	ExportTypeSystemMetrics:       {"metric_name", "metric_value", "timestamp", "service_name", "instance_id"},
	ExportTypeCustom:              nil,
}

// sortColumn/sortDescending fix the deterministic default ordering per type.
// Audit-like data is served newest first; messages keep chronological order so
// conversation transcripts read top to bottom.
var sortColumn = map[ExportType]string{
	ExportTypeUsers:               "created_at",
	ExportTypeConversations:       "started_at",
	ExportTypeMessages:            "created_at",
	ExportTypeAnalytics:           "date",
	ExportTypeAuditLogs:           "created_at",
	ExportTypePersonalizationData: "last_updated",
	ExportTypeSystemMetrics:       "timestamp",
	ExportTypeCustom:              "",
}

var sortAscending = map[ExportType]bool{
	ExportTypeMessages: true,
}

// ValidateFilters rejects filter keys outside the export type's allow-list.
// The offending key is named in the error so callers can fix the request.
func ValidateFilters(t ExportType, filters map[string]any) error {
	allowed := map[string]bool{}
	for _, key := range filterAllowList[t] {
		allowed[key] = true
	}
	for key := range filters {
		if paginationKeys[key] || allowed[key] {
			continue
		}
		return fmt.Errorf("%w: %q is not a valid filter for export type %q", ErrInvalidFilter, key, t)
	}
	return nil
}

// AllowedFilters returns the allow-list for an export type (pagination keys excluded).
func AllowedFilters(t ExportType) []string {
	return append([]string(nil), filterAllowList[t]...)
}

// Columns returns the canonical column order for an export type.
func Columns(t ExportType) []string {
	return append([]string(nil), exportColumns[t]...)
}

// SortOrder returns the default sort column and direction for an export type.
func SortOrder(t ExportType) (column string, ascending bool) {
	return sortColumn[t], sortAscending[t]
}
