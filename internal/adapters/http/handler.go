package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/contracts"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

// submitExport accepts a new export request. The request is accepted, not
// finished: callers poll the status endpoint or wait for the completion event.
func (h *Handler) submitExport(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubmitExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	row, err := h.service.Submit(r.Context(), application.SubmitInput{
		RequesterID:     req.RequesterID,
		ExportType:      req.ExportType,
		Format:          req.Format,
		Filters:         req.Filters,
		Fields:          req.Fields,
		IncludeMetadata: req.IncludeMetadata,
		Compress:        req.Compress,
		Priority:        req.Priority,
	})
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "submit_export", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusAccepted, toResponse(row))
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.Status(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		status, code, message := mapDomainError(err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, toResponse(row))
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Result(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		status, code, message := mapDomainError(err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.ExportResultResponse{
		RequestID:         res.RequestID,
		FilePath:          res.FilePath,
		FileSize:          res.FileSize,
		RecordCount:       res.RecordCount,
		DurationSeconds:   res.DurationSeconds,
		CompressionRatio:  res.CompressionRatio,
		Checksum:          res.Checksum,
		DownloadReference: res.DownloadRef,
		Metadata:          res.Metadata,
	})
}

// downloadExport streams the artifact with the format's media type. Compressed
// artifacts go out as the compressed container.
func (h *Handler) downloadExport(w http.ResponseWriter, r *http.Request) {
	data, row, err := h.service.Download(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		status, code, message := mapDomainError(err)
		writeError(w, status, code, message)
		return
	}
	filename := row.FilePath
	if idx := strings.LastIndexByte(filename, '/'); idx >= 0 {
		filename = filename[idx+1:]
	}
	mediaType := row.Format.Info().MediaType
	switch {
	case strings.HasSuffix(filename, ".gz"):
		mediaType = "application/gzip"
	case strings.HasSuffix(filename, ".zip"):
		mediaType = "application/zip"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) cancelExport(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	cancelled, err := h.service.Cancel(r.Context(), requestID)
	if err != nil {
		status, code, message := mapDomainError(err)
		writeError(w, status, code, message)
		return
	}
	if !cancelled {
		writeError(w, http.StatusConflict, "ALREADY_FINISHED", "export already reached a terminal state")
		return
	}
	writeSuccess(w, http.StatusOK, contracts.CancelResponse{RequestID: requestID, Cancelled: true})
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)
	offset := intQuery(r, "offset", 0)
	rows, err := h.service.History(r.Context(), r.URL.Query().Get("requester_id"), limit, offset)
	if err != nil {
		status, code, message := mapDomainError(err)
		writeError(w, status, code, message)
		return
	}
	resp := contracts.ExportHistoryResponse{Items: make([]contracts.ExportRequestResponse, 0, len(rows))}
	for _, row := range rows {
		resp.Items = append(resp.Items, toResponse(row))
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listFormats(w http.ResponseWriter, _ *http.Request) {
	entries := h.service.SupportedFormats()
	resp := contracts.FormatCatalogResponse{Formats: make([]contracts.FormatEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Formats = append(resp.Formats, contracts.FormatEntry{
			Format:    e.Format,
			Extension: e.Extension,
			MediaType: e.MediaType,
		})
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listExportTypes(w http.ResponseWriter, _ *http.Request) {
	entries := h.service.SupportedTypes()
	resp := contracts.ExportTypeCatalogResponse{ExportTypes: make([]contracts.ExportTypeEntry, 0, len(entries))}
	for _, e := range entries {
		resp.ExportTypes = append(resp.ExportTypes, contracts.ExportTypeEntry{
			ExportType:     e.ExportType,
			AllowedFilters: e.AllowedFilters,
		})
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		status, code, message := mapDomainError(err)
		writeError(w, status, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.StatsResponse{
		TotalExports:       stats.TotalExports,
		StatusCounts:       stats.StatusCounts,
		FormatCounts:       stats.FormatCounts,
		TypeCounts:         stats.TypeCounts,
		TotalRecords:       stats.TotalRecords,
		AvgDurationSeconds: stats.AvgDurationSeconds,
		QueueDepth:         h.service.QueueDepth(),
	})
}

// directExport runs a bounded synchronous export and streams the bytes back.
func (h *Handler) directExport(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubmitExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	data, format, err := h.service.ExportDirect(r.Context(), application.SubmitInput{
		RequesterID:     req.RequesterID,
		ExportType:      req.ExportType,
		Format:          req.Format,
		Filters:         req.Filters,
		Fields:          req.Fields,
		IncludeMetadata: req.IncludeMetadata,
	})
	if err != nil {
		status, code, message := mapDomainError(err)
		logHTTPOperationError(r.Context(), "direct_export", status, code, message, err)
		writeError(w, status, code, message)
		return
	}
	info := format.Info()
	w.Header().Set("Content-Type", info.MediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="export.`+info.Extension+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func toResponse(row domain.ExportRequest) contracts.ExportRequestResponse {
	return contracts.ExportRequestResponse{
		RequestID:         row.RequestID,
		RequesterID:       row.RequesterID,
		ExportType:        string(row.ExportType),
		Format:            string(row.Format),
		Filters:           row.Filters,
		Fields:            row.Fields,
		Status:            string(row.Status),
		Progress:          row.Progress,
		Priority:          row.Priority,
		CreatedAt:         row.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         row.UpdatedAt.UTC().Format(time.RFC3339),
		RecordCount:       row.RecordCount,
		FileSize:          row.FileSize,
		DurationSeconds:   row.DurationSeconds,
		CompressionRatio:  row.CompressionRatio,
		Checksum:          row.Checksum,
		DownloadReference: row.DownloadReference,
		ErrorMessage:      row.ErrorMessage,
	}
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
