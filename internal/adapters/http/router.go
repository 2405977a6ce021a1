package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the export HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "ok")
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "ready")
	})

	r.Route("/v1/exports", func(r chi.Router) {
		r.Post("/", handler.submitExport)
		r.Get("/", handler.listExports)
		r.Post("/direct", handler.directExport)
		r.Get("/formats", handler.listFormats)
		r.Get("/types", handler.listExportTypes)
		r.Get("/stats", handler.getStats)
		r.Get("/{request_id}", handler.getExport)
		r.Get("/{request_id}/result", handler.getResult)
		r.Get("/{request_id}/download", handler.downloadExport)
		r.Delete("/{request_id}", handler.cancelExport)
	})

	return r
}
