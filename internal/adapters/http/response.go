package http

import (
	"encoding/json"
	"net/http"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/contracts"
)

// The export API speaks a single envelope: {"status":"success","data":...}
// on the happy path, {"status":"error","code","message"} on failures. The
// download and direct-export handlers are the only ones that bypass it, since
// they stream raw artifact bytes.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, contracts.SuccessResponse{Status: "success", Data: data})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, contracts.SuccessResponse{Status: "success", Message: message})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, contracts.ErrorResponse{Status: "error", Code: code, Message: message})
}
