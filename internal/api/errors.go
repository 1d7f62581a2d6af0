package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/dnd-master-desktop/internal/appstore"
)

// Error codes returned in the error envelope.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeServer           = "SERVER_ERROR"
	CodeNotLoaded        = "DOCUMENT_NOT_LOADED"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg, field string) {
	writeJSON(w, status, ErrorResponse{
		Error:     ErrorBody{Code: code, Message: msg, Field: field},
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeStoreError maps store errors onto the envelope. Persist failures are
// server errors; the in-memory change has already been applied.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appstore.ErrInvalidPatch):
		writeError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), "body")
	case errors.Is(err, appstore.ErrInvalidFormat):
		writeError(w, r, http.StatusBadRequest, CodeInvalidFormat, appstore.ErrInvalidFormat.Error(), "")
	case errors.Is(err, appstore.ErrNotLoaded):
		writeError(w, r, http.StatusServiceUnavailable, CodeNotLoaded, err.Error(), "")
	case errors.Is(err, appstore.ErrFileRead):
		writeError(w, r, http.StatusBadRequest, CodeInvalidFormat, appstore.ErrFileRead.Error(), "file")
	default:
		s.log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("store operation failed")
		writeError(w, r, http.StatusInternalServerError, CodeServer, "internal error", "")
	}
}

func notFound(w http.ResponseWriter, r *http.Request, what string) {
	writeError(w, r, http.StatusNotFound, CodeNotFound, what+" not found", "id")
}
