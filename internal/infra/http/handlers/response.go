package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/usecase"
)

const persistenceWarning = "Saved for this session only: the change could not be stored and may be lost on restart"

type envelope struct {
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeResult answers a write intent. A PersistenceError still returns the
// result, flagged with a warning.
func writeResult(w http.ResponseWriter, log logrus.FieldLogger, status int, data any, err error) {
	switch {
	case err == nil:
		writeJSON(w, status, envelope{Data: data})
	case usecase.IsPersistenceError(err):
		writeJSON(w, status, envelope{Data: data, Warning: persistenceWarning})
	default:
		writeError(w, log, err)
	}
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case usecase.IsNotFoundError(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.WithError(err).Error("❌ Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, false)
}

// decodeOptionalBody accepts an empty body, chunked or not, leaving dst as is.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
	return false
}

type textRequest struct {
	Message string `json:"message"`
	Note    string `json:"note"`
}

type statusRequest struct {
	Status string `json:"status"`
}
