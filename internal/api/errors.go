package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/apperr"
	"bookingdesk/internal/observability"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, APIError{Code: code, Message: message})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fieldErrors is satisfied by validation results that know their per-field messages.
type fieldErrors interface {
	Fields() map[string]string
}

// WriteErr maps err onto the error taxonomy and writes the matching status.
// Unclassified errors are logged and answered with a generic 500.
func WriteErr(w http.ResponseWriter, r *http.Request, err error, logger observability.Logger) {
	var (
		ve  apperr.ValidationError
		fe  fieldErrors
		ae  apperr.AuthError
		nf  apperr.NotFoundError
		ce  apperr.ConflictError
		rl  apperr.RateLimitError
		dep apperr.DependencyError
	)
	lg := observability.LoggerFrom(r.Context(), logger)

	switch {
	case errors.As(err, &ve):
		code := ve.Code
		if code == "" {
			code = "VALIDATION_FAILED"
		}
		writeEnvelope(w, http.StatusBadRequest, APIError{Code: code, Message: ve.Message, Fields: ve.Fields})
	case errors.As(err, &fe):
		writeEnvelope(w, http.StatusBadRequest, APIError{Code: "VALIDATION_FAILED", Message: "validation failed", Fields: fe.Fields()})
	case errors.As(err, &ae):
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", ae.Error())
	case errors.As(err, &nf):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", nf.Error())
	case errors.As(err, &ce):
		WriteError(w, http.StatusConflict, ce.Code, ce.Message)
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds()))
		WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later")
	case errors.As(err, &dep):
		lg.WithError(err).WithField("dependency", dep.Dependency).Error("dependency failure")
		WriteError(w, http.StatusBadGateway, "DEPENDENCY_FAILED", dep.Dependency+" unavailable")
	default:
		lg.WithError(err).Error("unhandled error")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeEnvelope(w http.ResponseWriter, status int, e APIError) {
	WriteJSON(w, status, ErrorEnvelope{Error: e})
}

// DecodeJSON decodes a request body into v, reporting malformed input as a validation error.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.ValidationError{Code: "VALIDATION_FAILED", Message: "invalid json"}
	}
	return nil
}
