package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/backup"
	"github.com/erikbos/moontv-server/crypt"
	"github.com/erikbos/moontv-server/database/model"
)

// HTTPError represents a structured HTTP error response.
type HTTPError struct {
	Status int    `json:"status"`
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
}

// statusTypeMap maps HTTP status codes to RFC 9110 types.
var statusTypeMap = map[int]string{
	400: "https://tools.ietf.org/html/rfc9110#section-15.5.1",  // Bad Request
	401: "https://tools.ietf.org/html/rfc9110#section-15.5.2",  // Unauthorized
	403: "https://tools.ietf.org/html/rfc9110#section-15.5.3",  // Forbidden
	404: "https://tools.ietf.org/html/rfc9110#section-15.5.5",  // Not Found
	413: "https://tools.ietf.org/html/rfc9110#section-15.5.14", // Content Too Large
	500: "https://tools.ietf.org/html/rfc9110#section-15.6.1",  // Internal Server Error
	501: "https://tools.ietf.org/html/rfc9110#section-15.6.2",  // Not Implemented
	503: "https://tools.ietf.org/html/rfc9110#section-15.6.4",  // Service Unavailable
}

// apierror writes a structured error response.
func apierror(w http.ResponseWriter, msg string, status int) {
	response := HTTPError{
		Status: status,
		Title:  msg,
	}
	if typeUrl, ok := statusTypeMap[status]; ok {
		response.Type = typeUrl
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	serveJSON(response, w)
}

// errorStatus maps an error to the status code reported to the client.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, backup.ErrBadRequest),
		errors.Is(err, model.ErrMalformed),
		errors.Is(err, crypt.ErrDecryption):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, model.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorResponse writes err to the client. Internal errors are logged and
// replaced by a generic message.
func (a *API) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal server error"
		if errors.Is(err, backup.ErrConfigUnavailable) {
			msg = backup.ErrConfigUnavailable.Error()
		}
	}
	apierror(w, msg, status)
}
