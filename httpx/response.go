// Package httpx holds the JSON envelope every API handler writes.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diewo77/portfolio-pilot/i18n"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/validation"
	"go.uber.org/zap"
)

// Envelope is the response body shape for every API endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"success":false,"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// OK writes a success envelope around data.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// OKWithWarning writes a success envelope carrying a degraded-success warning.
func OKWithWarning(w http.ResponseWriter, status int, data any, warning string) {
	JSON(w, status, Envelope{Success: true, Data: data, Warning: warning})
}

func JSONError(w http.ResponseWriter, status int, code, msg string, details any) {
	JSON(w, status, Envelope{Error: code, Message: msg, Details: details})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindAuthenticationRequired:
		return http.StatusUnauthorized
	case apperr.KindAuthorizationDenied:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindGone:
		return http.StatusGone
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a failure envelope with a message localized for the
// request's language. Internal and dependency causes go to the request
// logger and are never exposed.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.LangFromContext(r.Context())
	kind := apperr.KindOf(err)
	code := apperr.CodeOf(err)

	if kind == apperr.KindInternal || kind == apperr.KindDependency {
		LoggerFrom(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
	}

	msg := i18n.T(lang, code)
	if msg == code {
		msg = i18n.T(lang, kind.String())
	}

	var details any
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Details != nil {
		details = localizeDetails(lang, ae.Details)
	}
	JSONError(w, StatusFor(kind), code, msg, details)
}

func localizeDetails(lang string, details any) any {
	var fields map[string]string
	switch d := details.(type) {
	case validation.Violations:
		fields = d
	case map[string]string:
		fields = d
	default:
		return details
	}
	out := make(map[string]map[string]string, len(fields))
	for field, code := range fields {
		out[field] = map[string]string{"code": code, "message": i18n.T(lang, code)}
	}
	return out
}
