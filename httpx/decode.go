package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
)

// MaxBodyBytes caps request bodies accepted by Decode.
const MaxBodyBytes = 1 << 20

// Decode reads exactly one JSON object from the request body into dst.
// Unknown fields, trailing data, wrong types and empty bodies are rejected
// as validation errors; nothing is coerced to a zero value.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return apperr.Invalid("malformed_body", map[string]string{"content_type": "invalid"})
	}
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Invalid("malformed_body", map[string]string{"body": "invalid"})
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Invalid("malformed_body", map[string]string{"body": "required"})
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.Invalid("malformed_body", map[string]string{typeErr.Field: "invalid"})
	case errors.As(err, &maxErr):
		return apperr.Invalid("malformed_body", map[string]string{"body": "too_long"})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperr.Invalid("malformed_body", map[string]string{field: "read_only"})
	default:
		return apperr.Invalid("malformed_body", map[string]string{"body": "invalid"})
	}
}
