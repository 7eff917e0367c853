// Package validation collects field-level violations for request payloads.
// Violations are keyed by JSON field name and hold a short code such as
// "required" or "email" that the i18n catalog can translate.
package validation

import (
	"errors"
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records a violation unless the field already has one.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

// Email checks for a single bare address (no display name).
func Email(field, value string, v Violations) {
	if !IsEmail(value) {
		v.Add(field, "email")
	}
}

// OptionalURL accepts an empty value or an absolute http(s) URL.
func OptionalURL(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.Add(field, "url")
	}
}

// MaxLen rejects values longer than n runes.
func MaxLen(field, value string, n int, v Violations) {
	if len([]rune(value)) > n {
		v.Add(field, "too_long")
	}
}

// IsEmail reports whether s looks like a single bare email address.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// NormalizeEmail lower-cases and trims an address for comparisons and storage.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s using its `validate` tags and merges the failures into v.
// Non-validation errors (e.g. a non-struct argument) are returned.
func Struct(s any, v Violations) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		v.Add(fe.Field(), codeFor(fe.Tag()))
	}
	return nil
}

func codeFor(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "email"
	case "oneof":
		return "invalid_choice"
	case "max":
		return "too_long"
	case "url", "http_url":
		return "url"
	default:
		return "invalid"
	}
}
