package dto

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cesargomez89/downtil/internal/platform"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

var sourceIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidateSourceURL checks a pasted source URL. When want is set the URL
// must also belong to that platform.
func ValidateSourceURL(field, raw, want string) []ValidationError {
	var errs []ValidationError
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append(errs, ValidationError{Field: field, Message: "is required"})
	}
	if !platform.IsHTTPURL(raw) {
		return append(errs, ValidationError{Field: field, Message: "must be an http or https URL"})
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return append(errs, ValidationError{Field: field, Message: "invalid URL format"})
	}
	got := platform.Detect(raw)
	if got == "" {
		errs = append(errs, ValidationError{Field: field, Message: "unsupported platform"})
	} else if want != "" && got != want {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("not a %s URL", platform.Name(want))})
	}
	return errs
}

// ValidateSourceID checks an id taken from a route segment.
func ValidateSourceID(field, id string) []ValidationError {
	var errs []ValidationError
	if !sourceIDRegex.MatchString(id) {
		errs = append(errs, ValidationError{Field: field, Message: "invalid id"})
	}
	return errs
}
