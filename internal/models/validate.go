package models

import "strings"

// FieldError describes one invalid or missing form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// FieldErrors collects every field error found while validating a step.
// Order follows field declaration order of the validated struct.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Fields returns the names of the offending fields.
func (fe FieldErrors) Fields() []string {
	names := make([]string, len(fe))
	for i, e := range fe {
		names[i] = e.Field
	}
	return names
}

// Has reports whether field is among the errors.
func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no errors were collected, so callers can return it directly.
func (fe FieldErrors) OrNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func (fe *FieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		*fe = append(*fe, FieldError{Field: field, Message: "is required"})
	}
}

func (fe *FieldErrors) positive(field string, value float64) {
	if value <= 0 {
		*fe = append(*fe, FieldError{Field: field, Message: "must be a positive number"})
	}
}

func (fe *FieldErrors) oneOf(field, value string, allowed []string) {
	value = strings.TrimSpace(value)
	if value == "" {
		*fe = append(*fe, FieldError{Field: field, Message: "is required"})
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	*fe = append(*fe, FieldError{Field: field, Message: "must be one of " + strings.Join(allowed, ", ")})
}
