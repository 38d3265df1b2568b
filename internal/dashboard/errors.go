package dashboard

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotLoaded is returned for view queries before the first successful load.
var ErrNotLoaded = errors.New("dashboard: not loaded")

// LoadError reports that the most recent load cycle failed. The dashboard
// shows no view while it is set; a successful reload clears it.
type LoadError struct {
	Err error
}

// Error returns the message of the underlying failure.
func (e *LoadError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// ValidationError captures form field problems found before submission.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error lists the offending fields in a stable order.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field problem was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
}
