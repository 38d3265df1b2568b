// Package models contains the domain models for the application.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Text is a string field decoded leniently from the record service.
// JSON strings decode as-is; null, numbers, objects and any other shape decode
// to the empty string so a single malformed optional field never rejects the
// whole record.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

// String returns the underlying string.
func (t Text) String() string {
	return string(t)
}

// Flag is a boolean field decoded leniently. Besides JSON booleans it accepts
// the strings "true"/"false"/"1"/"0"; anything else decodes to false.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseBool(s); err == nil {
			*f = Flag(parsed)
			return nil
		}
	}
	*f = false
	return nil
}
