// Package lookup encodes and decodes lookup references: URLs that point at a
// record in another collection and stand in for a foreign key.
package lookup

import (
	"regexp"
	"strings"
)

// DefaultBaseURL is the REST root of the hosted record service.
const DefaultBaseURL = "https://my.living-apps.de/rest"

var (
	trailingIDPattern = regexp.MustCompile(`(?i)([a-f0-9]{24})$`)
	recordIDPattern   = regexp.MustCompile(`(?i)^[a-f0-9]{24}$`)
)

// Codec builds lookup references against a fixed REST root.
type Codec struct {
	baseURL string
}

// NewCodec returns a codec for baseURL. An empty baseURL selects DefaultBaseURL.
func NewCodec(baseURL string) Codec {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Codec{baseURL: baseURL}
}

// BaseURL returns the REST root references are built against.
func (c Codec) BaseURL() string {
	if c.baseURL == "" {
		return DefaultBaseURL
	}
	return c.baseURL
}

// Encode builds the canonical reference URL for a record in a collection.
func (c Codec) Encode(collectionID, recordID string) string {
	return c.BaseURL() + "/apps/" + collectionID + "/records/" + recordID
}

// Encode builds a reference URL against DefaultBaseURL.
func Encode(collectionID, recordID string) string {
	return NewCodec("").Encode(collectionID, recordID)
}

// Decode extracts the trailing 24-character hex record identifier from ref.
// It reports false for empty input or input without such a suffix.
func Decode(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	m := trailingIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsRecordID reports whether s is a well-formed record identifier.
func IsRecordID(s string) bool {
	return recordIDPattern.MatchString(s)
}
