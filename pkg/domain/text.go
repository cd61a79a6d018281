package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTextSize bounds free-form text fields such as BTC addresses.
const MaxTextSize = 256

// CheckText rejects empty, oversized, non UTF-8 or control-character text for field.
// Text is recorded verbatim, so nothing is stripped.
func CheckText(field, s string) error {
	switch {
	case strings.TrimSpace(s) == "":
		return &ParameterError{Field: field, Reason: "must not be empty"}
	case len(s) > MaxTextSize:
		return &ParameterError{Field: field, Reason: fmt.Sprintf("exceeds %d bytes", MaxTextSize)}
	case !utf8.ValidString(s):
		return &ParameterError{Field: field, Reason: "invalid UTF-8"}
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return &ParameterError{Field: field, Reason: "contains control characters"}
		}
	}
	return nil
}
