package tracker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeAppName applies the catalog's identity rule to a raw observed
// name: the first character is upper-cased and the rest is left untouched.
// Names that differ only in case after the first character stay distinct.
func NormalizeAppName(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: application name is blank", ErrInvalidObservation)
	}
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("%w: application name is not valid UTF-8", ErrInvalidObservation)
	}
	if strings.ContainsAny(raw, "\x00\n\r") {
		return "", fmt.Errorf("%w: application name contains control characters", ErrInvalidObservation)
	}

	first, size := utf8.DecodeRuneInString(raw)
	return string(unicode.ToUpper(first)) + raw[size:], nil
}
