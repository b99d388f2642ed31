// Package phone normalizes phone numbers for storage and display.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers without a country prefix.
const DefaultRegion = "IN"

// Normalize parses a raw phone string and returns it in E.164 form. When
// the input cannot be parsed as a valid number it is returned trimmed,
// unchanged; leads arrive from forms and CSV files with junk in this
// field and normalization must never drop the original value.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	num, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return trimmed
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
