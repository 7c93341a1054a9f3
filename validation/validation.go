// Package validation collects per-field form violations as translation codes.
package validation

import (
	"strconv"
	"strings"
)

// Violations maps a field name to a translation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
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

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// PositiveInt parses a strictly positive integer written in ASCII digits only.
// Signs, spaces and decimals are rejected.
func PositiveInt(field, value string, v Violations) int {
	if !IsDigits(value) {
		v.Add(field, "must_be_positive_integer")
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		v.Add(field, "must_be_positive_integer")
		return 0
	}
	return n
}

// IntRange parses an integer and checks it lies in [minVal, maxVal].
func IntRange(field, value string, minVal, maxVal int, v Violations) int {
	value = strings.TrimSpace(value)
	if value == "" {
		v.Add(field, "required")
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		v.Add(field, "invalid_number")
		return 0
	}
	if n < minVal || n > maxVal {
		v.Add(field, "out_of_range")
	}
	return n
}
