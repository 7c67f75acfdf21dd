package domain

import (
	"regexp"
	"strings"

	"authplane/internal/fault"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// Code is an application's unique, human-readable identifier. Stored and
// compared upper-cased; immutable once constructed.
type Code struct {
	value string
}

// ParseCode validates and normalizes a raw application code.
func ParseCode(raw string) (Code, error) {
	raw = strings.TrimSpace(raw)
	if !codePattern.MatchString(raw) {
		return Code{}, fault.Invalidf("application code must match [A-Za-z0-9_-]{3,50}")
	}
	return Code{value: strings.ToUpper(raw)}, nil
}

// String returns the normalized code.
func (c Code) String() string { return c.value }

// IsZero reports whether the code is unset.
func (c Code) IsZero() bool { return c.value == "" }

// Equal compares normalized values.
func (c Code) Equal(other Code) bool { return c.value == other.value }
