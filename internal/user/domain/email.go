package domain

import (
	"regexp"
	"strings"

	"authplane/internal/fault"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email is a validated, lower-cased address. Equality is on the normalized value.
type Email struct {
	value string
}

// ParseEmail validates and normalizes a raw address.
func ParseEmail(raw string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Email{}, fault.Invalidf("email is required")
	}
	if !emailPattern.MatchString(v) {
		return Email{}, fault.Invalidf("invalid email %s", raw)
	}
	return Email{value: v}, nil
}

func (e Email) String() string     { return e.value }
func (e Email) IsZero() bool       { return e.value == "" }
func (e Email) Equal(o Email) bool { return e.value == o.value }
