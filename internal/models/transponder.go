package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCode is returned when a transponder code is missing or malformed
var ErrInvalidCode = errors.New("invalid transponder code")

// maxCodeLen is the length of a 24-bit ICAO address in hex digits
const maxCodeLen = 6

// Registry is the country-of-registration class of a transponder code
type Registry int

const (
	Foreign Registry = iota
	Domestic
)

func (r Registry) String() string {
	if r == Domestic {
		return "domestic"
	}
	return "foreign"
}

// TransponderCode is an ICAO24 address as supplied by the caller (original case preserved)
type TransponderCode string

// ParseTransponderCode trims s and checks that it is 1 to 6 hex digits.
func ParseTransponderCode(s string) (TransponderCode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	if len(s) > maxCodeLen {
		return "", fmt.Errorf("%w: %q longer than %d characters", ErrInvalidCode, s, maxCodeLen)
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return "", fmt.Errorf("%w: %q is not hexadecimal", ErrInvalidCode, s)
		}
	}
	return TransponderCode(s), nil
}

// Classify treats any code whose first character is 'a' or 'A' as US registered.
//
// This approximates the US block of the ICAO24 address space (A00001-ADF7C7) with a
// single-character rule. Codes such as AE.... (US military) or AF.... are therefore
// classified Domestic too. Downstream consumers rely on this exact rule.
func (c TransponderCode) Classify() Registry {
	if c != "" && (c[0] == 'a' || c[0] == 'A') {
		return Domestic
	}
	return Foreign
}

// Lower returns the code in lower case, the form used by the live feed
func (c TransponderCode) Lower() string {
	return strings.ToLower(string(c))
}

func (c TransponderCode) String() string {
	return string(c)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
