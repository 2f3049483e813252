// Package isbn validates and normalizes ISBN-10 and ISBN-13 codes.
package isbn

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Normalize strips spaces and hyphens and upper-cases a trailing x.
func Normalize(code string) string {
	var b strings.Builder
	for _, r := range code {
		switch {
		case r == ' ' || r == '-':
			continue
		case r == 'x':
			b.WriteRune('X')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid10 reports whether code is a well-formed ISBN-10 with a correct
// check digit. code must already be normalized.
func IsValid10(code string) bool {
	if len(code) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := code[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c == 'X' && i == 9:
			d = 10
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

// IsValid13 reports whether code is a well-formed ISBN-13 with a correct
// check digit. code must already be normalized.
func IsValid13(code string) bool {
	if len(code) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

// IsValid reports whether code is a valid ISBN-10 or ISBN-13.
func IsValid(code string) bool {
	code = Normalize(code)
	return IsValid10(code) || IsValid13(code)
}

// Parse normalizes code and returns an error matching types.ErrInvalidISBN
// when it is neither a valid ISBN-10 nor a valid ISBN-13.
func Parse(code string) (string, error) {
	n := Normalize(code)
	if !IsValid10(n) && !IsValid13(n) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidISBN, code)
	}
	return n, nil
}

// To13 converts a valid ISBN-10 to its ISBN-13 form. Valid ISBN-13 codes are
// returned unchanged.
func To13(code string) (string, error) {
	n, err := Parse(code)
	if err != nil {
		return "", err
	}
	if len(n) == 13 {
		return n, nil
	}
	body := "978" + n[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return body + string(rune('0'+(10-sum%10)%10)), nil
}
