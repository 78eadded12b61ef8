// Package sanitize cleans untrusted reply text before it reaches the engine.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize is 4KB.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Input enforces the byte limit, validates UTF-8 and strips control characters
// other than newline, tab and carriage return. A limit <= 0 uses DefaultMaxInputSize.
// Oversized input is rejected rather than truncated.
func Input(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: nothing to strip.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// Label sanitizes a single-line value such as an author label: newlines and
// tabs become spaces and surrounding whitespace is trimmed.
func Label(input string, limit int) (string, error) {
	s, err := Input(input, limit)
	if err != nil {
		return "", err
	}
	s = strings.Map(func(r rune) rune {
		if isSafeControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
