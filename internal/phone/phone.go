package phone

import (
	"strings"

	"proxyline/internal/errors"
)

// Normalize converts a raw phone input to the canonical +E.164 form used as
// the user key. Rules, in order:
//
//  1. ten digits            -> "+1" + digits
//  2. eleven digits, lead 1 -> "+" + digits
//  3. raw starts with "+" and has at least eleven digits -> raw unchanged
//  4. anything else fails with ErrInvalidPhoneFormat
//
// Pure and deterministic; already-canonical input maps to itself.
func Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)

	switch {
	case len(digits) == 10:
		return "+1" + digits, nil
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits, nil
	case strings.HasPrefix(raw, "+") && len(digits) >= 11:
		return raw, nil
	default:
		return "", errors.ErrInvalidPhoneFormat
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
