package wizard

import "strings"

// NormalizeCustomURL lowercases s and drops every rune outside [a-z0-9].
func NormalizeCustomURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
