package keyword

import (
	"strings"
	"unicode"
)

// Normalize lowercases a keyword, collapses inner whitespace, and drops
// control characters. Returns "" for blank input.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Set normalizes values into a set, skipping blanks.
func Set(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Unique returns the normalized values in first-seen order.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := Normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SharedCount counts members present in both sets.
func SharedCount(left, right map[string]struct{}) int {
	if len(left) > len(right) {
		left, right = right, left
	}
	n := 0
	for k := range left {
		if _, ok := right[k]; ok {
			n++
		}
	}
	return n
}

// SplitSubject breaks an actor or frame subject into keywords on whitespace
// and "/". "민주당/정부 여당" yields {민주당, 정부, 여당}.
func SplitSubject(subject string) map[string]struct{} {
	fields := strings.FieldsFunc(subject, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})
	return Set(fields)
}

// Intersects reports whether the two sets share at least one member.
func Intersects(left, right map[string]struct{}) bool {
	return SharedCount(left, right) > 0
}
