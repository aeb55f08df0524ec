// Package segment splits packet text into agenda items and attachments.
package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// maxBodyBytes bounds the body text kept on a segment.
	maxBodyBytes = 40_000
	truncMarker  = "\n[...truncated...]"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// cleanLine normalizes a heading line: NBSP to space, whitespace runs
// collapsed, trimmed.
func cleanLine(line string) string {
	line = strings.ReplaceAll(line, "\u00a0", " ")
	line = multiSpaceRe.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// boundBody trims surrounding newlines and spaces and caps the body length.
func boundBody(body string) string {
	body = strings.Trim(body, "\n ")
	if len(body) <= maxBodyBytes {
		return body
	}
	cut := maxBodyBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return strings.TrimRightFunc(body[:cut], unicode.IsSpace) + truncMarker
}

// capsish reports whether at least 70% of the letters in s are uppercase.
func capsish(s string) bool {
	letters, upper := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return false
	}
	return float64(upper) >= float64(letters)*0.7
}

// clampOffset bounds n to [0, len(text)].
func clampOffset(n int, text string) int {
	if n < 0 {
		return 0
	}
	if n > len(text) {
		return len(text)
	}
	return n
}
