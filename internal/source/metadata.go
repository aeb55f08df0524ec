package source

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	metadataHeadBytes = 20_000
	metadataMaxLines  = 80
	dateScanLines     = 20
	locationScanLines = 40
	maxLocationLen    = 140
	minLocationScore  = 3
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	isoDateRe       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	monthDayYearRe  = regexp.MustCompile(`(?i)\b([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonthYearRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([A-Za-z]{3,9})\.?\s+(\d{4})\b`)
	locationHintRe  = regexp.MustCompile(`(?i)\b(?:location|place|where|venue)\s*[:\-]\s*(.+)$`)
	streetNumberRe  = regexp.MustCompile(`\b\d{2,5}\s+\w+`)
	venueWords      = []string{"city hall", "council chamber", "council chambers", "chambers", "community center", "municipal", "library"}
	venueLineWords  = []string{"city hall", "council chambers", "council chamber", "chambers", "community center"}
	addressWords    = []string{"street", "st.", "avenue", "ave", "road", "rd", "boulevard", "blvd", "drive", "dr", "suite", "room"}
	agendaNoiseWord = []string{"call to order", "ordinance", "consent", "adjourn"}
)

// Metadata is what can be guessed about a meeting from its packet header.
type Metadata struct {
	Date     string // YYYY-MM-DD
	Location string
}

// ExtractMetadata guesses the meeting date and location from the first part
// of the packet. Either field may be empty.
func ExtractMetadata(text string) Metadata {
	var md Metadata
	if text == "" {
		return md
	}
	head := text
	if len(head) > metadataHeadBytes {
		head = head[:metadataHeadBytes]
	}
	var lines []string
	for _, ln := range strings.Split(head, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
			if len(lines) == metadataMaxLines {
				break
			}
		}
	}

	for _, ln := range lines[:min(dateScanLines, len(lines))] {
		if d, ok := parseDate(ln); ok {
			md.Date = d
			break
		}
	}
	if md.Date == "" {
		md.Date, _ = parseDate(head)
	}

	best, bestScore := "", 0
	consider := func(cand string, score int) {
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	scan := lines[:min(locationScanLines, len(lines))]
	for i, ln := range scan {
		if m := locationHintRe.FindStringSubmatch(ln); m != nil {
			cand := strings.TrimSpace(m[1])
			consider(cand, scoreLocation(cand)+3)
			continue
		}
		if containsAny(strings.ToLower(ln), venueLineWords) {
			cand := ln
			if i+1 < len(lines) {
				next := lines[i+1]
				if _, isDate := parseDate(next); scoreLocation(next) >= 2 && len(next) < 80 && !isDate {
					cand = cand + " - " + next
				}
			}
			consider(cand, scoreLocation(cand))
		}
		consider(ln, scoreLocation(ln))
	}
	if bestScore >= minLocationScore {
		md.Location = best
	}
	return md
}

func scoreLocation(c string) int {
	c = strings.TrimSpace(c)
	if c == "" || len(c) > maxLocationLen {
		return 0
	}
	lc := strings.ToLower(c)
	if strings.Contains(lc, "http") || strings.Contains(lc, "www.") {
		return 0
	}
	score := 0
	if strings.Contains(lc, "agenda") && len(c) < 30 {
		score -= 2
	}
	if containsAny(lc, venueWords) {
		score += 3
	}
	if streetNumberRe.MatchString(c) {
		score += 2
	}
	if containsAny(lc, addressWords) {
		score++
	}
	if containsAny(lc, agendaNoiseWord) {
		score -= 2
	}
	return score
}

// parseDate finds the first recognizable date, trying ISO, then
// "January 2, 2026", then "2 January 2026", then M/D/Y.
func parseDate(text string) (string, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := makeDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])); ok {
			return d, true
		}
	}
	if m := monthDayYearRe.FindStringSubmatch(text); m != nil {
		if mon, ok := monthNamed(m[1]); ok {
			if d, ok := makeDate(atoi(m[3]), mon, atoi(m[2])); ok {
				return d, true
			}
		}
	}
	if m := dayMonthYearRe.FindStringSubmatch(text); m != nil {
		if mon, ok := monthNamed(m[2]); ok {
			if d, ok := makeDate(atoi(m[3]), mon, atoi(m[1])); ok {
				return d, true
			}
		}
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		year := atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if d, ok := makeDate(year, time.Month(atoi(m[1])), atoi(m[2])); ok {
			return d, true
		}
	}
	return "", false
}

func monthNamed(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m, ok := months[s]; ok {
		return m, true
	}
	if len(s) >= 3 {
		m, ok := months[s[:3]]
		return m, ok
	}
	return 0, false
}

// makeDate rejects impossible dates instead of letting time.Date roll them over.
func makeDate(year int, month time.Month, day int) (string, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
