package segment

import (
	"regexp"
	"sort"
	"strings"

	"github.com/councilsense/minutes-cli/internal/model"
)

// AgendaScanLimit is how far into the packet agenda headings are searched.
// Numbered lines further in are usually policy definitions or exhibits.
const AgendaScanLimit = 200_000

var (
	// e.g. "14.A. ORDINANCE / PUBLIC HEARING - ..." or "3. CONSENT AGENDA"
	agendaHeaderRe = regexp.MustCompile(`(?m)^\s*(\d+(?:\.[A-Z])?)\.\s+([^\n]{8,220})$`)

	agendaKeywordRe = regexp.MustCompile(`(?i)\b(call to order|pledge|public comments|recognition|minutes|resolutions|ordinances|adjournment|agenda review|consent|public hearing)\b`)
	adjournmentRe   = regexp.MustCompile(`(?i)\badjournment\b`)
	digitsRe        = regexp.MustCompile(`^\d+$`)
	exhibitLineRe   = regexp.MustCompile(`(?m)^\s*(EXHIBIT|ATTACHMENT)\s+`)
)

type agendaHeader struct {
	start, end int
	id, title  string
}

// looksLikeAgendaTitle accepts headings that are mostly uppercase, use the
// "TYPE - subject" form or name a common agenda section.
func looksLikeAgendaTitle(title string) bool {
	if title == "" || digitsRe.MatchString(title) {
		return false
	}
	if capsish(title) || strings.Contains(title, " - ") {
		return true
	}
	return agendaKeywordRe.MatchString(title)
}

// ExtractAgendaItems finds numbered agenda headings in text and assigns each
// the text up to the next heading. Items come back in document order and
// never overlap. A packet without recognizable headings yields nil.
func ExtractAgendaItems(text string) []model.AgendaItem {
	scan := text[:clampOffset(AgendaScanLimit, text)]

	var headers []agendaHeader
	for _, m := range agendaHeaderRe.FindAllStringSubmatchIndex(scan, -1) {
		title := cleanLine(scan[m[4]:m[5]])
		if !looksLikeAgendaTitle(title) {
			continue
		}
		headers = append(headers, agendaHeader{
			start: m[0],
			end:   m[1],
			id:    scan[m[2]:m[3]],
			title: title,
		})
	}
	if len(headers) == 0 {
		return nil
	}
	sort.SliceStable(headers, func(i, j int) bool { return headers[i].start < headers[j].start })

	stop := -1
	if cut, ok := adjournmentCutoff(headers); ok {
		kept := headers[:0]
		for _, h := range headers {
			if h.start <= cut {
				kept = append(kept, h)
			}
		}
		headers = kept

		// Keep the adjournment item from swallowing the exhibits that follow it.
		adj := headers[len(headers)-1]
		if loc := exhibitLineRe.FindStringIndex(text[adj.end:]); loc != nil {
			stop = adj.end + loc[0]
		}
	}

	items := make([]model.AgendaItem, 0, len(headers))
	for i, h := range headers {
		next := min(len(text), AgendaScanLimit)
		if i+1 < len(headers) {
			next = headers[i+1].start
		} else if stop >= 0 {
			next = min(next, stop)
		}
		if next < h.end {
			next = h.end
		}
		items = append(items, model.AgendaItem{
			ItemID:   h.id,
			Title:    h.title,
			BodyText: boundBody(text[h.end:next]),
			Start:    h.start,
			End:      next,
		})
	}
	return items
}

// adjournmentCutoff returns the start of the earliest adjournment heading.
func adjournmentCutoff(headers []agendaHeader) (int, bool) {
	for _, h := range headers {
		if adjournmentRe.MatchString(h.title) {
			return h.start, true
		}
	}
	return 0, false
}

// AgendaEnd is the largest end offset among items, or 0.
func AgendaEnd(items []model.AgendaItem) int {
	end := 0
	for _, it := range items {
		end = max(end, it.End)
	}
	return end
}
