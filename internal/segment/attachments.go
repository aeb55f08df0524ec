package segment

import (
	"regexp"
	"sort"
	"strings"

	"github.com/councilsense/minutes-cli/internal/model"
)

const (
	// agendaSlack lets exhibit headings sit slightly before the agenda end,
	// where the last agenda body often ends.
	agendaSlack = 500
	// fallbackTailBytes is how much of the post-agenda tail is inspected
	// when no headings are found.
	fallbackTailBytes = 20_000
	guessBodyBytes    = 4_000
	fallbackGuessBody = 8_000

	FallbackAttachmentID    = "ATTACHMENTS"
	FallbackAttachmentTitle = "Attachments / Exhibits (auto)"
)

var (
	// e.g. "ATTACHMENT 1: Staff Report" or "Exhibit A - Plat"
	primaryHeadingRe = regexp.MustCompile(`(?mi)^\s*(ATTACHMENT|EXHIBIT)\s+([A-Z]|\d{1,3})\b\s*[:\-.]?\s*([^\n]{0,120})$`)
	// e.g. "STAFF REPORT - Rezone" or "VICINITY MAP"
	secondaryHeadingRe = regexp.MustCompile(`(?mi)^\s*((?:STAFF\s+REPORT|VICINITY\s+MAP|ZONING\s+MAP|PLAT|MAP|POLICY)[^\n]{0,120})$`)

	exhibitWordRe    = regexp.MustCompile(`(?i)\b(exhibit|attachment)\b`)
	attachmentLikeRe = regexp.MustCompile(`(?i)\b(exhibit|attachment|plat|staff report|map|policy)\b`)
	nonAlnumRe       = regexp.MustCompile(`[^a-z0-9]+`)
)

type typeMarkers struct {
	kind    model.AttachmentType
	markers []string
}

// Checked in order; the first family with a marker present wins.
var attachmentTypeMarkers = []typeMarkers{
	{model.AttachmentTypePlat, []string{" plat", "legal description", "township", "range ", "range,", "salt lake base", "meridian", "metes and bounds", "subdivision"}},
	{model.AttachmentTypeStaffReport, []string{"staff report", "planning commission", "recommendation", "background", "analysis", "fiscal impact", "attachments:"}},
	{model.AttachmentTypeMap, []string{"vicinity map", "zoning map", "map ", "map:"}},
	{model.AttachmentTypePolicy, []string{"policy", "definitions", "section ", "chapter ", "ordinance", "code "}},
}

// GuessAttachmentType classifies attachment text by marker phrases. It
// returns AttachmentTypeNone when nothing attachment-like is present.
func GuessAttachmentType(text string) model.AttachmentType {
	folded := strings.ToLower(text)
	for _, fam := range attachmentTypeMarkers {
		for _, m := range fam.markers {
			if strings.Contains(folded, m) {
				return fam.kind
			}
		}
	}
	if exhibitWordRe.MatchString(text) {
		return model.AttachmentTypeExhibit
	}
	return model.AttachmentTypeNone
}

type attachmentHeading struct {
	start, end int
	id, title  string
	guess      model.AttachmentType
}

// ExtractAttachments segments exhibit and attachment headings that follow the
// agenda. agendaEnd is a hint for where agenda content stops; it is clamped
// into the text. When no headings are found but the tail still reads like
// attachments, a single synthetic bucket covering the tail is returned.
func ExtractAttachments(text string, agendaEnd int) []model.Attachment {
	agendaEnd = clampOffset(agendaEnd, text)

	var headings []attachmentHeading
	for _, m := range primaryHeadingRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] < agendaEnd-agendaSlack {
			continue
		}
		kind := strings.ToUpper(cleanLine(text[m[2]:m[3]]))
		ident := strings.ToUpper(cleanLine(text[m[4]:m[5]]))
		title := kind + " " + ident
		if part := cleanLine(text[m[6]:m[7]]); part != "" {
			title += ": " + part
		}
		headings = append(headings, attachmentHeading{
			start: m[0],
			end:   m[1],
			id:    kind + "_" + ident,
			title: title,
			guess: GuessAttachmentType(title),
		})
	}

	for _, m := range secondaryHeadingRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] < agendaEnd {
			continue
		}
		title := cleanLine(text[m[2]:m[3]])
		if len(title) < 4 {
			continue
		}
		if !capsish(title) && !strings.Contains(title, " - ") {
			continue
		}
		headings = append(headings, attachmentHeading{
			start: m[0],
			end:   m[1],
			id:    "HEADING_" + headingSlug(title),
			title: title,
			guess: GuessAttachmentType(title),
		})
	}

	if len(headings) == 0 {
		return fallbackAttachment(text, agendaEnd)
	}

	sort.SliceStable(headings, func(i, j int) bool { return headings[i].start < headings[j].start })

	out := make([]model.Attachment, 0, len(headings))
	for i, h := range headings {
		next := len(text)
		if i+1 < len(headings) {
			next = headings[i+1].start
		}
		if next < h.end {
			next = h.end
		}
		body := boundBody(text[h.end:next])
		guess := GuessAttachmentType(h.title + "\n" + prefix(body, guessBodyBytes))
		if guess == model.AttachmentTypeNone {
			guess = h.guess
		}
		out = append(out, model.Attachment{
			AttachmentID: h.id,
			Title:        h.title,
			TypeGuess:    guess,
			BodyText:     body,
			Start:        h.start,
			End:          next,
		})
	}
	return out
}

func fallbackAttachment(text string, agendaEnd int) []model.Attachment {
	tail := text[agendaEnd:clampOffset(agendaEnd+fallbackTailBytes, text)]
	if GuessAttachmentType(tail) == model.AttachmentTypeNone && !attachmentLikeRe.MatchString(tail) {
		return nil
	}
	body := boundBody(text[agendaEnd:])
	return []model.Attachment{{
		AttachmentID: FallbackAttachmentID,
		Title:        FallbackAttachmentTitle,
		TypeGuess:    GuessAttachmentType(prefix(body, fallbackGuessBody)),
		BodyText:     body,
		Start:        agendaEnd,
		End:          len(text),
	}}
}

// headingSlug builds a stable id fragment from a heading title.
func headingSlug(title string) string {
	slug := strings.Trim(nonAlnumRe.ReplaceAllString(strings.ToLower(title), "_"), "_")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		return "attachment"
	}
	return slug
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
