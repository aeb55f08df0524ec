package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/councilsense/minutes-cli/internal/model"
)

const (
	// rationaleWindow is how far past an item start a purpose clause is searched.
	rationaleWindow = 1800
	maxDetails      = 3
	maxAgendaRefs   = 3
)

var (
	rationaleRe = regexp.MustCompile(`(?i)(to address|to allow|to create|to amend|to update|to revise|to modify|to change|in order to)[^.]{0,220}\.`)
	wsRe        = regexp.MustCompile(`\s+`)
	wsRunRe     = regexp.MustCompile(`\s{2,}`)

	platDetailRe      = regexp.MustCompile(`(?i)SUNSET\s+FLATS[^,\n]{0,60}`)
	ordinanceDetailRe = regexp.MustCompile(`(?i)An\s+Ordinance[^\n]{0,220}`)
	sunsetDetailRe    = regexp.MustCompile(`(?i)SUNSET\s+FLATS[^\n]{0,80}`)
)

// attachmentMarkers flag snippet text that reads like an exhibit even when no
// attachment heading was found.
var attachmentMarkers = []string{
	" plat ",
	"phase 'a'",
	"sq. ft",
	"township",
	"range",
	"salt lake base",
	"meridian",
}

// ruleEnrichers add rule-specific details to an explanation.
var ruleEnrichers = map[string]func(snippets []string, explanation string) ([]string, string){
	"city_code_changes_residential": func(snippets []string, explanation string) ([]string, string) {
		details := extractUnique(ordinanceDetailRe, snippets)
		if len(details) > 0 {
			explanation = "City code changes are being considered via ordinance/public hearing items. Examples: " +
				strings.Join(details, "; ")
		}
		return details, explanation
	},
	"neighborhood_sunset_flats": func(snippets []string, explanation string) ([]string, string) {
		return extractUnique(sunsetDetailRe, snippets), explanation
	},
}

// Segments is the structure found in one source.
type Segments struct {
	Agenda      []model.AgendaItem
	Attachments []model.Attachment
}

type sourceIndex struct {
	text        string
	agenda      []model.AgendaItem
	agendaEnd   int
	attachments []model.Attachment
}

// Locator maps evidence offsets back to the agenda item or attachment that
// contains them. It is built once per packet and is safe for concurrent use.
type Locator struct {
	sources map[string]sourceIndex
}

// NewLocator indexes the segments of each source. Segments must be sorted by
// start, which is how the segmenters return them.
func NewLocator(sources []model.Source, segments map[string]Segments) *Locator {
	l := &Locator{sources: make(map[string]sourceIndex, len(sources))}
	for _, src := range sources {
		seg := segments[src.Name]
		idx := sourceIndex{text: src.Text, agenda: seg.Agenda, attachments: seg.Attachments}
		if n := len(seg.Agenda); n > 0 {
			idx.agendaEnd = seg.Agenda[n-1].End
		}
		l.sources[src.Name] = idx
	}
	return l
}

// nearestAgenda returns the item with the greatest start <= pos.
func (s sourceIndex) nearestAgenda(pos int) (model.AgendaItem, bool) {
	i := sort.Search(len(s.agenda), func(i int) bool { return s.agenda[i].Start > pos }) - 1
	if i < 0 {
		return model.AgendaItem{}, false
	}
	return s.agenda[i], true
}

// containingAttachment returns the attachment whose [start,end) holds pos.
func (s sourceIndex) containingAttachment(pos int) (model.Attachment, bool) {
	i := sort.Search(len(s.attachments), func(i int) bool { return s.attachments[i].Start > pos }) - 1
	if i < 0 || pos >= s.attachments[i].End {
		return model.Attachment{}, false
	}
	return s.attachments[i], true
}

// Explain returns a copy of res with every evidence entry bucketed and the
// agenda/attachment references, explanation, rationale and details filled in.
func (l *Locator) Explain(res model.RuleResult) model.RuleResult {
	out := res
	out.AgendaRefs = []model.AgendaRef{}
	out.AttachmentRefs = []model.AttachmentRef{}
	out.Explanation = nil
	out.Rationale = nil
	out.Details = nil
	out.Evidence = append([]model.Evidence(nil), res.Evidence...)
	if !res.Alert {
		return out
	}

	seenItems := make(map[model.AgendaRef]struct{})
	seenAttachments := make(map[string]struct{})
	var rationales []string

	for i := range out.Evidence {
		ev := &out.Evidence[i]
		idx, ok := l.sources[ev.Source]
		if !ok || ev.Start == nil {
			continue
		}
		pos := *ev.Start

		if item, found := idx.nearestAgenda(pos); found && pos <= idx.agendaEnd {
			ref := item.Ref()
			ev.Bucket = model.BucketAgendaItem
			ev.AgendaItem = &ref
			if _, dup := seenItems[ref]; !dup {
				seenItems[ref] = struct{}{}
				out.AgendaRefs = append(out.AgendaRefs, ref)
				if why := rationaleNear(idx.text, item.Start); why != "" {
					rationales = append(rationales, why)
				}
			}
			continue
		}

		if att, found := idx.containingAttachment(pos); found {
			ref := att.Ref()
			ev.Bucket = model.BucketAttachment
			ev.Attachment = &ref
			key := ref.AttachmentID + "\x00" + ref.Title
			if _, dup := seenAttachments[key]; !dup {
				seenAttachments[key] = struct{}{}
				out.AttachmentRefs = append(out.AttachmentRefs, ref)
			}
		}
	}

	snippets := make([]string, 0, len(out.Evidence))
	for _, ev := range out.Evidence {
		if ev.Snippet != "" {
			snippets = append(snippets, ev.Snippet)
		}
	}

	var attachmentType model.AttachmentType
	hasAttachmentEvidence := false
	for _, ev := range out.Evidence {
		if ev.Bucket == model.BucketAttachment {
			hasAttachmentEvidence = true
			attachmentType = ev.Attachment.TypeGuess
			break
		}
	}

	var explanation string
	switch {
	case hasAttachmentEvidence || len(out.AttachmentRefs) > 0 || attachmentLike(snippets):
		out.AgendaRefs = []model.AgendaRef{}
		plat := extractUnique(platDetailRe, snippets)
		switch {
		case attachmentType == model.AttachmentTypePlat && len(plat) > 0:
			explanation = fmt.Sprintf("Mention appears in an attachment/exhibit (type: plat), e.g. '%s'.", plat[0])
		case attachmentType != model.AttachmentTypeNone:
			explanation = fmt.Sprintf("Mention appears in an attachment/exhibit (type: %s) included in the packet.", attachmentType)
		default:
			explanation = "Mention appears in an attachment/exhibit included in the packet."
		}
	case len(out.AgendaRefs) > 0:
		refs := make([]string, 0, maxAgendaRefs)
		for _, r := range out.AgendaRefs[:min(maxAgendaRefs, len(out.AgendaRefs))] {
			refs = append(refs, r.ItemID+": "+r.Title)
		}
		explanation = fmt.Sprintf("Mention appears under agenda item(s): %s.", strings.Join(refs, "; "))
	default:
		explanation = "Mention appears in the packet text (could be in attachments or supporting exhibits)."
	}

	if enrich, ok := ruleEnrichers[res.RuleID]; ok {
		out.Details, explanation = enrich(snippets, explanation)
	}

	out.Explanation = &explanation
	if len(rationales) > 0 {
		out.Rationale = &rationales[0]
	}
	return out
}

// ExplainAll explains every result, preserving order.
func (l *Locator) ExplainAll(results []model.RuleResult) []model.RuleResult {
	out := make([]model.RuleResult, 0, len(results))
	for _, r := range results {
		out = append(out, l.Explain(r))
	}
	return out
}

func attachmentLike(snippets []string) bool {
	combined := strings.ToLower(strings.Join(snippets[:min(2, len(snippets))], " "))
	for _, m := range attachmentMarkers {
		if strings.Contains(combined, m) {
			return true
		}
	}
	return false
}

// rationaleNear looks for a purpose clause ("to amend ...", "in order to ...")
// shortly after an agenda item starts.
func rationaleNear(text string, anchor int) string {
	if anchor < 0 || anchor >= len(text) {
		return ""
	}
	end := min(len(text), anchor+rationaleWindow)
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	window := strings.TrimSpace(wsRe.ReplaceAllString(text[anchor:end], " "))
	m := rationaleRe.FindString(window)
	if m == "" {
		return ""
	}
	return cleanLine(m)
}

// extractUnique returns up to three distinct matches of re, one per snippet.
func extractUnique(re *regexp.Regexp, snippets []string) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, s := range snippets {
		m := re.FindString(s)
		if m == "" {
			continue
		}
		val := cleanLine(m)
		if _, dup := seen[val]; val != "" && !dup {
			seen[val] = struct{}{}
			found = append(found, val)
		}
		if len(found) >= maxDetails {
			break
		}
	}
	return found
}

func cleanLine(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(wsRunRe.ReplaceAllString(s, " "))
}
