package pipeline

import (
	"math"
	"strings"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/rules"
)

// AgendaItemSource names the synthetic source used when re-evaluating rules
// against a single agenda item.
const AgendaItemSource = "agenda_item"

const (
	baseConfidence        = 0.45
	contextBaseConfidence = 0.55
	maxHitBonus           = 0.35
	perHitBonus           = 0.10
	maxCitationChars      = 240
	minCitationLineChars  = 40
)

// ConfidenceFromHits scores a keyword match. Context rules start higher and
// every hit beyond the threshold adds a little, never past 0.95.
func ConfidenceFromHits(ruleType model.RuleType, hits, minHits int) float64 {
	if hits <= 0 {
		return 0
	}
	base := baseConfidence
	if ruleType == model.RuleKeywordWithContext {
		base = contextBaseConfidence
	}
	scaled := base + math.Min(maxHitBonus, perHitBonus*float64(max(0, hits-minHits)))
	return math.Min(model.MaxConfidence, math.Max(base, scaled))
}

// FallbackCitation picks a quotable excerpt from text: the first line of at
// least 40 characters, else the start of the whole text, compacted and cut to
// 240 characters.
func FallbackCitation(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = collapseWS(line)
		if len([]rune(line)) >= minCitationLineChars {
			return truncateRunes(line, maxCitationChars)
		}
	}
	return truncateRunes(collapseWS(text), maxCitationChars)
}

// ClassifyAgendaItem decides, rule by rule, whether an agenda item is relevant
// and emits a highlight for every relevant rule that has evidence. A decided
// semantic verdict in overrides supersedes the keyword result.
func ClassifyAgendaItem(
	item model.AgendaItem,
	ruleset []model.Rule,
	cfg model.EvidenceConfig,
	overrides map[string]*model.SemanticOverride,
) (map[string]model.RelevanceRecord, []model.Highlight) {
	ref := item.Ref()
	combined := strings.TrimSpace(item.Title + "\n\n" + item.BodyText)
	sources := []model.Source{{Name: AgendaItemSource, Text: combined}}

	records := make(map[string]model.RelevanceRecord, len(ruleset))
	var highlights []model.Highlight

	for _, rule := range ruleset {
		if rule.ID == "" {
			continue
		}
		rr := rules.Evaluate(rule, sources, cfg)
		relevant := rr.Alert

		evidence := make([]model.Evidence, 0, len(rr.Evidence))
		for _, ev := range rr.Evidence {
			evidence = append(evidence, agendaEvidence(ref, ev))
		}
		if relevant && len(evidence) == 0 {
			if snip := FallbackCitation(combined); snip != "" {
				evidence = append(evidence, agendaEvidence(ref, model.Quote(AgendaItemSource, snip)))
			}
		}

		var why *string
		if relevant && len(evidence) > 0 {
			why = model.StringPtr("Matched interest rule: " + ruleLabel(rule.Description, rule.ID))
		}

		var confidence float64
		if relevant {
			confidence = ConfidenceFromHits(rr.Type, rr.Hits, minHitsOrDefault(rr.MinHits))
		}

		rec := model.RelevanceRecord{Hits: rr.Hits}
		if sem := overrides[rule.ID]; sem.Decided() {
			relevant = *sem.Relevant
			if sem.Why != "" {
				why = model.StringPtr(sem.Why)
			}
			confidence = model.ClampConfidence(sem.Confidence)
			if quoted := quoteEvidence(sem.EvidenceQuotes, func(q string) model.Evidence {
				return agendaEvidence(ref, model.Quote(AgendaItemSource, q))
			}); len(quoted) > 0 {
				evidence = quoted
			}
			rec.Semantic = sem
			if relevant && len(evidence) == 0 {
				if snip := FallbackCitation(combined); snip != "" {
					evidence = append(evidence, agendaEvidence(ref, model.Quote(AgendaItemSource, snip)))
				}
			}
		}
		if !relevant {
			confidence = 0
		} else if len(evidence) == 0 {
			why = nil
		}
		rec.Relevant = relevant
		rec.Why = why
		rec.Confidence = confidence
		rec.Evidence = evidence
		records[rule.ID] = rec

		if !relevant {
			continue
		}
		h, err := model.NewHighlight(model.Highlight{
			Title:      itemTitle(item),
			Category:   rule.ID,
			RuleID:     rule.ID,
			Why:        why,
			Confidence: confidence,
			Evidence:   evidence,
			Semantic:   rec.Semantic,
			Links:      model.HighlightLinks{AgendaItem: &ref},
		})
		if err != nil {
			continue
		}
		highlights = append(highlights, h)
	}
	return records, highlights
}

func agendaEvidence(ref model.AgendaRef, ev model.Evidence) model.Evidence {
	return model.Evidence{
		Source:     AgendaItemSource,
		Start:      ev.Start,
		End:        ev.End,
		Snippet:    ev.Snippet,
		Bucket:     model.BucketAgendaItem,
		AgendaItem: &ref,
	}
}

// quoteEvidence turns model quotes into evidence, skipping blanks and keeping
// at most three.
func quoteEvidence(quotes []string, build func(string) model.Evidence) []model.Evidence {
	var out []model.Evidence
	for _, q := range quotes {
		if strings.TrimSpace(q) == "" {
			continue
		}
		out = append(out, build(q))
		if len(out) == model.MaxHighlightEvidence {
			break
		}
	}
	return out
}

func ruleLabel(description, id string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return id
}

func minHitsOrDefault(n int) int {
	if n <= 0 {
		return model.DefaultMinHits
	}
	return n
}

func collapseWS(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
