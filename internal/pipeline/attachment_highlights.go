package pipeline

import (
	"github.com/councilsense/minutes-cli/internal/model"
)

// DeriveAttachmentHighlights turns whole-packet rule results whose evidence
// landed in attachments into highlights, one per (rule, attachment). Rules
// already highlighted from an agenda item are skipped when their evidence also
// points at agenda items. A rejecting semantic verdict suppresses the pair.
func DeriveAttachmentHighlights(
	results []model.RuleResult,
	existing []model.Highlight,
	overrides *model.OverrideSet,
) []model.Highlight {
	highlighted := make(map[string]struct{}, len(existing))
	for _, h := range existing {
		if h.RuleID != "" {
			highlighted[h.RuleID] = struct{}{}
		}
	}

	type pair struct{ rule, attachment string }
	seen := make(map[pair]struct{})
	var out []model.Highlight

	for _, rr := range results {
		if !rr.Alert || rr.RuleID == "" {
			continue
		}
		if _, ok := highlighted[rr.RuleID]; ok && len(rr.AgendaRefs) > 0 {
			continue
		}
		if len(rr.AttachmentRefs) == 0 {
			continue
		}

		var order []string
		byAttachment := make(map[string][]model.Evidence)
		meta := make(map[string]model.AttachmentRef)
		for _, ev := range rr.Evidence {
			if ev.Bucket != model.BucketAttachment || ev.Attachment == nil {
				continue
			}
			id := ev.Attachment.AttachmentID
			if id == "" || ev.Attachment.Title == "" {
				continue
			}
			if _, ok := byAttachment[id]; !ok {
				order = append(order, id)
			}
			byAttachment[id] = append(byAttachment[id], ev)
			meta[id] = *ev.Attachment
		}
		if len(order) == 0 {
			continue
		}

		baseConf := ConfidenceFromHits(rr.Type, rr.Hits, minHitsOrDefault(rr.MinHits))
		baseWhy := "Matched interest rule: " + ruleLabel(rr.Description, rr.RuleID)
		if rr.Explanation != nil && *rr.Explanation != "" {
			baseWhy = *rr.Explanation
		}

		for _, id := range order {
			sem := overrides.ForAttachment(rr.RuleID, id)
			if sem.IsRejected() {
				continue
			}
			key := pair{rr.RuleID, id}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			ref := meta[id]
			evidence := dedupeAttachmentEvidence(byAttachment[id], ref)
			why, confidence := baseWhy, baseConf
			if sem.IsRelevant() {
				if sem.Why != "" {
					why = sem.Why
				}
				confidence = model.ClampConfidence(sem.Confidence)
				if quoted := quoteEvidence(sem.EvidenceQuotes, func(q string) model.Evidence {
					return model.Evidence{
						Source:     string(model.BucketAttachment),
						Snippet:    q,
						Bucket:     model.BucketAttachment,
						Attachment: &ref,
					}
				}); len(quoted) > 0 {
					evidence = quoted
				}
			}

			h, err := model.NewHighlight(model.Highlight{
				Title:      ref.AttachmentID + ": " + ref.Title,
				Category:   rr.RuleID,
				RuleID:     rr.RuleID,
				Why:        model.StringPtr(why),
				Confidence: confidence,
				Evidence:   evidence,
				Semantic:   sem,
				Links:      model.HighlightLinks{Attachment: &ref},
			})
			if err != nil {
				continue
			}
			out = append(out, h)
		}
	}
	return out
}

type evidenceKey struct {
	span    model.SpanKey
	snippet string
}

func dedupeAttachmentEvidence(evs []model.Evidence, ref model.AttachmentRef) []model.Evidence {
	seen := make(map[evidenceKey]struct{})
	out := make([]model.Evidence, 0, model.MaxHighlightEvidence)
	for _, ev := range evs {
		k := evidenceKey{span: ev.Span(), snippet: ev.Snippet}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, model.Evidence{
			Source:     ev.Source,
			Start:      ev.Start,
			End:        ev.End,
			Snippet:    ev.Snippet,
			Bucket:     model.BucketAttachment,
			Attachment: &ref,
		})
		if len(out) == model.MaxHighlightEvidence {
			break
		}
	}
	return out
}
