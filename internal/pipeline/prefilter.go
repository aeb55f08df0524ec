package pipeline

import (
	"sort"

	"github.com/councilsense/minutes-cli/internal/model"
)

// BuildPrefilter groups the located evidence of each rule into candidate
// agenda items and attachments. Candidates keep first-seen order among equal
// hit counts.
func BuildPrefilter(results []model.RuleResult) model.PrefilterView {
	view := model.PrefilterView{Rules: make([]model.PrefilterRule, 0, len(results))}

	for _, rr := range results {
		var (
			agenda      []model.AgendaCandidate
			attachments []model.AttachmentCandidate
			agendaIdx   = make(map[string]int)
			attachIdx   = make(map[string]int)
		)

		for _, ev := range rr.Evidence {
			bare := model.Evidence{Source: ev.Source, Start: ev.Start, End: ev.End, Snippet: ev.Snippet}
			switch {
			case ev.Bucket == model.BucketAgendaItem && ev.AgendaItem != nil && ev.AgendaItem.ItemID != "":
				i, ok := agendaIdx[ev.AgendaItem.ItemID]
				if !ok {
					i = len(agenda)
					agendaIdx[ev.AgendaItem.ItemID] = i
					agenda = append(agenda, model.AgendaCandidate{ItemID: ev.AgendaItem.ItemID, Title: ev.AgendaItem.Title})
				}
				agenda[i].Hits++
				agenda[i].Evidence = append(agenda[i].Evidence, bare)
			case ev.Bucket == model.BucketAttachment && ev.Attachment != nil && ev.Attachment.AttachmentID != "":
				id := ev.Attachment.AttachmentID
				i, ok := attachIdx[id]
				if !ok {
					i = len(attachments)
					attachIdx[id] = i
					attachments = append(attachments, model.AttachmentCandidate{
						AttachmentID: id,
						Title:        ev.Attachment.Title,
						TypeGuess:    ev.Attachment.TypeGuess,
					})
				}
				attachments[i].Hits++
				attachments[i].Evidence = append(attachments[i].Evidence, bare)
			}
		}

		sort.SliceStable(agenda, func(i, j int) bool { return agenda[i].Hits > agenda[j].Hits })
		sort.SliceStable(attachments, func(i, j int) bool { return attachments[i].Hits > attachments[j].Hits })

		if agenda == nil {
			agenda = []model.AgendaCandidate{}
		}
		if attachments == nil {
			attachments = []model.AttachmentCandidate{}
		}
		view.CandidateCount += len(agenda) + len(attachments)
		view.Rules = append(view.Rules, model.PrefilterRule{
			RuleID:               rr.RuleID,
			Description:          rr.Description,
			Type:                 rr.Type,
			Enabled:              rr.Enabled,
			Alert:                rr.Alert,
			Hits:                 rr.Hits,
			AgendaItemCandidates: agenda,
			AttachmentCandidates: attachments,
		})
	}
	return view
}
