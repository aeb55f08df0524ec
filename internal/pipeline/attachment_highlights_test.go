package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/councilsense/minutes-cli/internal/model"
)

func attachmentResult(ruleID string, evs ...model.Evidence) model.RuleResult {
	rr := model.RuleResult{
		RuleID:     ruleID,
		Type:       model.RuleKeywordAny,
		Alert:      true,
		Hits:       len(evs),
		MinHits:    1,
		Evidence:   evs,
		AgendaRefs: []model.AgendaRef{},
	}
	seen := make(map[string]bool)
	for _, ev := range evs {
		if ev.Attachment != nil && !seen[ev.Attachment.AttachmentID] {
			seen[ev.Attachment.AttachmentID] = true
			rr.AttachmentRefs = append(rr.AttachmentRefs, *ev.Attachment)
		}
	}
	return rr
}

func TestDeriveAttachmentHighlights_Basic(t *testing.T) {
	t.Parallel()

	rr := attachmentResult("sunset", attachmentEv("EXHIBIT_A", 10), attachmentEv("EXHIBIT_A", 10), attachmentEv("EXHIBIT_A", 40))
	rr.Explanation = model.StringPtr("Mention appears in an attachment/exhibit (type: map) included in the packet.")

	hs := DeriveAttachmentHighlights([]model.RuleResult{rr}, nil, nil)

	require.Len(t, hs, 1)
	h := hs[0]
	assert.Equal(t, "EXHIBIT_A: Exhibit EXHIBIT_A", h.Title)
	assert.Equal(t, "sunset", h.Category)
	assert.Equal(t, *rr.Explanation, *h.Why)
	assert.InDelta(t, 0.65, h.Confidence, 1e-9)
	assert.Len(t, h.Evidence, 2, "duplicate spans collapse")
	require.NotNil(t, h.Links.Attachment)
	assert.Equal(t, "EXHIBIT_A", h.Links.Attachment.AttachmentID)
	assert.Nil(t, h.Links.AgendaItem)
}

func TestDeriveAttachmentHighlights_PerAttachmentOverrides(t *testing.T) {
	t.Parallel()

	rr := attachmentResult("laundromat",
		attachmentEv("ATT1", 1),
		attachmentEv("ATT2", 2),
		attachmentEv("ATT3", 3),
	)
	yes, no := true, false
	overrides := &model.OverrideSet{Attachments: map[string]map[string]*model.SemanticOverride{
		"laundromat": {
			"ATT1": {Relevant: &no},
			"ATT2": {Relevant: &yes, Confidence: 0.9, Why: "coin laundry site plan", EvidenceQuotes: []string{"coin laundry"}},
		},
	}}

	hs := DeriveAttachmentHighlights([]model.RuleResult{rr}, nil, overrides)

	require.Len(t, hs, 2)
	assert.Equal(t, "ATT2", hs[0].Links.Attachment.AttachmentID)
	assert.Equal(t, "coin laundry site plan", *hs[0].Why)
	assert.InDelta(t, 0.9, hs[0].Confidence, 1e-9)
	require.Len(t, hs[0].Evidence, 1)
	assert.Equal(t, "coin laundry", hs[0].Evidence[0].Snippet)
	assert.Equal(t, "attachment", hs[0].Evidence[0].Source)

	assert.Equal(t, "ATT3", hs[1].Links.Attachment.AttachmentID)
	assert.Equal(t, "Matched interest rule: laundromat", *hs[1].Why, "a verdict for one attachment must not leak into the next")
	assert.Nil(t, hs[1].Semantic)
	assert.InDelta(t, 0.65, hs[1].Confidence, 1e-9)
}

func TestDeriveAttachmentHighlights_OverrideConfidenceCapped(t *testing.T) {
	t.Parallel()

	rr := attachmentResult("sunset", attachmentEv("EXHIBIT_A", 10))
	yes := true
	overrides := &model.OverrideSet{Attachments: map[string]map[string]*model.SemanticOverride{
		"sunset": {"EXHIBIT_A": {Relevant: &yes, Confidence: 0.99}},
	}}

	hs := DeriveAttachmentHighlights([]model.RuleResult{rr}, nil, overrides)

	require.Len(t, hs, 1)
	assert.InDelta(t, model.MaxConfidence, hs[0].Confidence, 1e-9)
}

func TestDeriveAttachmentHighlights_SkipsAgendaHighlightedRules(t *testing.T) {
	t.Parallel()

	rr := attachmentResult("housing", attachmentEv("ATT1", 1))
	rr.AgendaRefs = []model.AgendaRef{{ItemID: "2", Title: "Housing"}}
	existing := []model.Highlight{{RuleID: "housing"}}

	assert.Empty(t, DeriveAttachmentHighlights([]model.RuleResult{rr}, existing, nil))

	rr.AgendaRefs = nil
	assert.Len(t, DeriveAttachmentHighlights([]model.RuleResult{rr}, existing, nil), 1)
}

func TestDeriveAttachmentHighlights_SkipsWithoutAttachments(t *testing.T) {
	t.Parallel()

	silent := attachmentResult("a", attachmentEv("ATT1", 1))
	silent.Alert = false

	agendaOnly := attachmentResult("b", agendaEv("1", "One", 5))

	untitled := attachmentResult("c", attachmentEv("ATT1", 1))
	untitled.Evidence[0].Attachment = &model.AttachmentRef{AttachmentID: "ATT1"}

	assert.Empty(t, DeriveAttachmentHighlights([]model.RuleResult{silent, agendaOnly, untitled}, nil, nil))
}

func TestDeriveAttachmentHighlights_OnePerRuleAndAttachment(t *testing.T) {
	t.Parallel()

	rr := attachmentResult("r", attachmentEv("ATT1", 1), attachmentEv("ATT1", 9))
	hs := DeriveAttachmentHighlights([]model.RuleResult{rr, rr}, nil, nil)
	assert.Len(t, hs, 1)
}
