package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/councilsense/minutes-cli/internal/model"
)

func TestConfidenceFromHits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     model.RuleType
		hits    int
		minHits int
		want    float64
	}{
		{"no hits", model.RuleKeywordAny, 0, 1, 0},
		{"at threshold", model.RuleKeywordAny, 1, 1, 0.45},
		{"two extra", model.RuleKeywordAny, 3, 1, 0.65},
		{"bonus capped", model.RuleKeywordAny, 40, 1, 0.80},
		{"context base", model.RuleKeywordWithContext, 1, 1, 0.55},
		{"context capped", model.RuleKeywordWithContext, 40, 1, 0.90},
		{"below threshold keeps base", model.RuleKeywordAny, 1, 3, 0.45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, ConfidenceFromHits(tt.typ, tt.hits, tt.minHits), 1e-9)
		})
	}
}

func TestFallbackCitation(t *testing.T) {
	t.Parallel()

	long := "This line is definitely longer than forty characters in total."
	assert.Equal(t, long, FallbackCitation("short\n   "+long+"  \nanother"))
	assert.Equal(t, "a b c", FallbackCitation("a   b\nc"))
	assert.Empty(t, FallbackCitation("   \n "))

	huge := strings.Repeat("x", 300)
	assert.Len(t, FallbackCitation(huge), maxCitationChars)
}

var laundryRule = model.Rule{
	ID:          "laundromat",
	Description: "Laundromats",
	Type:        model.RuleKeywordAny,
	Keywords:    []string{"laundry"},
}

var laundryItem = model.AgendaItem{
	ItemID:   "4",
	Title:    "Laundry upgrades",
	BodyText: "New washers for the laundry room at the senior center.",
}

func TestClassifyAgendaItem_KeywordMatch(t *testing.T) {
	t.Parallel()

	records, highlights := ClassifyAgendaItem(laundryItem, []model.Rule{laundryRule}, model.EvidenceConfig{}, nil)

	rec := records["laundromat"]
	assert.True(t, rec.Relevant)
	assert.Equal(t, 2, rec.Hits)
	assert.InDelta(t, 0.55, rec.Confidence, 1e-9)
	require.NotNil(t, rec.Why)
	assert.Equal(t, "Matched interest rule: Laundromats", *rec.Why)
	require.Len(t, rec.Evidence, 2)
	for _, ev := range rec.Evidence {
		assert.Equal(t, AgendaItemSource, ev.Source)
		assert.Equal(t, model.BucketAgendaItem, ev.Bucket)
		assert.Equal(t, "4", ev.AgendaItem.ItemID)
		assert.NotNil(t, ev.Start)
	}

	require.Len(t, highlights, 1)
	h := highlights[0]
	assert.Equal(t, "4: Laundry upgrades", h.Title)
	assert.Equal(t, "laundromat", h.Category)
	assert.Equal(t, "4", h.Links.AgendaItem.ItemID)
	assert.Nil(t, h.Links.Attachment)
	assert.Nil(t, h.Semantic)
}

func TestClassifyAgendaItem_SemanticRejectionSuppressesHighlight(t *testing.T) {
	t.Parallel()

	no := false
	overrides := map[string]*model.SemanticOverride{
		"laundromat": {Relevant: &no, Confidence: 0.9, Why: "A laundry room is not a laundromat"},
	}
	records, highlights := ClassifyAgendaItem(laundryItem, []model.Rule{laundryRule}, model.EvidenceConfig{}, overrides)

	assert.Empty(t, highlights)
	rec := records["laundromat"]
	assert.False(t, rec.Relevant)
	assert.Equal(t, 2, rec.Hits, "raw keyword hits are kept")
	assert.Zero(t, rec.Confidence)
	require.NotNil(t, rec.Semantic)
	assert.Equal(t, "A laundry room is not a laundromat", *rec.Why)
}

func TestClassifyAgendaItem_SemanticAcceptanceUsesQuotes(t *testing.T) {
	t.Parallel()

	yes := true
	overrides := map[string]*model.SemanticOverride{
		"laundromat": {Relevant: &yes, Confidence: 1.4, Why: "New coin laundry", EvidenceQuotes: []string{"", "laundry room", "q2", "q3", "q4"}},
	}
	records, highlights := ClassifyAgendaItem(laundryItem, []model.Rule{laundryRule}, model.EvidenceConfig{}, overrides)

	rec := records["laundromat"]
	assert.True(t, rec.Relevant)
	assert.InDelta(t, model.MaxConfidence, rec.Confidence, 1e-9)
	require.Len(t, rec.Evidence, 3)
	assert.Equal(t, "laundry room", rec.Evidence[0].Snippet)
	assert.Nil(t, rec.Evidence[0].Start)

	require.Len(t, highlights, 1)
	assert.Equal(t, "New coin laundry", *highlights[0].Why)
	assert.NotNil(t, highlights[0].Semantic)
}

func TestClassifyAgendaItem_SemanticAcceptanceWithoutQuotesKeepsEvidence(t *testing.T) {
	t.Parallel()

	yes := true
	overrides := map[string]*model.SemanticOverride{"laundromat": {Relevant: &yes, Confidence: 0.7}}
	records, _ := ClassifyAgendaItem(laundryItem, []model.Rule{laundryRule}, model.EvidenceConfig{}, overrides)

	rec := records["laundromat"]
	require.Len(t, rec.Evidence, 2)
	assert.NotNil(t, rec.Evidence[0].Start)
	assert.Equal(t, "Matched interest rule: Laundromats", *rec.Why)
}

func TestClassifyAgendaItem_SemanticAcceptanceWithoutEvidenceCitesBody(t *testing.T) {
	t.Parallel()

	item := model.AgendaItem{
		ItemID:   "5",
		Title:    "PARKS MASTER PLAN",
		BodyText: "Review of the updated parks master plan for the northern district.",
	}
	yes := true
	overrides := map[string]*model.SemanticOverride{
		"laundromat": {Relevant: &yes, Confidence: 0.99, Why: "Model says relevant"},
	}
	records, highlights := ClassifyAgendaItem(item, []model.Rule{laundryRule}, model.EvidenceConfig{}, overrides)

	rec := records["laundromat"]
	assert.True(t, rec.Relevant)
	assert.Zero(t, rec.Hits)
	require.Len(t, rec.Evidence, 1)
	assert.Equal(t, "Review of the updated parks master plan for the northern district.", rec.Evidence[0].Snippet)
	require.NotNil(t, rec.Why)
	assert.Equal(t, "Model says relevant", *rec.Why)
	assert.InDelta(t, model.MaxConfidence, rec.Confidence, 1e-9)

	require.Len(t, highlights, 1)
	assert.LessOrEqual(t, highlights[0].Confidence, model.MaxConfidence)
}

func TestClassifyAgendaItem_SemanticAcceptanceWithNothingToCite(t *testing.T) {
	t.Parallel()

	yes := true
	overrides := map[string]*model.SemanticOverride{
		"laundromat": {Relevant: &yes, Confidence: 0.8, Why: "Model says relevant"},
	}
	records, highlights := ClassifyAgendaItem(model.AgendaItem{ItemID: "6"}, []model.Rule{laundryRule}, model.EvidenceConfig{}, overrides)

	rec := records["laundromat"]
	assert.Empty(t, rec.Evidence)
	assert.Nil(t, rec.Why, "why needs evidence")
	assert.Empty(t, highlights)
}

func TestClassifyAgendaItem_UndecidedOverrideIgnored(t *testing.T) {
	t.Parallel()

	overrides := map[string]*model.SemanticOverride{"laundromat": {Confidence: 0.1, Why: "unsure"}}
	records, highlights := ClassifyAgendaItem(laundryItem, []model.Rule{laundryRule}, model.EvidenceConfig{}, overrides)

	assert.True(t, records["laundromat"].Relevant)
	assert.Nil(t, records["laundromat"].Semantic)
	require.Len(t, highlights, 1)
	assert.InDelta(t, 0.55, highlights[0].Confidence, 1e-9)
}

func TestClassifyAgendaItem_NoMatch(t *testing.T) {
	t.Parallel()

	rule := model.Rule{ID: "parks", Type: model.RuleKeywordAny, Keywords: []string{"park"}}
	records, highlights := ClassifyAgendaItem(laundryItem, []model.Rule{rule, {Type: model.RuleKeywordAny}}, model.EvidenceConfig{}, nil)

	require.Len(t, records, 1)
	rec := records["parks"]
	assert.False(t, rec.Relevant)
	assert.Nil(t, rec.Why)
	assert.Zero(t, rec.Confidence)
	assert.Empty(t, rec.Evidence)
	assert.Empty(t, highlights)
}

func TestClassifyAgendaItem_EvidenceBounded(t *testing.T) {
	t.Parallel()

	item := model.AgendaItem{ItemID: "7", Title: "Parks", BodyText: strings.Repeat("park ", 20)}
	rule := model.Rule{ID: "parks", Type: model.RuleKeywordAny, Keywords: []string{"park"}}
	records, highlights := ClassifyAgendaItem(item, []model.Rule{rule}, model.EvidenceConfig{MaxSnippetsPerRule: 5}, nil)

	assert.Equal(t, 21, records["parks"].Hits)
	assert.Len(t, records["parks"].Evidence, 5)
	require.Len(t, highlights, 1)
	assert.Len(t, highlights[0].Evidence, model.MaxHighlightEvidence)
	assert.InDelta(t, 0.80, highlights[0].Confidence, 1e-9)
}
