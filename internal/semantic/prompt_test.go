package semantic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevancePrompt(t *testing.T) {
	t.Parallel()

	p := RelevancePrompt(Request{
		CategoryID:          "laundromat",
		CategoryDescription: "  New laundromats  ",
		CategoryKeywords:    []string{"laundromat", " ", "coin laundry"},
		CandidateKind:       KindAgendaItem,
		CandidateTitle:      "4.1: Business license",
		CandidateText:       "A laundromat on Main Street.",
		EvidenceSnippets:    []string{"laundromat on Main", ""},
	})

	assert.Contains(t, p, "CATEGORY_ID: laundromat\n")
	assert.Contains(t, p, "CATEGORY_DESCRIPTION: New laundromats\n")
	assert.Contains(t, p, "CATEGORY_KEYWORDS: laundromat, coin laundry\n")
	assert.Contains(t, p, "CANDIDATE_KIND: agenda_item\n")
	assert.Contains(t, p, "EVIDENCE_SNIPPETS_FROM_PREFILTER:\n- laundromat on Main\n")
	assert.True(t, strings.HasSuffix(p, "CANDIDATE_TEXT:\nA laundromat on Main Street.\n"))
}

func TestRelevancePrompt_Empty(t *testing.T) {
	t.Parallel()

	p := RelevancePrompt(Request{CategoryID: "x"})
	assert.Contains(t, p, "CATEGORY_KEYWORDS: (none)\n")
	assert.Contains(t, p, "- (none)\n")
}

func TestFirstJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"plain", `{"relevant": true}`, true},
		{"fenced", "```json\n{\"relevant\": false}\n```", true},
		{"prose", `Sure! Here it is: {"relevant": true, "why": "x"} hope that helps`, true},
		{"garbage", "no json here", false},
		{"broken", `{"relevant": tru`, false},
		{"reversed braces", `} {`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obj, ok := FirstJSONObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Contains(t, obj, "relevant")
			}
		})
	}
}

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	v := ParseVerdict(map[string]any{
		"relevant":   true,
		"confidence": 1.7,
		"why":        "  mentions a laundromat ",
		"evidence":   []any{" a ", "", 3.0, "b", "c", "d"},
	})
	require.NotNil(t, v.Relevant)
	assert.True(t, *v.Relevant)
	assert.InDelta(t, 1.0, v.Confidence, 1e-9)
	assert.Equal(t, "mentions a laundromat", v.Why)
	assert.Equal(t, []string{"a", "b", "c"}, v.Quotes)
}

func TestParseVerdict_Defaults(t *testing.T) {
	t.Parallel()

	rejected := ParseVerdict(map[string]any{"relevant": false, "confidence": "0.3"})
	require.NotNil(t, rejected.Relevant)
	assert.Equal(t, "Not semantically relevant", rejected.Why)
	assert.InDelta(t, 0.3, rejected.Confidence, 1e-9)

	accepted := ParseVerdict(map[string]any{"relevant": true, "confidence": "high"})
	assert.Equal(t, "Semantically relevant", accepted.Why)
	assert.Zero(t, accepted.Confidence)

	missing := ParseVerdict(map[string]any{"relevant": "yes", "confidence": -2.0})
	assert.Nil(t, missing.Relevant)
	assert.Zero(t, missing.Confidence)
	assert.Empty(t, missing.Quotes)
}

func TestToBullets(t *testing.T) {
	t.Parallel()

	got := ToBullets("- First point\n\n* Second\n3. Third\n4) Fourth\n• Fifth")
	assert.Equal(t, []string{"First point", "Second", "Third", "Fourth", "Fifth"}, got)

	assert.Nil(t, ToBullets("   \n  "))

	many := strings.Repeat("- x\n", 20)
	assert.Len(t, ToBullets(many), maxBullets)
}

func TestTruncateBody(t *testing.T) {
	t.Parallel()

	short := "short body"
	assert.Equal(t, short, TruncateBody(short))

	long := strings.Repeat("é", maxSummaryBody+5)
	got := TruncateBody(long)
	assert.True(t, strings.HasSuffix(got, summaryTruncation))
	assert.Equal(t, maxSummaryBody, len([]rune(strings.TrimSuffix(got, summaryTruncation))))
}

func TestSummaryPrompt(t *testing.T) {
	t.Parallel()

	p := SummaryPrompt(" Rezone parcel ", "\nBody text\n")
	assert.Contains(t, p, "Title: Rezone parcel\n\n")
	assert.True(t, strings.HasSuffix(p, "Body:\nBody text\n"))
}
