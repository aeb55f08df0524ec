package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRule_Defaults(t *testing.T) {
	t.Parallel()

	r := Rule{ID: "zoning"}
	assert.True(t, r.IsEnabled())
	assert.Equal(t, DefaultWindowChars, r.Window())
	assert.Equal(t, DefaultMinHits, r.Threshold())
	assert.Equal(t, "zoning", r.Label())

	r = Rule{ID: "zoning", Description: "Zoning", Enabled: BoolPtr(false), WindowChars: 50, MinHits: 2}
	assert.False(t, r.IsEnabled())
	assert.Equal(t, 50, r.Window())
	assert.Equal(t, 2, r.Threshold())
	assert.Equal(t, "Zoning", r.Label())
}

func TestEvidenceConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	c := EvidenceConfig{}.WithDefaults()
	assert.Equal(t, DefaultSnippetChars, c.SnippetChars)
	assert.Equal(t, DefaultMaxSnippetsPerRule, c.MaxSnippetsPerRule)

	c = EvidenceConfig{SnippetChars: 80, MaxSnippetsPerRule: 2}.WithDefaults()
	assert.Equal(t, 80, c.SnippetChars)
	assert.Equal(t, 2, c.MaxSnippetsPerRule)
}

func TestEvidence_Span(t *testing.T) {
	t.Parallel()

	located := Located("pdf", 10, 20, "x")
	assert.Equal(t, SpanKey{Source: "pdf", Start: 10, End: 20, HasSpan: true}, located.Span())

	quoted := Quote("pdf", "x")
	assert.Equal(t, SpanKey{Source: "pdf"}, quoted.Span())
}
