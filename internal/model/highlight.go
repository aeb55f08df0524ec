package model

import (
	"math"

	"github.com/rotisserie/eris"
)

const (
	// MaxHighlightEvidence caps the evidence carried by a single highlight.
	MaxHighlightEvidence = 3
	// MaxConfidence is the ceiling for any relevance confidence.
	MaxConfidence = 0.95
)

// ErrNoEvidence is returned when a highlight would carry no usable evidence.
var ErrNoEvidence = eris.New("highlight requires at least one evidence snippet")

// SemanticProvenance records where a semantic judgement came from. It is run
// metadata: GeneratedAt and CacheHit differ between otherwise identical runs.
type SemanticProvenance struct {
	GeneratedAt   string `json:"generated_at,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	PromptID      string `json:"prompt_id,omitempty"`
	PromptVersion int    `json:"prompt_version,omitempty"`
	CacheHit      bool   `json:"cache_hit"`
	CacheKey      string `json:"cache_key,omitempty"`
}

// SemanticOverride is an external judgement about whether a candidate is truly
// relevant to a rule. An override only takes effect when Relevant is set.
type SemanticOverride struct {
	Relevant       *bool               `json:"relevant,omitempty"`
	Confidence     float64             `json:"confidence"`
	Why            string              `json:"why,omitempty"`
	EvidenceQuotes []string            `json:"evidence_quotes,omitempty"`
	Provenance     *SemanticProvenance `json:"provenance,omitempty"`
}

// Decided reports whether the override carries an explicit verdict.
func (o *SemanticOverride) Decided() bool {
	return o != nil && o.Relevant != nil
}

// IsRelevant reports an explicit positive verdict.
func (o *SemanticOverride) IsRelevant() bool {
	return o.Decided() && *o.Relevant
}

// IsRejected reports an explicit negative verdict.
func (o *SemanticOverride) IsRejected() bool {
	return o.Decided() && !*o.Relevant
}

// RelevanceRecord is the per-rule classification of one agenda item.
type RelevanceRecord struct {
	Relevant   bool              `json:"relevant"`
	Why        *string           `json:"why"`
	Confidence float64           `json:"confidence"`
	Hits       int               `json:"hits"`
	Evidence   []Evidence        `json:"evidence"`
	Semantic   *SemanticOverride `json:"semantic,omitempty"`
}

// HighlightLinks points a highlight at exactly one structural element.
type HighlightLinks struct {
	AgendaItem *AgendaRef     `json:"agenda_item,omitempty"`
	Attachment *AttachmentRef `json:"attachment,omitempty"`
}

// Highlight is a user-facing "thing you care about". It always carries at
// least one evidence snippet.
type Highlight struct {
	Title      string            `json:"title"`
	Category   string            `json:"category"`
	RuleID     string            `json:"rule_id,omitempty"`
	Why        *string           `json:"why"`
	Confidence float64           `json:"confidence"`
	Evidence   []Evidence        `json:"evidence"`
	Semantic   *SemanticOverride `json:"semantic,omitempty"`
	Links      HighlightLinks    `json:"links"`
}

// HasEvidence reports whether any evidence entry carries a snippet.
func (h Highlight) HasEvidence() bool {
	for _, ev := range h.Evidence {
		if ev.Snippet != "" {
			return true
		}
	}
	return false
}

// NewHighlight validates and normalizes a highlight: empty snippets are
// dropped, evidence is capped and confidence is clamped to [0,0.95].
func NewHighlight(h Highlight) (Highlight, error) {
	kept := make([]Evidence, 0, MaxHighlightEvidence)
	for _, ev := range h.Evidence {
		if ev.Snippet == "" {
			continue
		}
		kept = append(kept, ev)
		if len(kept) == MaxHighlightEvidence {
			break
		}
	}
	if len(kept) == 0 {
		return Highlight{}, ErrNoEvidence
	}
	h.Evidence = kept
	h.Confidence = ClampConfidence(h.Confidence)
	return h, nil
}

// ClampConfidence bounds a confidence value to [0,MaxConfidence]; NaN
// becomes 0.
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(MaxConfidence, v))
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// OverrideSet holds semantic verdicts produced for a packet.
type OverrideSet struct {
	// Items is keyed by agenda item id, then rule id.
	Items map[string]map[string]*SemanticOverride `json:"agenda_items,omitempty"`
	// Attachments is keyed by rule id, then attachment id.
	Attachments map[string]map[string]*SemanticOverride `json:"attachments,omitempty"`
}

// ForItem returns the per-rule verdicts for an agenda item.
func (s *OverrideSet) ForItem(itemID string) map[string]*SemanticOverride {
	if s == nil {
		return nil
	}
	return s.Items[itemID]
}

// ForAttachment returns the verdict for a rule and attachment pair.
func (s *OverrideSet) ForAttachment(ruleID, attachmentID string) *SemanticOverride {
	if s == nil {
		return nil
	}
	return s.Attachments[ruleID][attachmentID]
}
