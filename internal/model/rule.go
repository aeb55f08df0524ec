package model

// RuleType identifies how a rule matches packet text.
type RuleType string

const (
	// RuleKeywordAny fires on any keyword occurrence.
	RuleKeywordAny RuleType = "keyword_any"
	// RuleKeywordWithContext fires on a keyword occurrence that has a context
	// keyword within WindowChars on either side.
	RuleKeywordWithContext RuleType = "keyword_with_context"
)

// Rule defaults.
const (
	DefaultWindowChars        = 300
	DefaultMinHits            = 1
	DefaultSnippetChars       = 260
	DefaultMaxSnippetsPerRule = 5
)

// Rule is one user-defined interest rule from the profile.
type Rule struct {
	ID              string   `yaml:"id" json:"id"`
	Description     string   `yaml:"description,omitempty" json:"description,omitempty"`
	Type            RuleType `yaml:"type" json:"type"`
	Enabled         *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Keywords        []string `yaml:"keywords" json:"keywords"`
	ContextKeywords []string `yaml:"context_keywords,omitempty" json:"context_keywords,omitempty"`
	WindowChars     int      `yaml:"window_chars,omitempty" json:"window_chars,omitempty"`
	MinHits         int      `yaml:"min_hits,omitempty" json:"min_hits,omitempty"`
}

// IsEnabled reports whether the rule participates in evaluation. Rules are
// enabled unless explicitly switched off.
func (r Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Window returns the context window, falling back to the default.
func (r Rule) Window() int {
	if r.WindowChars <= 0 {
		return DefaultWindowChars
	}
	return r.WindowChars
}

// Threshold returns the minimum hit count, falling back to the default.
func (r Rule) Threshold() int {
	if r.MinHits <= 0 {
		return DefaultMinHits
	}
	return r.MinHits
}

// Label is the human-facing name of the rule.
func (r Rule) Label() string {
	if r.Description != "" {
		return r.Description
	}
	return r.ID
}

// EvidenceConfig bounds the evidence collected per rule.
type EvidenceConfig struct {
	SnippetChars       int `yaml:"snippet_chars,omitempty" json:"snippet_chars,omitempty"`
	MaxSnippetsPerRule int `yaml:"max_snippets_per_rule,omitempty" json:"max_snippets_per_rule,omitempty"`
}

// WithDefaults fills unset fields.
func (c EvidenceConfig) WithDefaults() EvidenceConfig {
	if c.SnippetChars <= 0 {
		c.SnippetChars = DefaultSnippetChars
	}
	if c.MaxSnippetsPerRule <= 0 {
		c.MaxSnippetsPerRule = DefaultMaxSnippetsPerRule
	}
	return c
}

// RuleResult is the outcome of evaluating one rule over all sources, plus the
// structural explanation attached by the evidence locator.
type RuleResult struct {
	RuleID      string     `json:"rule_id"`
	Description string     `json:"description,omitempty"`
	Type        RuleType   `json:"type"`
	Enabled     bool       `json:"enabled"`
	Alert       bool       `json:"alert"`
	Hits        int        `json:"hits"`
	MinHits     int        `json:"min_hits"`
	WindowChars int        `json:"window_chars,omitempty"`
	Evidence    []Evidence `json:"evidence"`
	Error       string     `json:"error,omitempty"`

	Explanation    *string         `json:"explanation"`
	Rationale      *string         `json:"rationale"`
	Details        []string        `json:"details,omitempty"`
	AgendaRefs     []AgendaRef     `json:"agenda_refs"`
	AttachmentRefs []AttachmentRef `json:"attachment_refs"`
}

// Label is the human-facing name of the rule behind the result.
func (r RuleResult) Label() string {
	if r.Description != "" {
		return r.Description
	}
	return r.RuleID
}
