package model

// SummaryError records why an item summary could not be produced.
type SummaryError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
}

// ItemSummary is the per-item digest (summary bullets plus heuristic fields).
type ItemSummary struct {
	Summary    []string            `json:"summary"`
	Actions    []string            `json:"actions"`
	Entities   []string            `json:"entities"`
	KeyTerms   []string            `json:"key_terms"`
	Citations  []string            `json:"citations"`
	Provenance *SemanticProvenance `json:"provenance,omitempty"`
}

// AgendaCandidate is an agenda item a rule's evidence points at.
type AgendaCandidate struct {
	ItemID   string     `json:"item_id"`
	Title    string     `json:"title"`
	Hits     int        `json:"hits"`
	Evidence []Evidence `json:"evidence"`
}

// AttachmentCandidate is an attachment a rule's evidence points at.
type AttachmentCandidate struct {
	AttachmentID string         `json:"attachment_id"`
	Title        string         `json:"title"`
	TypeGuess    AttachmentType `json:"type_guess"`
	Hits         int            `json:"hits"`
	Evidence     []Evidence     `json:"evidence"`
}

// PrefilterRule lists the candidates of one rule.
type PrefilterRule struct {
	RuleID               string                `json:"rule_id"`
	Description          string                `json:"description,omitempty"`
	Type                 RuleType              `json:"type"`
	Enabled              bool                  `json:"enabled"`
	Alert                bool                  `json:"alert"`
	Hits                 int                   `json:"hits"`
	AgendaItemCandidates []AgendaCandidate     `json:"agenda_item_candidates"`
	AttachmentCandidates []AttachmentCandidate `json:"attachment_candidates"`
}

// PrefilterView is the candidate list handed to the semantic pass.
type PrefilterView struct {
	Rules          []PrefilterRule `json:"rules"`
	CandidateCount int             `json:"candidate_count"`
}

// OrdinanceEntry is an ordinance or resolution item with its evidence.
type OrdinanceEntry struct {
	ItemID   string     `json:"item_id"`
	Title    string     `json:"title"`
	Kind     string     `json:"kind"`
	Evidence []Evidence `json:"evidence"`
}

// WatchlistHit counts highlights in one category.
type WatchlistHit struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// MeetingSummary is the meeting-level digest.
type MeetingSummary struct {
	MeetingID             string           `json:"meeting_id"`
	Highlights            []Highlight      `json:"highlights"`
	OrdinancesResolutions []OrdinanceEntry `json:"ordinances_resolutions"`
	WatchlistHits         []WatchlistHit   `json:"watchlist_hits"`
}
