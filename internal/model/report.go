package model

import "time"

// AnalyzedItem is an agenda item together with its per-item passes.
type AnalyzedItem struct {
	AgendaItem
	Summary      *ItemSummary               `json:"pass_a,omitempty"`
	SummaryError *SummaryError              `json:"summary_error,omitempty"`
	Relevance    map[string]RelevanceRecord `json:"pass_b,omitempty"`
}

// SourceStat describes one input rendition.
type SourceStat struct {
	Name  string `json:"name"`
	Bytes int    `json:"bytes"`
}

// PhaseStatus is the outcome of one pipeline phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult records one pipeline phase of an analysis run.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Report is the full analysis of one meeting packet. GeneratedAt, phase
// durations and semantic provenance (generated_at, cache_hit) describe the
// run; every other field depends only on the inputs.
type Report struct {
	MeetingID          string          `json:"meeting_id"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Alert              bool            `json:"alert"`
	PreferredSource    string          `json:"preferred_source,omitempty"`
	Sources            []SourceStat    `json:"sources"`
	AgendaItems        []AnalyzedItem  `json:"agenda_items"`
	Attachments        []Attachment    `json:"attachments"`
	RuleResults        []RuleResult    `json:"rule_results"`
	Prefilter          PrefilterView   `json:"prefilter"`
	ThingsYouCareAbout []Highlight     `json:"things_you_care_about"`
	MeetingSummary     *MeetingSummary `json:"meeting_summary,omitempty"`
	Semantic           *OverrideSet    `json:"semantic,omitempty"`
	Phases             []PhaseResult   `json:"phases"`
}
