package model

// Bucket records which structural element owns a piece of evidence.
type Bucket string

const (
	BucketUnset      Bucket = ""
	BucketAgendaItem Bucket = "agenda_item"
	BucketAttachment Bucket = "attachment"
)

// AgendaRef identifies an agenda item.
type AgendaRef struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title"`
}

// AttachmentRef identifies an attachment.
type AttachmentRef struct {
	AttachmentID string         `json:"attachment_id"`
	Title        string         `json:"title"`
	TypeGuess    AttachmentType `json:"type_guess"`
}

// Evidence is a span of packet text that caused a rule to fire. Start and End
// are byte offsets into the named source and are nil for quotes that did not
// come from a located match.
type Evidence struct {
	Source     string         `json:"source"`
	Start      *int           `json:"start"`
	End        *int           `json:"end"`
	Snippet    string         `json:"snippet"`
	Bucket     Bucket         `json:"bucket,omitempty"`
	AgendaItem *AgendaRef     `json:"agenda_item,omitempty"`
	Attachment *AttachmentRef `json:"attachment,omitempty"`
}

// Located builds evidence for a match at [start,end) in source.
func Located(source string, start, end int, snippet string) Evidence {
	return Evidence{Source: source, Start: &start, End: &end, Snippet: snippet}
}

// Quote builds evidence that has no position, such as a model quote or a
// fallback citation.
func Quote(source, snippet string) Evidence {
	return Evidence{Source: source, Snippet: snippet}
}

// SpanKey identifies a match position for deduplication.
type SpanKey struct {
	Source     string
	Start, End int
	HasSpan    bool
}

// Span returns the position key of the evidence.
func (e Evidence) Span() SpanKey {
	k := SpanKey{Source: e.Source}
	if e.Start != nil && e.End != nil {
		k.Start, k.End, k.HasSpan = *e.Start, *e.End, true
	}
	return k
}
