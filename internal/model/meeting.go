package model

import "time"

// AgendaItem is a numbered agenda heading and the text that follows it.
type AgendaItem struct {
	ItemID   string `json:"item_id"`
	Title    string `json:"title"`
	BodyText string `json:"body_text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Ref returns the reference used to link evidence back to this item.
func (a AgendaItem) Ref() AgendaRef {
	return AgendaRef{ItemID: a.ItemID, Title: a.Title}
}

// AttachmentType is a coarse guess at what kind of exhibit a segment holds.
type AttachmentType string

const (
	AttachmentTypeNone        AttachmentType = ""
	AttachmentTypePlat        AttachmentType = "plat"
	AttachmentTypeStaffReport AttachmentType = "staff_report"
	AttachmentTypeMap         AttachmentType = "map"
	AttachmentTypePolicy      AttachmentType = "policy"
	AttachmentTypeExhibit     AttachmentType = "exhibit"
)

// Attachment is an exhibit, staff report, map or similar segment that trails
// the agenda in a packet.
type Attachment struct {
	AttachmentID string         `json:"attachment_id"`
	Title        string         `json:"title"`
	TypeGuess    AttachmentType `json:"type_guess"`
	BodyText     string         `json:"body_text"`
	Start        int            `json:"start"`
	End          int            `json:"end"`
}

// Ref returns the reference used to link evidence back to this attachment.
func (a Attachment) Ref() AttachmentRef {
	return AttachmentRef{AttachmentID: a.AttachmentID, Title: a.Title, TypeGuess: a.TypeGuess}
}

// Source is one named rendition of the packet text, such as "pdf" or "text".
type Source struct {
	Name string `json:"name"`
	Text string `json:"-"`
}

// Meeting is an imported packet as recorded in the local index.
type Meeting struct {
	ID              string    `json:"meeting_id"`
	ImportedAt      time.Time `json:"imported_at"`
	MeetingDate     string    `json:"meeting_date,omitempty"`
	MeetingLocation string    `json:"meeting_location,omitempty"`
	Title           string    `json:"title,omitempty"`
	MeetingDir      string    `json:"meeting_dir"`
	SourcePDFPath   string    `json:"source_pdf_path,omitempty"`
	SourceTextPath  string    `json:"source_text_path,omitempty"`
}

// Artifact is a file recorded against a meeting, such as a copied source or
// a generated report.
type Artifact struct {
	MeetingID string    `json:"meeting_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
