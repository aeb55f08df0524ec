package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/source"
)

// Artifact names written by import and analyze.
const (
	ArtifactSourcePDF  = "source.pdf"
	ArtifactSourceText = "source.txt"
	ArtifactReport     = "report.json"
)

// ImportRequest describes a packet to copy into the store.
type ImportRequest struct {
	MeetingID string
	Title     string
	TextPath  string
	PDFPath   string
}

// ImportMeeting records a meeting and copies its source files into the
// meeting folder. Sources are the already loaded renditions used to guess the
// meeting date and location. The id defaults to the content hash of the
// inputs, so importing the same packet twice updates one row.
func ImportMeeting(ctx context.Context, st Store, req ImportRequest, sources []model.Source) (*model.Meeting, error) {
	if req.TextPath == "" && req.PDFPath == "" {
		return nil, source.ErrNoInput
	}
	id := strings.TrimSpace(req.MeetingID)
	if id == "" {
		id = source.MeetingID(req.TextPath, req.PDFPath)
	}

	md := source.ExtractMetadata(metadataText(sources))
	m := model.Meeting{
		ID:              id,
		MeetingDate:     md.Date,
		MeetingLocation: md.Location,
		Title:           req.Title,
		MeetingDir:      filepath.Join(st.Dir(), id),
	}

	existing, err := st.GetMeeting(ctx, id)
	switch {
	case err == nil:
		m.ImportedAt = existing.ImportedAt
		if m.Title == "" {
			m.Title = existing.Title
		}
	case !eris.Is(err, ErrNotFound):
		return nil, err
	}
	if err := st.UpsertMeeting(ctx, m); err != nil {
		return nil, err
	}

	copies := []struct {
		from, name string
		dst        *string
	}{
		{req.PDFPath, ArtifactSourcePDF, &m.SourcePDFPath},
		{req.TextPath, ArtifactSourceText, &m.SourceTextPath},
	}
	for _, c := range copies {
		if c.from == "" {
			continue
		}
		data, err := os.ReadFile(c.from)
		if err != nil {
			return nil, eris.Wrapf(err, "store: read %s", c.from)
		}
		a, err := st.PutArtifact(ctx, id, c.name, data)
		if err != nil {
			return nil, err
		}
		*c.dst = a.Path
	}
	if err := st.UpsertMeeting(ctx, m); err != nil {
		return nil, err
	}

	zap.L().Info("store: meeting imported",
		zap.String("meeting_id", id),
		zap.String("meeting_date", m.MeetingDate),
		zap.String("meeting_dir", m.MeetingDir),
	)
	return st.GetMeeting(ctx, id)
}

// metadataText prefers the PDF rendition, which keeps the cover page.
func metadataText(sources []model.Source) string {
	var fallback string
	for _, s := range sources {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if s.Name == source.NamePDF {
			return s.Text
		}
		if fallback == "" {
			fallback = s.Text
		}
	}
	return fallback
}
