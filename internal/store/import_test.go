package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/source"
)

const packetText = "CITY COUNCIL REGULAR MEETING\nJanuary 23, 2026\nLocation: City Hall Council Chambers\n\n1. CALL TO ORDER\n"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestImportMeeting_TextPacket(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	textPath := writeTemp(t, "packet.txt", packetText)

	m, err := ImportMeeting(ctx, st, ImportRequest{TextPath: textPath, Title: "Council"},
		[]model.Source{{Name: source.NameText, Text: packetText}})
	require.NoError(t, err)

	assert.Equal(t, source.MeetingID(textPath, ""), m.ID)
	assert.Equal(t, "2026-01-23", m.MeetingDate)
	assert.Contains(t, m.MeetingLocation, "City Hall")
	assert.Equal(t, "Council", m.Title)
	assert.Empty(t, m.SourcePDFPath)
	assert.Equal(t, filepath.Join(st.Dir(), m.ID, ArtifactSourceText), m.SourceTextPath)

	copied, err := os.ReadFile(m.SourceTextPath)
	require.NoError(t, err)
	assert.Equal(t, packetText, string(copied))

	arts, err := st.ListArtifacts(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, ArtifactSourceText, arts[0].Name)
}

func TestImportMeeting_Reimport(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	textPath := writeTemp(t, "packet.txt", packetText)
	srcs := []model.Source{{Name: source.NameText, Text: packetText}}

	first, err := ImportMeeting(ctx, st, ImportRequest{TextPath: textPath, Title: "Council"}, srcs)
	require.NoError(t, err)
	second, err := ImportMeeting(ctx, st, ImportRequest{TextPath: textPath}, srcs)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Council", second.Title)
	assert.True(t, first.ImportedAt.Equal(second.ImportedAt))

	all, err := st.ListMeetings(ctx, MeetingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImportMeeting_ExplicitIDAndPDF(t *testing.T) {
	st := newTestSQLiteStore(t)
	pdfPath := writeTemp(t, "packet.pdf", "%PDF-1.4 fake")

	m, err := ImportMeeting(context.Background(), st, ImportRequest{MeetingID: "council-2026-01", PDFPath: pdfPath},
		[]model.Source{{Name: source.NamePDF, Text: "Posted 1/5/2026"}})
	require.NoError(t, err)

	assert.Equal(t, "council-2026-01", m.ID)
	assert.Equal(t, "2026-01-05", m.MeetingDate)
	assert.Equal(t, filepath.Join(st.Dir(), "council-2026-01", ArtifactSourcePDF), m.SourcePDFPath)
}

func TestImportMeeting_NoInput(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := ImportMeeting(context.Background(), st, ImportRequest{}, nil)
	assert.ErrorIs(t, err, source.ErrNoInput)
}

func TestMetadataText_PrefersPDF(t *testing.T) {
	got := metadataText([]model.Source{
		{Name: source.NameText, Text: "text"},
		{Name: source.NamePDF, Text: "pdf"},
	})
	assert.Equal(t, "pdf", got)

	got = metadataText([]model.Source{{Name: source.NamePDF, Text: "  "}, {Name: source.NameText, Text: "text"}})
	assert.Equal(t, "text", got)
}
