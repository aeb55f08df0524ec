package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/councilsense/minutes-cli/internal/config"
	"github.com/councilsense/minutes-cli/internal/profile"
	"github.com/councilsense/minutes-cli/internal/store"
)

const testPacket = "CITY COUNCIL REGULAR MEETING\n" +
	"January 23, 2026\n\n" +
	"1. CALL TO ORDER\n" +
	"Mayor opened the meeting at 7:00 PM.\n\n" +
	"2. PLAT APPROVAL - SUNSET FLATS\n" +
	"Consideration of the Sunset Flats subdivision plat.\n\n" +
	"3. ADJOURNMENT\n"

const testProfile = `version: 1
profile_name: test
rules:
  - id: sunset
    description: "Mentions Sunset Flats"
    type: keyword_any
    keywords: ["sunset flats"]
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRunAnalyze_WritesReportAndStores(t *testing.T) {
	c := useTestConfig(t)
	dir := t.TempDir()
	textPath := writeFixture(t, dir, "packet.txt", testPacket)
	profilePath := writeFixture(t, dir, "profile.yaml", testProfile)
	outPath := filepath.Join(dir, "out", "report.json")

	err := runAnalyze(context.Background(), analyzeFlags{
		text:              textPath,
		profile:           profilePath,
		out:               outPath,
		meetingID:         "council-0123",
		classifyRelevance: true,
		summarizeMeeting:  true,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "council-0123", report["meeting_id"])
	assert.Equal(t, true, report["alert"])
	assert.NotEmpty(t, report["things_you_care_about"])

	st, err := store.Open(context.Background(), c.Store.Dir)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	m, err := st.GetMeeting(context.Background(), "council-0123")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-23", m.MeetingDate)

	stored, err := st.GetArtifact(context.Background(), "council-0123", store.ArtifactReport)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestRunAnalyze_StdoutNoStore(t *testing.T) {
	c := useTestConfig(t)
	dir := t.TempDir()
	textPath := writeFixture(t, dir, "packet.txt", testPacket)
	profilePath := writeFixture(t, dir, "profile.yaml", testProfile)

	var out bytes.Buffer
	err := runAnalyze(context.Background(), analyzeFlags{
		text:           textPath,
		profile:        profilePath,
		summarizeItems: true,
		noStore:        true,
	}, &out)
	require.NoError(t, err)

	var report struct {
		MeetingID   string `json:"meeting_id"`
		AgendaItems []struct {
			ItemID       string `json:"item_id"`
			SummaryError *struct {
				Code string `json:"code"`
			} `json:"summary_error"`
		} `json:"agenda_items"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Regexp(t, `^txt_[0-9a-f]{12}$`, report.MeetingID)
	require.NotEmpty(t, report.AgendaItems)
	require.NotNil(t, report.AgendaItems[0].SummaryError)
	assert.Equal(t, "llm_model_missing", report.AgendaItems[0].SummaryError.Code)

	st, err := store.Open(context.Background(), c.Store.Dir)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	meetings, err := st.ListMeetings(context.Background(), store.MeetingFilter{})
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestRunAnalyze_RequiresInput(t *testing.T) {
	useTestConfig(t)

	err := runAnalyze(context.Background(), analyzeFlags{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--text or --pdf")
}

func TestRunAnalyze_MissingProfile(t *testing.T) {
	useTestConfig(t)
	dir := t.TempDir()
	textPath := writeFixture(t, dir, "packet.txt", testPacket)

	err := runAnalyze(context.Background(), analyzeFlags{
		text:    textPath,
		profile: filepath.Join(dir, "missing.yaml"),
	}, &bytes.Buffer{})
	var verr *profile.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "not found")
}

func TestResolveLLMConfig_Precedence(t *testing.T) {
	c := &config.Config{
		Anthropic: config.AnthropicConfig{Model: "config-model", BaseURL: "https://config", TimeoutSecs: 30},
	}

	got := resolveLLMConfig(c, nil, "")
	assert.Equal(t, "config-model", got.Model)
	assert.Equal(t, "https://config", got.Endpoint)
	assert.Equal(t, 30*time.Second, got.Timeout)

	prof := &profile.Profile{LLM: &profile.LLM{Model: "profile-model", Endpoint: "https://profile", TimeoutS: 2.5}}
	got = resolveLLMConfig(c, prof, "")
	assert.Equal(t, "profile-model", got.Model)
	assert.Equal(t, "https://profile", got.Endpoint)
	assert.Equal(t, 2500*time.Millisecond, got.Timeout)

	got = resolveLLMConfig(c, prof, "  flag-model ")
	assert.Equal(t, "flag-model", got.Model)
}

func TestResolveLLMConfig_RetryDefaults(t *testing.T) {
	got := resolveLLMConfig(&config.Config{Resilience: config.ResilienceConfig{MaxAttempts: 5}}, nil, "")
	assert.Equal(t, 5, got.Retry.MaxAttempts)
	assert.Positive(t, got.Breaker.FailureThreshold)
}
