package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/ocr"
	"github.com/councilsense/minutes-cli/internal/pipeline"
	"github.com/councilsense/minutes-cli/internal/profile"
	"github.com/councilsense/minutes-cli/internal/source"
	"github.com/councilsense/minutes-cli/internal/store"
)

type analyzeFlags struct {
	text              string
	pdf               string
	profile           string
	out               string
	meetingID         string
	storeDir          string
	llmModel          string
	classifyRelevance bool
	summarizeItems    bool
	summarizeFirst    bool
	summarizeMeeting  bool
	semantic          bool
	noStore           bool
}

var analyzeOpts analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a meeting packet against the interest profile",
	Long:  "Segments the packet, evaluates every profile rule with located evidence, optionally classifies relevance and summarizes items, and writes the JSON report.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAnalyze(cmd.Context(), analyzeOpts, cmd.OutOrStdout())
	},
}

func runAnalyze(ctx context.Context, f analyzeFlags, stdout io.Writer) error {
	if f.text == "" && f.pdf == "" {
		return eris.New("analyze: --text or --pdf is required")
	}

	explicit := f.profile
	if explicit == "" {
		explicit = cfg.Profile.Path
	}
	profilePath := profile.ResolvePath(explicit, false)
	prof, err := profile.Load(profilePath)
	if err != nil {
		return err
	}

	var extractor ocr.Extractor
	if f.pdf != "" {
		extractor, err = ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}
	}
	sources, err := source.Load(ctx, f.text, f.pdf, extractor)
	if err != nil {
		return eris.Wrap(err, "analyze: load sources")
	}

	env, err := initAnalysis(ctx, f.storeDir, prof, llmOptions{
		Model:    f.llmModel,
		Semantic: f.semantic || cfg.Semantic.Enabled,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	meetingID := f.meetingID
	if meetingID == "" {
		meetingID = source.MeetingID(f.text, f.pdf)
	}
	if !f.noStore {
		if _, err := store.ImportMeeting(ctx, env.Store, store.ImportRequest{
			MeetingID: meetingID,
			TextPath:  f.text,
			PDFPath:   f.pdf,
		}, sources); err != nil {
			return eris.Wrap(err, "analyze: record meeting")
		}
	}

	report, err := env.Pipeline.Analyze(ctx, pipeline.Input{
		MeetingID:          meetingID,
		Sources:            sources,
		Rules:              prof.Rules,
		Evidence:           prof.EvidenceConfig(),
		ClassifyRelevance:  f.classifyRelevance,
		Semantic:           f.semantic || cfg.Semantic.Enabled,
		SummarizeItems:     f.summarizeItems || f.summarizeFirst,
		SummarizeFirstOnly: f.summarizeFirst,
		SummarizeMeeting:   f.summarizeMeeting,
	})
	if err != nil {
		return eris.Wrap(err, "analyze")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "analyze: marshal report")
	}
	data = append(data, '\n')

	if !f.noStore {
		if _, err := env.Store.PutArtifact(ctx, meetingID, store.ArtifactReport, data); err != nil {
			return eris.Wrap(err, "analyze: store report")
		}
	}

	logReport(report, f.out)
	if f.out == "" || f.out == "-" {
		_, err = stdout.Write(data)
		return eris.Wrap(err, "analyze: write report")
	}
	if err := os.MkdirAll(filepath.Dir(f.out), 0o755); err != nil {
		return eris.Wrapf(err, "analyze: create dir for %s", f.out)
	}
	if err := os.WriteFile(f.out, data, 0o644); err != nil {
		return eris.Wrapf(err, "analyze: write %s", f.out)
	}
	return nil
}

func logReport(r *model.Report, out string) {
	zap.L().Info("analysis complete",
		zap.String("meeting_id", r.MeetingID),
		zap.Bool("alert", r.Alert),
		zap.Int("agenda_items", len(r.AgendaItems)),
		zap.Int("attachments", len(r.Attachments)),
		zap.Int("highlights", len(r.ThingsYouCareAbout)),
		zap.String("out", out),
	)
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.text, "text", "", "path to the packet text file")
	f.StringVar(&analyzeOpts.pdf, "pdf", "", "path to the packet PDF")
	f.StringVar(&analyzeOpts.profile, "profile", "", "interest profile YAML (default: resolved profile path)")
	f.StringVar(&analyzeOpts.out, "out", "", "write the report here instead of stdout")
	f.StringVar(&analyzeOpts.meetingID, "meeting-id", "", "meeting id (default: content hash of the inputs)")
	f.StringVar(&analyzeOpts.storeDir, "store-dir", "", "meeting store directory (default from config)")
	f.StringVar(&analyzeOpts.llmModel, "llm-model", "", "model name, overriding the profile and config")
	f.BoolVar(&analyzeOpts.classifyRelevance, "classify-relevance", false, "classify each agenda item and attachment against the rules")
	f.BoolVar(&analyzeOpts.summarizeItems, "summarize-items", false, "write a digest for every agenda item")
	f.BoolVar(&analyzeOpts.summarizeFirst, "summarize-first", false, "write a digest for the first agenda item only")
	f.BoolVar(&analyzeOpts.summarizeMeeting, "summarize-meeting", false, "add the meeting summary")
	f.BoolVar(&analyzeOpts.semantic, "semantic", false, "confirm candidates with the model before classifying")
	f.BoolVar(&analyzeOpts.noStore, "no-store", false, "do not record the meeting or report in the store")
	rootCmd.AddCommand(analyzeCmd)
}
