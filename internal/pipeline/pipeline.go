package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/rules"
	"github.com/councilsense/minutes-cli/internal/segment"
	"github.com/councilsense/minutes-cli/internal/semantic"
)

// ErrNoSources is returned when Analyze gets no packet text at all.
var ErrNoSources = eris.New("pipeline: no source text")

// Input is one packet to analyze.
type Input struct {
	MeetingID string
	Sources   []model.Source
	Rules     []model.Rule
	Evidence  model.EvidenceConfig

	// ClassifyRelevance runs per-item classification and attachment
	// highlights.
	ClassifyRelevance bool
	// Semantic asks the classifier to confirm prefilter candidates first.
	Semantic bool
	// SummarizeItems writes per-item digests; SummarizeFirstOnly limits
	// that to the first item.
	SummarizeItems     bool
	SummarizeFirstOnly bool
	SummarizeMeeting   bool
}

// Pipeline runs the packet analysis stages in order.
type Pipeline struct {
	classifier  semantic.Classifier
	summarizer  ItemSummarizer
	concurrency int
	now         func() time.Time
}

// New creates a Pipeline. classifier and summarizer may be nil, in which
// case the semantic pass is skipped and item summaries record an error.
func New(classifier semantic.Classifier, summarizer ItemSummarizer, concurrency int) *Pipeline {
	return &Pipeline{
		classifier:  classifier,
		summarizer:  summarizer,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// PreferredSource picks the source item-level work runs on: "pdf", then
// "text", then whichever came first.
func PreferredSource(sources []model.Source) (model.Source, bool) {
	if len(sources) == 0 {
		return model.Source{}, false
	}
	for _, name := range []string{"pdf", "text"} {
		for _, s := range sources {
			if s.Name == name {
				return s, true
			}
		}
	}
	return sources[0], true
}

// SegmentSources splits every source into agenda items and trailing
// attachments.
func SegmentSources(sources []model.Source) map[string]Segments {
	out := make(map[string]Segments, len(sources))
	for _, s := range sources {
		agenda := segment.ExtractAgendaItems(s.Text)
		out[s.Name] = Segments{
			Agenda:      agenda,
			Attachments: segment.ExtractAttachments(s.Text, segment.AgendaEnd(agenda)),
		}
	}
	return out
}

// Analyze runs every enabled stage over the packet. Data problems never fail
// the run; they are recorded on the affected items.
func (p *Pipeline) Analyze(ctx context.Context, in Input) (*model.Report, error) {
	var sources []model.Source
	for _, s := range in.Sources {
		if s.Text != "" {
			sources = append(sources, s)
		}
	}
	preferred, ok := PreferredSource(sources)
	if !ok {
		return nil, ErrNoSources
	}

	log := zap.L().With(zap.String("meeting_id", in.MeetingID))
	log.Info("pipeline: starting analysis", zap.Int("sources", len(sources)), zap.Int("rules", len(in.Rules)))

	report := &model.Report{
		MeetingID:          in.MeetingID,
		GeneratedAt:        p.now().UTC(),
		PreferredSource:    preferred.Name,
		ThingsYouCareAbout: []model.Highlight{},
	}
	for _, s := range sources {
		report.Sources = append(report.Sources, model.SourceStat{Name: s.Name, Bytes: len(s.Text)})
	}

	trackPhase := func(name string, enabled bool, fn func() (map[string]any, error)) {
		if !enabled {
			report.Phases = append(report.Phases, model.PhaseResult{Name: name, Status: model.PhaseStatusSkipped})
			return
		}
		start := p.now()
		meta, err := fn()
		pr := model.PhaseResult{
			Name:     name,
			Status:   model.PhaseStatusComplete,
			Duration: p.now().Sub(start).Milliseconds(),
			Metadata: meta,
		}
		if err != nil {
			pr.Status = model.PhaseStatusFailed
			pr.Error = err.Error()
			log.Warn("pipeline: phase failed", zap.String("phase", name), zap.Int64("duration_ms", pr.Duration), zap.Error(err))
		} else {
			log.Debug("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", pr.Duration))
		}
		report.Phases = append(report.Phases, pr)
	}

	var segments map[string]Segments
	trackPhase("segment", true, func() (map[string]any, error) {
		segments = SegmentSources(sources)
		seg := segments[preferred.Name]
		report.Attachments = seg.Attachments
		report.AgendaItems = make([]model.AnalyzedItem, len(seg.Agenda))
		for i, it := range seg.Agenda {
			report.AgendaItems[i] = model.AnalyzedItem{AgendaItem: it}
		}
		return map[string]any{"agenda_items": len(seg.Agenda), "attachments": len(seg.Attachments)}, nil
	})

	trackPhase("rules", true, func() (map[string]any, error) {
		results := rules.EvaluateAll(in.Rules, sources, in.Evidence)
		report.RuleResults = NewLocator(sources, segments).ExplainAll(results)
		alerts := 0
		for _, rr := range report.RuleResults {
			if rr.Alert {
				alerts++
			}
		}
		report.Alert = alerts > 0
		return map[string]any{"alerts": alerts}, nil
	})

	trackPhase("prefilter", true, func() (map[string]any, error) {
		report.Prefilter = BuildPrefilter(report.RuleResults)
		return map[string]any{"candidates": report.Prefilter.CandidateCount}, nil
	})

	trackPhase("item_summaries", in.SummarizeItems, func() (map[string]any, error) {
		meta := map[string]any{}
		if se := SummarizeItems(ctx, report.AgendaItems, p.summarizer, in.SummarizeFirstOnly); se != nil {
			meta["error_code"] = se.Code
		}
		failed := 0
		for _, it := range report.AgendaItems {
			if it.SummaryError != nil {
				failed++
			}
		}
		meta["failed"] = failed
		return meta, nil
	})

	var overrides *model.OverrideSet
	semanticOn := in.ClassifyRelevance && in.Semantic && p.classifier != nil
	trackPhase("semantic", semanticOn, func() (map[string]any, error) {
		overrides = semantic.RunPass(ctx, p.classifier, semantic.PassInput{
			Prefilter:   report.Prefilter,
			Rules:       in.Rules,
			AgendaItems: segments[preferred.Name].Agenda,
			Attachments: report.Attachments,
		}, p.concurrency)
		report.Semantic = overrides
		return map[string]any{"agenda_items": len(overrides.Items), "rules_with_attachments": len(overrides.Attachments)}, ctx.Err()
	})

	trackPhase("classify", in.ClassifyRelevance, func() (map[string]any, error) {
		var agendaHighlights []model.Highlight
		for i := range report.AgendaItems {
			item := &report.AgendaItems[i]
			records, hs := ClassifyAgendaItem(item.AgendaItem, in.Rules, in.Evidence, overrides.ForItem(item.ItemID))
			item.Relevance = records
			agendaHighlights = append(agendaHighlights, hs...)
		}
		attachmentHighlights := DeriveAttachmentHighlights(report.RuleResults, agendaHighlights, overrides)
		report.ThingsYouCareAbout = append(report.ThingsYouCareAbout, agendaHighlights...)
		report.ThingsYouCareAbout = append(report.ThingsYouCareAbout, attachmentHighlights...)
		return map[string]any{
			"agenda_highlights":     len(agendaHighlights),
			"attachment_highlights": len(attachmentHighlights),
		}, nil
	})

	trackPhase("meeting_summary", in.SummarizeMeeting, func() (map[string]any, error) {
		ms := SummarizeMeeting(in.MeetingID, report.AgendaItems, report.ThingsYouCareAbout)
		report.MeetingSummary = &ms
		return map[string]any{"highlights": len(ms.Highlights)}, nil
	})

	log.Info("pipeline: analysis complete",
		zap.Bool("alert", report.Alert),
		zap.Int("agenda_items", len(report.AgendaItems)),
		zap.Int("attachments", len(report.Attachments)),
		zap.Int("highlights", len(report.ThingsYouCareAbout)),
	)
	return report, nil
}
