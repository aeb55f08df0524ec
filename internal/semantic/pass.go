package semantic

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/resilience"
)

// DefaultConcurrency bounds in-flight classifier calls.
const DefaultConcurrency = 4

// PassInput is everything the semantic pass needs to build candidate text.
type PassInput struct {
	Prefilter   model.PrefilterView
	Rules       []model.Rule
	AgendaItems []model.AgendaItem
	Attachments []model.Attachment
}

type job struct {
	ruleID  string
	kind    CandidateKind
	target  string
	request Request
}

type outcome struct {
	verdict *model.SemanticOverride
}

// RunPass judges every prefilter candidate and collects the verdicts. Calls
// run concurrently, bounded by concurrency; results are merged in candidate
// order. A failed call leaves no verdict for its pair. Once the backend
// reports itself unavailable the remaining calls are skipped.
func RunPass(ctx context.Context, classifier Classifier, in PassInput, concurrency int) *model.OverrideSet {
	set := &model.OverrideSet{
		Items:       make(map[string]map[string]*model.SemanticOverride),
		Attachments: make(map[string]map[string]*model.SemanticOverride),
	}
	if classifier == nil {
		return set
	}
	jobs := buildJobs(in)
	if len(jobs) == 0 {
		return set
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]outcome, len(jobs))
	var stopped atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			if stopped.Load() || gctx.Err() != nil {
				return nil
			}
			v, err := classifier.Classify(gctx, j.request)
			if err != nil {
				if isFatal(err) {
					stopped.Store(true)
				}
				zap.L().Warn("semantic: classification failed",
					zap.String("rule_id", j.ruleID),
					zap.String("kind", string(j.kind)),
					zap.String("candidate", j.target),
					zap.Error(err),
				)
				return nil
			}
			results[i] = outcome{verdict: v}
			return nil
		})
	}
	_ = g.Wait()

	judged := 0
	for i, j := range jobs {
		v := results[i].verdict
		if v == nil {
			continue
		}
		judged++
		switch j.kind {
		case KindAgendaItem:
			if set.Items[j.target] == nil {
				set.Items[j.target] = make(map[string]*model.SemanticOverride)
			}
			set.Items[j.target][j.ruleID] = v
		case KindAttachment:
			if set.Attachments[j.ruleID] == nil {
				set.Attachments[j.ruleID] = make(map[string]*model.SemanticOverride)
			}
			set.Attachments[j.ruleID][j.target] = v
		}
	}
	zap.L().Info("semantic: pass complete",
		zap.Int("candidates", len(jobs)),
		zap.Int("judged", judged),
		zap.Bool("stopped_early", stopped.Load()),
	)
	return set
}

func isFatal(err error) bool {
	return eris.Is(err, ErrUnavailable) || eris.Is(err, ErrModelMissing) || eris.Is(err, resilience.ErrCircuitOpen)
}

func buildJobs(in PassInput) []job {
	rulesByID := make(map[string]model.Rule, len(in.Rules))
	for _, r := range in.Rules {
		rulesByID[r.ID] = r
	}
	items := make(map[string]model.AgendaItem, len(in.AgendaItems))
	for _, it := range in.AgendaItems {
		if _, dup := items[it.ItemID]; !dup {
			items[it.ItemID] = it
		}
	}
	attachments := make(map[string]model.Attachment, len(in.Attachments))
	for _, a := range in.Attachments {
		if _, dup := attachments[a.AttachmentID]; !dup {
			attachments[a.AttachmentID] = a
		}
	}

	var jobs []job
	for _, pr := range in.Prefilter.Rules {
		if pr.RuleID == "" {
			continue
		}
		rule := rulesByID[pr.RuleID]
		desc := strings.TrimSpace(rule.Description)
		if desc == "" {
			desc = strings.TrimSpace(pr.Description)
		}
		if desc == "" {
			desc = pr.RuleID
		}

		for _, c := range pr.AgendaItemCandidates {
			it, ok := items[c.ItemID]
			if !ok {
				continue
			}
			jobs = append(jobs, job{
				ruleID: pr.RuleID,
				kind:   KindAgendaItem,
				target: c.ItemID,
				request: Request{
					CategoryID:          pr.RuleID,
					CategoryDescription: desc,
					CategoryKeywords:    rule.Keywords,
					CandidateKind:       KindAgendaItem,
					CandidateTitle:      it.ItemID + ": " + it.Title,
					CandidateText:       strings.TrimSpace(it.Title + "\n\n" + it.BodyText),
					EvidenceSnippets:    snippets(c.Evidence),
				},
			})
		}
		for _, c := range pr.AttachmentCandidates {
			a, ok := attachments[c.AttachmentID]
			if !ok {
				continue
			}
			jobs = append(jobs, job{
				ruleID: pr.RuleID,
				kind:   KindAttachment,
				target: c.AttachmentID,
				request: Request{
					CategoryID:          pr.RuleID,
					CategoryDescription: desc,
					CategoryKeywords:    rule.Keywords,
					CandidateKind:       KindAttachment,
					CandidateTitle:      a.AttachmentID + ": " + a.Title,
					CandidateText:       strings.TrimSpace(a.Title + "\n\n" + a.BodyText),
					EvidenceSnippets:    snippets(c.Evidence),
				},
			})
		}
	}
	return jobs
}

func snippets(evs []model.Evidence) []string {
	var out []string
	for _, ev := range evs {
		if s := strings.TrimSpace(ev.Snippet); s != "" {
			out = append(out, s)
			if len(out) == maxSnippets {
				break
			}
		}
	}
	return out
}
