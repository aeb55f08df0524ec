package pipeline

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/semantic"
)

// Summary error codes recorded on agenda items.
const (
	CodeModelMissing = "llm_model_missing"
	CodeNoItems      = "no_agenda_items"
	CodeLLMError     = "llm_error"
	CodeTimeout      = "llm_timeout"
	CodeUnavailable  = "llm_unavailable"
	CodeParseError   = "llm_parse_error"
)

const (
	maxActions  = 6
	maxEntities = 12
	maxKeyTerms = 10
)

var (
	motionRe   = regexp.MustCompile(`\b(motion|moved)\b`)
	voteRe     = regexp.MustCompile(`\b(vote|voted|unanimous)\b`)
	approvalRe = regexp.MustCompile(`\b(approve|approval|adopt|adoption|authorize|authorization)\b`)
	denialRe   = regexp.MustCompile(`\b(deny|denial)\b`)
	entityRe   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,3}\b`)
	wordRe     = regexp.MustCompile(`[A-Za-z][A-Za-z\-']{2,}`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"were": {}, "with": {}, "will": {},
}

var ignoredEntities = map[string]struct{}{
	"city council": {}, "council": {}, "mayor": {}, "staff": {},
}

// ItemSummarizer produces summary bullets for one agenda item.
type ItemSummarizer interface {
	SummarizeItem(ctx context.Context, title, body string) ([]string, *model.SemanticProvenance, error)
	Provider() string
	Model() string
}

// SummarizeItems fills the per-item digest. Each item gets heuristic actions,
// entities, key terms and a citation, plus model-written bullets. Failures
// are recorded on the item and never stop the batch. When firstOnly is set
// only the first item is summarized. A packet with no agenda items returns a
// CodeNoItems error since there is nothing to record it on.
func SummarizeItems(ctx context.Context, items []model.AnalyzedItem, summarizer ItemSummarizer, firstOnly bool) *model.SummaryError {
	if len(items) == 0 {
		zap.L().Warn("pipeline: no agenda items detected; cannot summarize")
		return &model.SummaryError{Code: CodeNoItems, Message: "No agenda items detected; cannot summarize."}
	}
	n := len(items)
	if firstOnly {
		n = min(n, 1)
	}
	if summarizer == nil || strings.TrimSpace(summarizer.Model()) == "" {
		provider := ""
		if summarizer != nil {
			provider = summarizer.Provider()
		}
		for i := range items[:n] {
			markSummaryError(&items[i], &model.SummaryError{
				Code:     CodeModelMissing,
				Message:  "LLM model is required for summarization (set llm.model in the profile or pass --llm-model).",
				Provider: provider,
			})
		}
		return nil
	}

	for i := range items[:n] {
		item := &items[i]
		title := strings.TrimSpace(item.Title)
		body := strings.TrimSpace(item.BodyText)

		bullets, prov, err := summarizer.SummarizeItem(ctx, title, body)
		if err != nil {
			se := classifySummaryError(err)
			se.Provider, se.Model = summarizer.Provider(), summarizer.Model()
			markSummaryError(item, se)
			zap.L().Warn("pipeline: item summary failed",
				zap.String("item_id", item.ItemID),
				zap.String("code", se.Code),
				zap.Error(err),
			)
			continue
		}

		digest := HeuristicDigest(title, body)
		digest.Summary = bullets
		digest.Provenance = prov
		item.Summary = digest
		item.SummaryError = nil
	}
	return nil
}

// HeuristicDigest extracts actions, entities, key terms and a citation from
// an item without a model.
func HeuristicDigest(title, body string) *model.ItemSummary {
	return &model.ItemSummary{
		Summary:   []string{},
		Actions:   ExtractActions(title, body),
		Entities:  ExtractEntities(title + "\n" + body),
		KeyTerms:  ExtractKeyTerms(title, body),
		Citations: ensureCitation(body, nil),
	}
}

func markSummaryError(item *model.AnalyzedItem, se *model.SummaryError) {
	item.SummaryError = se
	item.Summary = &model.ItemSummary{
		Summary:   []string{},
		Actions:   []string{},
		Entities:  []string{},
		KeyTerms:  []string{},
		Citations: []string{},
	}
}

func classifySummaryError(err error) *model.SummaryError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &model.SummaryError{Code: CodeTimeout, Message: "LLM request timed out.", Retryable: true}
	case errors.Is(err, semantic.ErrUnavailable):
		return &model.SummaryError{Code: CodeUnavailable, Message: "LLM provider is unavailable.", Retryable: true}
	case errors.Is(err, semantic.ErrModelMissing):
		return &model.SummaryError{Code: CodeModelMissing, Message: err.Error()}
	case errors.Is(err, semantic.ErrParse):
		return &model.SummaryError{Code: CodeParseError, Message: "Failed to parse LLM response."}
	default:
		return &model.SummaryError{Code: CodeLLMError, Message: err.Error()}
	}
}

// ExtractActions lists the procedural actions an item mentions.
func ExtractActions(title, body string) []string {
	low := strings.ToLower(title + "\n" + body)
	actions := make([]string, 0, maxActions)
	add := func(cond bool, label string) {
		if cond {
			actions = append(actions, label)
		}
	}
	add(strings.Contains(low, "ordinance") || strings.Contains(low, "public hearing"), "Ordinance / public hearing item")
	add(strings.Contains(low, "resolution"), "Resolution considered")
	add(motionRe.MatchString(low), "Motion discussed")
	add(voteRe.MatchString(low), "Vote recorded")
	add(approvalRe.MatchString(low), "Approval/adoption requested")
	add(denialRe.MatchString(low), "Denial discussed")
	return actions[:min(len(actions), maxActions)]
}

// ExtractEntities returns capitalised phrases, deduplicated ignoring case.
func ExtractEntities(text string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, c := range entityRe.FindAllString(text, -1) {
		c = strings.TrimSpace(c)
		if len(c) < 3 {
			continue
		}
		low := strings.ToLower(c)
		if _, skip := ignoredEntities[low]; skip {
			continue
		}
		if _, dup := seen[low]; dup {
			continue
		}
		seen[low] = struct{}{}
		out = append(out, c)
		if len(out) >= maxEntities {
			break
		}
	}
	return out
}

// ExtractKeyTerms returns the most frequent non-stopwords longer than three
// letters, ties broken alphabetically.
func ExtractKeyTerms(title, body string) []string {
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(title+"\n"+body, -1) {
		w = strings.ToLower(w)
		if _, stop := stopwords[w]; stop || len(w) <= 3 {
			continue
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	return words[:min(len(words), maxKeyTerms)]
}

// ensureCitation keeps the given citations, or falls back to an excerpt of
// the body so every digest has at least one quote.
func ensureCitation(body string, citations []string) []string {
	out := []string{}
	for _, c := range citations {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}
	if fb := FallbackCitation(body); fb != "" {
		out = append(out, fb)
	}
	return out
}
