package semantic

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/councilsense/minutes-cli/internal/model"
)

// Prompt template identities, recorded in provenance and cache keys.
const (
	RelevancePromptID      = "pass_b.semantic_relevance"
	RelevancePromptVersion = 1
	SummaryPromptID        = "summarize_agenda_item.bullets"
	SummaryPromptVersion   = 1

	maxQuotes         = 3
	maxSnippets       = 3
	maxBullets        = 12
	maxSummaryBody    = 12000
	summaryTruncation = "\n[...truncated...]"
)

var (
	bulletPrefixRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+\.|\d+\))\s+`)
	fenceRe        = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	spaceRunRe     = regexp.MustCompile(`\s+`)
)

// RelevancePrompt renders the strict-JSON relevance prompt.
func RelevancePrompt(req Request) string {
	var kws []string
	for _, k := range req.CategoryKeywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	keywords := strings.Join(kws, ", ")
	if keywords == "" {
		keywords = "(none)"
	}

	var ev strings.Builder
	for _, s := range req.EvidenceSnippets {
		if s = strings.TrimSpace(s); s != "" {
			fmt.Fprintf(&ev, "- %s\n", s)
		}
	}
	if ev.Len() == 0 {
		ev.WriteString("- (none)\n")
	}

	var b strings.Builder
	b.WriteString("You are a careful classifier for a resident's interest categories.\n")
	b.WriteString("Decide whether the CANDIDATE is truly relevant to the CATEGORY.\n")
	b.WriteString("Be strict about false positives (example: 'laundry room' is NOT a 'laundromat').\n\n")
	b.WriteString("Return ONLY valid JSON with this schema (no extra keys):\n")
	b.WriteString(`{"relevant": true|false, "confidence": 0.0-1.0, "why": "...", "evidence": ["direct quote 1", "direct quote 2"]}` + "\n")
	b.WriteString("Evidence must be 1-3 short direct quotes copied from the candidate text.\n\n")
	fmt.Fprintf(&b, "CATEGORY_ID: %s\n", req.CategoryID)
	fmt.Fprintf(&b, "CATEGORY_DESCRIPTION: %s\n", strings.TrimSpace(req.CategoryDescription))
	fmt.Fprintf(&b, "CATEGORY_KEYWORDS: %s\n\n", keywords)
	fmt.Fprintf(&b, "CANDIDATE_KIND: %s\n", req.CandidateKind)
	fmt.Fprintf(&b, "CANDIDATE_TITLE: %s\n\n", strings.TrimSpace(req.CandidateTitle))
	b.WriteString("EVIDENCE_SNIPPETS_FROM_PREFILTER:\n")
	b.WriteString(ev.String())
	b.WriteString("\nCANDIDATE_TEXT:\n")
	b.WriteString(strings.TrimSpace(req.CandidateText))
	b.WriteString("\n")
	return b.String()
}

// SummaryPrompt renders the bullet-summary prompt for one agenda item.
func SummaryPrompt(title, body string) string {
	return "You are helping summarize a city council agenda item for a resident.\n" +
		"Return 3-8 concise bullet points, each on its own line.\n" +
		"No preamble, no numbering required.\n\n" +
		"Title: " + strings.TrimSpace(title) + "\n\n" +
		"Body:\n" + strings.TrimSpace(body) + "\n"
}

// TruncateBody bounds the item body sent to the model.
func TruncateBody(body string) string {
	if utf8.RuneCountInString(body) <= maxSummaryBody {
		return body
	}
	return string([]rune(body)[:maxSummaryBody]) + summaryTruncation
}

// ToBullets splits a model reply into bullet lines with list markers removed.
// A reply with no usable lines becomes a single compacted bullet.
func ToBullets(text string) []string {
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletPrefixRe.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
		if len(bullets) == maxBullets {
			break
		}
	}
	if len(bullets) > 0 {
		return bullets
	}
	if compact := strings.TrimSpace(spaceRunRe.ReplaceAllString(text, " ")); compact != "" {
		return []string{compact}
	}
	return nil
}

// FirstJSONObject extracts the first JSON object from a model reply,
// tolerating code fences and surrounding prose.
func FirstJSONObject(text string) (map[string]any, bool) {
	s := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Verdict is the normalized content of a relevance reply.
type Verdict struct {
	Relevant   *bool
	Confidence float64
	Why        string
	Quotes     []string
}

// ParseVerdict normalizes a decoded relevance reply: confidence is clamped
// to [0,1] (non-numbers become 0), why gets a default, quotes are trimmed and
// capped at three. Relevant stays nil when the reply has no boolean
// "relevant" field.
func ParseVerdict(obj map[string]any) Verdict {
	var v Verdict
	if rel, ok := obj["relevant"].(bool); ok {
		v.Relevant = model.BoolPtr(rel)
	}
	v.Confidence = normalizeConfidence(obj["confidence"])

	if why, ok := obj["why"].(string); ok {
		v.Why = strings.TrimSpace(why)
	}
	if v.Why == "" {
		if v.Relevant != nil && *v.Relevant {
			v.Why = "Semantically relevant"
		} else {
			v.Why = "Not semantically relevant"
		}
	}

	quotes, _ := obj["evidence"].([]any)
	for _, q := range quotes {
		s, ok := q.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		v.Quotes = append(v.Quotes, strings.TrimSpace(s))
		if len(v.Quotes) == maxQuotes {
			break
		}
	}
	return v
}

func normalizeConfidence(raw any) float64 {
	var f float64
	switch n := raw.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
