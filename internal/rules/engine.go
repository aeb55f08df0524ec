// Package rules evaluates interest rules against packet text.
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/councilsense/minutes-cli/internal/model"
)

// minSnippetHalf is the smallest context kept on each side of a match.
const minSnippetHalf = 20

var wsRunRe = regexp.MustCompile(`\s{2,}`)

// Evaluate runs one rule over every source in order and returns its hits and
// bounded evidence. It never fails: an unsupported rule type produces a
// non-alerting result with Error set.
func Evaluate(rule model.Rule, sources []model.Source, cfg model.EvidenceConfig) model.RuleResult {
	res := model.RuleResult{
		RuleID:      rule.ID,
		Description: rule.Description,
		Type:        rule.Type,
		Enabled:     rule.IsEnabled(),
		Evidence:    []model.Evidence{},
	}
	if !res.Enabled {
		return res
	}
	res.MinHits = rule.Threshold()

	var matcher func(folded string, start, end int) bool
	switch rule.Type {
	case model.RuleKeywordAny:
		matcher = func(string, int, int) bool { return true }
	case model.RuleKeywordWithContext:
		window := rule.Window()
		res.WindowChars = window
		ctxKeywords := foldAll(rule.ContextKeywords)
		matcher = func(folded string, start, end int) bool {
			w := folded[max(0, start-window):min(len(folded), end+window)]
			for _, ck := range ctxKeywords {
				if strings.Contains(w, ck) {
					return true
				}
			}
			return false
		}
	default:
		res.Error = fmt.Sprintf("Unknown rule type: %s", rule.Type)
		return res
	}

	cfg = cfg.WithDefaults()
	keywords := foldAll(rule.Keywords)
	seen := make(map[model.SpanKey]struct{})

	for _, src := range sources {
		folded := FoldASCII(src.Text)
		for _, kw := range keywords {
			for _, span := range FindAll(folded, kw) {
				if !matcher(folded, span[0], span[1]) {
					continue
				}
				res.Hits++
				if len(res.Evidence) >= cfg.MaxSnippetsPerRule {
					continue
				}
				ev := model.Located(src.Name, span[0], span[1], Snippet(src.Text, span[0], span[1], cfg.SnippetChars))
				if _, dup := seen[ev.Span()]; dup {
					continue
				}
				seen[ev.Span()] = struct{}{}
				res.Evidence = append(res.Evidence, ev)
			}
		}
	}

	res.Alert = res.Hits >= res.MinHits
	return res
}

// EvaluateAll evaluates each rule, preserving rule order.
func EvaluateAll(rules []model.Rule, sources []model.Source, cfg model.EvidenceConfig) []model.RuleResult {
	out := make([]model.RuleResult, 0, len(rules))
	for _, r := range rules {
		out = append(out, Evaluate(r, sources, cfg))
	}
	return out
}

// FindAll returns every, possibly overlapping, [start,end) occurrence of
// needle in haystack. Both are expected to be folded already.
func FindAll(haystack, needle string) [][2]int {
	if needle == "" {
		return nil
	}
	var spans [][2]int
	for from := 0; from <= len(haystack)-len(needle); {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			break
		}
		start := from + idx
		spans = append(spans, [2]int{start, start + len(needle)})
		from = start + 1
	}
	return spans
}

// FoldASCII lowercases ASCII letters only, so byte offsets in the result line
// up with the input.
func FoldASCII(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c + ('a' - 'A')
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}

func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			continue
		}
		out = append(out, FoldASCII(w))
	}
	return out
}

// Snippet returns the text around [start,end) with at least
// max(20, snippetChars/2) bytes of context per side, newlines flattened and
// whitespace runs collapsed.
func Snippet(text string, start, end, snippetChars int) string {
	half := max(minSnippetHalf, snippetChars/2)
	s := runeFloor(text, max(0, start-half))
	e := runeCeil(text, min(len(text), end+half))
	snip := strings.ReplaceAll(text[s:e], "\n", " ")
	return strings.TrimSpace(wsRunRe.ReplaceAllString(snip, " "))
}

func runeFloor(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func runeCeil(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
