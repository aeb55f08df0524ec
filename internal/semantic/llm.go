package semantic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/resilience"
	"github.com/councilsense/minutes-cli/pkg/anthropic"
)

const (
	// ProviderAnthropic is the only provider this build ships.
	ProviderAnthropic = "anthropic"
	// DefaultEndpoint is recorded when no base URL override is configured.
	DefaultEndpoint = "https://api.anthropic.com"

	cacheKindRelevance = RelevancePromptID
	cacheKindSummary   = "summarize_agenda_item_bullets"

	defaultMaxTokens = 1024
)

// Config configures the model-backed classifier and summarizer.
type Config struct {
	Endpoint  string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	// RequestsPerSecond throttles calls; 0 means unlimited.
	RequestsPerSecond float64
	Retry             resilience.RetryConfig
	Breaker           resilience.CircuitBreakerConfig
}

// LLM implements Classifier and the item summarizer on the Anthropic
// messages API, with response caching and guarded calls.
type LLM struct {
	client anthropic.Client
	cfg    Config
	cache  Cache
	guard  *resilience.Guard
	now    func() time.Time
}

// NewLLM builds an LLM. cache may be nil.
func NewLLM(client anthropic.Client, cfg Config, cache Cache) *LLM {
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &LLM{
		client: client,
		cfg:    cfg,
		cache:  cache,
		guard:  resilience.NewGuard(ProviderAnthropic, cfg.RequestsPerSecond, cfg.Timeout, cfg.Retry, cfg.Breaker),
		now:    time.Now,
	}
}

// Provider names the model backend.
func (l *LLM) Provider() string { return ProviderAnthropic }

// Model is the configured model name.
func (l *LLM) Model() string { return l.cfg.Model }

type cachedVerdict struct {
	Result  map[string]any `json:"result"`
	RawText string         `json:"raw_text"`
}

type cachedSummary struct {
	Bullets []string `json:"bullets"`
	RawText string   `json:"raw_text"`
}

// Classify judges one candidate. A reply without a usable JSON object is an
// ErrParse failure, which callers treat as "no verdict".
func (l *LLM) Classify(ctx context.Context, req Request) (*model.SemanticOverride, error) {
	if l.cfg.Model == "" {
		return nil, ErrModelMissing
	}

	key, err := CacheKey(map[string]any{
		"kind":                 cacheKindRelevance,
		"category_id":          req.CategoryID,
		"category_description": req.CategoryDescription,
		"category_keywords":    nonNil(req.CategoryKeywords),
		"candidate_kind":       string(req.CandidateKind),
		"candidate_title":      req.CandidateTitle,
		"candidate_text":       req.CandidateText,
		"evidence_snippets":    nonNil(req.EvidenceSnippets),
		"prompt_id":            RelevancePromptID,
		"prompt_version":       RelevancePromptVersion,
		"model":                l.modelIdentity(),
	})
	if err != nil {
		return nil, err
	}

	var cached cachedVerdict
	hit := l.lookup(ctx, key, &cached) && cached.Result != nil
	if !hit {
		raw, err := l.complete(ctx, RelevancePrompt(req), cacheKindRelevance)
		if err != nil {
			return nil, err
		}
		obj, ok := FirstJSONObject(raw)
		if !ok {
			return nil, eris.Wrapf(ErrParse, "relevance reply for %s/%s", req.CategoryID, req.CandidateTitle)
		}
		cached = cachedVerdict{Result: obj, RawText: raw}
		l.store(ctx, key, cacheKindRelevance, RelevancePromptID, RelevancePromptVersion, cached)
	}

	v := ParseVerdict(cached.Result)
	return &model.SemanticOverride{
		Relevant:       v.Relevant,
		Confidence:     v.Confidence,
		Why:            v.Why,
		EvidenceQuotes: v.Quotes,
		Provenance:     l.provenance(RelevancePromptID, RelevancePromptVersion, hit, key),
	}, nil
}

// SummarizeItem writes summary bullets for an agenda item.
func (l *LLM) SummarizeItem(ctx context.Context, title, body string) ([]string, *model.SemanticProvenance, error) {
	if l.cfg.Model == "" {
		return nil, nil, ErrModelMissing
	}
	body = TruncateBody(body)

	key, err := CacheKey(map[string]any{
		"kind":           cacheKindSummary,
		"title":          title,
		"body_text":      body,
		"prompt_id":      SummaryPromptID,
		"prompt_version": SummaryPromptVersion,
		"model":          l.modelIdentity(),
	})
	if err != nil {
		return nil, nil, err
	}

	var cached cachedSummary
	hit := l.lookup(ctx, key, &cached) && len(cached.Bullets) > 0
	if !hit {
		raw, err := l.complete(ctx, SummaryPrompt(title, body), cacheKindSummary)
		if err != nil {
			return nil, nil, err
		}
		bullets := ToBullets(raw)
		if len(bullets) == 0 {
			return nil, nil, eris.Wrapf(ErrParse, "empty summary for %q", title)
		}
		cached = cachedSummary{Bullets: bullets, RawText: raw}
		l.store(ctx, key, cacheKindSummary, SummaryPromptID, SummaryPromptVersion, cached)
	}
	return cached.Bullets, l.provenance(SummaryPromptID, SummaryPromptVersion, hit, key), nil
}

func (l *LLM) complete(ctx context.Context, prompt, kind string) (string, error) {
	temp := 0.0
	resp, err := resilience.Call(ctx, l.guard, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return l.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       l.cfg.Model,
			MaxTokens:   l.cfg.MaxTokens,
			Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
			Temperature: &temp,
		})
	})
	if err != nil {
		if eris.Is(err, resilience.ErrCircuitOpen) {
			return "", eris.Wrap(ErrUnavailable, err.Error())
		}
		return "", eris.Wrapf(err, "semantic: %s call", kind)
	}
	resp.Usage.LogCost(l.cfg.Model, kind)
	return resp.Text(), nil
}

func (l *LLM) lookup(ctx context.Context, key string, into any) bool {
	if l.cache == nil {
		return false
	}
	entry, err := l.cache.GetLLMCache(ctx, key)
	if err != nil {
		zap.L().Warn("semantic: cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if entry == nil {
		return false
	}
	if err := json.Unmarshal(entry.JSON, into); err != nil {
		zap.L().Warn("semantic: cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (l *LLM) store(ctx context.Context, key, kind, promptID string, promptVersion int, obj any) {
	if l.cache == nil {
		return
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return
	}
	err = l.cache.PutLLMCache(ctx, model.LLMCacheEntry{
		Key:           key,
		Kind:          kind,
		JSON:          data,
		CreatedAt:     l.now().UTC(),
		Provider:      ProviderAnthropic,
		Endpoint:      l.cfg.Endpoint,
		Model:         l.cfg.Model,
		PromptID:      promptID,
		PromptVersion: promptVersion,
	})
	if err != nil {
		zap.L().Warn("semantic: cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (l *LLM) modelIdentity() map[string]any {
	return map[string]any{
		"provider": ProviderAnthropic,
		"endpoint": l.cfg.Endpoint,
		"model":    l.cfg.Model,
	}
}

func (l *LLM) provenance(promptID string, version int, hit bool, key string) *model.SemanticProvenance {
	return &model.SemanticProvenance{
		GeneratedAt:   l.now().UTC().Format(time.RFC3339),
		Provider:      ProviderAnthropic,
		Model:         l.cfg.Model,
		PromptID:      promptID,
		PromptVersion: version,
		CacheHit:      hit,
		CacheKey:      key,
	}
}

// CacheKey hashes the canonical JSON form of v: object keys sorted, no
// insignificant whitespace, no HTML escaping.
func CacheKey(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", eris.Wrap(err, "semantic: encode cache key")
	}
	sum := sha256.Sum256(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:]), nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
