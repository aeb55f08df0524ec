package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/councilsense/minutes-cli/internal/config"
	"github.com/councilsense/minutes-cli/internal/pipeline"
	"github.com/councilsense/minutes-cli/internal/profile"
	"github.com/councilsense/minutes-cli/internal/resilience"
	"github.com/councilsense/minutes-cli/internal/semantic"
	"github.com/councilsense/minutes-cli/internal/store"
	anthropicpkg "github.com/councilsense/minutes-cli/pkg/anthropic"
)

// analysisEnv holds the store, the optional model backend and the pipeline
// needed by the analyze command.
type analysisEnv struct {
	Store    *store.SQLiteStore
	LLM      *semantic.LLM // nil when no model is configured
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *analysisEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the meeting store, preferring an explicit directory over
// the configured one.
func initStore(ctx context.Context, dir string) (*store.SQLiteStore, error) {
	if dir == "" {
		dir = cfg.Store.Dir
	}
	st, err := store.Open(ctx, dir)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// llmOptions are the command-line overrides for the model backend.
type llmOptions struct {
	Model    string
	Semantic bool
}

// initAnalysis opens the store and builds the pipeline. The model backend is
// created only when a model name resolves from the flag, the profile or the
// config; without one the semantic pass is skipped and item summaries
// record a missing-model error.
func initAnalysis(ctx context.Context, storeDir string, prof *profile.Profile, opts llmOptions) (*analysisEnv, error) {
	if err := cfg.Validate("analyze"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, storeDir)
	if err != nil {
		return nil, err
	}

	llmCfg := resolveLLMConfig(cfg, prof, opts.Model)
	var (
		llm        *semantic.LLM
		classifier semantic.Classifier
		summarizer pipeline.ItemSummarizer
	)
	if llmCfg.Model != "" {
		if opts.Semantic && cfg.Anthropic.Key == "" {
			zap.L().Warn("MINUTES_ANTHROPIC_KEY not set, model calls will fail")
		}
		client := anthropicpkg.NewClient(cfg.Anthropic.Key, llmCfg.Endpoint)
		llm = semantic.NewLLM(client, llmCfg, st)
		classifier, summarizer = llm, llm
		zap.L().Info("model backend enabled",
			zap.String("provider", llm.Provider()),
			zap.String("model", llm.Model()),
		)
	} else if opts.Semantic {
		zap.L().Warn("semantic pass requested but no model configured, skipping")
	}

	return &analysisEnv{
		Store:    st,
		LLM:      llm,
		Pipeline: pipeline.New(classifier, summarizer, cfg.Semantic.Concurrency),
	}, nil
}

// resolveLLMConfig merges model settings: the flag wins over the profile's
// llm block, which wins over the config file and environment.
func resolveLLMConfig(c *config.Config, prof *profile.Profile, modelFlag string) semantic.Config {
	out := semantic.Config{
		Endpoint:          c.Anthropic.BaseURL,
		Model:             c.Anthropic.Model,
		MaxTokens:         c.Anthropic.MaxTokens,
		Timeout:           time.Duration(c.Anthropic.TimeoutSecs) * time.Second,
		RequestsPerSecond: c.Semantic.RequestsPerSecond,
		Retry: resilience.FromRetryConfig(
			c.Resilience.MaxAttempts, c.Resilience.InitialBackoffMs, c.Resilience.MaxBackoffMs),
		Breaker: resilience.FromCircuitConfig(
			c.Resilience.FailureThreshold, c.Resilience.ResetTimeoutSecs),
	}
	if prof != nil && prof.LLM != nil {
		if m := strings.TrimSpace(prof.LLM.Model); m != "" {
			out.Model = m
		}
		if ep := strings.TrimSpace(prof.LLM.Endpoint); ep != "" {
			out.Endpoint = ep
		}
		if prof.LLM.TimeoutS > 0 {
			out.Timeout = time.Duration(prof.LLM.TimeoutS * float64(time.Second))
		}
	}
	if m := strings.TrimSpace(modelFlag); m != "" {
		out.Model = m
	}
	out.Model = strings.TrimSpace(out.Model)
	return out
}
