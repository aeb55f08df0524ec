// Package semantic asks a language model whether prefilter candidates are
// truly relevant to a rule, and writes short item summaries. Every answer is
// cached so reruns over the same packet cost nothing.
package semantic

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/councilsense/minutes-cli/internal/model"
)

var (
	// ErrUnavailable means no model backend is configured or reachable.
	ErrUnavailable = eris.New("semantic: model backend unavailable")
	// ErrModelMissing means no model name was configured.
	ErrModelMissing = eris.New("semantic: no model configured")
	// ErrParse means the model reply held no usable JSON object.
	ErrParse = eris.New("semantic: unparseable model output")
)

// CandidateKind says what sort of packet segment is being judged.
type CandidateKind string

const (
	KindAgendaItem CandidateKind = "agenda_item"
	KindAttachment CandidateKind = "attachment"
)

// Request describes one (rule, candidate) pair to judge.
type Request struct {
	CategoryID          string
	CategoryDescription string
	CategoryKeywords    []string
	CandidateKind       CandidateKind
	CandidateTitle      string
	CandidateText       string
	EvidenceSnippets    []string
}

// Classifier judges candidate relevance.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*model.SemanticOverride, error)
}

// Noop is the classifier used when no model is configured.
type Noop struct{}

// Classify always fails with ErrUnavailable.
func (Noop) Classify(context.Context, Request) (*model.SemanticOverride, error) {
	return nil, ErrUnavailable
}

// Cache stores model responses by key.
type Cache interface {
	GetLLMCache(ctx context.Context, key string) (*model.LLMCacheEntry, error)
	PutLLMCache(ctx context.Context, entry model.LLMCacheEntry) error
}
