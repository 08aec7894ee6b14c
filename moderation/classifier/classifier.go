// Package classifier provides hate-speech classification for post content.
//
// Two implementations exist behind one interface: a remote LLM provider
// (DeepSeek chat completions) and a deterministic local keyword fallback.
// The composite returned by WithFallback selects between them, so the
// pipeline always gets an analysis even when the provider is down.
package classifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/safespace-net/safespace/moderation"
)

// ErrProviderUnavailable indicates a capacity, billing, or rate-limit
// rejection from the remote provider. Callers recover by switching to the
// fallback classifier for that message only.
var ErrProviderUnavailable = errors.New("classifier provider unavailable")

// ModelFallback is the model attribution recorded when the local keyword
// classifier produced the analysis (degraded mode).
const ModelFallback = "fallback"

// Classification wraps an analysis with provider attribution and token
// accounting for the audit report.
type Classification struct {
	Analysis         moderation.Analysis
	ModelUsed        string
	PromptTokens     int
	CompletionTokens int
}

// Classifier analyzes text for hate speech. Implementations must return a
// usable classification or an error; they must never panic on malformed
// provider output.
type Classifier interface {
	Classify(ctx context.Context, content, language string) (*Classification, error)
}

// Suggester produces a rewritten version of problematic content on demand.
// Not part of automatic pipeline processing.
type Suggester interface {
	SuggestRevision(ctx context.Context, content, language string) (string, error)
}

type fallbackSelector struct {
	primary  Classifier
	fallback Classifier
	logger   *slog.Logger
}

// WithFallback returns a classifier that tries primary first and degrades
// to fallback on any primary error (timeout, capacity rejection, transport
// failure). The degraded result keeps the fallback's own model attribution.
func WithFallback(primary, fallback Classifier, logger *slog.Logger) Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallbackSelector{primary: primary, fallback: fallback, logger: logger}
}

func (s *fallbackSelector) Classify(ctx context.Context, content, language string) (*Classification, error) {
	out, err := s.primary.Classify(ctx, content, language)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, ErrProviderUnavailable) {
		s.logger.Warn("classifier provider unavailable, using fallback", "err", err)
	} else {
		s.logger.Warn("classifier provider failed, using fallback", "err", err)
	}
	return s.fallback.Classify(ctx, content, language)
}
