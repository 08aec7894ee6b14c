// Package worker runs the moderation orchestration loop: consume new-post
// messages, classify, decide, persist an audit report, republish the
// outcome.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/safespace-net/safespace/moderation"
	"github.com/safespace-net/safespace/moderation/bus"
	"github.com/safespace-net/safespace/moderation/classifier"
	"github.com/safespace-net/safespace/moderation/reportstore"
)

// Worker processes one message at a time: classification, decision, and
// the store-then-publish side effects complete (or are logged as failed)
// before the next message is pulled. Horizontal throughput comes from
// running more worker processes in the same consumer group; the bus
// assigns disjoint partitions, so no extra coordination is needed here.
type Worker struct {
	Consumer   bus.Consumer
	Publisher  bus.Publisher
	Classifier classifier.Classifier
	Reports    reportstore.ReportStore
	Policy     moderation.Policy
	Language   string
	Logger     *slog.Logger

	processed atomic.Int64
	errored   atomic.Int64
	startedAt time.Time
}

type Config struct {
	Consumer   bus.Consumer
	Publisher  bus.Publisher
	Classifier classifier.Classifier
	Reports    reportstore.ReportStore
	Policy     moderation.Policy
	Language   string
	Logger     *slog.Logger
}

func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	language := cfg.Language
	if language == "" {
		language = classifier.DefaultLanguage
	}
	return &Worker{
		Consumer:   cfg.Consumer,
		Publisher:  cfg.Publisher,
		Classifier: cfg.Classifier,
		Reports:    cfg.Reports,
		Policy:     cfg.Policy,
		Language:   language,
		Logger:     logger.With("component", "worker"),
	}
}

// Run consumes until the context is canceled, then logs run statistics.
func (w *Worker) Run(ctx context.Context) error {
	w.startedAt = time.Now().UTC()
	w.Logger.Info("moderation worker starting", "language", w.Language)

	err := w.Consumer.ConsumePosts(ctx, w.ProcessPost)

	stats := w.Stats()
	w.Logger.Info("moderation worker stopped",
		"runtime", time.Since(w.startedAt).String(),
		"processed", stats.Processed,
		"errored", stats.Errored,
	)
	return err
}

// ProcessPost handles a single message through the pipeline state machine:
// received, classifying, decided, stored, published. Classification never
// fails (it degrades to the fallback); any other step failure is logged and
// the loop continues, so a single bad post cannot stall the consumer
// group.
func (w *Worker) ProcessPost(ctx context.Context, post *moderation.PostMessage) error {
	receivedAt := time.Now().UTC()
	postsReceived.Inc()
	logger := w.Logger.With("postID", post.PostID, "authorUID", post.AuthorUID)

	// recover panics from classification or store plumbing, like an HTTP server would
	defer func() {
		if r := recover(); r != nil {
			logger.Error("post processing exception", "err", r)
			w.errored.Add(1)
			postsErrored.Inc()
		}
	}()

	classifyStart := time.Now()
	cls, err := w.Classifier.Classify(ctx, post.Content, w.Language)
	classifyDuration.Observe(time.Since(classifyStart).Seconds())
	if err != nil {
		// even the local fallback failed; skip this message
		logger.Error("classification failed", "err", err)
		w.errored.Add(1)
		postsErrored.Inc()
		return err
	}

	result := Evaluate(w.Policy, post, cls)
	processedAt := time.Now().UTC()

	report := &moderation.ModerationReport{
		ReportID:         uuid.NewString(),
		Post:             *post,
		Result:           *result,
		ModelUsed:        cls.ModelUsed,
		PromptTokens:     cls.PromptTokens,
		CompletionTokens: cls.CompletionTokens,
		ReceivedAt:       receivedAt,
		ProcessedAt:      processedAt,
		ProcessingTimeMs: processedAt.Sub(receivedAt).Milliseconds(),
	}

	failed := false

	// store before publish, so report writes for one post are never
	// reordered relative to its published result
	path, err := w.Reports.Put(ctx, report)
	if err != nil {
		// the result is still published below; the audit trail for this
		// post is incomplete, which is an operational gap to monitor
		logger.Error("failed to store moderation report", "reportID", report.ReportID, "err", err)
		reportStoreFailures.Inc()
		failed = true
	}

	if err := w.Publisher.PublishResult(ctx, result); err != nil {
		logger.Error("failed to publish moderation result", "err", err)
		failed = true
	}

	if failed {
		w.errored.Add(1)
		postsErrored.Inc()
	} else {
		w.processed.Add(1)
		postsProcessed.Inc()
	}
	resultStatus.WithLabelValues(string(result.Status)).Inc()

	logger.Info("post moderated",
		"status", result.Status,
		"confidence", result.ConfidenceScore,
		"categories", result.Categories,
		"review", result.RequiresHumanReview,
		"model", cls.ModelUsed,
		"durationMs", report.ProcessingTimeMs,
		"report", path,
	)
	return nil
}

// Evaluate turns a classification into a moderation result under the given
// policy. Shared with the synchronous pre-submission check, which runs the
// same decision without storing a report.
func Evaluate(policy moderation.Policy, post *moderation.PostMessage, cls *classifier.Classification) *moderation.ModerationResult {
	status, review := policy.Decide(&cls.Analysis)
	result := &moderation.ModerationResult{
		PostID:              post.PostID,
		AuthorUID:           post.AuthorUID,
		OriginalContent:     post.Content,
		Analysis:            cls.Analysis,
		Status:              status,
		ModeratedAt:         time.Now().UTC(),
		RequiresHumanReview: review,
	}
	if action := moderation.AutoAction(status); action != "" {
		result.AutoActionTaken = &action
	}
	return result
}

// Stats is a snapshot of the run counters, for operational visibility.
type Stats struct {
	Processed int64
	Errored   int64
	StartedAt time.Time
}

func (w *Worker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Errored:   w.errored.Load(),
		StartedAt: w.startedAt,
	}
}
