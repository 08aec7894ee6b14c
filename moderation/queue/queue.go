// Package queue is the producer facade the post-creation flow uses to
// schedule a post for moderation. It is the only pipeline touchpoint
// visible to the CRUD layer.
package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/safespace-net/safespace/moderation"
	"github.com/safespace-net/safespace/moderation/bus"
)

const defaultPublishTimeout = 5 * time.Second

// Queue enqueues posts for moderation. Safe for concurrent use from many
// request handlers; the only shared state is the thread-safe publish
// client.
type Queue struct {
	pub     bus.Publisher
	enabled bool
	timeout time.Duration
	logger  *slog.Logger
}

func New(pub bus.Publisher, enabled bool, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		pub:     pub,
		enabled: enabled,
		timeout: defaultPublishTimeout,
		logger:  logger.With("component", "queue"),
	}
}

// EnqueuePost schedules a post for moderation. Called synchronously on the
// post-creation path, so it must never block indefinitely and never fail
// post creation: bus errors are logged and reported as false ("moderation
// deferred"), not raised. When the pipeline is disabled this is a no-op.
func (q *Queue) EnqueuePost(ctx context.Context, postID, authorUID int64, authorUsername, content string, mediaPaths []string, visibility string) bool {
	if !q.enabled {
		return true
	}

	post := moderation.PostMessage{
		PostID:         postID,
		AuthorUID:      authorUID,
		AuthorUsername: authorUsername,
		Content:        content,
		MediaPaths:     mediaPaths,
		Visibility:     visibility,
		CreatedAt:      time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := q.pub.PublishPost(ctx, &post); err != nil {
		enqueueDeferred.Inc()
		q.logger.Error("moderation deferred, failed to enqueue post", "postID", postID, "err", err)
		return false
	}
	q.logger.Debug("post enqueued for moderation", "postID", postID)
	return true
}
