// Package bus wraps the message-bus client used by the moderation
// pipeline: a durable, partitioned log with two streams, "new posts" and
// "moderation results". Delivery is at-least-once with per-key ordering, so
// consumers must be idempotent on post_id.
package bus

import (
	"context"

	"github.com/safespace-net/safespace/moderation"
)

const (
	TopicNewPosts  = "safespace.posts.new"
	TopicModerated = "safespace.posts.moderated"

	DefaultConsumerGroup = "safespace-moderator"
)

type PostHandler func(ctx context.Context, post *moderation.PostMessage) error

type ResultHandler func(ctx context.Context, result *moderation.ModerationResult) error

// Publisher publishes pipeline messages, keyed by post_id so all messages
// for one post land in the same partition. Implementations must be safe for
// concurrent use; a publish error means "moderation not yet scheduled" and
// must never crash the post-creation critical path.
type Publisher interface {
	PublishPost(ctx context.Context, post *moderation.PostMessage) error
	PublishResult(ctx context.Context, result *moderation.ModerationResult) error
	Close() error
}

// Consumer subscribes to a stream within a consumer group, restarting from
// the last committed offset. The consume loop is infinite until the context
// is canceled; malformed or failed messages are logged and skipped, never
// retried forever.
type Consumer interface {
	ConsumePosts(ctx context.Context, handler PostHandler) error
	ConsumeResults(ctx context.Context, group string, handler ResultHandler) error
}
