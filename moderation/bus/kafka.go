package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/safespace-net/safespace/moderation"
)

// KafkaConfig holds the connection parameters for the Kafka-backed bus.
type KafkaConfig struct {
	Brokers      []string
	PostsTopic   string
	ResultsTopic string
	Group        string
}

func (c *KafkaConfig) setDefaults() {
	if c.PostsTopic == "" {
		c.PostsTopic = TopicNewPosts
	}
	if c.ResultsTopic == "" {
		c.ResultsTopic = TopicModerated
	}
	if c.Group == "" {
		c.Group = DefaultConsumerGroup
	}
}

// KafkaBus is a long-lived client for both streams. Writers are shared and
// safe for concurrent use; readers are created per consume loop so each
// loop owns its consumer-group membership.
type KafkaBus struct {
	cfg           KafkaConfig
	logger        *slog.Logger
	postsWriter   *kafka.Writer
	resultsWriter *kafka.Writer
}

// NewKafkaBus verifies broker reachability before returning. An unreachable
// bus at startup is the one fatal error in the pipeline; the caller should
// exit and let the supervisor restart the process.
func NewKafkaBus(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*KafkaBus, error) {
	cfg.setDefaults()
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka broker unreachable: %w", err)
	}
	conn.Close()

	return &KafkaBus{
		cfg:           cfg,
		logger:        logger.With("component", "kafka"),
		postsWriter:   newWriter(cfg.Brokers, cfg.PostsTopic),
		resultsWriter: newWriter(cfg.Brokers, cfg.ResultsTopic),
	}, nil
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:  kafka.TCP(brokers...),
		Topic: topic,
		// key hashing keeps all messages for one post in one partition
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func (b *KafkaBus) PublishPost(ctx context.Context, post *moderation.PostMessage) error {
	return b.publish(ctx, b.postsWriter, post.PostID, post)
}

func (b *KafkaBus) PublishResult(ctx context.Context, result *moderation.ModerationResult) error {
	return b.publish(ctx, b.resultsWriter, result.PostID, result)
}

func (b *KafkaBus) publish(ctx context.Context, w *kafka.Writer, postID int64, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding bus message: %w", err)
	}
	err = w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(postID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", w.Topic, err)
	}
	return nil
}

func (b *KafkaBus) Close() error {
	return errors.Join(b.postsWriter.Close(), b.resultsWriter.Close())
}

// ConsumePosts pulls new-post messages for the configured consumer group
// and calls the handler for each. Handler errors and malformed payloads are
// logged and the offset committed anyway: a single bad post must never
// stall the consumer group. Returns when the context is canceled.
func (b *KafkaBus) ConsumePosts(ctx context.Context, handler PostHandler) error {
	return consumeJSON(ctx, b.logger, b.readerConfig(b.cfg.PostsTopic, b.cfg.Group), handler)
}

// ConsumeResults subscribes a downstream consumer group (notifications,
// CRUD sync) to the results stream. Consumers dedupe on post_id.
func (b *KafkaBus) ConsumeResults(ctx context.Context, group string, handler ResultHandler) error {
	if group == "" {
		group = b.cfg.Group + "-results"
	}
	return consumeJSON(ctx, b.logger, b.readerConfig(b.cfg.ResultsTopic, group), handler)
}

func (b *KafkaBus) readerConfig(topic, group string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     group,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}
}

func consumeJSON[T any](ctx context.Context, logger *slog.Logger, cfg kafka.ReaderConfig, handler func(context.Context, *T) error) error {
	reader := kafka.NewReader(cfg)
	defer reader.Close()

	logger.Info("consumer started", "topic", cfg.Topic, "group", cfg.GroupID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetching from %s: %w", cfg.Topic, err)
		}

		var payload T
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("skipping malformed bus message", "topic", cfg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		} else if err := handler(ctx, &payload); err != nil {
			logger.Error("message handler failed", "topic", cfg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}

		// at-least-once: commit after handling; a crash before this point
		// redelivers the message
		if err := reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("failed to commit offset", "topic", cfg.Topic, "offset", msg.Offset, "err", err)
		}
	}
}

var _ Publisher = (*KafkaBus)(nil)
var _ Consumer = (*KafkaBus)(nil)
