package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/safespace-net/safespace/moderation"
)

// ErrBusUnavailable simulates a broker outage on the in-memory bus.
var ErrBusUnavailable = errors.New("bus unavailable")

// MemBus is an in-memory Publisher/Consumer for tests and local
// development. Published results are retained for inspection.
type MemBus struct {
	mu       sync.Mutex
	posts    chan *moderation.PostMessage
	results  []*moderation.ModerationResult
	failing  bool
	consumed int
}

func NewMemBus() *MemBus {
	return &MemBus{
		posts: make(chan *moderation.PostMessage, 128),
	}
}

// SetFailing makes all subsequent publishes fail, simulating an unreachable
// broker.
func (b *MemBus) SetFailing(failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = failing
}

func (b *MemBus) PublishPost(ctx context.Context, post *moderation.PostMessage) error {
	b.mu.Lock()
	failing := b.failing
	b.mu.Unlock()
	if failing {
		return ErrBusUnavailable
	}
	select {
	case b.posts <- post:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemBus) PublishResult(ctx context.Context, result *moderation.ModerationResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return ErrBusUnavailable
	}
	b.results = append(b.results, result)
	return nil
}

func (b *MemBus) Close() error {
	return nil
}

func (b *MemBus) ConsumePosts(ctx context.Context, handler PostHandler) error {
	for {
		select {
		case post := <-b.posts:
			// handler errors are swallowed like the Kafka loop does
			_ = handler(ctx, post)
			b.mu.Lock()
			b.consumed++
			b.mu.Unlock()
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *MemBus) ConsumeResults(ctx context.Context, group string, handler ResultHandler) error {
	for _, r := range b.Results() {
		if err := handler(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Results returns a copy of everything published to the results stream.
func (b *MemBus) Results() []*moderation.ModerationResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*moderation.ModerationResult, len(b.results))
	copy(out, b.results)
	return out
}

// Consumed reports how many post messages the consume loop has handled.
func (b *MemBus) Consumed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumed
}

var _ Publisher = (*MemBus)(nil)
var _ Consumer = (*MemBus)(nil)
