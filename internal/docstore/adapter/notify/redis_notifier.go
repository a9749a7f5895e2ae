package notify

import (
	"context"
	"fmt"
	"sync"

	"gym-assistant/internal/docstore/domain/repository"
	"gym-assistant/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "docstore:changed:"

// RedisNotifier delivers change signals across processes with Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisNotifier creates a notifier on client.
func NewRedisNotifier(client *redis.Client, log logger.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: logger.OrNop(log).WithComponent("redis_notifier"),
	}
}

// ChannelName returns the pub/sub channel for collection.
func ChannelName(collection string) string {
	return channelPrefix + collection
}

// Notify publishes a change of collection.
func (n *RedisNotifier) Notify(ctx context.Context, collection string) error {
	if err := n.client.Publish(ctx, ChannelName(collection), "changed").Err(); err != nil {
		return fmt.Errorf("publish change for %s: %w", collection, err)
	}
	return nil
}

// Listen subscribes to collection's channel and calls fn for each message
// until the returned function is called.
func (n *RedisNotifier) Listen(collection string, fn func()) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := n.client.Subscribe(ctx, ChannelName(collection))

	// Wait for the subscription confirmation so no change is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", ChannelName(collection), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				fn()
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				n.logger.Warnf("closing subscription for %s: %v", collection, err)
			}
		})
	}
	return stop, nil
}

var _ repository.ChangeNotifier = (*RedisNotifier)(nil)
