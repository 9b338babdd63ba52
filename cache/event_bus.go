package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"ArtistHub/core/release"
	"ArtistHub/logger"

	"github.com/go-redis/redis/v8"
)

const (
	userReleaseChannel = "releases:user:%d" // Pub/Sub: release.Event JSON
	takedownQueueKey   = "takedown:queue"   // List: LPUSH new, RPOP oldest
)

// UserChannel names the pub/sub channel carrying one user's release events.
func UserChannel(userID int64) string {
	return fmt.Sprintf(userReleaseChannel, userID)
}

// EventBus publishes release events over Redis and queues takedown requests
// for the distribution desk.
type EventBus struct {
	client *redis.Client
}

// NewEventBus creates an EventBus on client.
func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

// Publish implements release.EventPublisher.
func (b *EventBus) Publish(ctx context.Context, event release.Event) error {
	if b.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Publish(ctx, UserChannel(event.UserID), data)
	if event.Type == release.EventTakedownRequested {
		pipe.LPush(ctx, takedownQueueKey, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Listen streams userID's events until ctx is cancelled, then closes the
// returned channel. Undecodable messages are skipped.
func (b *EventBus) Listen(ctx context.Context, userID int64) (<-chan release.Event, error) {
	if b.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}
	sub := b.client.Subscribe(ctx, UserChannel(userID))
	// 等待订阅确认，确保之后发布的事件不会丢失
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan release.Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := DecodeEvent(msg.Payload)
				if err != nil {
					logger.Warn("Dropping malformed release event", logger.UserID(userID), logger.ErrorField(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// DecodeEvent parses a pub/sub or queue payload.
func DecodeEvent(payload string) (release.Event, error) {
	var event release.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, fmt.Errorf("failed to decode event: %w", err)
	}
	return event, nil
}

// TakedownQueue reads the requests enqueued by EventBus.
type TakedownQueue struct {
	client *redis.Client
}

// NewTakedownQueue creates a TakedownQueue on client.
func NewTakedownQueue(client *redis.Client) *TakedownQueue {
	return &TakedownQueue{client: client}
}

// Len returns the number of queued requests.
func (q *TakedownQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, takedownQueueKey).Result()
}

// Peek returns up to n requests, oldest first, without removing them.
func (q *TakedownQueue) Peek(ctx context.Context, n int64) ([]release.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := q.client.LRange(ctx, takedownQueueKey, -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read takedown queue: %w", err)
	}
	events := make([]release.Event, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		event, err := DecodeEvent(raw[i])
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Pop removes and returns the oldest request. ok is false when the queue is empty.
func (q *TakedownQueue) Pop(ctx context.Context) (event release.Event, ok bool, err error) {
	raw, err := q.client.RPop(ctx, takedownQueueKey).Result()
	if err == redis.Nil {
		return event, false, nil
	}
	if err != nil {
		return event, false, fmt.Errorf("failed to pop takedown queue: %w", err)
	}
	event, err = DecodeEvent(raw)
	if err != nil {
		return event, false, err
	}
	return event, true, nil
}
