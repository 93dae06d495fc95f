package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Publisher is the narrow interface services use to push events out.
type Publisher interface {
	PublishRoom(ctx context.Context, roomID uint, event Event) error
	PublishUser(ctx context.Context, userID uint, event Event) error
}

// Notifier publishes events into Redis channels so every server instance
// can fan them out to its own WebSocket clients.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier over the provided Redis client. A nil
// client disables publishing; every method becomes a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishRoom sends an event to a room's channel.
func (n *Notifier) PublishRoom(ctx context.Context, roomID uint, event Event) error {
	if n.rdb == nil {
		return nil
	}
	event.RoomID = roomID
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, RoomChannel(roomID), payload).Err()
}

// PublishUser sends an event to a user's personal channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartSubscriber subscribes to room and user channels and calls onMessage
// for each incoming message. Runs until ctx is cancelled.
func (n *Notifier) StartSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "chat:room:*", "notifications:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in notification subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// RoomChannel derives the Redis channel name for a room.
func RoomChannel(roomID uint) string {
	return "chat:room:" + strconv.FormatUint(uint64(roomID), 10)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}

// NopPublisher discards every event. Used in tests and when Redis is down.
type NopPublisher struct{}

// PublishRoom implements Publisher.
func (NopPublisher) PublishRoom(context.Context, uint, Event) error { return nil }

// PublishUser implements Publisher.
func (NopPublisher) PublishUser(context.Context, uint, Event) error { return nil }
