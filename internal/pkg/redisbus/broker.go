package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotificationChannel is the pub/sub channel every API instance listens on
const NotificationChannel = "classjournal:notifications"

// event is the wire form of a published notification
type event struct {
	UserID  int64           `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// Broker publishes user-addressed payloads and relays them back to subscribers
type Broker struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewBroker creates a broker on NotificationChannel
func NewBroker(client *redis.Client, logger zerolog.Logger) *Broker {
	return &Broker{client: client, channel: NotificationChannel, logger: logger}
}

// Publish sends payload, which must be valid JSON, to every subscriber of the channel
func (b *Broker) Publish(ctx context.Context, userID int64, payload []byte) error {
	data, err := json.Marshal(event{UserID: userID, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe receives events until ctx is done, reconnecting with exponential backoff capped at 30s
func (b *Broker) Subscribe(ctx context.Context, handle func(userID int64, payload []byte)) error {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := b.receive(ctx, handle, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warn().Err(err).Dur("backoff", backoff).Msg("Redis subscription interrupted")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (b *Broker) receive(ctx context.Context, handle func(int64, []byte), onMessage func()) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	b.logger.Info().Str("channel", b.channel).Msg("Redis notification subscriber started")

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()

		var ev event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.UserID <= 0 {
			b.logger.Error().Err(err).Str("payload", msg.Payload).Msg("Discarding malformed notification event")
			continue
		}
		handle(ev.UserID, ev.Payload)
	}
}
