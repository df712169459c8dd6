package websocket

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Source streams addressed payloads, typically from a pub/sub channel shared by all API instances.
// Subscribe blocks until ctx is done.
type Source interface {
	Subscribe(ctx context.Context, handle func(userID int64, payload []byte)) error
}

// Relay forwards everything a Source produces to the local hub
type Relay struct {
	source Source
	hub    *Hub
	logger zerolog.Logger
}

// NewRelay creates a new Relay
func NewRelay(source Source, hub *Hub, logger zerolog.Logger) *Relay {
	return &Relay{source: source, hub: hub, logger: logger}
}

// Start runs the relay in the background until ctx is cancelled
func (r *Relay) Start(ctx context.Context) {
	go func() {
		err := r.source.Subscribe(ctx, func(userID int64, payload []byte) {
			sendCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := r.hub.Publish(sendCtx, userID, payload); err != nil {
				r.logger.Warn().Err(err).Int64("userID", userID).Msg("Dropped notification for websocket delivery")
			}
		})
		if err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("Notification relay stopped")
		}
	}()
}
