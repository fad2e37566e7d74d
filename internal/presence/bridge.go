package presence

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

func userChannel(user domain.UserID) string { return fmt.Sprintf("signal:user:%s", user) }

// Bridge delivers events to sessions whose socket lives on another
// gateway instance. Each instance watches one pub/sub channel per local
// session; publishing to an unknown user is fire-and-forget, matching the
// at-most-once delivery the protocol promises.
type Bridge struct {
	client redis.UniversalClient
	pubsub *redis.PubSub

	mu       sync.RWMutex
	handlers map[domain.UserID]func(protocol.ServerEvent)
}

func NewBridge(ctx context.Context, client redis.UniversalClient) *Bridge {
	b := &Bridge{
		client:   client,
		pubsub:   client.Subscribe(ctx),
		handlers: make(map[domain.UserID]func(protocol.ServerEvent)),
	}
	go b.loop()
	return b
}

func (b *Bridge) Publish(ctx context.Context, user domain.UserID, ev protocol.ServerEvent) error {
	payload, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, userChannel(user), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", user, err)
	}
	return nil
}

// Watch routes bridged events for a user to fn until Unwatch. Called by
// the registry when a session registers locally.
func (b *Bridge) Watch(ctx context.Context, user domain.UserID, fn func(protocol.ServerEvent)) error {
	b.mu.Lock()
	b.handlers[user] = fn
	b.mu.Unlock()
	if err := b.pubsub.Subscribe(ctx, userChannel(user)); err != nil {
		return fmt.Errorf("subscribe %s: %w", user, err)
	}
	return nil
}

func (b *Bridge) Unwatch(ctx context.Context, user domain.UserID) {
	b.mu.Lock()
	delete(b.handlers, user)
	b.mu.Unlock()
	if err := b.pubsub.Unsubscribe(ctx, userChannel(user)); err != nil {
		log.Warn().Err(err).Str("module", "presence.bridge").Str("user", string(user)).Msg("unsubscribe")
	}
}

func (b *Bridge) Close() {
	_ = b.pubsub.Close()
}

func (b *Bridge) loop() {
	for msg := range b.pubsub.Channel() {
		ev, err := protocol.Decode([]byte(msg.Payload))
		if err != nil {
			log.Warn().Err(err).Str("module", "presence.bridge").Str("channel", msg.Channel).Msg("bad bridged event")
			continue
		}
		user := domain.UserID(msg.Channel[len("signal:user:"):])
		b.mu.RLock()
		fn, ok := b.handlers[user]
		b.mu.RUnlock()
		if ok {
			fn(ev)
		}
	}
}
