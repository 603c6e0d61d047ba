package policy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PubSub is the subscriber-side collaborator the Invalidator drives. It is
// satisfied by *redis.PubSub and grounded on the admin-interfaces PubSub
// shape from the pack's distributed-rate-limiter example.
type PubSub interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// Invalidator owns the dedicated pub/sub connection and triggers
// Cache.Reload on every "reload" message on the invalidation channel.
// Messages arriving mid-reload collapse to at most one additional reload: a
// sync.Mutex plus a "dirty" flag checked after the lock is released, not a
// naive serialize-everything queue.
type Invalidator struct {
	cache *Cache
	log   *slog.Logger

	mu      sync.Mutex
	running bool
	dirty   bool
}

// NewInvalidator builds an Invalidator bound to cache.
func NewInvalidator(cache *Cache, log *slog.Logger) *Invalidator {
	return &Invalidator{cache: cache, log: log}
}

// Run subscribes on ps and blocks, triggering a (debounced) Cache.Reload for
// every ReloadPayload message, until ctx is canceled or the channel closes.
func (inv *Invalidator) Run(ctx context.Context, ps PubSub) {
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Payload != ReloadPayload {
				continue
			}
			go inv.triggerReload(ctx)
		}
	}
}

// triggerReload implements run-then-recheck: if a reload is already in
// flight, it marks dirty and returns; the in-flight reload checks dirty
// after finishing and runs exactly one more pass if set, rather than queuing
// unboundedly.
func (inv *Invalidator) triggerReload(ctx context.Context) {
	inv.mu.Lock()
	if inv.running {
		inv.dirty = true
		inv.mu.Unlock()
		return
	}
	inv.running = true
	inv.mu.Unlock()

	for {
		if err := inv.cache.Reload(ctx); err != nil && inv.log != nil {
			inv.log.WarnContext(ctx, "invalidation-triggered reload failed", "error", err)
		}

		inv.mu.Lock()
		if inv.dirty {
			inv.dirty = false
			inv.mu.Unlock()
			continue
		}
		inv.running = false
		inv.mu.Unlock()
		return
	}
}
