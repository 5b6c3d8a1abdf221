package storage

import (
	"context"

	"chatwire/logger"
)

const bridgeChannel = "chatwire:relay"

// RedisBridge fans relay events out to sibling gateway instances over
// Redis Pub/Sub. Each instance tags its publications with its gateway id
// and ignores its own, so local delivery is never duplicated.
type RedisBridge struct{}

func NewRedisBridge() *RedisBridge { return &RedisBridge{} }

func (b *RedisBridge) Publish(ctx context.Context, payload []byte) error {
	if rdb == nil {
		return nil
	}
	return rdb.Publish(ctx, bridgeChannel, payload).Err()
}

// Subscribe blocks, invoking fn for every payload published by any instance
// (including this one; the relay filters by gateway id). Returns when ctx ends.
func (b *RedisBridge) Subscribe(ctx context.Context, fn func([]byte)) {
	if rdb == nil {
		return
	}
	pubsub := rdb.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("[bridge] receive error: %v", err)
			return
		}
		fn([]byte(msg.Payload))
	}
}
