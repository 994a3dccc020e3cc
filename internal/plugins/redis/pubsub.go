package redis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "group:"

type bridgeEnvelope struct {
	Node    string          `json:"node"`
	Group   string          `json:"group"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBridge mirrors broadcasts across nodes over pub/sub. Each envelope
// carries the origin node id; subscribers drop their own envelopes so an
// event is delivered locally exactly once per node.
type RedisBridge struct {
	rdb  *redis.Client
	node string
	log  *slog.Logger
}

func NewRedisBridge(log *slog.Logger, rdb *redis.Client, node string) *RedisBridge {
	return &RedisBridge{rdb: rdb, node: node, log: log}
}

func (b *RedisBridge) Publish(ctx context.Context, group string, payload []byte) error {
	raw, err := json.Marshal(bridgeEnvelope{
		Node:    b.node,
		Group:   group,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelPrefix+group, raw).Err()
}

// Subscribe blocks until ctx is canceled, delivering remote-origin
// payloads to the handler.
func (b *RedisBridge) Subscribe(ctx context.Context, handler func(group string, payload []byte)) error {
	pubsub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		b.log.ErrorContext(ctx, "bridge - subscribe confirmation failed", "err", err)
		return err
	}
	b.log.InfoContext(ctx, "bridge - subscribed", "pattern", channelPrefix+"*", "node", b.node)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.ErrorContext(ctx, "bridge - bad envelope", "channel", msg.Channel, "err", err)
				continue
			}
			if env.Node == b.node {
				continue
			}
			group := env.Group
			if group == "" {
				group = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			handler(group, env.Payload)
		}
	}
}
