package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

// RuntimeClient is the registry-facing handle for one connection. All
// writes funnel through the out channel into a single write loop, which is
// what keeps the per-connection delivery order intact.
type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	id     uuid.UUID
	out    chan []byte
	once   sync.Once
}

func NewClient(parent context.Context, ws *WebSocket) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		id:     uuid.New(),
		out:    make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ID() uuid.UUID { return c.id }

// Send enqueues a payload without blocking the broadcaster. A full buffer
// means the consumer is too slow to keep, so the connection reports itself
// closed and the dispatcher drops it.
func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	default:
		return domain.ErrConnectionClosed
	}
}

// Close is safe to call from any goroutine and any number of times. The
// out channel is never closed; canceling the context is what stops both
// Send and the write loop, so a concurrent Send can never panic.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.WritePing(); err != nil {
				return
			}
		}
	}
}
