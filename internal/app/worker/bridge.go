package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/contracts"
	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/services"
)

// BridgeWorker consumes cross-node envelopes and injects them into the
// local dispatcher. Remote payloads are already serialized, so local
// delivery bypasses routing and re-publishing entirely.
type BridgeWorker struct {
	log        *slog.Logger
	bridge     contracts.EventBridge
	dispatcher *services.DispatcherService
}

func NewBridgeWorker(
	log *slog.Logger,
	bridge contracts.EventBridge,
	dispatcher *services.DispatcherService,
) *BridgeWorker {
	return &BridgeWorker{
		log:        log,
		bridge:     bridge,
		dispatcher: dispatcher,
	}
}

// Run blocks until ctx is canceled, resubscribing after transient errors.
func (w *BridgeWorker) Run(ctx context.Context) {
	for {
		err := w.bridge.Subscribe(ctx, func(group string, payload []byte) {
			w.dispatcher.DeliverLocal(ctx, group, payload)
		})
		if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			w.log.InfoContext(ctx, "bridge worker - stopped")
			return
		}
		w.log.ErrorContext(ctx, "bridge worker - subscribe failed, retrying", "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
