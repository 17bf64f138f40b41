package ports

import (
	"context"

	"github.com/loomhq/loom/internal/domain"
)

// EventSink receives lifecycle events from the engine's scheduling loop.
// Publish is called synchronously from that loop, so implementations that
// talk to slow transports should hand off internally rather than block.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event)
}
