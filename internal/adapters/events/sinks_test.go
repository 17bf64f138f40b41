package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/internal/domain"
)

func TestCaptureSink_RecordsInOrder(t *testing.T) {
	sink := NewCaptureSink()
	ctx := context.Background()

	sink.Publish(ctx, domain.WorkflowStartedEvent{WorkflowID: "w"})
	sink.Publish(ctx, domain.NodeStartedEvent{NodeID: "a"})
	sink.Publish(ctx, domain.NodeCompletedEvent{NodeID: "a"})
	sink.Publish(ctx, domain.WorkflowCompletedEvent{WorkflowID: "w"})

	assert.Equal(t, []string{
		"workflow_started", "node_started", "node_completed", "workflow_completed",
	}, sink.Types())

	events := sink.Events()
	require.Len(t, events, 4)
	started, ok := events[1].(domain.NodeStartedEvent)
	require.True(t, ok)
	assert.Equal(t, "a", started.NodeID)
}

func TestChannelSink_DeliversEvents(t *testing.T) {
	sink := NewChannelSink(4, nil)
	ctx := context.Background()

	sink.Publish(ctx, domain.NodeStartedEvent{NodeID: "a"})
	sink.Publish(ctx, domain.NodeCompletedEvent{NodeID: "a"})
	sink.Close()

	var types []string
	for event := range sink.Events() {
		types = append(types, event.EventType())
	}
	assert.Equal(t, []string{"node_started", "node_completed"}, types)
}

func TestChannelSink_DropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1, nil)
	ctx := context.Background()

	sink.Publish(ctx, domain.NodeStartedEvent{NodeID: "kept"})
	// Buffer is full; this publish must not block.
	sink.Publish(ctx, domain.NodeStartedEvent{NodeID: "dropped"})

	event := <-sink.Events()
	assert.Equal(t, "kept", event.(domain.NodeStartedEvent).NodeID)

	select {
	case extra := <-sink.Events():
		t.Fatalf("unexpected event %v", extra)
	default:
	}
}

func TestSlogSink_DoesNotPanic(t *testing.T) {
	sink := NewSlogSink(nil)
	ctx := context.Background()

	sink.Publish(ctx, domain.WorkflowStartedEvent{WorkflowID: "w"})
	sink.Publish(ctx, domain.NodeFailedEvent{NodeID: "a", Status: domain.NodeStatusFailed})
	sink.Publish(ctx, domain.WorkflowFailedEvent{FailedNode: "a"})
}
