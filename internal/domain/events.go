package domain

import (
	"time"
)

// Event is implemented by every lifecycle event the engine publishes. The
// scheduler loop is the sole publisher, so sinks observe events in the order
// the run produced them.
type Event interface {
	EventType() string
}

type WorkflowStartedEvent struct {
	ExecutionID string                 `json:"execution_id"`
	WorkflowID  string                 `json:"workflow_id"`
	StartedAt   time.Time              `json:"started_at"`
	NodeCount   int                    `json:"node_count"`
	Variables   map[string]interface{} `json:"variables,omitempty"`
}

func (WorkflowStartedEvent) EventType() string { return "workflow_started" }

type NodeStartedEvent struct {
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	NodeID      string    `json:"node_id"`
	NodeType    string    `json:"node_type"`
	Attempt     int       `json:"attempt"`
	StartedAt   time.Time `json:"started_at"`
}

func (NodeStartedEvent) EventType() string { return "node_started" }

type NodeCompletedEvent struct {
	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	NodeID      string        `json:"node_id"`
	Output      interface{}   `json:"output,omitempty"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
	Attempt     int           `json:"attempt"`
	FromCache   bool          `json:"from_cache,omitempty"`
}

func (NodeCompletedEvent) EventType() string { return "node_completed" }

type NodeFailedEvent struct {
	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	NodeID      string        `json:"node_id"`
	Status      NodeStatus    `json:"status"`
	Error       *ErrorInfo    `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	FailedAt    time.Time     `json:"failed_at"`
	Attempt     int           `json:"attempt"`
}

func (NodeFailedEvent) EventType() string { return "node_failed" }

type NodeRetryingEvent struct {
	ExecutionID string     `json:"execution_id"`
	WorkflowID  string     `json:"workflow_id"`
	NodeID      string     `json:"node_id"`
	PriorStatus NodeStatus `json:"prior_status"`
	NextAttempt int        `json:"next_attempt"`
	MaxAttempts int        `json:"max_attempts"`
}

func (NodeRetryingEvent) EventType() string { return "node_retrying" }

type NodeSkippedEvent struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	NodeID      string `json:"node_id"`
	UpstreamID  string `json:"upstream_id"`
}

func (NodeSkippedEvent) EventType() string { return "node_skipped" }

type WorkflowCompletedEvent struct {
	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Succeeded   int           `json:"succeeded"`
	Skipped     int           `json:"skipped"`
}

func (WorkflowCompletedEvent) EventType() string { return "workflow_completed" }

type WorkflowFailedEvent struct {
	ExecutionID string     `json:"execution_id"`
	WorkflowID  string     `json:"workflow_id"`
	FailedNode  string     `json:"failed_node"`
	Error       *ErrorInfo `json:"error,omitempty"`
	FailedAt    time.Time  `json:"failed_at"`
}

func (WorkflowFailedEvent) EventType() string { return "workflow_failed" }

type WorkflowCancelledEvent struct {
	ExecutionID    string    `json:"execution_id"`
	WorkflowID     string    `json:"workflow_id"`
	CancelledAt    time.Time `json:"cancelled_at"`
	CancelledNodes []string  `json:"cancelled_nodes,omitempty"`
}

func (WorkflowCancelledEvent) EventType() string { return "workflow_cancelled" }
