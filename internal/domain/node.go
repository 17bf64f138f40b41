package domain

import (
	"time"
)

// WorkflowNode is the declared form of a node: an id unique within its graph,
// a type name resolved through the registry, and opaque configuration.
type WorkflowNode struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusSucceeded NodeStatus = "succeeded"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
	NodeStatusCancelled NodeStatus = "cancelled"
	NodeStatusTimedOut  NodeStatus = "timed_out"
)

// Terminal reports whether a node in this status will never run again.
func (s NodeStatus) Terminal() bool {
	switch s {
	case NodeStatusSucceeded, NodeStatusFailed, NodeStatusSkipped, NodeStatusCancelled, NodeStatusTimedOut:
		return true
	}
	return false
}

// ExecutionResult records the outcome of one node attempt. The engine keeps
// only the last attempt per node; Attempt counts from 1.
type ExecutionResult struct {
	Status      NodeStatus  `json:"status"`
	Output      interface{} `json:"output,omitempty"`
	Error       *ErrorInfo  `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
	Attempt     int         `json:"attempt"`
	FromCache   bool        `json:"from_cache,omitempty"`
}

// Per-node config keys the engine interprets itself; everything else in a
// node's config is opaque to the scheduler.
const (
	ConfigKeyTimeoutSeconds = "timeout_seconds"
	ConfigKeyMaxRetries     = "max_retries"
)
