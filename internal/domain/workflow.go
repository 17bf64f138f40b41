package domain

import (
	"sync"
	"time"
)

type WorkflowStatus string

const (
	WorkflowStatusCreated   WorkflowStatus = "created"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	}
	return false
}

// WorkflowState is the record of one execution. It is mutated only by the
// engine's scheduling loop while the run is live and becomes immutable once
// Status is terminal. Serializable for inspection and resumption.
type WorkflowState struct {
	ExecutionID string                      `json:"execution_id"`
	WorkflowID  string                      `json:"workflow_id"`
	Status      WorkflowStatus              `json:"status"`
	NodeResults map[string]*ExecutionResult `json:"node_results"`
	StartedAt   time.Time                   `json:"started_at"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	Error       *ErrorInfo                  `json:"error,omitempty"`
}

// ExecutionContext is the per-invocation bundle handed to a node. Inputs and
// Config are private to the invocation; Shared is the run-scoped side channel
// visible to every node of the execution.
type ExecutionContext struct {
	WorkflowID  string
	ExecutionID string
	NodeID      string
	Attempt     int
	Inputs      map[string]interface{}
	Config      map[string]interface{}
	Shared      *SharedState
}

// SharedState is the cross-node mutable map of a run. Writers must namespace
// their keys by their own node id; Set enforces the prefix so concurrent
// siblings cannot silently overwrite each other.
type SharedState struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

func NewSharedState(seed map[string]interface{}) *SharedState {
	values := make(map[string]interface{}, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &SharedState{values: values}
}

func (s *SharedState) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under "<nodeID>.<key>".
func (s *SharedState) Set(nodeID, key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[nodeID+"."+key] = value
}

// Snapshot returns a shallow copy of the current contents.
func (s *SharedState) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
