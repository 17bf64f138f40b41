package domain

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

var (
	ErrGraphSealed   = errors.New("graph is sealed after validation")
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidInput  = errors.New("invalid input")
)

type ValidationErrorType int

const (
	ValidationDuplicateID ValidationErrorType = iota
	ValidationDanglingEdge
	ValidationCycleDetected
)

// GraphValidationError covers every structural defect a graph can have.
// It is always raised before any node executes.
type GraphValidationError struct {
	Type    ValidationErrorType
	NodeID  string
	Edge    *WorkflowEdge
	Cycle   []string
	Message string
}

func (e *GraphValidationError) Error() string {
	return e.Message
}

func NewDuplicateIDError(nodeID string) *GraphValidationError {
	return &GraphValidationError{
		Type:    ValidationDuplicateID,
		NodeID:  nodeID,
		Message: "duplicate node id: " + nodeID,
	}
}

func NewDanglingEdgeError(edge WorkflowEdge, missing string) *GraphValidationError {
	return &GraphValidationError{
		Type:    ValidationDanglingEdge,
		NodeID:  missing,
		Edge:    &edge,
		Message: fmt.Sprintf("edge %s -> %s references unknown node %q", edge.Source, edge.Target, missing),
	}
}

func NewCycleError(cycle []string) *GraphValidationError {
	return &GraphValidationError{
		Type:    ValidationCycleDetected,
		Cycle:   cycle,
		Message: "cycle detected: " + strings.Join(cycle, " -> "),
	}
}

func IsValidationError(err error) bool {
	var ve *GraphValidationError
	return errors.As(err, &ve)
}

func IsCycleDetected(err error) bool {
	var ve *GraphValidationError
	return errors.As(err, &ve) && ve.Type == ValidationCycleDetected
}

func IsDuplicateID(err error) bool {
	var ve *GraphValidationError
	return errors.As(err, &ve) && ve.Type == ValidationDuplicateID
}

func IsDanglingEdge(err error) bool {
	var ve *GraphValidationError
	return errors.As(err, &ve) && ve.Type == ValidationDanglingEdge
}

type UnknownNodeTypeError struct {
	NodeID   string
	TypeName string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("node %q: no factory registered for type %q", e.NodeID, e.TypeName)
}

func NewUnknownNodeTypeError(nodeID, typeName string) *UnknownNodeTypeError {
	return &UnknownNodeTypeError{NodeID: nodeID, TypeName: typeName}
}

func IsUnknownNodeType(err error) bool {
	var ue *UnknownNodeTypeError
	return errors.As(err, &ue)
}

// NodeConfigError reports an unsatisfiable node before dispatch: a required
// input port with no incoming edge binding and no default, or an
// interpolation reference that cannot resolve.
type NodeConfigError struct {
	NodeID string
	Port   string
	Reason string
}

func (e *NodeConfigError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("node %q: input %q: %s", e.NodeID, e.Port, e.Reason)
	}
	return fmt.Sprintf("node %q: %s", e.NodeID, e.Reason)
}

func NewNodeConfigError(nodeID, port, reason string) *NodeConfigError {
	return &NodeConfigError{NodeID: nodeID, Port: port, Reason: reason}
}

func IsNodeConfigError(err error) bool {
	var ce *NodeConfigError
	return errors.As(err, &ce)
}

// WorkflowAbortedError is recorded on the run when ContinueOnError is off and
// a node resolves Failed; Cause carries the triggering node error.
type WorkflowAbortedError struct {
	ExecutionID string
	NodeID      string
	Cause       error
}

func (e *WorkflowAbortedError) Error() string {
	return fmt.Sprintf("execution %s aborted by node %q: %v", e.ExecutionID, e.NodeID, e.Cause)
}

func (e *WorkflowAbortedError) Unwrap() error {
	return e.Cause
}

func IsWorkflowAborted(err error) bool {
	var ae *WorkflowAbortedError
	return errors.As(err, &ae)
}

// NodePanicError wraps a panic recovered from a node's Execute so it surfaces
// as an ordinary failed result instead of crashing the scheduler.
type NodePanicError struct {
	NodeID      string
	PanicValue  interface{}
	StackTrace  string
	RecoveredAt string
	Timestamp   time.Time
}

func (e *NodePanicError) Error() string {
	return fmt.Sprintf("node %q panicked: %v", e.NodeID, e.PanicValue)
}

func NewNodePanicError(nodeID string, panicValue interface{}) *NodePanicError {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	pc, file, line, ok := runtime.Caller(2)
	recoveredAt := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			recoveredAt = fn.Name() + " at " + file + ":" + strconv.Itoa(line)
		}
	}

	return &NodePanicError{
		NodeID:      nodeID,
		PanicValue:  panicValue,
		StackTrace:  string(buf[:n]),
		RecoveredAt: recoveredAt,
		Timestamp:   time.Now(),
	}
}

// ErrorInfo is the serializable error record carried by ExecutionResult and
// WorkflowState.
type ErrorInfo struct {
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	if e.NodeID != "" {
		return e.NodeID + ": " + e.Message
	}
	return e.Message
}

func NewErrorInfo(nodeID string, err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{NodeID: nodeID, Message: err.Error()}
}
