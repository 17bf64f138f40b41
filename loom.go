// Package loom provides a workflow execution engine: it turns a declared
// graph of heterogeneous processing nodes into a correctly ordered,
// concurrently executed run with retries, timeouts, caching and cancellation.
//
// Loom ships no built-in node types. Callers register factories for their own
// node implementations (model calls, tool invocations, HTTP fetches, data
// transforms) and submit graphs that reference them by type name:
//
//	registry := loom.NewRegistry(logger)
//	registry.Register("template", newTemplateNode)
//
//	graph := loom.NewGraph()
//	graph.AddNode(loom.Node{ID: "greet", Type: "template", Config: map[string]interface{}{
//	    "template": "hello {{variables.name}}",
//	}})
//
//	engine := loom.NewEngine(loom.DefaultConfig(), registry, logger)
//	state, err := engine.Execute(ctx, "greeting", graph, map[string]interface{}{"name": "ada"})
//
// The engine guarantees that a node never starts before all of its upstream
// dependencies reached a terminal status, that no more than
// MaxConcurrentNodes invocations run at once, and that lifecycle events reach
// the injected EventSink in run order.
package loom

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/loomhq/loom/internal/adapters/cachestore"
	"github.com/loomhq/loom/internal/adapters/engine"
	"github.com/loomhq/loom/internal/adapters/events"
	"github.com/loomhq/loom/internal/adapters/observability"
	"github.com/loomhq/loom/internal/adapters/registry"
	"github.com/loomhq/loom/internal/domain"
	"github.com/loomhq/loom/internal/ports"
)

// Engine schedules workflow executions. Safe for concurrent Execute calls.
type Engine = engine.Engine

// Metrics holds the engine's prometheus instruments.
type Metrics = engine.Metrics

// Registry is the in-process node type registry.
type Registry = registry.Adapter

// Graph is a validated-once, then immutable, DAG of nodes and edges.
type Graph = domain.WorkflowGraph

// Node declares one workflow step: a unique id, a registered type name and
// opaque configuration.
type Node = domain.WorkflowNode

// Edge connects two nodes, optionally selecting a field of the source output
// (OutputKey) and naming the target input it binds to (InputKey).
type Edge = domain.WorkflowEdge

// EngineConfig controls concurrency, timeouts, retries, failure policy and
// caching for an engine instance.
type EngineConfig = domain.EngineConfig

// WorkflowState is the record of one execution: per-node results, overall
// status and timestamps.
type WorkflowState = domain.WorkflowState

// ExecutionResult is the outcome of a node's last attempt.
type ExecutionResult = domain.ExecutionResult

// ExecutionContext is the per-invocation bundle handed to a node's Execute.
type ExecutionContext = domain.ExecutionContext

// NodeSchema declares a node type's named input and output ports.
type NodeSchema = ports.NodeSchema

// PortSpec describes one port of a NodeSchema.
type PortSpec = ports.PortSpec

// NodeFactory builds a node instance from its declared id and config.
type NodeFactory = ports.NodeFactory

// WorkflowNode is the capability abstraction every step implements.
type WorkflowNode = ports.Node

// EventSink receives lifecycle events from the engine's scheduling loop.
type EventSink = ports.EventSink

// CacheStore is the key-value interface node results are memoized behind.
type CacheStore = ports.CacheStore

// Event is implemented by every lifecycle event.
type Event = domain.Event

// ErrorInfo is the serializable error detail attached to failed results.
type ErrorInfo = domain.ErrorInfo

// Node statuses.
const (
	NodeStatusPending   = domain.NodeStatusPending
	NodeStatusRunning   = domain.NodeStatusRunning
	NodeStatusSucceeded = domain.NodeStatusSucceeded
	NodeStatusFailed    = domain.NodeStatusFailed
	NodeStatusSkipped   = domain.NodeStatusSkipped
	NodeStatusCancelled = domain.NodeStatusCancelled
	NodeStatusTimedOut  = domain.NodeStatusTimedOut
)

// Workflow statuses.
const (
	StatusCreated   = domain.WorkflowStatusCreated
	StatusRunning   = domain.WorkflowStatusRunning
	StatusCompleted = domain.WorkflowStatusCompleted
	StatusFailed    = domain.WorkflowStatusFailed
	StatusCancelled = domain.WorkflowStatusCancelled
)

// NewGraph returns an empty workflow graph.
func NewGraph() *Graph {
	return domain.NewWorkflowGraph()
}

// NewRegistry returns an empty node type registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return registry.NewAdapter(logger)
}

// NewEngine builds an engine with the given configuration and registry.
// Options can inject a cache store, an event sink and metrics; by default the
// engine caches in memory (when caching is enabled) and publishes no events.
func NewEngine(config EngineConfig, reg *Registry, logger *slog.Logger, opts ...engine.Option) *Engine {
	return engine.New(config, reg, logger, opts...)
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() EngineConfig {
	return domain.DefaultEngineConfig()
}

// LoadConfig reads an engine config from a YAML file.
func LoadConfig(path string) (EngineConfig, error) {
	return domain.LoadEngineConfig(path)
}

// WithCacheStore, WithEventSink and WithMetrics configure NewEngine.
var (
	WithCacheStore = engine.WithCacheStore
	WithEventSink  = engine.WithEventSink
	WithMetrics    = engine.WithMetrics
)

// NewMemoryCache returns the default in-process cache store.
func NewMemoryCache() *cachestore.Memory {
	return cachestore.NewMemory()
}

// NewSlogSink returns an event sink that logs every lifecycle event.
func NewSlogSink(logger *slog.Logger) EventSink {
	return events.NewSlogSink(logger)
}

// NewChannelSink returns an event sink that forwards events to a channel for
// an external transport to drain.
func NewChannelSink(buffer int, logger *slog.Logger) *events.ChannelSink {
	return events.NewChannelSink(buffer, logger)
}

// NewBadgerCache returns an on-disk cache store rooted at dir.
func NewBadgerCache(dir string, logger *slog.Logger, opts ...cachestore.BadgerOption) (*cachestore.Badger, error) {
	return cachestore.NewBadger(dir, logger, opts...)
}

// NewRedisCache returns a cache store backed by a shared Redis instance.
func NewRedisCache(client *redis.Client, opts ...cachestore.RedisOption) *cachestore.Redis {
	return cachestore.NewRedis(client, opts...)
}

// NewMetrics registers the engine's prometheus instruments on reg and returns
// the handle to pass through WithMetrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return engine.NewMetrics(reg)
}

// NewObservabilityServer serves /metrics and /healthz for an engine process.
func NewObservabilityServer(port int, registry *prometheus.Registry, logger *slog.Logger) *observability.Server {
	return observability.NewServer(port, registry, logger)
}
