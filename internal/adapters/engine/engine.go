package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loomhq/loom/internal/adapters/cachestore"
	"github.com/loomhq/loom/internal/domain"
	"github.com/loomhq/loom/internal/ports"
)

// Engine schedules one workflow graph at a time per Execute call. It owns no
// node behavior; everything type-specific is reached through the registry.
// An Engine is stateless between runs and safe for concurrent Execute calls.
type Engine struct {
	config   domain.EngineConfig
	registry ports.NodeRegistry
	cache    ports.CacheStore
	events   ports.EventSink
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Engine)

// WithCacheStore replaces the default in-memory result cache.
func WithCacheStore(store ports.CacheStore) Option {
	return func(e *Engine) { e.cache = store }
}

// WithEventSink installs the lifecycle event receiver.
func WithEventSink(sink ports.EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

// WithMetrics attaches prometheus instruments.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(config domain.EngineConfig, registry ports.NodeRegistry, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:   config.Normalize(),
		registry: registry,
		events:   noopSink{},
		logger:   logger.With("component", "engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.config.EnableCaching && e.cache == nil {
		e.cache = cachestore.NewMemory()
	}

	return e
}

// Metrics returns the attached instruments; nil when none were injected.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

type noopSink struct{}

func (noopSink) Publish(context.Context, domain.Event) {}

// Execute validates graph, then drives it to a terminal WorkflowState.
// Structural problems (validation, unknown node type, unsatisfied schema)
// return an error before any node starts; runtime node failures are recorded
// in the returned state, not the error.
func (e *Engine) Execute(ctx context.Context, workflowID string, graph *domain.WorkflowGraph, variables map[string]interface{}) (*domain.WorkflowState, error) {
	return e.run(ctx, workflowID, graph, variables, nil)
}

// Resume continues a prior execution of the same graph: nodes recorded
// Succeeded in prior are treated as satisfied and not re-invoked; everything
// else is re-derived from topological readiness and executed normally.
func (e *Engine) Resume(ctx context.Context, workflowID string, graph *domain.WorkflowGraph, prior *domain.WorkflowState, variables map[string]interface{}) (*domain.WorkflowState, error) {
	return e.run(ctx, workflowID, graph, variables, prior)
}

func (e *Engine) run(ctx context.Context, workflowID string, graph *domain.WorkflowGraph, variables map[string]interface{}, prior *domain.WorkflowState) (*domain.WorkflowState, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	nodes, err := e.instantiate(graph)
	if err != nil {
		return nil, err
	}

	if err := e.checkSchemas(graph, nodes); err != nil {
		return nil, err
	}

	vars, err := domain.MergeValues(e.config.Variables, variables)
	if err != nil {
		return nil, fmt.Errorf("variables are not JSON-serializable: %w", err)
	}

	r := &execution{
		engine:    e,
		graph:     graph,
		nodes:     nodes,
		variables: vars,
		shared:    domain.NewSharedState(nil),
		state: &domain.WorkflowState{
			ExecutionID: uuid.NewString(),
			WorkflowID:  workflowID,
			Status:      domain.WorkflowStatusCreated,
			NodeResults: make(map[string]*domain.ExecutionResult),
			StartedAt:   time.Now(),
		},
		statuses: make(map[string]domain.NodeStatus, graph.Len()),
		attempts: make(map[string]int, graph.Len()),
		indegree: graph.InDegrees(),
		outcomes: make(chan outcome),
		logger: e.logger.With(
			"workflow_id", workflowID,
		),
	}
	r.runCtx, r.cancelRun = context.WithCancel(context.Background())
	defer r.cancelRun()

	for _, id := range graph.NodeIDs() {
		r.statuses[id] = domain.NodeStatusPending
	}
	r.applyPrior(prior)
	r.seedReady()

	r.state.Status = domain.WorkflowStatusRunning
	e.metrics.workflowStarted()
	e.events.Publish(ctx, domain.WorkflowStartedEvent{
		ExecutionID: r.state.ExecutionID,
		WorkflowID:  workflowID,
		StartedAt:   r.state.StartedAt,
		NodeCount:   graph.Len(),
		Variables:   vars,
	})

	r.logger.Debug("execution started",
		"execution_id", r.state.ExecutionID,
		"node_count", graph.Len(),
		"max_concurrent", e.config.MaxConcurrentNodes)

	r.loop(ctx)
	r.finalize(ctx)

	return r.state, nil
}

func (e *Engine) instantiate(graph *domain.WorkflowGraph) (map[string]ports.Node, error) {
	nodes := make(map[string]ports.Node, graph.Len())
	for _, id := range graph.NodeIDs() {
		decl, _ := graph.Node(id)
		node, err := e.registry.Create(decl.Type, decl.ID, decl.Config)
		if err != nil {
			return nil, err
		}
		nodes[id] = node
	}
	return nodes, nil
}

// checkSchemas rejects, before any work begins, every node with a required
// input port that no edge binding and no default can satisfy.
func (e *Engine) checkSchemas(graph *domain.WorkflowGraph, nodes map[string]ports.Node) error {
	for _, id := range graph.NodeIDs() {
		schema := nodes[id].Schema()

		bound := make(map[string]struct{})
		for _, edge := range graph.InEdges(id) {
			bound[bindingName(edge)] = struct{}{}
		}

		for _, port := range schema.Inputs {
			if !port.Required || port.Default != nil {
				continue
			}
			if _, ok := bound[port.Name]; !ok {
				return domain.NewNodeConfigError(id, port.Name, "required input has no incoming edge and no default")
			}
		}
	}
	return nil
}

// bindingName is the input name an edge binds its value under: InputKey,
// falling back to OutputKey, falling back to the source node id.
func bindingName(edge domain.WorkflowEdge) string {
	if edge.InputKey != "" {
		return edge.InputKey
	}
	if edge.OutputKey != "" {
		return edge.OutputKey
	}
	return edge.Source
}

// outcome is what a node goroutine reports back to the scheduling loop; the
// loop is the only writer of run state.
type outcome struct {
	nodeID    string
	result    domain.ExecutionResult
	cacheKey  string
	fromCache bool
	configErr bool
}

type execution struct {
	engine    *Engine
	graph     *domain.WorkflowGraph
	nodes     map[string]ports.Node
	variables map[string]interface{}
	shared    *domain.SharedState
	state     *domain.WorkflowState
	logger    *slog.Logger

	statuses map[string]domain.NodeStatus
	attempts map[string]int
	indegree map[string]int
	ready    []string

	running   int
	outcomes  chan outcome
	runCtx    context.Context
	cancelRun context.CancelFunc

	cancelled bool
	aborted   bool
	abortErr  *domain.WorkflowAbortedError

	firstFailure *domain.ErrorInfo
	failedNode   string
}

// applyPrior marks nodes already Succeeded in a prior state as satisfied.
func (r *execution) applyPrior(prior *domain.WorkflowState) {
	if prior == nil {
		return
	}

	for id, result := range prior.NodeResults {
		if _, known := r.statuses[id]; !known {
			continue
		}
		if result.Status == domain.NodeStatusSucceeded {
			r.statuses[id] = domain.NodeStatusSucceeded
			r.state.NodeResults[id] = result
		}
	}
	for id, status := range r.statuses {
		if status != domain.NodeStatusSucceeded {
			continue
		}
		for _, succ := range r.graph.Successors(id) {
			r.indegree[succ]--
		}
	}
}

func (r *execution) seedReady() {
	for _, id := range r.graph.NodeIDs() {
		if r.statuses[id] == domain.NodeStatusPending && r.indegree[id] == 0 {
			r.ready = append(r.ready, id)
		}
	}
}

// loop is the single scheduling loop: it dispatches ready nodes up to the
// concurrency bound and consumes one outcome at a time. All state mutation
// happens here.
func (r *execution) loop(ctx context.Context) {
	for {
		if !r.halted() {
			for r.running < r.engine.config.MaxConcurrentNodes && len(r.ready) > 0 {
				next := r.ready[0]
				r.ready = r.ready[1:]
				r.dispatch(ctx, next)
			}
		}

		if r.running == 0 {
			return
		}

		if r.halted() {
			oc := <-r.outcomes
			r.running--
			r.engine.metrics.nodeFinished()
			r.record(ctx, oc.nodeID, oc.result)
			continue
		}

		select {
		case <-ctx.Done():
			r.beginCancel(ctx)
		case oc := <-r.outcomes:
			r.running--
			r.handleOutcome(ctx, oc)
		}
	}
}

func (r *execution) halted() bool {
	return r.cancelled || r.aborted
}

// dispatch resolves a node's inputs and config, consults the cache, and
// either records an immediate outcome or launches the node attempt.
func (r *execution) dispatch(ctx context.Context, nodeID string) {
	r.attempts[nodeID]++
	attempt := r.attempts[nodeID]
	decl, _ := r.graph.Node(nodeID)
	node := r.nodes[nodeID]

	res := &resolver{
		graph:     r.graph,
		results:   r.state.NodeResults,
		variables: r.variables,
	}

	inputs, err := res.resolveInputs(nodeID, node.Schema())
	if err == nil {
		var cfgErr error
		var config map[string]interface{}
		config, cfgErr = res.interpolateConfig(nodeID, decl.Config)
		if cfgErr != nil {
			err = cfgErr
		} else {
			r.launch(ctx, nodeID, decl, node, attempt, inputs, config)
			return
		}
	}

	// Deterministic configuration problem: fail without invoking or retrying.
	now := time.Now()
	r.handleOutcome(ctx, outcome{
		nodeID: nodeID,
		result: domain.ExecutionResult{
			Status:      domain.NodeStatusFailed,
			Error:       domain.NewErrorInfo(nodeID, err),
			StartedAt:   now,
			CompletedAt: now,
			Attempt:     attempt,
		},
		configErr: true,
	})
}

func (r *execution) launch(ctx context.Context, nodeID string, decl domain.WorkflowNode, node ports.Node, attempt int, inputs, config map[string]interface{}) {
	var key string
	if r.engine.config.EnableCaching {
		var err error
		key, err = cacheKey(decl.Type, config, inputs)
		if err != nil {
			r.logger.Warn("cache key derivation failed, bypassing cache", "node_id", nodeID, "error", err)
			key = ""
		}
	}

	if key != "" {
		if output, hit := r.cacheLookup(ctx, key); hit {
			r.engine.metrics.cacheHit()
			now := time.Now()
			r.statuses[nodeID] = domain.NodeStatusRunning
			r.publishNodeStarted(ctx, nodeID, decl.Type, attempt, now)
			r.handleOutcome(ctx, outcome{
				nodeID: nodeID,
				result: domain.ExecutionResult{
					Status:      domain.NodeStatusSucceeded,
					Output:      output,
					StartedAt:   now,
					CompletedAt: time.Now(),
					Attempt:     attempt,
					FromCache:   true,
				},
				cacheKey:  key,
				fromCache: true,
			})
			return
		}
		r.engine.metrics.cacheMiss()
	}

	ectx := &domain.ExecutionContext{
		WorkflowID:  r.state.WorkflowID,
		ExecutionID: r.state.ExecutionID,
		NodeID:      nodeID,
		Attempt:     attempt,
		Inputs:      inputs,
		Config:      config,
		Shared:      r.shared,
	}

	r.statuses[nodeID] = domain.NodeStatusRunning
	r.running++
	r.engine.metrics.nodeStarted()
	r.publishNodeStarted(ctx, nodeID, decl.Type, attempt, time.Now())

	timeout := r.nodeTimeout(decl)
	go r.invoke(nodeID, node, ectx, key, attempt, timeout)
}

// invoke runs one node attempt off the scheduling loop. The per-node deadline
// is independent of the run's cancellation signal; both funnel through the
// attempt context the node observes.
func (r *execution) invoke(nodeID string, node ports.Node, ectx *domain.ExecutionContext, key string, attempt int, timeout time.Duration) {
	attemptCtx, cancel := context.WithTimeout(r.runCtx, timeout)
	defer cancel()

	started := time.Now()
	resultCh := make(chan domain.ExecutionResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				perr := domain.NewNodePanicError(nodeID, rec)
				resultCh <- domain.ExecutionResult{
					Status: domain.NodeStatusFailed,
					Error:  domain.NewErrorInfo(nodeID, perr),
				}
			}
		}()
		resultCh <- node.Execute(attemptCtx, ectx)
	}()

	var result domain.ExecutionResult
	select {
	case result = <-resultCh:
		if attemptCtx.Err() != nil {
			result = r.deadlineResult(nodeID, result)
		}
	case <-attemptCtx.Done():
		// Non-cooperative node: abandon the attempt. The inner goroutine
		// exits whenever the node eventually returns; its result is dropped.
		result = r.deadlineResult(nodeID, domain.ExecutionResult{Status: domain.NodeStatusCancelled})
	}

	result.StartedAt = started
	result.CompletedAt = time.Now()
	result.Attempt = attempt
	if result.Status == domain.NodeStatusFailed && result.Error == nil {
		result.Error = &domain.ErrorInfo{NodeID: nodeID, Message: "node reported failure without error detail"}
	}

	r.outcomes <- outcome{nodeID: nodeID, result: result, cacheKey: key}
}

// deadlineResult decides between TimedOut and Cancelled when the attempt
// context ended before (or alongside) the node's own return.
func (r *execution) deadlineResult(nodeID string, result domain.ExecutionResult) domain.ExecutionResult {
	if r.runCtx.Err() != nil {
		result.Status = domain.NodeStatusCancelled
		result.Error = &domain.ErrorInfo{NodeID: nodeID, Message: "execution cancelled"}
		return result
	}
	result.Status = domain.NodeStatusTimedOut
	result.Error = &domain.ErrorInfo{NodeID: nodeID, Message: "node exceeded its deadline"}
	return result
}

func (r *execution) handleOutcome(ctx context.Context, oc outcome) {
	fromRun := !oc.fromCache && !oc.configErr
	if fromRun {
		r.engine.metrics.nodeFinished()
	}

	switch oc.result.Status {
	case domain.NodeStatusSucceeded:
		r.record(ctx, oc.nodeID, oc.result)
		if oc.cacheKey != "" && !oc.fromCache {
			r.cacheStore(ctx, oc.cacheKey, oc.result.Output)
		}
		r.releaseSuccessors(ctx, oc.nodeID)

	case domain.NodeStatusCancelled:
		r.record(ctx, oc.nodeID, oc.result)
		// A node can only resolve cancelled outside a halt by returning the
		// status itself; its dependents still need to be released (and
		// skipped, since this dependency did not succeed).
		if !r.halted() {
			r.releaseSuccessors(ctx, oc.nodeID)
		}

	case domain.NodeStatusFailed, domain.NodeStatusTimedOut:
		if r.shouldRetry(oc) {
			r.retry(ctx, oc)
			return
		}

		result := oc.result
		if r.retriesEnabledFor(oc.nodeID) && result.Status == domain.NodeStatusTimedOut {
			// Retries exhausted: a timed-out node resolves as failed.
			result.Status = domain.NodeStatusFailed
		}
		r.record(ctx, oc.nodeID, result)

		if r.firstFailure == nil {
			r.firstFailure = result.Error
			r.failedNode = oc.nodeID
		}

		if !r.engine.config.ContinueOnError {
			r.beginAbort(ctx, oc.nodeID, result)
			return
		}
		r.releaseSuccessors(ctx, oc.nodeID)

	default:
		// A node returning a non-terminal status violates its contract.
		result := oc.result
		result.Status = domain.NodeStatusFailed
		result.Error = &domain.ErrorInfo{NodeID: oc.nodeID, Message: fmt.Sprintf("node returned non-terminal status %q", oc.result.Status)}
		r.record(ctx, oc.nodeID, result)
		r.releaseSuccessors(ctx, oc.nodeID)
	}
}

func (r *execution) shouldRetry(oc outcome) bool {
	if oc.configErr || r.halted() {
		return false
	}
	if !r.retriesEnabledFor(oc.nodeID) {
		return false
	}
	return r.attempts[oc.nodeID] <= r.nodeMaxRetries(oc.nodeID)
}

func (r *execution) retriesEnabledFor(nodeID string) bool {
	return r.engine.config.RetryFailedNodes && r.nodeMaxRetries(nodeID) > 0
}

func (r *execution) retry(ctx context.Context, oc outcome) {
	r.engine.metrics.nodeRetried()
	r.statuses[oc.nodeID] = domain.NodeStatusPending

	next := r.attempts[oc.nodeID] + 1
	r.logger.Debug("retrying node",
		"node_id", oc.nodeID,
		"prior_status", oc.result.Status,
		"next_attempt", next)

	r.engine.events.Publish(ctx, domain.NodeRetryingEvent{
		ExecutionID: r.state.ExecutionID,
		WorkflowID:  r.state.WorkflowID,
		NodeID:      oc.nodeID,
		PriorStatus: oc.result.Status,
		NextAttempt: next,
		MaxAttempts: r.nodeMaxRetries(oc.nodeID) + 1,
	})

	r.ready = append(r.ready, oc.nodeID)
}

// record writes the result into WorkflowState and publishes the matching
// lifecycle event. It is only ever called from the scheduling loop.
func (r *execution) record(ctx context.Context, nodeID string, result domain.ExecutionResult) {
	r.statuses[nodeID] = result.Status
	stored := result
	r.state.NodeResults[nodeID] = &stored

	duration := result.CompletedAt.Sub(result.StartedAt)
	r.engine.metrics.nodeAttempt(string(result.Status), duration.Seconds())

	switch result.Status {
	case domain.NodeStatusSucceeded:
		r.engine.events.Publish(ctx, domain.NodeCompletedEvent{
			ExecutionID: r.state.ExecutionID,
			WorkflowID:  r.state.WorkflowID,
			NodeID:      nodeID,
			Output:      result.Output,
			Duration:    duration,
			CompletedAt: result.CompletedAt,
			Attempt:     result.Attempt,
			FromCache:   result.FromCache,
		})
	case domain.NodeStatusSkipped:
		// node_skipped is published by markSkipped with upstream attribution.
	default:
		r.engine.events.Publish(ctx, domain.NodeFailedEvent{
			ExecutionID: r.state.ExecutionID,
			WorkflowID:  r.state.WorkflowID,
			NodeID:      nodeID,
			Status:      result.Status,
			Error:       result.Error,
			Duration:    duration,
			FailedAt:    result.CompletedAt,
			Attempt:     result.Attempt,
		})
	}
}

// releaseSuccessors decrements each successor's in-degree once the given node
// reached a terminal status. A successor whose dependencies are all satisfied
// is enqueued; one with any non-succeeded dependency is skipped, which in
// turn releases its own successors.
func (r *execution) releaseSuccessors(ctx context.Context, nodeID string) {
	for _, succ := range r.graph.Successors(nodeID) {
		r.indegree[succ]--
		if r.indegree[succ] > 0 || r.statuses[succ] != domain.NodeStatusPending {
			continue
		}

		if blocker := r.unsatisfiedDependency(succ); blocker != "" {
			r.markSkipped(ctx, succ, blocker)
			continue
		}
		r.ready = append(r.ready, succ)
	}
}

func (r *execution) unsatisfiedDependency(nodeID string) string {
	for _, pred := range r.graph.Predecessors(nodeID) {
		if r.statuses[pred] != domain.NodeStatusSucceeded {
			return pred
		}
	}
	return ""
}

// markSkipped records a terminal Skipped result without ever starting the
// node, then cascades through its dependents.
func (r *execution) markSkipped(ctx context.Context, nodeID, upstreamID string) {
	now := time.Now()
	r.record(ctx, nodeID, domain.ExecutionResult{
		Status:      domain.NodeStatusSkipped,
		Error:       &domain.ErrorInfo{NodeID: nodeID, Message: fmt.Sprintf("skipped: upstream node %q did not succeed", upstreamID)},
		StartedAt:   now,
		CompletedAt: now,
	})
	r.engine.metrics.nodeSkipped()
	r.engine.events.Publish(ctx, domain.NodeSkippedEvent{
		ExecutionID: r.state.ExecutionID,
		WorkflowID:  r.state.WorkflowID,
		NodeID:      nodeID,
		UpstreamID:  upstreamID,
	})

	r.releaseSuccessors(ctx, nodeID)
}

// beginCancel reacts to the caller's context: stop dispatching, signal every
// in-flight attempt, and resolve all unstarted nodes Cancelled.
func (r *execution) beginCancel(ctx context.Context) {
	r.cancelled = true
	r.cancelRun()
	r.logger.Debug("execution cancelled by caller", "in_flight", r.running)
	r.resolveUnstarted(ctx)
}

// beginAbort implements continue_on_error=false: the failing node's
// dependents are skipped, every other unstarted node is cancelled, and
// in-flight attempts are signalled.
func (r *execution) beginAbort(ctx context.Context, nodeID string, result domain.ExecutionResult) {
	r.aborted = true
	r.abortErr = &domain.WorkflowAbortedError{
		ExecutionID: r.state.ExecutionID,
		NodeID:      nodeID,
		Cause:       result.Error,
	}
	r.cancelRun()

	r.logger.Debug("aborting execution",
		"failed_node", nodeID,
		"in_flight", r.running)

	r.skipDependents(ctx, nodeID)
	r.resolveUnstarted(ctx)
}

// skipDependents marks the transitive downstream of nodeID Skipped.
func (r *execution) skipDependents(ctx context.Context, nodeID string) {
	for _, succ := range r.graph.Successors(nodeID) {
		if r.statuses[succ] != domain.NodeStatusPending {
			continue
		}
		r.markSkippedNoCascade(ctx, succ, nodeID)
		r.skipDependents(ctx, succ)
	}
}

func (r *execution) markSkippedNoCascade(ctx context.Context, nodeID, upstreamID string) {
	now := time.Now()
	r.record(ctx, nodeID, domain.ExecutionResult{
		Status:      domain.NodeStatusSkipped,
		Error:       &domain.ErrorInfo{NodeID: nodeID, Message: fmt.Sprintf("skipped: upstream node %q did not succeed", upstreamID)},
		StartedAt:   now,
		CompletedAt: now,
	})
	r.engine.metrics.nodeSkipped()
	r.engine.events.Publish(ctx, domain.NodeSkippedEvent{
		ExecutionID: r.state.ExecutionID,
		WorkflowID:  r.state.WorkflowID,
		NodeID:      nodeID,
		UpstreamID:  upstreamID,
	})
}

// resolveUnstarted finalizes every still-pending node as Cancelled.
func (r *execution) resolveUnstarted(ctx context.Context) {
	r.ready = nil
	for _, id := range r.graph.NodeIDs() {
		if r.statuses[id] != domain.NodeStatusPending {
			continue
		}
		now := time.Now()
		r.record(ctx, id, domain.ExecutionResult{
			Status:      domain.NodeStatusCancelled,
			Error:       &domain.ErrorInfo{NodeID: id, Message: "execution cancelled before node started"},
			StartedAt:   now,
			CompletedAt: now,
		})
	}
}

func (r *execution) finalize(ctx context.Context) {
	now := time.Now()
	r.state.CompletedAt = &now

	switch {
	case r.aborted:
		r.state.Status = domain.WorkflowStatusFailed
		r.state.Error = &domain.ErrorInfo{NodeID: r.abortErr.NodeID, Message: r.abortErr.Error()}
	case r.cancelled:
		r.state.Status = domain.WorkflowStatusCancelled
	case r.firstFailure != nil:
		r.state.Status = domain.WorkflowStatusFailed
		r.state.Error = r.firstFailure
	default:
		r.state.Status = domain.WorkflowStatusCompleted
	}

	r.engine.metrics.workflowFinished(string(r.state.Status))

	switch r.state.Status {
	case domain.WorkflowStatusCompleted:
		succeeded, skipped := 0, 0
		for _, result := range r.state.NodeResults {
			switch result.Status {
			case domain.NodeStatusSucceeded:
				succeeded++
			case domain.NodeStatusSkipped:
				skipped++
			}
		}
		r.engine.events.Publish(ctx, domain.WorkflowCompletedEvent{
			ExecutionID: r.state.ExecutionID,
			WorkflowID:  r.state.WorkflowID,
			CompletedAt: now,
			Duration:    now.Sub(r.state.StartedAt),
			Succeeded:   succeeded,
			Skipped:     skipped,
		})
	case domain.WorkflowStatusCancelled:
		var cancelledNodes []string
		for _, id := range r.graph.NodeIDs() {
			if r.statuses[id] == domain.NodeStatusCancelled {
				cancelledNodes = append(cancelledNodes, id)
			}
		}
		r.engine.events.Publish(ctx, domain.WorkflowCancelledEvent{
			ExecutionID:    r.state.ExecutionID,
			WorkflowID:     r.state.WorkflowID,
			CancelledAt:    now,
			CancelledNodes: cancelledNodes,
		})
	default:
		r.engine.events.Publish(ctx, domain.WorkflowFailedEvent{
			ExecutionID: r.state.ExecutionID,
			WorkflowID:  r.state.WorkflowID,
			FailedNode:  r.failedNode,
			Error:       r.state.Error,
			FailedAt:    now,
		})
	}

	r.logger.Debug("execution finished",
		"execution_id", r.state.ExecutionID,
		"status", r.state.Status,
		"duration", now.Sub(r.state.StartedAt))
}

func (r *execution) publishNodeStarted(ctx context.Context, nodeID, nodeType string, attempt int, at time.Time) {
	r.engine.events.Publish(ctx, domain.NodeStartedEvent{
		ExecutionID: r.state.ExecutionID,
		WorkflowID:  r.state.WorkflowID,
		NodeID:      nodeID,
		NodeType:    nodeType,
		Attempt:     attempt,
		StartedAt:   at,
	})
}

func (r *execution) cacheLookup(ctx context.Context, key string) (interface{}, bool) {
	value, found, err := r.engine.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache get failed, treating as miss", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	output, err := decodeCacheValue(value)
	if err != nil {
		r.logger.Warn("cache entry corrupt, treating as miss", "error", err)
		return nil, false
	}
	return output, true
}

func (r *execution) cacheStore(ctx context.Context, key string, output interface{}) {
	value, err := encodeCacheValue(output)
	if err != nil {
		r.logger.Warn("cache encode failed, skipping store", "error", err)
		return
	}
	if err := r.engine.cache.Put(ctx, key, value); err != nil {
		r.logger.Warn("cache put failed", "error", err)
	}
}

// nodeTimeout returns this node's wall-clock budget: a timeout_seconds config
// entry wins over the engine default.
func (r *execution) nodeTimeout(decl domain.WorkflowNode) time.Duration {
	if seconds, ok := numberConfig(decl.Config, domain.ConfigKeyTimeoutSeconds); ok && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return r.engine.config.DefaultTimeout
}

func (r *execution) nodeMaxRetries(nodeID string) int {
	decl, _ := r.graph.Node(nodeID)
	if n, ok := numberConfig(decl.Config, domain.ConfigKeyMaxRetries); ok && n >= 0 {
		return int(n)
	}
	return r.engine.config.MaxRetries
}

func numberConfig(config map[string]interface{}, key string) (float64, bool) {
	if config == nil {
		return 0, false
	}
	switch v := config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
