package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/loomhq/loom/internal/adapters/registry"
	"github.com/loomhq/loom/internal/domain"
)

// TestExecute_RandomDAGProperties drives random layered DAGs through the
// engine and checks the scheduling laws: every node succeeds exactly once,
// no node starts before all of its dependencies completed, and the number of
// concurrently running nodes never exceeds the configured bound.
func TestExecute_RandomDAGProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		layerSizes := rapid.SliceOfN(rapid.IntRange(1, 3), 1, 4).Draw(rt, "layer_sizes")
		bound := rapid.IntRange(1, 4).Draw(rt, "max_concurrent")

		var layers [][]string
		var nodes []domain.WorkflowNode
		for li, size := range layerSizes {
			var layer []string
			for ni := 0; ni < size; ni++ {
				id := fmt.Sprintf("l%dn%d", li, ni)
				layer = append(layer, id)
				nodes = append(nodes, domain.WorkflowNode{ID: id, Type: "work"})
			}
			layers = append(layers, layer)
		}

		var edges []domain.WorkflowEdge
		for li := 1; li < len(layers); li++ {
			for _, target := range layers[li] {
				for _, source := range layers[li-1] {
					if rapid.Bool().Draw(rt, "edge_"+source+"_"+target) {
						edges = append(edges, domain.WorkflowEdge{Source: source, Target: target})
					}
				}
			}
		}

		g := domain.NewWorkflowGraph()
		for _, node := range nodes {
			if err := g.AddNode(node); err != nil {
				rt.Fatalf("add node: %v", err)
			}
		}
		for _, edge := range edges {
			if err := g.AddEdge(edge); err != nil {
				rt.Fatalf("add edge: %v", err)
			}
		}

		var current, peak, invocations atomic.Int32
		reg := registry.NewAdapter(discardLogger())
		registerFn(reg, "work", func(context.Context, *domain.ExecutionContext) domain.ExecutionResult {
			invocations.Add(1)
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
			return okResult(nil)
		})

		cfg := domain.DefaultEngineConfig()
		cfg.MaxConcurrentNodes = bound

		e, _ := newTestEngine(cfg, reg)
		state, err := e.Execute(context.Background(), "random-dag", g, nil)
		if err != nil {
			rt.Fatalf("execute: %v", err)
		}

		if state.Status != domain.WorkflowStatusCompleted {
			rt.Fatalf("status = %s, want completed", state.Status)
		}
		if int(invocations.Load()) != len(nodes) {
			rt.Fatalf("invocations = %d, want %d", invocations.Load(), len(nodes))
		}
		for _, node := range nodes {
			result, ok := state.NodeResults[node.ID]
			if !ok || result.Status != domain.NodeStatusSucceeded {
				rt.Fatalf("node %s missing or not succeeded", node.ID)
			}
		}
		for _, edge := range edges {
			source := state.NodeResults[edge.Source]
			target := state.NodeResults[edge.Target]
			if target.StartedAt.Before(source.CompletedAt) {
				rt.Fatalf("node %s started before dependency %s completed", edge.Target, edge.Source)
			}
		}
		if int(peak.Load()) > bound {
			rt.Fatalf("peak concurrency %d exceeds bound %d", peak.Load(), bound)
		}
	})
}
