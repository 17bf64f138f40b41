package domain

import (
	"sort"
)

// VariablesScope is the reserved interpolation namespace for run variables;
// no node may claim it as an id.
const VariablesScope = "variables"

// WorkflowEdge connects Source to Target. When OutputKey is set, only that
// field of the source output flows across; when InputKey is set, the value is
// bound under that name instead of the source node id.
type WorkflowEdge struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	OutputKey string `json:"output_key,omitempty"`
	InputKey  string `json:"input_key,omitempty"`
}

// WorkflowGraph holds nodes and edges. Mutations are rejected once Validate
// has succeeded, so a validated graph can be shared across runs.
type WorkflowGraph struct {
	nodes  map[string]WorkflowNode
	edges  []WorkflowEdge
	sealed bool
}

func NewWorkflowGraph() *WorkflowGraph {
	return &WorkflowGraph{
		nodes: make(map[string]WorkflowNode),
	}
}

func (g *WorkflowGraph) AddNode(node WorkflowNode) error {
	if g.sealed {
		return ErrGraphSealed
	}
	if node.ID == "" {
		return NewNodeConfigError(node.ID, "", "node id cannot be empty")
	}
	if node.ID == VariablesScope {
		return NewNodeConfigError(node.ID, "", "node id 'variables' is reserved for run variables")
	}
	if _, exists := g.nodes[node.ID]; exists {
		return NewDuplicateIDError(node.ID)
	}
	g.nodes[node.ID] = node
	return nil
}

func (g *WorkflowGraph) AddEdge(edge WorkflowEdge) error {
	if g.sealed {
		return ErrGraphSealed
	}
	if _, ok := g.nodes[edge.Source]; !ok {
		return NewDanglingEdgeError(edge, edge.Source)
	}
	if _, ok := g.nodes[edge.Target]; !ok {
		return NewDanglingEdgeError(edge, edge.Target)
	}
	g.edges = append(g.edges, edge)
	return nil
}

// Validate checks referential integrity and acyclicity, then seals the graph.
// A second call on a sealed graph is a no-op success.
func (g *WorkflowGraph) Validate() error {
	if g.sealed {
		return nil
	}

	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.Source]; !ok {
			return NewDanglingEdgeError(edge, edge.Source)
		}
		if _, ok := g.nodes[edge.Target]; !ok {
			return NewDanglingEdgeError(edge, edge.Target)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return NewCycleError(cycle)
	}

	g.sealed = true
	return nil
}

// findCycle runs a depth-first traversal with an explicit recursion stack and
// returns the offending path (closed: first element repeated at the end) or
// nil for an acyclic graph.
func (g *WorkflowGraph) findCycle() []string {
	adj := g.adjacency()

	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = inStack
		stack = append(stack, id)

		for _, next := range adj[id] {
			switch color[next] {
			case inStack:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				return append(cycle, next)
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = finished
		return nil
	}

	for _, id := range g.NodeIDs() {
		if color[id] == unvisited {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func (g *WorkflowGraph) Node(id string) (WorkflowNode, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// NodeIDs returns all node ids in lexical order, giving deterministic
// traversal and dispatch seeding.
func (g *WorkflowGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *WorkflowGraph) Edges() []WorkflowEdge {
	out := make([]WorkflowEdge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *WorkflowGraph) Len() int {
	return len(g.nodes)
}

func (g *WorkflowGraph) Sealed() bool {
	return g.sealed
}

// InDegrees returns the count of distinct predecessors per node, the seed for
// Kahn-style readiness tracking. Parallel edges between the same pair count
// once, matching how completion releases successors.
func (g *WorkflowGraph) InDegrees() map[string]int {
	degrees := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		degrees[id] = len(g.Predecessors(id))
	}
	return degrees
}

// Successors returns the distinct targets of edges leaving id, in lexical
// order.
func (g *WorkflowGraph) Successors(id string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, edge := range g.edges {
		if edge.Source != id {
			continue
		}
		if _, dup := seen[edge.Target]; dup {
			continue
		}
		seen[edge.Target] = struct{}{}
		out = append(out, edge.Target)
	}
	sort.Strings(out)
	return out
}

// Predecessors returns the distinct sources of edges entering id, in lexical
// order.
func (g *WorkflowGraph) Predecessors(id string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, edge := range g.edges {
		if edge.Target != id {
			continue
		}
		if _, dup := seen[edge.Source]; dup {
			continue
		}
		seen[edge.Source] = struct{}{}
		out = append(out, edge.Source)
	}
	sort.Strings(out)
	return out
}

// InEdges returns every edge entering id, preserving insertion order so that
// later bindings override earlier ones predictably.
func (g *WorkflowGraph) InEdges(id string) []WorkflowEdge {
	var out []WorkflowEdge
	for _, edge := range g.edges {
		if edge.Target == id {
			out = append(out, edge)
		}
	}
	return out
}

func (g *WorkflowGraph) adjacency() map[string][]string {
	adj := make(map[string][]string, len(g.nodes))
	for id := range g.nodes {
		adj[id] = g.Successors(id)
	}
	return adj
}
