package loom

import (
	json "github.com/goccy/go-json"

	"github.com/loomhq/loom/internal/domain"
)

// GraphSpec is the wire format a workflow arrives in from the HTTP or CLI
// surface: a flat list of nodes and edges.
type GraphSpec struct {
	Nodes []NodeSpec `json:"nodes"`
	Edges []EdgeSpec `json:"edges"`
}

type NodeSpec struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

type EdgeSpec struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	OutputKey string `json:"output_key,omitempty"`
	InputKey  string `json:"input_key,omitempty"`
}

// BuildGraph constructs and validates a graph from its wire form. It fails
// on the first structural defect: duplicate id, dangling edge, or cycle.
func BuildGraph(spec GraphSpec) (*Graph, error) {
	graph := NewGraph()

	for _, node := range spec.Nodes {
		if err := graph.AddNode(domain.WorkflowNode{
			ID:     node.ID,
			Type:   node.Type,
			Config: node.Config,
		}); err != nil {
			return nil, err
		}
	}

	for _, edge := range spec.Edges {
		if err := graph.AddEdge(domain.WorkflowEdge{
			Source:    edge.Source,
			Target:    edge.Target,
			OutputKey: edge.OutputKey,
			InputKey:  edge.InputKey,
		}); err != nil {
			return nil, err
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

// ParseGraph decodes the JSON wire form and builds a validated graph.
func ParseGraph(data []byte) (*Graph, error) {
	var spec GraphSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return BuildGraph(spec)
}
