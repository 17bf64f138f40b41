package ports

import (
	"context"

	"github.com/loomhq/loom/internal/domain"
)

// Node is the single contract every workflow step implements. Execute must
// not panic outward (the engine recovers as a safety net), must observe ctx
// cancellation and return promptly, and must be safe to re-invoke with the
// same inputs under retry. All failures surface in the returned result, never
// as a crash.
type Node interface {
	Execute(ctx context.Context, ectx *domain.ExecutionContext) domain.ExecutionResult
	Schema() NodeSchema
}

// PortSpec describes one named input or output of a node type.
type PortSpec struct {
	Name        string      `json:"name"`
	Required    bool        `json:"required,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
}

// NodeSchema is the declarative port list used for pre-dispatch validation:
// a node with a required input that no edge binding or default satisfies is
// rejected before the run starts.
type NodeSchema struct {
	Inputs  []PortSpec `json:"inputs,omitempty"`
	Outputs []PortSpec `json:"outputs,omitempty"`
}

// Input returns the input port spec with the given name.
func (s NodeSchema) Input(name string) (PortSpec, bool) {
	for _, p := range s.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return PortSpec{}, false
}

// NodeFactory builds a node instance from its declared id and config.
type NodeFactory func(id string, config map[string]interface{}) (Node, error)

// NodeRegistry maps type names to factories. The engine ships no built-in
// node types; callers populate the registry at startup.
type NodeRegistry interface {
	// Register installs a factory for typeName. Re-registering an existing
	// name overwrites the previous factory (last-writer-wins); tests rely on
	// this to substitute instrumented node types.
	Register(typeName string, factory NodeFactory)

	// Create instantiates a node of the given type. Returns
	// *domain.UnknownNodeTypeError when no factory is registered.
	Create(typeName, id string, config map[string]interface{}) (Node, error)

	// Types lists the registered type names in lexical order.
	Types() []string
}
