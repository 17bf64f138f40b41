package engine

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/loomhq/loom/internal/domain"
	"github.com/loomhq/loom/internal/ports"
)

// refPattern matches {{scope}} and {{scope.field.path}} references. Scope is
// a node id or the reserved "variables" namespace.
var refPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_\-]+)((?:\.[A-Za-z0-9_\-]+)*)\s*\}\}`)

type reference struct {
	raw   string
	scope string
	path  []string
}

// resolver computes a node's inputs and interpolated config from upstream
// results and run variables. It is rebuilt per dispatch from data owned by
// the scheduling loop, so it needs no locking.
type resolver struct {
	graph     *domain.WorkflowGraph
	results   map[string]*domain.ExecutionResult
	variables map[string]interface{}
}

// resolveInputs builds the input map for nodeID: schema defaults first, then
// one binding per incoming edge. An edge binds the upstream output (projected
// through OutputKey when set) under InputKey, falling back to OutputKey and
// finally to the source node id.
func (r *resolver) resolveInputs(nodeID string, schema ports.NodeSchema) (map[string]interface{}, error) {
	inputs := make(map[string]interface{})
	for _, port := range schema.Inputs {
		if port.Default != nil {
			inputs[port.Name] = port.Default
		}
	}

	for _, edge := range r.graph.InEdges(nodeID) {
		result, ok := r.results[edge.Source]
		if !ok || result.Status != domain.NodeStatusSucceeded {
			return nil, domain.NewNodeConfigError(nodeID, edge.InputKey,
				fmt.Sprintf("upstream node %q has no successful result", edge.Source))
		}

		value := result.Output
		if edge.OutputKey != "" {
			projected, err := project(value, []string{edge.OutputKey})
			if err != nil {
				return nil, domain.NewNodeConfigError(nodeID, edge.InputKey,
					fmt.Sprintf("output %q of node %q: %v", edge.OutputKey, edge.Source, err))
			}
			value = projected
		}

		name := edge.InputKey
		if name == "" {
			name = edge.OutputKey
		}
		if name == "" {
			name = edge.Source
		}
		inputs[name] = value
	}

	return inputs, nil
}

// interpolateConfig substitutes {{node_id.field}} references in every
// string-valued config entry, recursing through nested maps and slices.
// Resolution is two passes: collect all references, then substitute; an
// unresolvable reference fails the whole node rather than passing the
// template through silently.
func (r *resolver) interpolateConfig(nodeID string, config map[string]interface{}) (map[string]interface{}, error) {
	if len(config) == 0 {
		return map[string]interface{}{}, nil
	}

	for _, ref := range collectRefs(config) {
		if _, err := r.lookup(ref); err != nil {
			return nil, domain.NewNodeConfigError(nodeID, "", err.Error())
		}
	}

	resolved, err := r.substituteValue(config)
	if err != nil {
		return nil, domain.NewNodeConfigError(nodeID, "", err.Error())
	}
	return resolved.(map[string]interface{}), nil
}

func collectRefs(value interface{}) []reference {
	var refs []reference
	walkStrings(value, func(s string) {
		for _, match := range refPattern.FindAllStringSubmatch(s, -1) {
			refs = append(refs, parseRef(match))
		}
	})
	return refs
}

func walkStrings(value interface{}, fn func(string)) {
	switch v := value.(type) {
	case string:
		fn(v)
	case map[string]interface{}:
		for _, item := range v {
			walkStrings(item, fn)
		}
	case []interface{}:
		for _, item := range v {
			walkStrings(item, fn)
		}
	}
}

func parseRef(match []string) reference {
	ref := reference{raw: match[0], scope: match[1]}
	if match[2] != "" {
		ref.path = strings.Split(strings.TrimPrefix(match[2], "."), ".")
	}
	return ref
}

func (r *resolver) substituteValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return r.substituteString(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			resolved, err := r.substituteValue(item)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			resolved, err := r.substituteValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

// substituteString replaces references in one string. When the whole string
// is a single reference the referenced value is returned unchanged, so
// non-string outputs survive interpolation with their type intact.
func (r *resolver) substituteString(s string) (interface{}, error) {
	match := refPattern.FindStringSubmatch(s)
	if match != nil && match[0] == strings.TrimSpace(s) {
		return r.lookup(parseRef(match))
	}

	var firstErr error
	out := refPattern.ReplaceAllStringFunc(s, func(raw string) string {
		value, err := r.lookup(parseRef(refPattern.FindStringSubmatch(raw)))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return raw
		}
		return stringify(value)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (r *resolver) lookup(ref reference) (interface{}, error) {
	if ref.scope == domain.VariablesScope {
		value, err := project(r.variables, ref.path)
		if err != nil {
			return nil, fmt.Errorf("reference %s: %v", ref.raw, err)
		}
		return value, nil
	}

	result, ok := r.results[ref.scope]
	if !ok || result.Status != domain.NodeStatusSucceeded {
		return nil, fmt.Errorf("reference %s: node %q has no successful result", ref.raw, ref.scope)
	}

	value, err := project(result.Output, ref.path)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %v", ref.raw, err)
	}
	return value, nil
}

// project walks a dot path into nested maps.
func project(value interface{}, path []string) (interface{}, error) {
	for _, field := range path {
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: value is %T, not an object", field, value)
		}
		value, ok = m[field]
		if !ok {
			return nil, fmt.Errorf("field %q not present", field)
		}
	}
	return value, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
