package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/loomhq/loom/internal/domain"
	"github.com/loomhq/loom/internal/ports"
)

// Adapter is the in-process node type registry: a factory map keyed by type
// name, safe for concurrent use.
type Adapter struct {
	factories map[string]ports.NodeFactory
	mu        sync.RWMutex
	logger    *slog.Logger
}

func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		factories: make(map[string]ports.NodeFactory),
		logger:    logger.With("component", "node-registry"),
	}
}

// Register installs a factory for typeName. Registering the same name again
// replaces the previous factory; this is intentional so tests can override
// production node types in place.
func (r *Adapter) Register(typeName string, factory ports.NodeFactory) {
	if typeName == "" || factory == nil {
		r.logger.Error("ignoring invalid registration", "type_name", typeName, "factory_nil", factory == nil)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeName]; exists {
		r.logger.Debug("overwriting registered node type", "type_name", typeName)
	}

	r.factories[typeName] = factory
	r.logger.Debug("node type registered", "type_name", typeName, "total_types", len(r.factories))
}

func (r *Adapter) Create(typeName, id string, config map[string]interface{}) (ports.Node, error) {
	r.mu.RLock()
	factory, exists := r.factories[typeName]
	r.mu.RUnlock()

	if !exists {
		r.logger.Debug("node type not found", "type_name", typeName, "node_id", id)
		return nil, domain.NewUnknownNodeTypeError(id, typeName)
	}

	node, err := factory(id, config)
	if err != nil {
		r.logger.Debug("node factory failed", "type_name", typeName, "node_id", id, "error", err)
		return nil, err
	}

	return node, nil
}

func (r *Adapter) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
