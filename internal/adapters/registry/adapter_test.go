package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/internal/domain"
	"github.com/loomhq/loom/internal/ports"
)

type stubNode struct {
	id string
}

func (n *stubNode) Execute(_ context.Context, _ *domain.ExecutionContext) domain.ExecutionResult {
	return domain.ExecutionResult{Status: domain.NodeStatusSucceeded}
}

func (n *stubNode) Schema() ports.NodeSchema { return ports.NodeSchema{} }

func stubFactory(id string, _ map[string]interface{}) (ports.Node, error) {
	return &stubNode{id: id}, nil
}

func TestAdapter_RegisterAndCreate(t *testing.T) {
	r := NewAdapter(nil)
	r.Register("echo", stubFactory)

	node, err := r.Create("echo", "n1", nil)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "n1", node.(*stubNode).id)
}

func TestAdapter_CreateUnknownType(t *testing.T) {
	r := NewAdapter(nil)

	_, err := r.Create("missing", "n1", nil)
	require.Error(t, err)

	var unknownErr *domain.UnknownNodeTypeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "missing", unknownErr.TypeName)
	assert.Equal(t, "n1", unknownErr.NodeID)
}

func TestAdapter_CreatePropagatesFactoryError(t *testing.T) {
	r := NewAdapter(nil)
	boom := errors.New("bad config")
	r.Register("broken", func(string, map[string]interface{}) (ports.Node, error) {
		return nil, boom
	})

	_, err := r.Create("broken", "n1", nil)
	assert.ErrorIs(t, err, boom)
}

func TestAdapter_RegisterOverwrites(t *testing.T) {
	r := NewAdapter(nil)
	r.Register("echo", func(string, map[string]interface{}) (ports.Node, error) {
		return nil, errors.New("old factory")
	})
	r.Register("echo", stubFactory)

	node, err := r.Create("echo", "n1", nil)
	require.NoError(t, err)
	assert.NotNil(t, node)
}

func TestAdapter_RegisterIgnoresInvalid(t *testing.T) {
	r := NewAdapter(nil)
	r.Register("", stubFactory)
	r.Register("nil-factory", nil)

	assert.Empty(t, r.Types())
}

func TestAdapter_TypesSorted(t *testing.T) {
	r := NewAdapter(nil)
	r.Register("zeta", stubFactory)
	r.Register("alpha", stubFactory)
	r.Register("mid", stubFactory)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Types())
}
