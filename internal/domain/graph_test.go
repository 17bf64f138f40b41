package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, ids []string, edges [][2]string) *WorkflowGraph {
	t.Helper()
	g := NewWorkflowGraph()
	for _, id := range ids {
		require.NoError(t, g.AddNode(WorkflowNode{ID: id, Type: "test"}))
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(WorkflowEdge{Source: e[0], Target: e[1]}))
	}
	return g
}

func TestAddNode_DuplicateID(t *testing.T) {
	g := NewWorkflowGraph()
	require.NoError(t, g.AddNode(WorkflowNode{ID: "a", Type: "test"}))

	err := g.AddNode(WorkflowNode{ID: "a", Type: "other"})
	require.Error(t, err)
	assert.True(t, IsDuplicateID(err))
}

func TestAddNode_ReservedID(t *testing.T) {
	g := NewWorkflowGraph()
	err := g.AddNode(WorkflowNode{ID: VariablesScope, Type: "test"})
	require.Error(t, err)
	assert.True(t, IsNodeConfigError(err))
}

func TestAddNode_EmptyID(t *testing.T) {
	g := NewWorkflowGraph()
	assert.Error(t, g.AddNode(WorkflowNode{Type: "test"}))
}

func TestAddEdge_DanglingEndpoints(t *testing.T) {
	g := NewWorkflowGraph()
	require.NoError(t, g.AddNode(WorkflowNode{ID: "a", Type: "test"}))

	err := g.AddEdge(WorkflowEdge{Source: "a", Target: "ghost"})
	require.Error(t, err)
	assert.True(t, IsDanglingEdge(err))

	err = g.AddEdge(WorkflowEdge{Source: "ghost", Target: "a"})
	require.Error(t, err)
	assert.True(t, IsDanglingEdge(err))
}

func TestValidate_AcyclicGraph(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"}, [][2]string{
		{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"},
	})

	require.NoError(t, g.Validate())
	assert.True(t, g.Sealed())

	// Validate is idempotent on a sealed graph.
	require.NoError(t, g.Validate())
}

func TestValidate_ReportsCyclePath(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, [][2]string{
		{"a", "b"}, {"b", "c"}, {"c", "a"},
	})

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, IsCycleDetected(err))

	var ve *GraphValidationError
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve.Cycle)
	assert.Equal(t, ve.Cycle[0], ve.Cycle[len(ve.Cycle)-1], "cycle path should be closed")
	assert.GreaterOrEqual(t, len(ve.Cycle), 4)
}

func TestValidate_SelfLoop(t *testing.T) {
	g := buildGraph(t, []string{"a"}, [][2]string{{"a", "a"}})

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, IsCycleDetected(err))
}

func TestMutationAfterSeal(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	require.NoError(t, g.Validate())

	assert.ErrorIs(t, g.AddNode(WorkflowNode{ID: "c", Type: "test"}), ErrGraphSealed)
	assert.ErrorIs(t, g.AddEdge(WorkflowEdge{Source: "a", Target: "b"}), ErrGraphSealed)
}

func TestInDegreesAndNeighbors(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"}, [][2]string{
		{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"},
	})

	degrees := g.InDegrees()
	assert.Equal(t, 0, degrees["a"])
	assert.Equal(t, 1, degrees["b"])
	assert.Equal(t, 1, degrees["c"])
	assert.Equal(t, 2, degrees["d"])

	assert.Equal(t, []string{"b", "c"}, g.Successors("a"))
	assert.Equal(t, []string{"b", "c"}, g.Predecessors("d"))
	assert.Empty(t, g.Successors("d"))
}

func TestInEdges_PreservesOrder(t *testing.T) {
	g := NewWorkflowGraph()
	for _, id := range []string{"x", "y", "z"} {
		require.NoError(t, g.AddNode(WorkflowNode{ID: id, Type: "test"}))
	}
	require.NoError(t, g.AddEdge(WorkflowEdge{Source: "y", Target: "z", InputKey: "first"}))
	require.NoError(t, g.AddEdge(WorkflowEdge{Source: "x", Target: "z", InputKey: "second"}))

	in := g.InEdges("z")
	require.Len(t, in, 2)
	assert.Equal(t, "first", in[0].InputKey)
	assert.Equal(t, "second", in[1].InputKey)
}
