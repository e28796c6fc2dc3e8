package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridflow/internal/filter"
)

func testGraph() ComputeGraph {
	extract := &ComputeFn{Name: "extract", Description: "extract text", FnName: "extract"}
	route := &Router{Name: "route", Description: "pick a summarizer", SourceFn: "extract", TargetFunctions: []string{"short", "long"}}
	short := &ComputeFn{Name: "short", FnName: "summarize_short"}
	long := &ComputeFn{Name: "long", FnName: "summarize_long"}

	return ComputeGraph{
		Namespace:   "ns1",
		Name:        "g1",
		Description: "summarization pipeline",
		Code:        ComputeGraphCode{Path: "graphs/g1.zip", Size: 1024, SHA256Hash: "deadbeef"},
		CreatedAt:   1700000000,
		StartFn:     extract,
		Edges: map[string][]Node{
			"extract": {route},
			"route":   {short, long},
		},
	}
}

func TestComputeGraphKey(t *testing.T) {
	g := testGraph()
	assert.Equal(t, "ns1_g1", g.Key())
}

func TestComputeGraphNodeLookup(t *testing.T) {
	g := testGraph()

	start, ok := g.Node("extract")
	require.True(t, ok)
	assert.Equal(t, NodeKindCompute, start.Kind())

	router, ok := g.Node("route")
	require.True(t, ok)
	assert.Equal(t, NodeKindRouter, router.Kind())

	_, ok = g.Node("missing")
	assert.False(t, ok)
}

func TestNodeCreateTask(t *testing.T) {
	g := testGraph()

	testCases := []struct {
		name     string
		node     string
		wantFn   string
		wantKind NodeKind
	}{
		{name: "compute node", node: "extract", wantFn: "extract", wantKind: NodeKindCompute},
		{name: "router node", node: "route", wantFn: "route", wantKind: NodeKindRouter},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := g.Node(tc.node)
			require.True(t, ok)
			require.Equal(t, tc.wantKind, n.Kind())

			task, err := n.CreateTask("ns1", "g1", "in1", "inv1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantFn, task.ComputeFnName)
			assert.Equal(t, "ns1", task.Namespace)
			assert.Equal(t, "g1", task.ComputeGraphName)
			assert.Equal(t, "in1", task.InputDataID)
			assert.Equal(t, "inv1", task.InvocationID)
			assert.Equal(t, TaskOutcomeUnknown, task.Outcome)
			assert.NotEmpty(t, task.ID)
		})
	}
}

func TestComputeFnMatchesExecutor(t *testing.T) {
	fn := &ComputeFn{
		Name:                 "train",
		FnName:               "train",
		PlacementConstraints: filter.MustParse("labels.gpu"),
	}

	gpu := ExecutorMetadata{ID: "exec-gpu", Addr: "10.0.0.1:9000", Labels: map[string]any{"gpu": true}}
	cpu := ExecutorMetadata{ID: "exec-cpu", Addr: "10.0.0.2:9000", Labels: map[string]any{"gpu": false}}

	assert.True(t, fn.MatchesExecutor(gpu))
	assert.False(t, fn.MatchesExecutor(cpu))

	// No constraints: any executor is eligible.
	open := &ComputeFn{Name: "any", FnName: "any"}
	assert.True(t, open.MatchesExecutor(cpu))
}

func TestComputeGraphJSONRoundTrip(t *testing.T) {
	g := testGraph()

	data, err := json.Marshal(g)
	require.NoError(t, err)

	// Node variants must be tagged on the wire.
	assert.Contains(t, string(data), `"kind":"router"`)
	assert.Contains(t, string(data), `"kind":"compute"`)

	var decoded ComputeGraph
	require.NoError(t, json.Unmarshal(data, &decoded))

	if diff := cmp.Diff(g, decoded, cmp.Comparer(func(a, b filter.LabelsFilter) bool {
		return cmp.Equal(a.Sources(), b.Sources())
	})); diff != "" {
		t.Errorf("graph changed across JSON round trip (-want +got):\n%s", diff)
	}
}

func TestComputeGraphUnknownNodeKindRejected(t *testing.T) {
	raw := `{"namespace":"ns1","name":"g1","start_fn":{"kind":"mystery"}}`
	var decoded ComputeGraph
	require.Error(t, json.Unmarshal([]byte(raw), &decoded))
}
