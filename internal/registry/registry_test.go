package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridflow/internal/filter"
	"github.com/vk/gridflow/internal/model"
)

func nopHandler(_ context.Context, _ model.DataPayload) ([]model.DataPayload, error) {
	return nil, nil
}

func nopRouter(_ context.Context, _ model.DataPayload) ([]string, error) {
	return nil, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	r.RegisterFn("extract", nopHandler)
	r.RegisterRouter("route", nopRouter)

	_, ok := r.Fn("extract")
	assert.True(t, ok)
	_, ok = r.Fn("missing")
	assert.False(t, ok)

	_, ok = r.Router("route")
	assert.True(t, ok)
	_, ok = r.Router("extract")
	assert.False(t, ok)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New()
	r.RegisterFn("extract", nopHandler)
	assert.Panics(t, func() { r.RegisterFn("extract", nopHandler) })

	r.RegisterRouter("route", nopRouter)
	assert.Panics(t, func() { r.RegisterRouter("route", nopRouter) })
}

func validationGraph() model.ComputeGraph {
	extract := &model.ComputeFn{Name: "extract", FnName: "extract_text"}
	summarize := &model.ComputeFn{Name: "summarize", FnName: "summarize", PlacementConstraints: filter.LabelsFilter{}}
	route := &model.Router{Name: "route", SourceFn: "extract", TargetFunctions: []string{"summarize"}}
	return model.ComputeGraph{
		Namespace: "ns",
		Name:      "pipeline",
		StartFn:   extract,
		Edges: map[string][]model.Node{
			"extract": {route},
			"route":   {summarize},
		},
	}
}

func TestValidateGraph(t *testing.T) {
	g := validationGraph()

	r := New()
	r.RegisterFn("extract_text", nopHandler)
	r.RegisterFn("summarize", nopHandler)
	r.RegisterRouter("route", nopRouter)

	require.NoError(t, r.ValidateGraph(context.Background(), g))
}

func TestValidateGraphMissingHandlers(t *testing.T) {
	g := validationGraph()

	r := New()
	r.RegisterFn("summarize", nopHandler)

	err := r.ValidateGraph(context.Background(), g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered for fn 'extract_text'")
	assert.Contains(t, err.Error(), "router 'route': no router handler registered")
}
