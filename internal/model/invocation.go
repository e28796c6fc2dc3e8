package model

import "fmt"

// GraphInvocationCtx tracks one invocation of a graph on one input. It is
// created once per invocation and mutated (through the store) as tasks
// progress; it is never recreated.
type GraphInvocationCtx struct {
	Namespace        string                   `json:"namespace"`
	ComputeGraphName string                   `json:"compute_graph_name"`
	InvocationID     string                   `json:"invocation_id"`
	FnTaskAnalytics  map[string]TaskAnalytics `json:"fn_task_analytics"`
}

// Key returns the storage key "{namespace}_{graph}_{invocation_id}".
func (c *GraphInvocationCtx) Key() string {
	return fmt.Sprintf("%s_%s_%s", c.Namespace, c.ComputeGraphName, c.InvocationID)
}

// GraphInvocationCtxBuilder assembles a GraphInvocationCtx. Every
// attribute is required; Build fails with a field-naming error when one
// was not supplied.
type GraphInvocationCtxBuilder struct {
	namespace        *string
	computeGraphName *string
	invocationID     *string
}

// NewGraphInvocationCtx returns an empty invocation context builder.
func NewGraphInvocationCtx() *GraphInvocationCtxBuilder {
	return &GraphInvocationCtxBuilder{}
}

func (b *GraphInvocationCtxBuilder) Namespace(namespace string) *GraphInvocationCtxBuilder {
	b.namespace = &namespace
	return b
}

func (b *GraphInvocationCtxBuilder) ComputeGraphName(name string) *GraphInvocationCtxBuilder {
	b.computeGraphName = &name
	return b
}

func (b *GraphInvocationCtxBuilder) InvocationID(id string) *GraphInvocationCtxBuilder {
	b.invocationID = &id
	return b
}

// Build returns the assembled context with an empty analytics map.
func (b *GraphInvocationCtxBuilder) Build() (GraphInvocationCtx, error) {
	if b.namespace == nil {
		return GraphInvocationCtx{}, missingField("namespace")
	}
	if b.computeGraphName == nil {
		return GraphInvocationCtx{}, missingField("compute_graph_name")
	}
	if b.invocationID == nil {
		return GraphInvocationCtx{}, missingField("invocation_id")
	}
	return GraphInvocationCtx{
		Namespace:        *b.namespace,
		ComputeGraphName: *b.computeGraphName,
		InvocationID:     *b.invocationID,
		FnTaskAnalytics:  make(map[string]TaskAnalytics),
	}, nil
}
