package model

import (
	"encoding/json"
	"fmt"

	"github.com/vk/gridflow/internal/filter"
)

// NodeKind tags the closed set of Node variants on the wire.
type NodeKind string

const (
	NodeKindRouter  NodeKind = "router"
	NodeKindCompute NodeKind = "compute"
)

// Node is one DAG vertex: either a dynamic edge router that fans out to
// named targets, or a compute function. The variant set is closed;
// consumers match exhaustively on Kind.
type Node interface {
	Kind() NodeKind

	// NodeName is the logical name the vertex is addressed by in edges
	// and task derivation.
	NodeName() string

	// CreateTask builds the task for running this vertex against one
	// input within one invocation.
	CreateTask(namespace, computeGraphName, inputID, invocationID string) (Task, error)
}

// Router is a fan-out vertex. The static target list declares which
// downstream vertices may receive the source function's output; selection
// among them at runtime is external to this model.
type Router struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	SourceFn        string   `json:"source_fn"`
	TargetFunctions []string `json:"target_functions"`
}

func (r *Router) Kind() NodeKind {
	return NodeKindRouter
}

func (r *Router) NodeName() string {
	return r.Name
}

func (r *Router) CreateTask(namespace, computeGraphName, inputID, invocationID string) (Task, error) {
	return newNodeTask(r.Name, namespace, computeGraphName, inputID, invocationID)
}

// ComputeFn is a compute vertex: one function of the pipeline, with the
// placement constraints eligible executors must satisfy.
type ComputeFn struct {
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	PlacementConstraints filter.LabelsFilter `json:"placement_constraints"`
	FnName               string              `json:"fn_name"`
}

func (c *ComputeFn) Kind() NodeKind {
	return NodeKindCompute
}

func (c *ComputeFn) NodeName() string {
	return c.Name
}

func (c *ComputeFn) CreateTask(namespace, computeGraphName, inputID, invocationID string) (Task, error) {
	return newNodeTask(c.Name, namespace, computeGraphName, inputID, invocationID)
}

// MatchesExecutor reports whether the executor's labels satisfy this
// function's placement constraints.
func (c *ComputeFn) MatchesExecutor(executor ExecutorMetadata) bool {
	return c.PlacementConstraints.Matches(executor.Labels)
}

func newNodeTask(nodeName, namespace, computeGraphName, inputID, invocationID string) (Task, error) {
	return NewTask().
		Namespace(namespace).
		ComputeGraphName(computeGraphName).
		ComputeFnName(nodeName).
		InputDataID(inputID).
		InvocationID(invocationID).
		Build()
}

// ComputeGraphCode describes the published code artifact for a graph. The
// hash is verified against the referenced content by an external content
// store.
type ComputeGraphCode struct {
	Path       string `json:"path"`
	Size       uint64 `json:"size"`
	SHA256Hash string `json:"sha256_hash"`
}

// ComputeGraph is a named, namespaced DAG of functions. It is logically
// immutable once published, except for tombstoning. Edges map a vertex
// name to its downstream vertices; this layer does not validate cycles or
// dangling references.
type ComputeGraph struct {
	Namespace   string
	Name        string
	Description string
	Code        ComputeGraphCode
	CreatedAt   uint64
	TombStoned  bool
	StartFn     Node
	Edges       map[string][]Node
}

// Key returns the storage key for the graph: "{namespace}_{name}".
func (g *ComputeGraph) Key() string {
	return fmt.Sprintf("%s_%s", g.Namespace, g.Name)
}

// Node returns the vertex with the given logical name, searching the start
// vertex and every edge target.
func (g *ComputeGraph) Node(name string) (Node, bool) {
	if g.StartFn != nil && g.StartFn.NodeName() == name {
		return g.StartFn, true
	}
	for _, targets := range g.Edges {
		for _, n := range targets {
			if n.NodeName() == name {
				return n, true
			}
		}
	}
	return nil, false
}

// nodeEnvelope is the tagged wire form of a Node variant.
type nodeEnvelope struct {
	Kind    NodeKind   `json:"kind"`
	Router  *Router    `json:"router,omitempty"`
	Compute *ComputeFn `json:"compute,omitempty"`
}

func envelopeNode(n Node) (nodeEnvelope, error) {
	switch v := n.(type) {
	case *Router:
		return nodeEnvelope{Kind: NodeKindRouter, Router: v}, nil
	case *ComputeFn:
		return nodeEnvelope{Kind: NodeKindCompute, Compute: v}, nil
	default:
		return nodeEnvelope{}, fmt.Errorf("unknown node variant %T", n)
	}
}

func (e nodeEnvelope) node() (Node, error) {
	switch e.Kind {
	case NodeKindRouter:
		if e.Router == nil {
			return nil, fmt.Errorf("router node missing payload")
		}
		return e.Router, nil
	case NodeKindCompute:
		if e.Compute == nil {
			return nil, fmt.Errorf("compute node missing payload")
		}
		return e.Compute, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", e.Kind)
	}
}

// computeGraphWire is the JSON shape of a ComputeGraph, with node variants
// wrapped in tagged envelopes.
type computeGraphWire struct {
	Namespace   string                    `json:"namespace"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Code        ComputeGraphCode          `json:"code"`
	CreatedAt   uint64                    `json:"created_at"`
	TombStoned  bool                      `json:"tomb_stoned"`
	StartFn     *nodeEnvelope             `json:"start_fn,omitempty"`
	Edges       map[string][]nodeEnvelope `json:"edges,omitempty"`
}

func (g ComputeGraph) MarshalJSON() ([]byte, error) {
	wire := computeGraphWire{
		Namespace:   g.Namespace,
		Name:        g.Name,
		Description: g.Description,
		Code:        g.Code,
		CreatedAt:   g.CreatedAt,
		TombStoned:  g.TombStoned,
	}
	if g.StartFn != nil {
		env, err := envelopeNode(g.StartFn)
		if err != nil {
			return nil, err
		}
		wire.StartFn = &env
	}
	if g.Edges != nil {
		wire.Edges = make(map[string][]nodeEnvelope, len(g.Edges))
		for name, targets := range g.Edges {
			envs := make([]nodeEnvelope, 0, len(targets))
			for _, n := range targets {
				env, err := envelopeNode(n)
				if err != nil {
					return nil, err
				}
				envs = append(envs, env)
			}
			wire.Edges[name] = envs
		}
	}
	return json.Marshal(wire)
}

func (g *ComputeGraph) UnmarshalJSON(data []byte) error {
	var wire computeGraphWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := ComputeGraph{
		Namespace:   wire.Namespace,
		Name:        wire.Name,
		Description: wire.Description,
		Code:        wire.Code,
		CreatedAt:   wire.CreatedAt,
		TombStoned:  wire.TombStoned,
	}
	if wire.StartFn != nil {
		n, err := wire.StartFn.node()
		if err != nil {
			return err
		}
		out.StartFn = n
	}
	if wire.Edges != nil {
		out.Edges = make(map[string][]Node, len(wire.Edges))
		for name, envs := range wire.Edges {
			targets := make([]Node, 0, len(envs))
			for _, env := range envs {
				n, err := env.node()
				if err != nil {
					return err
				}
				targets = append(targets, n)
			}
			out.Edges[name] = targets
		}
	}
	*g = out
	return nil
}
