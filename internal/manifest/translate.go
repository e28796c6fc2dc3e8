package manifest

import (
	"fmt"

	"github.com/vk/gridflow/internal/filter"
	"github.com/vk/gridflow/internal/model"
)

// translateGraph converts one decoded `graph` block into a model graph.
// Every name referenced by start_fn or edges must resolve to a declared
// compute or router block. Cycles are deliberately not rejected here; the
// model layer does not validate them either.
func translateGraph(raw *Graph) (model.ComputeGraph, error) {
	if raw.Namespace == "" {
		return model.ComputeGraph{}, fmt.Errorf("graph %q: namespace is required", raw.Name)
	}
	if raw.Code == nil {
		return model.ComputeGraph{}, fmt.Errorf("graph %q: code block is required", raw.Name)
	}

	nodes := make(map[string]model.Node)
	for _, c := range raw.Computes {
		if _, ok := nodes[c.Name]; ok {
			return model.ComputeGraph{}, fmt.Errorf("graph %q: duplicate node %q", raw.Name, c.Name)
		}
		constraints, err := filter.Parse(c.PlacementConstraints...)
		if err != nil {
			return model.ComputeGraph{}, fmt.Errorf("graph %q, compute %q: %w", raw.Name, c.Name, err)
		}
		fnName := c.FnName
		if fnName == "" {
			fnName = c.Name
		}
		nodes[c.Name] = &model.ComputeFn{
			Name:                 c.Name,
			Description:          c.Description,
			PlacementConstraints: constraints,
			FnName:               fnName,
		}
	}
	for _, r := range raw.Routers {
		if _, ok := nodes[r.Name]; ok {
			return model.ComputeGraph{}, fmt.Errorf("graph %q: duplicate node %q", raw.Name, r.Name)
		}
		if _, ok := nodes[r.SourceFn]; !ok {
			return model.ComputeGraph{}, fmt.Errorf("graph %q, router %q: unknown source_fn %q", raw.Name, r.Name, r.SourceFn)
		}
		for _, target := range r.TargetFunctions {
			if _, ok := nodes[target]; !ok {
				return model.ComputeGraph{}, fmt.Errorf("graph %q, router %q: unknown target function %q", raw.Name, r.Name, target)
			}
		}
		nodes[r.Name] = &model.Router{
			Name:            r.Name,
			Description:     r.Description,
			SourceFn:        r.SourceFn,
			TargetFunctions: r.TargetFunctions,
		}
	}

	start, ok := nodes[raw.StartFn]
	if !ok {
		return model.ComputeGraph{}, fmt.Errorf("graph %q: start_fn %q is not a declared node", raw.Name, raw.StartFn)
	}

	edges := make(map[string][]model.Node, len(raw.Edges))
	for source, targets := range raw.Edges {
		if _, ok := nodes[source]; !ok {
			return model.ComputeGraph{}, fmt.Errorf("graph %q: edge source %q is not a declared node", raw.Name, source)
		}
		resolved := make([]model.Node, 0, len(targets))
		for _, target := range targets {
			n, ok := nodes[target]
			if !ok {
				return model.ComputeGraph{}, fmt.Errorf("graph %q: edge %s -> %s references an undeclared node", raw.Name, source, target)
			}
			resolved = append(resolved, n)
		}
		edges[source] = resolved
	}

	return model.ComputeGraph{
		Namespace:   raw.Namespace,
		Name:        raw.Name,
		Description: raw.Description,
		Code: model.ComputeGraphCode{
			Path:       raw.Code.Path,
			Size:       raw.Code.Size,
			SHA256Hash: raw.Code.SHA256Hash,
		},
		CreatedAt: nowMillis(),
		StartFn:   start,
		Edges:     edges,
	}, nil
}
