package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
)

// ValidateGraph performs a strict parity check between a graph's vertices
// and the registered Go handlers. Every compute vertex must have a fn
// handler under its fn_name and every router vertex a router handler under
// its own name.
func (r *Registry) ValidateGraph(ctx context.Context, g model.ComputeGraph) error {
	var errs []string

	for name, node := range graphNodes(g) {
		switch v := node.(type) {
		case *model.ComputeFn:
			if _, ok := r.fns[v.FnName]; !ok {
				errs = append(errs, fmt.Sprintf("compute '%s': no handler registered for fn '%s'", name, v.FnName))
			}
		case *model.Router:
			if _, ok := r.routers[v.Name]; !ok {
				errs = append(errs, fmt.Sprintf("router '%s': no router handler registered", name))
			}
		default:
			errs = append(errs, fmt.Sprintf("vertex '%s': unknown node variant %T", name, node))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("graph '%s' validation failed:\n- %s", g.Key(), strings.Join(errs, "\n- "))
	}

	ctxlog.FromContext(ctx).Debug("graph validated against registry", "graph", g.Key())
	return nil
}

// graphNodes collects every vertex of the graph by name: the start vertex,
// edge sources that appear as targets elsewhere, and all edge targets.
func graphNodes(g model.ComputeGraph) map[string]model.Node {
	nodes := make(map[string]model.Node)
	if g.StartFn != nil {
		nodes[g.StartFn.NodeName()] = g.StartFn
	}
	for _, targets := range g.Edges {
		for _, n := range targets {
			nodes[n.NodeName()] = n
		}
	}
	return nodes
}
