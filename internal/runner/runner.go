// Package runner executes one graph invocation end to end within the local
// process. It plays scheduler and executor at once: tasks are derived,
// recorded, allocated to the local executor, run against registered
// handlers, and finalized, with every state transition flowing through the
// store exactly as it would in a distributed deployment.
package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/store"
)

// Runner drives local invocations against one store and one handler
// registry, posing as a single executor.
type Runner struct {
	store    *store.Store
	registry *registry.Registry
	executor model.ExecutorMetadata
}

// New returns a runner that executes tasks as the given executor.
func New(st *store.Store, reg *registry.Registry, executor model.ExecutorMetadata) *Runner {
	return &Runner{store: st, registry: reg, executor: executor}
}

// Result summarizes a finished invocation.
type Result struct {
	// InvocationID is the fresh id minted for this invocation.
	InvocationID string

	// OutputKeys maps each compute function name to the storage keys of
	// the outputs it produced, in production order.
	OutputKeys map[string][]string

	// Analytics is the final per-function task counter state.
	Analytics map[string]model.TaskAnalytics
}

// workItem is one vertex activation: a node applied to one upstream output.
type workItem struct {
	node    model.Node
	payload model.DataPayload
	inputID string
}

// Invoke runs the named graph against one input payload and blocks until
// every reachable vertex has executed. Traversal is breadth-first from the
// graph's start function; a router's handler selects which of its declared
// targets receive the payload.
func (r *Runner) Invoke(ctx context.Context, namespace, graphName string, input model.DataPayload) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	g, found, err := r.store.ComputeGraph(ctx, namespace, graphName)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, fmt.Errorf("compute graph %s_%s not found", namespace, graphName)
	}
	if g.TombStoned {
		return Result{}, fmt.Errorf("compute graph %s is tombstoned", g.Key())
	}
	if g.StartFn == nil {
		return Result{}, fmt.Errorf("compute graph %s has no start function", g.Key())
	}
	if err := r.registry.ValidateGraph(ctx, g); err != nil {
		return Result{}, err
	}

	ingested, err := model.NewDataObject().
		Namespace(namespace).
		ComputeGraphName(graphName).
		ComputeFnName(g.StartFn.NodeName()).
		Payload(input).
		Build()
	if err != nil {
		return Result{}, err
	}
	ingestionKey, err := r.store.PutIngestedObject(ctx, ingested)
	if err != nil {
		return Result{}, err
	}

	invocationID := uuid.NewString()
	ictx, err := model.NewGraphInvocationCtx().
		Namespace(namespace).
		ComputeGraphName(graphName).
		InvocationID(invocationID).
		Build()
	if err != nil {
		return Result{}, err
	}
	if err := r.store.CreateInvocation(ctx, ictx); err != nil {
		return Result{}, err
	}
	logger.Info("invocation started", "invocation", ictx.Key(), "input", ingestionKey)
	ctx = ctxlog.With(ctx, "invocation", invocationID)

	result := Result{
		InvocationID: invocationID,
		OutputKeys:   make(map[string][]string),
	}

	queue := []workItem{{node: g.StartFn, payload: input, inputID: ingested.ID}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		item := queue[0]
		queue = queue[1:]

		switch node := item.node.(type) {
		case *model.ComputeFn:
			outputs, err := r.runComputeTask(ctx, &g, node, item, ingestionKey, invocationID)
			if err != nil {
				return Result{}, err
			}
			for _, out := range outputs {
				result.OutputKeys[node.Name] = append(result.OutputKeys[node.Name], out.key)
				for _, next := range g.Edges[node.Name] {
					queue = append(queue, workItem{node: next, payload: out.payload, inputID: out.key})
				}
			}
		case *model.Router:
			next, err := r.runRouterTask(ctx, &g, node, item, invocationID)
			if err != nil {
				return Result{}, err
			}
			queue = append(queue, next...)
		default:
			return Result{}, fmt.Errorf("graph %s: unknown node variant %T", g.Key(), item.node)
		}
	}

	final, found, err := r.store.InvocationCtx(ctx, namespace, graphName, invocationID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, fmt.Errorf("invocation %s disappeared during execution", ictx.Key())
	}
	result.Analytics = final.FnTaskAnalytics

	logger.Info("invocation finished", "invocation", ictx.Key())
	return result, nil
}

// fnOutput pairs a produced payload with the storage key it landed under.
type fnOutput struct {
	key     string
	payload model.DataPayload
}

// runComputeTask derives, records, allocates, executes, and finalizes one
// compute task. A handler error finalizes the task as failed and aborts the
// invocation.
func (r *Runner) runComputeTask(ctx context.Context, g *model.ComputeGraph, fn *model.ComputeFn, item workItem, ingestionKey, invocationID string) ([]fnOutput, error) {
	if !fn.MatchesExecutor(r.executor) {
		return nil, fmt.Errorf("compute %q: executor %s does not satisfy placement constraints", fn.Name, r.executor.ID)
	}

	task, err := r.beginTask(ctx, g, fn, item, invocationID)
	if err != nil {
		return nil, err
	}
	if err := r.store.AllocateTask(ctx, task, r.executor.ID); err != nil {
		return nil, err
	}

	handler, ok := r.registry.Fn(fn.FnName)
	if !ok {
		return nil, fmt.Errorf("compute %q: no handler registered for fn %q", fn.Name, fn.FnName)
	}
	payloads, err := handler(ctx, item.payload)
	if err != nil {
		task.Outcome = model.TaskOutcomeFailure
		if finishErr := r.store.FinishTask(ctx, task); finishErr != nil {
			return nil, finishErr
		}
		return nil, fmt.Errorf("compute %q failed: %w", fn.Name, err)
	}

	outputs := make([]fnOutput, 0, len(payloads))
	for _, payload := range payloads {
		obj, err := model.NewDataObject().
			Namespace(g.Namespace).
			ComputeGraphName(g.Name).
			ComputeFnName(fn.Name).
			Payload(payload).
			Build()
		if err != nil {
			return nil, err
		}
		key, err := r.store.PutFnOutput(ctx, obj, ingestionKey)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, fnOutput{key: key, payload: payload})
	}

	task.Outcome = model.TaskOutcomeSuccess
	if err := r.store.FinishTask(ctx, task); err != nil {
		return nil, err
	}
	return outputs, nil
}

// runRouterTask derives and finalizes one router task, returning the work
// items for the targets the router handler selected. A selection outside
// the router's declared target list is a hard error.
func (r *Runner) runRouterTask(ctx context.Context, g *model.ComputeGraph, router *model.Router, item workItem, invocationID string) ([]workItem, error) {
	task, err := r.beginTask(ctx, g, router, item, invocationID)
	if err != nil {
		return nil, err
	}

	handler, ok := r.registry.Router(router.Name)
	if !ok {
		return nil, fmt.Errorf("router %q: no handler registered", router.Name)
	}
	targets, err := handler(ctx, item.payload)
	if err != nil {
		task.Outcome = model.TaskOutcomeFailure
		if finishErr := r.store.FinishTask(ctx, task); finishErr != nil {
			return nil, finishErr
		}
		return nil, fmt.Errorf("router %q failed: %w", router.Name, err)
	}

	declared := make(map[string]struct{}, len(router.TargetFunctions))
	for _, name := range router.TargetFunctions {
		declared[name] = struct{}{}
	}

	next := make([]workItem, 0, len(targets))
	for _, target := range targets {
		if _, ok := declared[target]; !ok {
			return nil, fmt.Errorf("router %q selected %q, which is not in its target list", router.Name, target)
		}
		node, ok := g.Node(target)
		if !ok {
			return nil, fmt.Errorf("router %q target %q is not a declared node", router.Name, target)
		}
		next = append(next, workItem{node: node, payload: item.payload, inputID: item.inputID})
	}

	task.Outcome = model.TaskOutcomeSuccess
	if err := r.store.FinishTask(ctx, task); err != nil {
		return nil, err
	}
	return next, nil
}

// beginTask derives the vertex's task, counts it pending, and records it.
func (r *Runner) beginTask(ctx context.Context, g *model.ComputeGraph, node model.Node, item workItem, invocationID string) (model.Task, error) {
	task, err := node.CreateTask(g.Namespace, g.Name, item.inputID, invocationID)
	if err != nil {
		return model.Task{}, err
	}
	err = r.store.UpdateAnalytics(ctx, g.Namespace, g.Name, invocationID, node.NodeName(), (*model.TaskAnalytics).Pending)
	if err != nil {
		return model.Task{}, err
	}
	if err := r.store.PutTask(ctx, task); err != nil {
		return model.Task{}, err
	}
	ctxlog.FromContext(ctx).Debug("task created", "task", task.Key())
	return task, nil
}
