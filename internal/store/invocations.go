package store

import (
	"context"
	"fmt"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
)

// CreateInvocation persists a fresh invocation context and appends the
// InvokeComputeGraph event that tells the reconciler to start scheduling.
// An invocation context is created exactly once; re-creating one is a
// caller error.
func (s *Store) CreateInvocation(ctx context.Context, ictx model.GraphInvocationCtx) error {
	key := prefixInvocation + ictx.Key()

	var existing model.GraphInvocationCtx
	found, err := s.getJSON(key, &existing)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("invocation %s already exists", ictx.Key())
	}

	if err := s.putJSON(key, ictx); err != nil {
		return err
	}
	_, err = s.AppendStateChange(ctx, ictx.Key(), model.InvokeComputeGraphEvent{
		InvocationID: ictx.InvocationID,
		Namespace:    ictx.Namespace,
		ComputeGraph: ictx.ComputeGraphName,
	})
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("invocation created", "invocation", ictx.Key())
	return nil
}

// InvocationCtx fetches an invocation context. The boolean reports
// presence.
func (s *Store) InvocationCtx(ctx context.Context, namespace, graphName, invocationID string) (model.GraphInvocationCtx, bool, error) {
	ictx := model.GraphInvocationCtx{
		Namespace:        namespace,
		ComputeGraphName: graphName,
		InvocationID:     invocationID,
	}
	var out model.GraphInvocationCtx
	found, err := s.getJSON(prefixInvocation+ictx.Key(), &out)
	return out, found, err
}

// UpdateAnalytics applies a counter update for one (invocation, function)
// pair. The read-modify-write is serialized store-wide: concurrent
// Success/Fail calls on the same counters without this serialization would
// race and could violate non-negativity.
func (s *Store) UpdateAnalytics(ctx context.Context, namespace, graphName, invocationID, fnName string, update func(*model.TaskAnalytics)) error {
	s.analyticsMu.Lock()
	defer s.analyticsMu.Unlock()

	ictx, found, err := s.InvocationCtx(ctx, namespace, graphName, invocationID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("invocation %s_%s_%s not found", namespace, graphName, invocationID)
	}

	// Records written before fn_task_analytics existed unmarshal with a
	// nil map.
	if ictx.FnTaskAnalytics == nil {
		ictx.FnTaskAnalytics = make(map[string]model.TaskAnalytics)
	}
	analytics := ictx.FnTaskAnalytics[fnName]
	update(&analytics)
	ictx.FnTaskAnalytics[fnName] = analytics

	return s.putJSON(prefixInvocation+ictx.Key(), ictx)
}
