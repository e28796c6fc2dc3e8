package store

import (
	"context"
	"fmt"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
)

// PutTask persists a task under its derived key. A task that already
// reached a terminal outcome cannot be rewritten with a different one:
// last write wins is forbidden for outcomes.
func (s *Store) PutTask(ctx context.Context, task model.Task) error {
	key := prefixTask + task.Key()

	var existing model.Task
	found, err := s.getJSON(key, &existing)
	if err != nil {
		return err
	}
	if found && existing.TerminalState() && existing.Outcome != task.Outcome {
		return fmt.Errorf("task %s already finalized as %s", task.ID, existing.Outcome)
	}

	return s.putJSON(key, task)
}

// Task fetches a task by its storage key. The boolean reports presence.
func (s *Store) Task(ctx context.Context, taskKey string) (model.Task, bool, error) {
	var out model.Task
	found, err := s.getJSON(prefixTask+taskKey, &out)
	return out, found, err
}

// TasksForInvocation range-scans every task of one invocation, in key
// order. The human-readable task key layout makes this a plain prefix
// scan.
func (s *Store) TasksForInvocation(ctx context.Context, namespace, graphName, invocationID string) ([]model.Task, error) {
	prefix := fmt.Sprintf("%s%s_%s_%s_", prefixTask, namespace, graphName, invocationID)
	var out []model.Task
	err := scanJSON(s, prefix, func(_ string, task model.Task) error {
		out = append(out, task)
		return nil
	})
	return out, err
}

// FinishTask records a terminal outcome: the task is rewritten, the
// invocation's per-function counters move from pending to the terminal
// bucket, and a TaskFinished event is appended for the reconciler.
func (s *Store) FinishTask(ctx context.Context, task model.Task) error {
	if !task.TerminalState() {
		return fmt.Errorf("task %s has no terminal outcome to record", task.ID)
	}
	if err := s.PutTask(ctx, task); err != nil {
		return err
	}

	update := (*model.TaskAnalytics).Success
	if task.Outcome == model.TaskOutcomeFailure {
		update = (*model.TaskAnalytics).Fail
	}
	err := s.UpdateAnalytics(ctx, task.Namespace, task.ComputeGraphName, task.InvocationID, task.ComputeFnName, update)
	if err != nil {
		return err
	}

	_, err = s.AppendStateChange(ctx, task.Key(), model.TaskFinishedEvent{
		Namespace:    task.Namespace,
		ComputeGraph: task.ComputeGraphName,
		ComputeFn:    task.ComputeFnName,
		TaskID:       task.ID.String(),
	})
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("task finished", "task", task.Key(), "outcome", task.Outcome)
	return nil
}

// AllocateTask assigns a task to an executor. The allocation key embeds
// the executor id and the task's creation time in nanoseconds, so a prefix
// scan per executor yields allocations oldest first.
func (s *Store) AllocateTask(ctx context.Context, task model.Task, executorID model.ExecutorID) error {
	key := prefixAllocation + task.MakeAllocationKey(executorID)
	if err := s.putJSON(key, task.Key()); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("task allocated", "task", task.Key(), "executor", executorID)
	return nil
}

// AllocationsForExecutor returns the task keys allocated to one executor,
// oldest first. Keys are recovered from the allocation key itself, not the
// stored value, so a malformed key surfaces as an error instead of a
// silent skip.
func (s *Store) AllocationsForExecutor(ctx context.Context, executorID model.ExecutorID) ([]string, error) {
	prefix := prefixAllocation + executorID.String() + "_"
	var out []string
	err := scanJSON(s, prefix, func(key string, _ string) error {
		taskKey, err := model.TaskKeyFromAllocationKey([]byte(executorID.String() + "_" + key))
		if err != nil {
			return err
		}
		out = append(out, string(taskKey))
		return nil
	})
	return out, err
}
