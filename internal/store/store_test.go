package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridflow/internal/model"
	"github.com/vk/gridflow/internal/sequence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenWithSequencer(Config{InMemory: true}, sequence.NewCounter())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testStoreGraph() model.ComputeGraph {
	start := &model.ComputeFn{Name: "extract", FnName: "extract"}
	sink := &model.ComputeFn{Name: "index", FnName: "index"}
	return model.ComputeGraph{
		Namespace: "ns1",
		Name:      "g1",
		Code:      model.ComputeGraphCode{Path: "graphs/g1.zip", Size: 10, SHA256Hash: "aa"},
		CreatedAt: 1700000000,
		StartFn:   start,
		Edges:     map[string][]model.Node{"extract": {sink}},
	}
}

func mustTask(t *testing.T, fn, input, invocation string) model.Task {
	t.Helper()
	task, err := model.NewTask().
		Namespace("ns1").
		ComputeGraphName("g1").
		ComputeFnName(fn).
		InputDataID(input).
		InvocationID(invocation).
		Build()
	require.NoError(t, err)
	return task
}

func mustInvocation(t *testing.T, s *Store, invocationID string) model.GraphInvocationCtx {
	t.Helper()
	ictx, err := model.NewGraphInvocationCtx().
		Namespace("ns1").
		ComputeGraphName("g1").
		InvocationID(invocationID).
		Build()
	require.NoError(t, err)
	require.NoError(t, s.CreateInvocation(context.Background(), ictx))
	return ictx
}

func TestNamespaceUniqueness(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateNamespace(ctx, "tenant-a")
	require.NoError(t, err)

	_, err = s.CreateNamespace(ctx, "tenant-a")
	require.Error(t, err)

	namespaces, err := s.Namespaces(ctx)
	require.NoError(t, err)
	require.Len(t, namespaces, 1)
	assert.Equal(t, "tenant-a", namespaces[0].Name)
}

func TestComputeGraphRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g := testStoreGraph()

	require.NoError(t, s.PutComputeGraph(ctx, g))

	got, found, err := s.ComputeGraph(ctx, "ns1", "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ns1_g1", got.Key())
	assert.Equal(t, "extract", got.StartFn.NodeName())

	_, found, err = s.ComputeGraph(ctx, "ns1", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTombstonedGraphCannotBeRepublished(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g := testStoreGraph()

	require.NoError(t, s.PutComputeGraph(ctx, g))
	require.NoError(t, s.TombstoneComputeGraph(ctx, "ns1", "g1"))

	err := s.PutComputeGraph(ctx, g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tombstoned")

	changes, err := s.UnprocessedChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeKindTombstoneComputeGraph, changes[0].ChangeType.ChangeKind())
	assert.Equal(t, "ns1_g1", changes[0].ObjectID)
}

func TestCreateInvocationAppendsEventAndRejectsDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ictx := mustInvocation(t, s, "inv1")

	err := s.CreateInvocation(ctx, ictx)
	require.Error(t, err)

	changes, err := s.UnprocessedChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	ev, ok := changes[0].ChangeType.(model.InvokeComputeGraphEvent)
	require.True(t, ok)
	assert.Equal(t, "inv1", ev.InvocationID)
	assert.Equal(t, "ns1_g1_inv1", changes[0].ObjectID)
}

func TestUpdateAnalytics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustInvocation(t, s, "inv1")

	pending := (*model.TaskAnalytics).Pending
	success := (*model.TaskAnalytics).Success

	require.NoError(t, s.UpdateAnalytics(ctx, "ns1", "g1", "inv1", "extract", pending))
	require.NoError(t, s.UpdateAnalytics(ctx, "ns1", "g1", "inv1", "extract", pending))
	require.NoError(t, s.UpdateAnalytics(ctx, "ns1", "g1", "inv1", "extract", success))

	ictx, found, err := s.InvocationCtx(ctx, "ns1", "g1", "inv1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.TaskAnalytics{PendingTasks: 1, SuccessfulTasks: 1}, ictx.FnTaskAnalytics["extract"])

	err = s.UpdateAnalytics(ctx, "ns1", "g1", "missing", "extract", pending)
	require.Error(t, err)
}

func TestUpdateAnalyticsOnLegacyRecordWithoutCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Invocation records written before fn_task_analytics existed carry
	// only the identifying fields.
	legacy := map[string]string{
		"namespace":          "ns1",
		"compute_graph_name": "g1",
		"invocation_id":      "inv1",
	}
	require.NoError(t, s.putJSON(prefixInvocation+"ns1_g1_inv1", legacy))

	success := (*model.TaskAnalytics).Success
	require.NoError(t, s.UpdateAnalytics(ctx, "ns1", "g1", "inv1", "extract", success))

	ictx, found, err := s.InvocationCtx(ctx, "ns1", "g1", "inv1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.TaskAnalytics{SuccessfulTasks: 1}, ictx.FnTaskAnalytics["extract"])
}

func TestPutTaskRejectsOutcomeRewrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task := mustTask(t, "extract", "in1", "inv1")
	require.NoError(t, s.PutTask(ctx, task))

	task.Outcome = model.TaskOutcomeSuccess
	require.NoError(t, s.PutTask(ctx, task))

	// Idempotent rewrite of the same terminal outcome is fine.
	require.NoError(t, s.PutTask(ctx, task))

	task.Outcome = model.TaskOutcomeFailure
	err := s.PutTask(ctx, task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already finalized")
}

func TestTasksForInvocation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, in := range []string{"in1", "in2"} {
		require.NoError(t, s.PutTask(ctx, mustTask(t, "extract", in, "inv1")))
	}
	require.NoError(t, s.PutTask(ctx, mustTask(t, "extract", "in1", "inv2")))

	tasks, err := s.TasksForInvocation(ctx, "ns1", "g1", "inv1")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "inv1", task.InvocationID)
	}
}

func TestFinishTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustInvocation(t, s, "inv1")

	task := mustTask(t, "extract", "in1", "inv1")
	require.NoError(t, s.PutTask(ctx, task))
	require.NoError(t, s.UpdateAnalytics(ctx, "ns1", "g1", "inv1", "extract", (*model.TaskAnalytics).Pending))

	// A task without a terminal outcome cannot be finished.
	require.Error(t, s.FinishTask(ctx, task))

	task.Outcome = model.TaskOutcomeSuccess
	require.NoError(t, s.FinishTask(ctx, task))

	ictx, _, err := s.InvocationCtx(ctx, "ns1", "g1", "inv1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskAnalytics{SuccessfulTasks: 1}, ictx.FnTaskAnalytics["extract"])

	changes, err := s.UnprocessedChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 2) // InvokeComputeGraph, TaskFinished
	finished, ok := changes[1].ChangeType.(model.TaskFinishedEvent)
	require.True(t, ok)
	assert.Equal(t, task.ID.String(), finished.TaskID)
}

func TestAllocationsForExecutorTimeOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := mustTask(t, "extract", "in1", "inv1")
	older.CreationTime = time.Unix(1700000000, 0).UTC()
	newer := mustTask(t, "extract", "in2", "inv1")
	newer.CreationTime = time.Unix(1700000500, 0).UTC()

	// Insert newest first; the scan must still come back oldest first.
	require.NoError(t, s.AllocateTask(ctx, newer, "exec-1"))
	require.NoError(t, s.AllocateTask(ctx, older, "exec-1"))
	require.NoError(t, s.AllocateTask(ctx, older, "exec-2"))

	keys, err := s.AllocationsForExecutor(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, older.Key(), keys[0])
	assert.Equal(t, newer.Key(), keys[1])
}

func TestExecutorRegistration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	md := model.ExecutorMetadata{ID: "exec-1", Addr: "10.0.0.1:9000", Labels: map[string]any{"gpu": true}}
	require.NoError(t, s.RegisterExecutor(ctx, md))

	executors, err := s.Executors(ctx)
	require.NoError(t, err)
	require.Len(t, executors, 1)
	assert.Equal(t, md.ID, executors[0].ID)

	require.NoError(t, s.DeregisterExecutor(ctx, "exec-1"))
	executors, err = s.Executors(ctx)
	require.NoError(t, err)
	assert.Empty(t, executors)

	changes, err := s.UnprocessedChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, model.ChangeKindExecutorAdded, changes[0].ChangeType.ChangeKind())
	assert.Equal(t, model.ChangeKindExecutorRemoved, changes[1].ChangeType.ChangeKind())
}

func TestStateChangeLogOrderAndMarkProcessed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var appended []model.StateChange
	for i := 0; i < 5; i++ {
		change, err := s.AppendStateChange(ctx, "exec-1", model.ExecutorAdded{})
		require.NoError(t, err)
		appended = append(appended, change)
	}

	changes, err := s.StateChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 5)
	for i := 1; i < len(changes); i++ {
		assert.Greater(t, changes[i].ID, changes[i-1].ID, "log must scan in creation order")
	}

	require.NoError(t, s.MarkProcessed(ctx, appended[2].ID))

	unprocessed, err := s.UnprocessedChanges(ctx)
	require.NoError(t, err)
	assert.Len(t, unprocessed, 4)

	// processed_at is set exactly once.
	err = s.MarkProcessed(ctx, appended[2].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already processed")

	err = s.MarkProcessed(ctx, model.StateChangeID(999))
	require.Error(t, err)
}

func TestDataObjectStorage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	obj, err := model.NewDataObject().
		Namespace("ns1").
		ComputeGraphName("g1").
		ComputeFnName("extract").
		Payload(model.DataPayload{Path: "in.bin", Size: 3, SHA256Hash: "abc"}).
		Build()
	require.NoError(t, err)

	key, err := s.PutIngestedObject(ctx, obj)
	require.NoError(t, err)

	// Idempotent re-ingestion lands on the same key.
	again, err := s.PutIngestedObject(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	got, found, err := s.DataObject(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, obj, got)

	outKey, err := s.PutFnOutput(ctx, obj, key)
	require.NoError(t, err)
	assert.NotEqual(t, key, outKey)

	require.NoError(t, s.TombstoneIngestedObject(ctx, key))
	_, found, err = s.DataObject(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	changes, err := s.UnprocessedChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeKindTombstoneIngestedData, changes[0].ChangeType.ChangeKind())
}
