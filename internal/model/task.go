package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/gridflow/internal/identity"
)

// TaskID is the derived identity of one unit of work. Re-deriving a task
// for the same logical tuple yields the same id.
type TaskID string

func (id TaskID) String() string {
	return string(id)
}

// TaskOutcome is the terminal-state machine of a task. The only legal
// transitions are Unknown to Success and Unknown to Failure; a terminal
// outcome never changes again.
type TaskOutcome string

const (
	TaskOutcomeUnknown TaskOutcome = "Unknown"
	TaskOutcomeSuccess TaskOutcome = "Success"
	TaskOutcomeFailure TaskOutcome = "Failure"
)

// Task is one unit of work: one function applied to one input within one
// invocation.
type Task struct {
	ID               TaskID      `json:"id"`
	Namespace        string      `json:"namespace"`
	ComputeFnName    string      `json:"compute_fn_name"`
	ComputeGraphName string      `json:"compute_graph_name"`
	InvocationID     string      `json:"invocation_id"`
	InputDataID      string      `json:"input_data_id"`
	Outcome          TaskOutcome `json:"outcome"`
	CreationTime     time.Time   `json:"creation_time"`
}

// TerminalState reports whether the task has reached a terminal outcome.
func (t *Task) TerminalState() bool {
	return t.Outcome != TaskOutcomeUnknown
}

// Key returns the storage key
// "{namespace}_{compute_graph_name}_{invocation_id}_{fn_name}_{task_id}",
// human-readable and range-scannable by invocation or by function.
func (t *Task) Key() string {
	return fmt.Sprintf("%s_%s_%s_%s_%s",
		t.Namespace, t.ComputeGraphName, t.InvocationID, t.ComputeFnName, t.ID)
}

// MakeAllocationKey returns the routing key that assigns this task to an
// executor: "{executor_id}_{nanoseconds_since_epoch}_{task_key}". The
// timestamp derives from the task's creation time so that, sorted
// byte-lexicographically, one executor's allocations come out time-ordered.
func (t *Task) MakeAllocationKey(executorID ExecutorID) string {
	nanos := uint64(t.CreationTime.Unix())*1_000_000_000 + uint64(t.CreationTime.Nanosecond())
	return fmt.Sprintf("%s_%d_%s", executorID, nanos, t.Key())
}

// TaskKeyFromAllocationKey inverts MakeAllocationKey: it skips exactly two
// '_'-delimited segments (executor id, timestamp) and returns the remainder
// verbatim. It fails with ErrInvalidExecutorKey when fewer than two
// delimiters are present; it never returns a truncated best guess.
func TaskKeyFromAllocationKey(allocationKey []byte) ([]byte, error) {
	pos1 := bytes.IndexByte(allocationKey, '_')
	if pos1 < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidExecutorKey, allocationKey)
	}
	pos2 := bytes.IndexByte(allocationKey[pos1+1:], '_')
	if pos2 < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidExecutorKey, allocationKey)
	}
	rest := allocationKey[pos1+1+pos2+1:]
	out := make([]byte, len(rest))
	copy(out, rest)
	return out, nil
}

func (t Task) String() string {
	return fmt.Sprintf("Task(id: %s, compute_fn_name: %s, compute_graph_name: %s, input_data_id: %s, outcome: %s)",
		t.ID, t.ComputeFnName, t.ComputeGraphName, t.InputDataID, t.Outcome)
}

// taskWire mirrors Task for deserialization so an absent creation_time can
// be defaulted without recursing into UnmarshalJSON.
type taskWire struct {
	ID               TaskID      `json:"id"`
	Namespace        string      `json:"namespace"`
	ComputeFnName    string      `json:"compute_fn_name"`
	ComputeGraphName string      `json:"compute_graph_name"`
	InvocationID     string      `json:"invocation_id"`
	InputDataID      string      `json:"input_data_id"`
	Outcome          TaskOutcome `json:"outcome"`
	CreationTime     *time.Time  `json:"creation_time"`
}

// UnmarshalJSON decodes a task, defaulting creation_time to the Unix epoch
// when absent. Records written by older schema versions carry no creation
// time; the epoch is an upgrade-path default, not "now".
func (t *Task) UnmarshalJSON(data []byte) error {
	var wire taskWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	creationTime := time.Unix(0, 0).UTC()
	if wire.CreationTime != nil {
		creationTime = *wire.CreationTime
	}
	*t = Task{
		ID:               wire.ID,
		Namespace:        wire.Namespace,
		ComputeFnName:    wire.ComputeFnName,
		ComputeGraphName: wire.ComputeGraphName,
		InvocationID:     wire.InvocationID,
		InputDataID:      wire.InputDataID,
		Outcome:          wire.Outcome,
		CreationTime:     creationTime,
	}
	return nil
}

// TaskBuilder assembles a Task. Every attribute is required; Build fails
// with a field-naming error when one was not supplied.
type TaskBuilder struct {
	namespace        *string
	computeGraphName *string
	computeFnName    *string
	inputDataID      *string
	invocationID     *string
}

// NewTask returns an empty task builder.
func NewTask() *TaskBuilder {
	return &TaskBuilder{}
}

func (b *TaskBuilder) Namespace(namespace string) *TaskBuilder {
	b.namespace = &namespace
	return b
}

func (b *TaskBuilder) ComputeGraphName(name string) *TaskBuilder {
	b.computeGraphName = &name
	return b
}

func (b *TaskBuilder) ComputeFnName(name string) *TaskBuilder {
	b.computeFnName = &name
	return b
}

func (b *TaskBuilder) InputDataID(id string) *TaskBuilder {
	b.inputDataID = &id
	return b
}

func (b *TaskBuilder) InvocationID(id string) *TaskBuilder {
	b.invocationID = &id
	return b
}

// Build derives the task id and returns the assembled task with outcome
// Unknown. The hash field order — compute_graph_name, compute_fn_name,
// input_data_id, invocation_id, namespace — is a compatibility contract:
// idempotent retry logic depends on recomputing the same id for the same
// logical task.
func (b *TaskBuilder) Build() (Task, error) {
	if b.namespace == nil {
		return Task{}, missingField("namespace")
	}
	if b.computeGraphName == nil {
		return Task{}, missingField("compute_graph_name")
	}
	if b.computeFnName == nil {
		return Task{}, missingField("compute_fn_name")
	}
	if b.inputDataID == nil {
		return Task{}, missingField("input_data_id")
	}
	if b.invocationID == nil {
		return Task{}, missingField("invocation_id")
	}

	id := identity.HexID(
		*b.computeGraphName,
		*b.computeFnName,
		*b.inputDataID,
		*b.invocationID,
		*b.namespace,
	)
	return Task{
		ID:               TaskID(id),
		Namespace:        *b.namespace,
		ComputeGraphName: *b.computeGraphName,
		ComputeFnName:    *b.computeFnName,
		InputDataID:      *b.inputDataID,
		InvocationID:     *b.invocationID,
		Outcome:          TaskOutcomeUnknown,
		CreationTime:     time.Now().UTC(),
	}, nil
}
