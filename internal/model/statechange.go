package model

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// StateChangeID is the position of a record in the state-change log. Ids
// are assigned by an external monotonic sequence (a consensus or
// single-writer layer); this model only consumes them.
type StateChangeID uint64

// ToKey encodes the id as 8 fixed-width big-endian bytes, so that
// byte-lexicographic order in the store equals numeric order and the log
// can be range-scanned in creation order.
func (id StateChangeID) ToKey() [8]byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(id))
	return key
}

// StateChangeIDFromKey inverts ToKey.
func StateChangeIDFromKey(key [8]byte) StateChangeID {
	return StateChangeID(binary.BigEndian.Uint64(key[:]))
}

// ChangeKind tags the closed set of ChangeType variants.
type ChangeKind string

const (
	ChangeKindInvokeComputeGraph    ChangeKind = "InvokeComputeGraph"
	ChangeKindTaskFinished          ChangeKind = "TaskFinished"
	ChangeKindTombstoneIngestedData ChangeKind = "TombstoneIngestedData"
	ChangeKindTombstoneComputeGraph ChangeKind = "TombstoneComputeGraph"
	ChangeKindExecutorAdded         ChangeKind = "ExecutorAdded"
	ChangeKindExecutorRemoved       ChangeKind = "ExecutorRemoved"
)

// ChangeType is the tagged payload of a state-change record. Each variant
// carries exactly the identifiers a consumer needs to re-fetch the
// affected entity, never the entity itself: the log stays compact and
// cannot go stale. The variant set is closed; a new event kind is a new
// variant, not a generic payload.
type ChangeType interface {
	ChangeKind() ChangeKind
}

// InvokeComputeGraphEvent announces a new invocation of a graph.
type InvokeComputeGraphEvent struct {
	InvocationID string `json:"invocation_id"`
	Namespace    string `json:"namespace"`
	ComputeGraph string `json:"compute_graph"`
}

func (InvokeComputeGraphEvent) ChangeKind() ChangeKind {
	return ChangeKindInvokeComputeGraph
}

// TaskFinishedEvent announces that a task reached a terminal outcome.
type TaskFinishedEvent struct {
	Namespace    string `json:"namespace"`
	ComputeGraph string `json:"compute_graph"`
	ComputeFn    string `json:"compute_fn"`
	TaskID       string `json:"task_id"`
}

func (TaskFinishedEvent) ChangeKind() ChangeKind {
	return ChangeKindTaskFinished
}

func (e TaskFinishedEvent) String() string {
	return fmt.Sprintf("TaskFinishedEvent(namespace: %s, compute_graph: %s, compute_fn: %s, task_id: %s)",
		e.Namespace, e.ComputeGraph, e.ComputeFn, e.TaskID)
}

// TombstoneIngestedData marks an ingested object for deletion.
type TombstoneIngestedData struct{}

func (TombstoneIngestedData) ChangeKind() ChangeKind {
	return ChangeKindTombstoneIngestedData
}

// TombstoneComputeGraph marks a graph for deletion.
type TombstoneComputeGraph struct{}

func (TombstoneComputeGraph) ChangeKind() ChangeKind {
	return ChangeKindTombstoneComputeGraph
}

// ExecutorAdded announces a newly registered executor.
type ExecutorAdded struct{}

func (ExecutorAdded) ChangeKind() ChangeKind {
	return ChangeKindExecutorAdded
}

// ExecutorRemoved announces a deregistered executor.
type ExecutorRemoved struct{}

func (ExecutorRemoved) ChangeKind() ChangeKind {
	return ChangeKindExecutorRemoved
}

// StateChange is one immutable record of the append-only event log. Once
// appended, id, object id, change type, and created_at never change;
// processed_at transitions nil to set exactly once when an external
// consumer has durably acted on the event.
type StateChange struct {
	ID          StateChangeID
	ObjectID    string
	ChangeType  ChangeType
	CreatedAt   uint64
	ProcessedAt *uint64
}

// stateChangeWire is the JSON shape of a StateChange, with the change
// variant wrapped in a tagged envelope.
type stateChangeWire struct {
	ID          StateChangeID   `json:"id"`
	ObjectID    string          `json:"object_id"`
	Kind        ChangeKind      `json:"change_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   uint64          `json:"created_at"`
	ProcessedAt *uint64         `json:"processed_at,omitempty"`
}

func (s StateChange) MarshalJSON() ([]byte, error) {
	if s.ChangeType == nil {
		return nil, fmt.Errorf("state change %d has no change type", s.ID)
	}
	wire := stateChangeWire{
		ID:          s.ID,
		ObjectID:    s.ObjectID,
		Kind:        s.ChangeType.ChangeKind(),
		CreatedAt:   s.CreatedAt,
		ProcessedAt: s.ProcessedAt,
	}
	switch v := s.ChangeType.(type) {
	case InvokeComputeGraphEvent:
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		wire.Payload = payload
	case TaskFinishedEvent:
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		wire.Payload = payload
	case TombstoneIngestedData, TombstoneComputeGraph, ExecutorAdded, ExecutorRemoved:
		// No payload beyond the object id.
	default:
		return nil, fmt.Errorf("unknown change type variant %T", s.ChangeType)
	}
	return json.Marshal(wire)
}

func (s *StateChange) UnmarshalJSON(data []byte) error {
	var wire stateChangeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var changeType ChangeType
	switch wire.Kind {
	case ChangeKindInvokeComputeGraph:
		var ev InvokeComputeGraphEvent
		if err := json.Unmarshal(wire.Payload, &ev); err != nil {
			return err
		}
		changeType = ev
	case ChangeKindTaskFinished:
		var ev TaskFinishedEvent
		if err := json.Unmarshal(wire.Payload, &ev); err != nil {
			return err
		}
		changeType = ev
	case ChangeKindTombstoneIngestedData:
		changeType = TombstoneIngestedData{}
	case ChangeKindTombstoneComputeGraph:
		changeType = TombstoneComputeGraph{}
	case ChangeKindExecutorAdded:
		changeType = ExecutorAdded{}
	case ChangeKindExecutorRemoved:
		changeType = ExecutorRemoved{}
	default:
		return fmt.Errorf("unknown change kind %q", wire.Kind)
	}
	*s = StateChange{
		ID:          wire.ID,
		ObjectID:    wire.ObjectID,
		ChangeType:  changeType,
		CreatedAt:   wire.CreatedAt,
		ProcessedAt: wire.ProcessedAt,
	}
	return nil
}

// StateChangeBuilder assembles a StateChange. Id, object id, change type,
// and created_at must all be supplied explicitly; there are no defaults.
type StateChangeBuilder struct {
	id         *StateChangeID
	objectID   *string
	changeType ChangeType
	createdAt  *uint64
}

// NewStateChange returns an empty state change builder.
func NewStateChange() *StateChangeBuilder {
	return &StateChangeBuilder{}
}

func (b *StateChangeBuilder) ID(id StateChangeID) *StateChangeBuilder {
	b.id = &id
	return b
}

func (b *StateChangeBuilder) ObjectID(objectID string) *StateChangeBuilder {
	b.objectID = &objectID
	return b
}

func (b *StateChangeBuilder) ChangeType(changeType ChangeType) *StateChangeBuilder {
	b.changeType = changeType
	return b
}

func (b *StateChangeBuilder) CreatedAt(createdAt uint64) *StateChangeBuilder {
	b.createdAt = &createdAt
	return b
}

// Build returns the assembled record with processed_at unset.
func (b *StateChangeBuilder) Build() (StateChange, error) {
	if b.id == nil {
		return StateChange{}, missingField("id")
	}
	if b.objectID == nil {
		return StateChange{}, missingField("object_id")
	}
	if b.changeType == nil {
		return StateChange{}, missingField("change_type")
	}
	if b.createdAt == nil {
		return StateChange{}, missingField("created_at")
	}
	return StateChange{
		ID:         *b.id,
		ObjectID:   *b.objectID,
		ChangeType: b.changeType,
		CreatedAt:  *b.createdAt,
	}, nil
}
