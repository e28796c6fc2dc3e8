package store

import (
	"context"
	"fmt"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
)

// AppendStateChange allocates the next id from the injected sequence and
// appends an event record. The record is keyed by the id's fixed-width
// big-endian encoding, so the log scans back in creation order.
func (s *Store) AppendStateChange(ctx context.Context, objectID string, changeType model.ChangeType) (model.StateChange, error) {
	id, err := s.seq.Next()
	if err != nil {
		return model.StateChange{}, err
	}

	change, err := model.NewStateChange().
		ID(id).
		ObjectID(objectID).
		ChangeType(changeType).
		CreatedAt(nowMillis()).
		Build()
	if err != nil {
		return model.StateChange{}, err
	}

	key := id.ToKey()
	if err := s.putJSON(prefixStateChange+string(key[:]), change); err != nil {
		return model.StateChange{}, err
	}
	ctxlog.FromContext(ctx).Debug("state change appended",
		"id", uint64(id), "kind", changeType.ChangeKind(), "object", objectID)
	return change, nil
}

// StateChangeByID fetches one log record. The boolean reports presence.
func (s *Store) StateChangeByID(ctx context.Context, id model.StateChangeID) (model.StateChange, bool, error) {
	key := id.ToKey()
	var out model.StateChange
	found, err := s.getJSON(prefixStateChange+string(key[:]), &out)
	return out, found, err
}

// StateChanges returns the whole log in creation order.
func (s *Store) StateChanges(ctx context.Context) ([]model.StateChange, error) {
	var out []model.StateChange
	err := scanJSON(s, prefixStateChange, func(_ string, change model.StateChange) error {
		out = append(out, change)
		return nil
	})
	return out, err
}

// UnprocessedChanges returns the log records not yet acted upon, in
// creation order.
func (s *Store) UnprocessedChanges(ctx context.Context) ([]model.StateChange, error) {
	var out []model.StateChange
	err := scanJSON(s, prefixStateChange, func(_ string, change model.StateChange) error {
		if change.ProcessedAt == nil {
			out = append(out, change)
		}
		return nil
	})
	return out, err
}

// MarkProcessed stamps a log record as durably acted upon. processed_at
// transitions nil to set exactly once; a second call is an error, never a
// silent overwrite.
func (s *Store) MarkProcessed(ctx context.Context, id model.StateChangeID) error {
	change, found, err := s.StateChangeByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("state change %d not found", id)
	}
	if change.ProcessedAt != nil {
		return fmt.Errorf("state change %d already processed", id)
	}

	processedAt := nowMillis()
	change.ProcessedAt = &processedAt
	key := id.ToKey()
	return s.putJSON(prefixStateChange+string(key[:]), change)
}
