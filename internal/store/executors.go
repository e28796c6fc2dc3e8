package store

import (
	"context"
	"fmt"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
)

// RegisterExecutor records a worker and appends an ExecutorAdded event.
func (s *Store) RegisterExecutor(ctx context.Context, md model.ExecutorMetadata) error {
	if md.ID == "" {
		return fmt.Errorf("executor id is required")
	}
	if err := s.putJSON(prefixExecutor+md.ID.String(), md); err != nil {
		return err
	}
	if _, err := s.AppendStateChange(ctx, md.ID.String(), model.ExecutorAdded{}); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("executor registered", "executor", md.ID, "addr", md.Addr)
	return nil
}

// DeregisterExecutor removes a worker and appends an ExecutorRemoved
// event. The reconciler reassigns the executor's allocations.
func (s *Store) DeregisterExecutor(ctx context.Context, id model.ExecutorID) error {
	if err := s.delete(prefixExecutor + id.String()); err != nil {
		return err
	}
	_, err := s.AppendStateChange(ctx, id.String(), model.ExecutorRemoved{})
	return err
}

// Executors lists registered workers in id order.
func (s *Store) Executors(ctx context.Context) ([]model.ExecutorMetadata, error) {
	var out []model.ExecutorMetadata
	err := scanJSON(s, prefixExecutor, func(_ string, md model.ExecutorMetadata) error {
		out = append(out, md)
		return nil
	})
	return out, err
}
