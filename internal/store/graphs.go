package store

import (
	"context"
	"fmt"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
)

// CreateNamespace registers a new namespace. The name must be unique among
// active namespaces.
func (s *Store) CreateNamespace(ctx context.Context, name string) (model.Namespace, error) {
	key := prefixNamespace + name

	var existing model.Namespace
	found, err := s.getJSON(key, &existing)
	if err != nil {
		return model.Namespace{}, err
	}
	if found {
		return model.Namespace{}, fmt.Errorf("namespace %q already exists", name)
	}

	ns := model.Namespace{Name: name, CreatedAt: nowMillis()}
	if err := s.putJSON(key, ns); err != nil {
		return model.Namespace{}, err
	}
	ctxlog.FromContext(ctx).Debug("namespace created", "namespace", name)
	return ns, nil
}

// Namespaces lists active namespaces in name order.
func (s *Store) Namespaces(ctx context.Context) ([]model.Namespace, error) {
	var out []model.Namespace
	err := scanJSON(s, prefixNamespace, func(_ string, ns model.Namespace) error {
		out = append(out, ns)
		return nil
	})
	return out, err
}

// PutComputeGraph publishes a graph under "{namespace}_{name}". A
// tombstoned graph cannot be republished; the name stays retired until the
// reconciler finishes deleting it.
func (s *Store) PutComputeGraph(ctx context.Context, g model.ComputeGraph) error {
	key := prefixGraph + g.Key()

	var existing model.ComputeGraph
	found, err := s.getJSON(key, &existing)
	if err != nil {
		return err
	}
	if found && existing.TombStoned {
		return fmt.Errorf("compute graph %s is tombstoned", g.Key())
	}

	if err := s.putJSON(key, g); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("compute graph published", "graph", g.Key())
	return nil
}

// ComputeGraph fetches a graph by namespace and name. The boolean reports
// presence.
func (s *Store) ComputeGraph(ctx context.Context, namespace, name string) (model.ComputeGraph, bool, error) {
	g := model.ComputeGraph{Namespace: namespace, Name: name}
	var out model.ComputeGraph
	found, err := s.getJSON(prefixGraph+g.Key(), &out)
	return out, found, err
}

// ComputeGraphs lists the graphs published under a namespace.
func (s *Store) ComputeGraphs(ctx context.Context, namespace string) ([]model.ComputeGraph, error) {
	var out []model.ComputeGraph
	err := scanJSON(s, prefixGraph+namespace+"_", func(_ string, g model.ComputeGraph) error {
		out = append(out, g)
		return nil
	})
	return out, err
}

// TombstoneComputeGraph marks a graph for deletion and appends a
// TombstoneComputeGraph event for the reconciler.
func (s *Store) TombstoneComputeGraph(ctx context.Context, namespace, name string) error {
	g, found, err := s.ComputeGraph(ctx, namespace, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("compute graph %s_%s not found", namespace, name)
	}

	g.TombStoned = true
	if err := s.putJSON(prefixGraph+g.Key(), g); err != nil {
		return err
	}
	_, err = s.AppendStateChange(ctx, g.Key(), model.TombstoneComputeGraph{})
	return err
}

// PutIngestedObject stores an ingested input blob under its ingestion key
// and returns the key. Re-ingesting identical content is an idempotent
// overwrite of the same record.
func (s *Store) PutIngestedObject(ctx context.Context, obj model.DataObject) (string, error) {
	key := obj.IngestionObjectKey()
	if err := s.putJSON(prefixDataObject+key, obj); err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Debug("data object ingested", "key", key)
	return key, nil
}

// PutFnOutput stores a function's output blob under its fn-output key,
// which folds in the upstream ingestion object so identical bytes from
// different functions or inputs stay distinct.
func (s *Store) PutFnOutput(ctx context.Context, obj model.DataObject, ingestionKey string) (string, error) {
	key := obj.FnOutputKey(ingestionKey)
	if err := s.putJSON(prefixDataObject+key, obj); err != nil {
		return "", err
	}
	return key, nil
}

// DataObject fetches a stored blob descriptor by its storage key.
func (s *Store) DataObject(ctx context.Context, key string) (model.DataObject, bool, error) {
	var out model.DataObject
	found, err := s.getJSON(prefixDataObject+key, &out)
	return out, found, err
}

// TombstoneIngestedObject deletes an ingested object's record and appends
// a TombstoneIngestedData event so the reconciler can collect downstream
// outputs.
func (s *Store) TombstoneIngestedObject(ctx context.Context, key string) error {
	if err := s.delete(prefixDataObject + key); err != nil {
		return err
	}
	_, err := s.AppendStateChange(ctx, key, model.TombstoneIngestedData{})
	return err
}
