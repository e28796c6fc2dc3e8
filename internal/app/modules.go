package app

import (
	"context"

	"github.com/vk/gridflow/internal/model"
	"github.com/vk/gridflow/internal/registry"
)

// Module populates a registry with compiled handlers.
type Module func(*registry.Registry)

// coreModules is the definitive list of handlers compiled into the gridflow
// binary. Embedders replace this set by passing their own modules to
// NewApp.
var coreModules = []Module{
	registerBuiltins,
}

// registerBuiltins installs the handlers every binary carries: "identity"
// forwards its input unchanged and "discard" consumes it without output.
func registerBuiltins(reg *registry.Registry) {
	reg.RegisterFn("identity", func(_ context.Context, input model.DataPayload) ([]model.DataPayload, error) {
		return []model.DataPayload{input}, nil
	})
	reg.RegisterFn("discard", func(_ context.Context, _ model.DataPayload) ([]model.DataPayload, error) {
		return nil, nil
	})
}
