package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/gridflow/internal/model"
)

// Handler is the compiled implementation of a compute function. It consumes
// one input payload and produces zero or more output payloads.
type Handler func(ctx context.Context, input model.DataPayload) ([]model.DataPayload, error)

// RouterHandler is the compiled implementation of a router vertex. It
// inspects the input and returns the names of the target functions the
// input should be forwarded to. Every returned name must be in the
// router's declared target list.
type RouterHandler func(ctx context.Context, input model.DataPayload) ([]string, error)

// Registry holds all registered function and router handlers for a single
// application instance.
type Registry struct {
	fns     map[string]Handler
	routers map[string]RouterHandler
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		fns:     make(map[string]Handler),
		routers: make(map[string]RouterHandler),
	}
}

// RegisterFn registers the handler for a compute function name.
func (r *Registry) RegisterFn(name string, h Handler) {
	if _, exists := r.fns[name]; exists {
		panic(fmt.Sprintf("fn handler with name '%s' already registered", name))
	}
	slog.Debug("Registering fn handler.", "name", name)
	r.fns[name] = h
}

// RegisterRouter registers the handler for a router vertex name.
func (r *Registry) RegisterRouter(name string, h RouterHandler) {
	if _, exists := r.routers[name]; exists {
		panic(fmt.Sprintf("router handler with name '%s' already registered", name))
	}
	slog.Debug("Registering router handler.", "name", name)
	r.routers[name] = h
}

// Fn returns the handler registered for a compute function name.
func (r *Registry) Fn(name string) (Handler, bool) {
	h, ok := r.fns[name]
	return h, ok
}

// Router returns the handler registered for a router vertex name.
func (r *Registry) Router(name string) (RouterHandler, bool) {
	h, ok := r.routers[name]
	return h, ok
}
