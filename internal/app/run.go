package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/manifest"
	"github.com/vk/gridflow/internal/model"
	"github.com/vk/gridflow/internal/runner"
)

// Run executes the main application logic: publish every graph the
// manifest declares, then invoke one of them when the configuration asks
// for it.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	if err := a.ensureNamespace(ctx, a.config.Namespace); err != nil {
		return err
	}

	graphs, err := manifest.Load(ctx, a.config.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifests: %w", err)
	}
	for _, g := range graphs {
		if err := a.store.PutComputeGraph(ctx, g); err != nil {
			return fmt.Errorf("failed to publish graph %s: %w", g.Key(), err)
		}
		a.logger.Info("Compute graph published.", "graph", g.Key())
	}

	if a.config.Graph == "" {
		a.logger.Info("🏁 Publish finished.", "graphs", len(graphs))
		return nil
	}

	return a.invoke(ctx)
}

// invoke ingests the configured input file and runs the configured graph
// against it as a one-shot local executor.
func (a *App) invoke(ctx context.Context) error {
	input, err := payloadFromFile(a.config.InputPath)
	if err != nil {
		return err
	}

	executor := model.ExecutorMetadata{
		ID:     model.ExecutorID("local-" + uuid.NewString()),
		Addr:   "local",
		Labels: a.config.Labels,
	}
	if err := a.store.RegisterExecutor(ctx, executor); err != nil {
		return err
	}
	defer func() {
		if err := a.store.DeregisterExecutor(ctx, executor.ID); err != nil {
			a.logger.Error("Failed to deregister local executor.", "executor", executor.ID, "error", err)
		}
	}()

	a.logger.Info("🚀 Starting invocation.", "graph", a.config.Graph, "input", a.config.InputPath)
	r := runner.New(a.store, a.registry, executor)
	result, err := r.Invoke(ctx, a.config.Namespace, a.config.Graph, input)
	if err != nil {
		return fmt.Errorf("invocation failed: %w", err)
	}
	a.logger.Info("🏁 Invocation finished.", "invocation", result.InvocationID)

	fmt.Fprintf(a.outW, "invocation %s finished\n", result.InvocationID)
	fns := make([]string, 0, len(result.OutputKeys))
	for fn := range result.OutputKeys {
		fns = append(fns, fn)
	}
	sort.Strings(fns)
	for _, fn := range fns {
		for _, key := range result.OutputKeys[fn] {
			fmt.Fprintf(a.outW, "%s: %s\n", fn, key)
		}
	}
	return nil
}

// ensureNamespace creates the namespace unless it already exists.
func (a *App) ensureNamespace(ctx context.Context, name string) error {
	namespaces, err := a.store.Namespaces(ctx)
	if err != nil {
		return err
	}
	for _, ns := range namespaces {
		if ns.Name == name {
			return nil
		}
	}
	_, err = a.store.CreateNamespace(ctx, name)
	return err
}
