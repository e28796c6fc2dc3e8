package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/store"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	store      *store.Store
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry,
// and store. A store that cannot be opened is a fatal startup error.
func NewApp(outW io.Writer, cfg *Config, modules ...Module) *App {
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	if err != nil {
		// Nothing can be logged or run without a logger.
		panic(fmt.Errorf("failed to configure logger: %w", err))
	}
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod(reg)
	}
	logger.Debug("All handler modules registered.", "count", len(modules))

	st, err := store.Open(store.Config{
		Path:     cfg.DataDir,
		InMemory: cfg.DataDir == "",
		Logger:   logger,
	})
	if err != nil {
		// A store that cannot be opened leaves nothing to run against.
		panic(fmt.Errorf("failed to open store: %w", err))
	}
	logger.Debug("Store opened.", "data_dir", cfg.DataDir, "in_memory", cfg.DataDir == "")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		store:    st,
	}
}

// Registry returns the application's registry. This is primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Store returns the application's store. This is primarily for testing.
func (a *App) Store() *store.Store {
	return a.store
}

// Close shuts down the health check server, if one was started, and
// releases the application's store.
func (a *App) Close() error {
	if err := a.closeHealthcheckServer(); err != nil {
		a.store.Close()
		return err
	}
	return a.store.Close()
}
