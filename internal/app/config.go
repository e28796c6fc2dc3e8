package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ManifestPath is a .hcl graph manifest file or a directory of them.
	ManifestPath string

	// DataDir is the store's directory. Empty runs fully in memory.
	DataDir string

	// Namespace scopes the published graphs and any invocation.
	Namespace string

	// Graph, when set, names the graph to invoke after publishing.
	Graph string

	// InputPath is the local file to ingest as the invocation input.
	InputPath string

	// Labels are advertised by the local executor for placement matching.
	Labels map[string]any

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates a Config and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.Graph != "" && cfg.InputPath == "" {
		return nil, errors.New("InputPath is required when a graph is invoked")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	return &cfg, nil
}
