// Package manifest loads compute graph definitions from HCL files and
// translates them into model values ready for publishing.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/model"
)

// Load parses the manifest file or directory at path and returns the
// graphs it declares. For a directory, every .hcl file is loaded.
func Load(ctx context.Context, path string) ([]model.ComputeGraph, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat manifest path: %w", err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read manifest directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".hcl") {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	} else {
		files = []string{path}
	}

	parser := hclparse.NewParser()
	var graphs []model.ComputeGraph
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse manifest %s: %w", file, diags)
		}

		var cfg Config
		if diags := gohcl.DecodeBody(f.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decode manifest %s: %w", file, diags)
		}

		for _, raw := range cfg.Graphs {
			g, err := translateGraph(raw)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", file, err)
			}
			graphs = append(graphs, g)
		}
		ctxlog.FromContext(ctx).Debug("manifest loaded", "file", file, "graphs", len(cfg.Graphs))
	}
	return graphs, nil
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
