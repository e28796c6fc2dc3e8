package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridflow/internal/model"
)

const sampleManifest = `
graph "summarize" {
  namespace   = "default"
  description = "summarization pipeline"
  start_fn    = "extract"

  code {
    path        = "graphs/summarize.zip"
    size        = 2048
    sha256_hash = "deadbeef"
  }

  compute "extract" {
    description = "extract text from the input"
  }

  compute "short" {
    fn_name = "summarize_short"
  }

  compute "long" {
    fn_name               = "summarize_long"
    placement_constraints = ["labels.gpu"]
  }

  router "route" {
    source_fn        = "extract"
    target_functions = ["short", "long"]
  }

  edges = {
    extract = ["route"]
    route   = ["short", "long"]
  }
}
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graphs.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, sampleManifest)

	graphs, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, graphs, 1)

	g := graphs[0]
	assert.Equal(t, "default_summarize", g.Key())
	assert.Equal(t, "summarization pipeline", g.Description)
	assert.Equal(t, model.ComputeGraphCode{Path: "graphs/summarize.zip", Size: 2048, SHA256Hash: "deadbeef"}, g.Code)
	assert.NotZero(t, g.CreatedAt)
	assert.False(t, g.TombStoned)

	require.NotNil(t, g.StartFn)
	assert.Equal(t, "extract", g.StartFn.NodeName())
	assert.Equal(t, model.NodeKindCompute, g.StartFn.Kind())

	router, ok := g.Node("route")
	require.True(t, ok)
	require.Equal(t, model.NodeKindRouter, router.Kind())
	assert.Equal(t, []string{"short", "long"}, router.(*model.Router).TargetFunctions)

	// fn_name defaults to the block label when omitted.
	extract := g.StartFn.(*model.ComputeFn)
	assert.Equal(t, "extract", extract.FnName)

	short, ok := g.Node("short")
	require.True(t, ok)
	assert.Equal(t, "summarize_short", short.(*model.ComputeFn).FnName)

	long, ok := g.Node("long")
	require.True(t, ok)
	assert.True(t, long.(*model.ComputeFn).PlacementConstraints.Matches(map[string]any{"gpu": true}))
	assert.False(t, long.(*model.ComputeFn).PlacementConstraints.Matches(map[string]any{"gpu": false}))

	require.Len(t, g.Edges["route"], 2)
}

func TestLoadManifestDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(sampleManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not hcl"), 0o644))

	graphs, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, graphs, 1)
}

func TestLoadManifestErrors(t *testing.T) {
	testCases := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name: "missing namespace",
			manifest: `
graph "g" {
  namespace = ""
  start_fn  = "a"
  code {
    path        = "p"
    size        = 1
    sha256_hash = "h"
  }
  compute "a" {}
}`,
			wantErr: "namespace is required",
		},
		{
			name: "missing code block",
			manifest: `
graph "g" {
  namespace = "ns"
  start_fn  = "a"
  compute "a" {}
}`,
			wantErr: "code block is required",
		},
		{
			name: "undeclared start_fn",
			manifest: `
graph "g" {
  namespace = "ns"
  start_fn  = "missing"
  code {
    path        = "p"
    size        = 1
    sha256_hash = "h"
  }
  compute "a" {}
}`,
			wantErr: "start_fn",
		},
		{
			name: "edge to undeclared node",
			manifest: `
graph "g" {
  namespace = "ns"
  start_fn  = "a"
  code {
    path        = "p"
    size        = 1
    sha256_hash = "h"
  }
  compute "a" {}
  edges = { a = ["ghost"] }
}`,
			wantErr: "undeclared node",
		},
		{
			name: "router target not declared",
			manifest: `
graph "g" {
  namespace = "ns"
  start_fn  = "a"
  code {
    path        = "p"
    size        = 1
    sha256_hash = "h"
  }
  compute "a" {}
  router "r" {
    source_fn        = "a"
    target_functions = ["ghost"]
  }
}`,
			wantErr: "unknown target function",
		},
		{
			name: "duplicate node name",
			manifest: `
graph "g" {
  namespace = "ns"
  start_fn  = "a"
  code {
    path        = "p"
    size        = 1
    sha256_hash = "h"
  }
  compute "a" {}
  compute "a" {}
}`,
			wantErr: "duplicate node",
		},
		{
			name: "malformed placement constraint",
			manifest: `
graph "g" {
  namespace = "ns"
  start_fn  = "a"
  code {
    path        = "p"
    size        = 1
    sha256_hash = "h"
  }
  compute "a" {
    placement_constraints = ["labels.gpu =="]
  }
}`,
			wantErr: "placement constraint",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, tc.manifest)
			_, err := Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
