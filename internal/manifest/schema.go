package manifest

// HCL schema for graph manifest files. A file holds one or more `graph`
// blocks; each declares its vertices as `compute` and `router` blocks and
// wires them with an `edges` attribute mapping a vertex name to its
// downstream vertex names.

// Config is the top-level structure of a manifest file.
type Config struct {
	Graphs []*Graph `hcl:"graph,block"`
}

// Graph is a `graph` block: one pipeline definition.
type Graph struct {
	Name        string              `hcl:"name,label"`
	Namespace   string              `hcl:"namespace"`
	Description string              `hcl:"description,optional"`
	StartFn     string              `hcl:"start_fn"`
	Code        *Code               `hcl:"code,block"`
	Computes    []*Compute          `hcl:"compute,block"`
	Routers     []*Router           `hcl:"router,block"`
	Edges       map[string][]string `hcl:"edges,optional"`
}

// Code describes the published code artifact for a graph.
type Code struct {
	Path       string `hcl:"path"`
	Size       uint64 `hcl:"size"`
	SHA256Hash string `hcl:"sha256_hash"`
}

// Compute is a `compute` block: one function vertex. fn_name defaults to
// the block label when omitted.
type Compute struct {
	Name                 string   `hcl:"name,label"`
	Description          string   `hcl:"description,optional"`
	FnName               string   `hcl:"fn_name,optional"`
	PlacementConstraints []string `hcl:"placement_constraints,optional"`
}

// Router is a `router` block: one fan-out vertex with its static target
// list.
type Router struct {
	Name            string   `hcl:"name,label"`
	Description     string   `hcl:"description,optional"`
	SourceFn        string   `hcl:"source_fn"`
	TargetFunctions []string `hcl:"target_functions"`
}
