// Package registry maps the function names declared in graph manifests to
// the compiled Go handlers that implement them.
//
// A compute vertex names its implementation through fn_name; a router vertex
// is implemented by a handler registered under the router's own name. During
// startup the registry is populated and each graph is validated against it,
// so a manifest that references a missing handler fails before any
// invocation runs.
package registry
