package model

// ExecutorID identifies a worker process. Its string form is used directly
// as a storage sort key, so ordering is plain byte order.
type ExecutorID string

func (e ExecutorID) String() string {
	return string(e)
}

// ExecutorMetadata describes a registered worker. Labels are opaque,
// loosely-typed key/value pairs consulted only by placement matching.
type ExecutorMetadata struct {
	ID     ExecutorID     `json:"id"`
	Addr   string         `json:"addr"`
	Labels map[string]any `json:"labels"`
}

// Namespace is a tenant isolation boundary. Its name is globally unique
// among active namespaces; uniqueness is enforced by the store.
type Namespace struct {
	Name      string `json:"name"`
	CreatedAt uint64 `json:"created_at"`
}
