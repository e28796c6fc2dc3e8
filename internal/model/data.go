package model

import (
	"fmt"

	"github.com/vk/gridflow/internal/identity"
)

// DataPayload describes a concrete blob by content: where it lives, how
// big it is, and its sha256. The hash is verified against the referenced
// content by an external content store.
type DataPayload struct {
	Path       string `json:"path"`
	Size       uint64 `json:"size"`
	SHA256Hash string `json:"sha256_hash"`
}

// DataObject is an input or output blob associated with one graph and one
// function. Its id is a pure function of its identifying attributes, so
// re-ingesting identical content yields the same object.
type DataObject struct {
	ID               string      `json:"id"`
	Namespace        string      `json:"namespace"`
	ComputeGraphName string      `json:"compute_graph_name"`
	ComputeFnName    string      `json:"compute_fn_name"`
	Payload          DataPayload `json:"payload"`
}

// IngestionObjectKey returns the storage key for an ingested input:
// "{namespace}_{graph}_{hex(hash(ns, graph, sha256, path))}". Byte-identical
// content at the same path under the same graph and namespace dedups by
// construction.
func (d *DataObject) IngestionObjectKey() string {
	id := identity.HexID(
		d.Namespace,
		d.ComputeGraphName,
		d.Payload.SHA256Hash,
		d.Payload.Path,
	)
	return fmt.Sprintf("%s_%s_%s", d.Namespace, d.ComputeGraphName, id)
}

// FnOutputKey returns the storage key for a function output:
// "{namespace}_{graph}_{ingestion_key}_{fn}_{hex(hash(...))}". The hash
// additionally folds in the function name and the upstream ingestion
// object's key, so the same physical bytes produced by different functions
// or different upstream objects get distinct keys.
func (d *DataObject) FnOutputKey(ingestionObjectID string) string {
	id := identity.HexID(
		d.Namespace,
		d.ComputeGraphName,
		d.ComputeFnName,
		d.Payload.SHA256Hash,
		d.Payload.Path,
		ingestionObjectID,
	)
	return fmt.Sprintf("%s_%s_%s_%s_%s",
		d.Namespace, d.ComputeGraphName, ingestionObjectID, d.ComputeFnName, id)
}

// DataObjectBuilder assembles a DataObject. Every attribute is required;
// Build fails with a field-naming error when one was not supplied.
type DataObjectBuilder struct {
	namespace        *string
	computeGraphName *string
	computeFnName    *string
	payload          *DataPayload
}

// NewDataObject returns an empty data object builder.
func NewDataObject() *DataObjectBuilder {
	return &DataObjectBuilder{}
}

func (b *DataObjectBuilder) Namespace(namespace string) *DataObjectBuilder {
	b.namespace = &namespace
	return b
}

func (b *DataObjectBuilder) ComputeGraphName(name string) *DataObjectBuilder {
	b.computeGraphName = &name
	return b
}

func (b *DataObjectBuilder) ComputeFnName(name string) *DataObjectBuilder {
	b.computeFnName = &name
	return b
}

func (b *DataObjectBuilder) Payload(payload DataPayload) *DataObjectBuilder {
	b.payload = &payload
	return b
}

// Build derives the object id and returns the assembled object. The hash
// field order — namespace, compute_graph_name, compute_fn_name,
// payload.sha256_hash, payload.path — is a compatibility contract.
func (b *DataObjectBuilder) Build() (DataObject, error) {
	if b.namespace == nil {
		return DataObject{}, missingField("namespace")
	}
	if b.computeGraphName == nil {
		return DataObject{}, missingField("compute_graph_name")
	}
	if b.computeFnName == nil {
		return DataObject{}, missingField("compute_fn_name")
	}
	if b.payload == nil {
		return DataObject{}, missingField("payload")
	}

	id := identity.HexID(
		*b.namespace,
		*b.computeGraphName,
		*b.computeFnName,
		b.payload.SHA256Hash,
		b.payload.Path,
	)
	return DataObject{
		ID:               id,
		Namespace:        *b.namespace,
		ComputeGraphName: *b.computeGraphName,
		ComputeFnName:    *b.computeFnName,
		Payload:          *b.payload,
	}, nil
}
