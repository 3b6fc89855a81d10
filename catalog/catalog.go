// Package catalog talks to the remote research dataset catalog.
//
// The Client interface is what the sync coordinator depends on; HTTPClient
// implements it against the catalog's REST API. Request bodies wrap the
// canonical record in the catalog record envelope and are encoded with
// protojson.
package catalog

import (
	"context"

	"github.com/csc-fi/etsin-harvester/hub"
)

// Dataset is a refined record together with the data catalog it belongs to.
type Dataset struct {
	DataCatalog string
	Record      *hub.Record
}

// CreateResult is the outcome of a create call. Existed is true when the
// catalog already held a record with the same preferred identifier; RemoteID
// then refers to that record and nothing new was created.
type CreateResult struct {
	RemoteID string
	Existed  bool
}

// Client is the remote catalog as seen by the sync coordinator.
type Client interface {
	// Create stores a new catalog record.
	Create(ctx context.Context, ds *Dataset) (CreateResult, error)

	// Update replaces the catalog record remoteID.
	Update(ctx context.Context, remoteID string, ds *Dataset) error

	// Delete removes the catalog record remoteID.
	Delete(ctx context.Context, remoteID string) error

	// Exists reports whether the catalog knows remoteID. A "not found"
	// answer is false with a nil error.
	Exists(ctx context.Context, remoteID string) (bool, error)
}
