// Package coordinator keeps the local store and the remote catalog in
// agreement about each harvested dataset.
//
// Every write goes to the catalog first and is committed locally only after
// the catalog confirmed it, so the local store never claims a remote record
// that does not exist. Update recreates catalog records that have vanished
// remotely; Delete skips the remote call for them.
//
// Operations on the same dataset are serialized within the process: create
// and update lock the preferred identifier, update and delete lock the local
// package. Callers running several processes against one store must
// serialize themselves.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/csc-fi/etsin-harvester/catalog"
	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
	"github.com/csc-fi/etsin-harvester/store"
)

// DefaultHarvestUser is the caller identity of the harvester.
const DefaultHarvestUser = "harvest"

// LocalStore is the local datastore as used by the coordinator.
type LocalStore interface {
	Create(ctx context.Context, pkg store.Package) error
	Update(ctx context.Context, pkg store.Package) error
	Delete(ctx context.Context, localID string) error
	RemoteID(ctx context.Context, localID string) (string, error)
	FindByPreferredIdentifier(ctx context.Context, pid string) (*store.Package, error)
}

// DataCatalogs resolves the data catalog of a harvest source.
type DataCatalogs interface {
	Get(source string) (*lookup.DataCatalog, bool)
}

// Options configures a Coordinator.
type Options struct {
	// HarvestUser is the caller identity whose operations are synchronized
	// with the catalog. Defaults to DefaultHarvestUser.
	HarvestUser string

	// NewID generates local package ids. Defaults to random UUIDs.
	NewID func() string
}

// Coordinator runs create, update and delete operations against both sides.
type Coordinator struct {
	catalog     catalog.Client
	store       LocalStore
	catalogs    DataCatalogs
	harvestUser string
	newID       func() string
	locks       *keyedMutex
}

// New creates a coordinator.
func New(client catalog.Client, local LocalStore, catalogs DataCatalogs, opts Options) *Coordinator {
	c := &Coordinator{
		catalog:     client,
		store:       local,
		catalogs:    catalogs,
		harvestUser: opts.HarvestUser,
		newID:       opts.NewID,
		locks:       newKeyedMutex(),
	}
	if c.harvestUser == "" {
		c.harvestUser = DefaultHarvestUser
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Request describes one operation. Caller decides whether the catalog is
// involved: only the harvest user's operations are synchronized.
type Request struct {
	Caller        string
	HarvestSource string
	LocalID       string
	Record        *hub.Record
}

// Result reports what an operation did.
type Result struct {
	LocalID  string
	RemoteID string

	// Existed is set when a create found the record already in the catalog.
	Existed bool

	// Reconciled is set when an update recreated a missing catalog record.
	Reconciled bool

	// RemoteSkipped is set when a delete found nothing to remove remotely.
	RemoteSkipped bool
}

func (c *Coordinator) harvesting(req Request) bool {
	return req.Caller == c.harvestUser
}

// Create stores a new dataset in the catalog, then locally.
func (c *Coordinator) Create(ctx context.Context, req Request) (Result, error) {
	if !c.harvesting(req) {
		return c.createLocal(ctx, req)
	}

	ds, err := c.dataset(req)
	if err != nil {
		return Result{}, err
	}
	pid := req.Record.PreferredIdentifier
	log := slog.With("preferred_identifier", pid, "harvest_source", req.HarvestSource)

	defer c.locks.Lock(datasetKey(pid))()

	remoteID, existed, err := c.createRemote(ctx, ds, log)
	if err != nil {
		return Result{}, err
	}

	if existed {
		bound, err := c.rebind(ctx, remoteID, req, log)
		if err != nil {
			return Result{}, err
		}
		if bound != "" {
			return Result{LocalID: bound, RemoteID: remoteID, Existed: true}, nil
		}
	}

	pkg := packageFor(c.newID(), remoteID, req)
	if err := c.store.Create(ctx, pkg); err != nil {
		log.Error("catalog record created but local create failed", "local_id", pkg.LocalID, "remote_id", remoteID, "error", err)
		return Result{}, fmt.Errorf("storing package %s: %w", pkg.LocalID, err)
	}

	log.Info("created dataset", "local_id", pkg.LocalID, "remote_id", remoteID, "existed", existed)
	return Result{LocalID: pkg.LocalID, RemoteID: remoteID, Existed: existed}, nil
}

// Update pushes a changed dataset to the catalog, then updates the local
// binding. A catalog record that has disappeared is recreated and the
// binding moved to the new remote id.
func (c *Coordinator) Update(ctx context.Context, req Request) (Result, error) {
	if req.LocalID == "" {
		return Result{}, errors.New("update: local id is required")
	}
	if !c.harvesting(req) {
		return c.updateLocal(ctx, req)
	}

	ds, err := c.dataset(req)
	if err != nil {
		return Result{}, err
	}
	pid := req.Record.PreferredIdentifier
	log := slog.With("preferred_identifier", pid, "harvest_source", req.HarvestSource, "local_id", req.LocalID)

	defer c.locks.Lock(datasetKey(pid))()
	defer c.locks.Lock(packageKey(req.LocalID))()

	remoteID, err := c.store.RemoteID(ctx, req.LocalID)
	if err != nil {
		return Result{}, fmt.Errorf("resolving remote id: %w", err)
	}

	exists, err := c.catalog.Exists(ctx, remoteID)
	if err != nil {
		logRemoteFailure(log, "exists", err)
		return Result{}, err
	}

	result := Result{LocalID: req.LocalID}
	if exists {
		if err := c.catalog.Update(ctx, remoteID, ds); err != nil {
			logRemoteFailure(log, "update", err)
			return Result{}, err
		}
	} else {
		log.Warn("catalog record missing, recreating", "remote_id", remoteID)
		newID, existed, err := c.createRemote(ctx, ds, log)
		if err != nil {
			return Result{}, err
		}
		remoteID = newID
		result.Existed = existed
		result.Reconciled = true
	}
	result.RemoteID = remoteID

	if err := c.store.Update(ctx, packageFor(req.LocalID, remoteID, req)); err != nil {
		log.Error("catalog record updated but local update failed", "remote_id", remoteID, "error", err)
		return Result{}, fmt.Errorf("updating package %s: %w", req.LocalID, err)
	}

	log.Info("updated dataset", "remote_id", remoteID, "reconciled", result.Reconciled)
	return result, nil
}

// Delete removes a dataset from the catalog, then locally. When the
// catalog no longer has the record the remote call is skipped. A failed
// remote delete leaves the local package in place.
func (c *Coordinator) Delete(ctx context.Context, req Request) (Result, error) {
	if req.LocalID == "" {
		return Result{}, errors.New("delete: local id is required")
	}
	if !c.harvesting(req) {
		if err := c.store.Delete(ctx, req.LocalID); err != nil {
			return Result{}, err
		}
		return Result{LocalID: req.LocalID}, nil
	}

	log := slog.With("local_id", req.LocalID, "harvest_source", req.HarvestSource)

	defer c.locks.Lock(packageKey(req.LocalID))()

	remoteID, err := c.store.RemoteID(ctx, req.LocalID)
	if err != nil {
		return Result{}, fmt.Errorf("resolving remote id: %w", err)
	}

	exists, err := c.catalog.Exists(ctx, remoteID)
	if err != nil {
		logRemoteFailure(log, "exists", err)
		return Result{}, err
	}

	result := Result{LocalID: req.LocalID, RemoteID: remoteID}
	if exists {
		if err := c.catalog.Delete(ctx, remoteID); err != nil {
			logRemoteFailure(log, "delete", err)
			return Result{}, err
		}
	} else {
		log.Warn("catalog record missing, skipping remote delete", "remote_id", remoteID)
		result.RemoteSkipped = true
	}

	if err := c.store.Delete(ctx, req.LocalID); err != nil {
		return Result{}, fmt.Errorf("deleting package %s: %w", req.LocalID, err)
	}

	log.Info("deleted dataset", "remote_id", remoteID, "remote_skipped", result.RemoteSkipped)
	return result, nil
}

// createRemote creates the catalog record. When the catalog already holds
// one with the same preferred identifier, that record is updated instead.
func (c *Coordinator) createRemote(ctx context.Context, ds *catalog.Dataset, log *slog.Logger) (string, bool, error) {
	res, err := c.catalog.Create(ctx, ds)
	if err != nil {
		logRemoteFailure(log, "create", err)
		return "", false, err
	}
	if res.Existed {
		log.Info("catalog record already exists, updating", "remote_id", res.RemoteID)
		if err := c.catalog.Update(ctx, res.RemoteID, ds); err != nil {
			logRemoteFailure(log, "update", err)
			return "", false, err
		}
	}
	return res.RemoteID, res.Existed, nil
}

// rebind points the local package already holding the preferred
// identifier at remoteID. It returns the package's local id, or "" when no
// package holds the identifier.
func (c *Coordinator) rebind(ctx context.Context, remoteID string, req Request, log *slog.Logger) (string, error) {
	existing, err := c.store.FindByPreferredIdentifier(ctx, req.Record.PreferredIdentifier)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		log.Error("catalog record updated but local lookup failed", "remote_id", remoteID, "error", err)
		return "", fmt.Errorf("looking up local package: %w", err)
	}

	// Update holds this package's lock while it moves the binding
	defer c.locks.Lock(packageKey(existing.LocalID))()

	if err := c.store.Update(ctx, packageFor(existing.LocalID, remoteID, req)); err != nil {
		log.Error("catalog record updated but local update failed", "local_id", existing.LocalID, "remote_id", remoteID, "error", err)
		return "", fmt.Errorf("updating package %s: %w", existing.LocalID, err)
	}
	log.Info("rebound existing package", "local_id", existing.LocalID, "remote_id", remoteID)
	return existing.LocalID, nil
}

func datasetKey(pid string) string {
	return "pid:" + pid
}

func packageKey(localID string) string {
	return "local:" + localID
}

// dataset checks eligibility and resolves the data catalog. It makes no
// remote or local calls.
func (c *Coordinator) dataset(req Request) (*catalog.Dataset, error) {
	if err := hub.Eligible(req.Record); err != nil {
		pid := ""
		if req.Record != nil {
			pid = req.Record.PreferredIdentifier
		}
		slog.Error("record not eligible for sync", "preferred_identifier", pid, "error", err)
		return nil, &ValidationFailedError{PreferredIdentifier: pid, Err: err}
	}

	dc, ok := c.catalogs.Get(req.HarvestSource)
	if !ok || dc.Identifier() == "" {
		return nil, fmt.Errorf("no data catalog for harvest source %q", req.HarvestSource)
	}
	return &catalog.Dataset{DataCatalog: dc.Identifier(), Record: req.Record}, nil
}

func (c *Coordinator) createLocal(ctx context.Context, req Request) (Result, error) {
	localID := req.LocalID
	if localID == "" {
		localID = c.newID()
	}
	if err := c.store.Create(ctx, packageFor(localID, "", req)); err != nil {
		return Result{}, err
	}
	return Result{LocalID: localID}, nil
}

func (c *Coordinator) updateLocal(ctx context.Context, req Request) (Result, error) {
	// Keep whatever binding the package already has
	remoteID, err := c.store.RemoteID(ctx, req.LocalID)
	if err != nil {
		return Result{}, err
	}
	if err := c.store.Update(ctx, packageFor(req.LocalID, remoteID, req)); err != nil {
		return Result{}, err
	}
	return Result{LocalID: req.LocalID, RemoteID: remoteID}, nil
}

func packageFor(localID, remoteID string, req Request) store.Package {
	pkg := store.Package{
		LocalID:       localID,
		RemoteID:      remoteID,
		HarvestSource: req.HarvestSource,
	}
	if req.Record != nil {
		pkg.PreferredIdentifier = req.Record.PreferredIdentifier
		pkg.Title = req.Record.DisplayTitle()
	}
	return pkg
}

// logRemoteFailure logs transient failures as warnings and catalog error
// responses with the payload that was sent.
func logRemoteFailure(log *slog.Logger, op string, err error) {
	var remote *catalog.RemoteError
	switch {
	case catalog.IsTransient(err):
		log.Warn("catalog unreachable", "op", op, "error", err)
	case errors.As(err, &remote):
		log.Error("catalog request failed", "op", op, "status", remote.Status, "body", remote.Body, "payload", string(remote.Payload))
	default:
		log.Error("catalog request failed", "op", op, "error", err)
	}
}
