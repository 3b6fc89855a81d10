package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csc-fi/etsin-harvester/catalog"
	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
	"github.com/csc-fi/etsin-harvester/store"
)

// callLog records calls to both fakes in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeCatalog struct {
	log       *callLog
	existing  map[string]bool
	createRes catalog.CreateResult
	createErr error
	updateErr error
	deleteErr error
	existsErr error

	// createEntered is closed when Create is called; Create then waits for
	// createRelease to be closed. Both are optional.
	createEntered chan struct{}
	createRelease chan struct{}
}

func (f *fakeCatalog) Create(_ context.Context, ds *catalog.Dataset) (catalog.CreateResult, error) {
	if f.createEntered != nil {
		close(f.createEntered)
		<-f.createRelease
	}
	f.log.add("catalog.create %s", ds.Record.PreferredIdentifier)
	return f.createRes, f.createErr
}

func (f *fakeCatalog) Update(_ context.Context, remoteID string, _ *catalog.Dataset) error {
	f.log.add("catalog.update %s", remoteID)
	return f.updateErr
}

func (f *fakeCatalog) Delete(_ context.Context, remoteID string) error {
	f.log.add("catalog.delete %s", remoteID)
	return f.deleteErr
}

func (f *fakeCatalog) Exists(_ context.Context, remoteID string) (bool, error) {
	f.log.add("catalog.exists %s", remoteID)
	return f.existing[remoteID], f.existsErr
}

type fakeStore struct {
	log       *callLog
	bindings  map[string]string
	pids      map[string]string
	createErr error
}

func (f *fakeStore) Create(_ context.Context, pkg store.Package) error {
	f.log.add("store.create %s %s", pkg.LocalID, pkg.RemoteID)
	if f.createErr != nil {
		return f.createErr
	}
	f.bindings[pkg.LocalID] = pkg.RemoteID
	f.pids[pkg.LocalID] = pkg.PreferredIdentifier
	return nil
}

func (f *fakeStore) Update(_ context.Context, pkg store.Package) error {
	f.log.add("store.update %s %s", pkg.LocalID, pkg.RemoteID)
	if _, ok := f.bindings[pkg.LocalID]; !ok {
		return store.ErrNotFound
	}
	f.bindings[pkg.LocalID] = pkg.RemoteID
	f.pids[pkg.LocalID] = pkg.PreferredIdentifier
	return nil
}

func (f *fakeStore) Delete(_ context.Context, localID string) error {
	f.log.add("store.delete %s", localID)
	delete(f.bindings, localID)
	delete(f.pids, localID)
	return nil
}

func (f *fakeStore) FindByPreferredIdentifier(_ context.Context, pid string) (*store.Package, error) {
	for localID, p := range f.pids {
		if p == pid {
			return &store.Package{LocalID: localID, RemoteID: f.bindings[localID], PreferredIdentifier: pid}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) RemoteID(_ context.Context, localID string) (string, error) {
	remoteID, ok := f.bindings[localID]
	if !ok {
		return "", store.ErrNotFound
	}
	return remoteID, nil
}

type fixture struct {
	log     *callLog
	catalog *fakeCatalog
	store   *fakeStore
	coord   *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &callLog{}
	catalogs, err := lookup.NewCatalogRegistry()
	require.NoError(t, err)

	f := &fixture{
		log:     log,
		catalog: &fakeCatalog{log: log, existing: map[string]bool{}, createRes: catalog.CreateResult{RemoteID: "cr-new"}},
		store:   &fakeStore{log: log, bindings: map[string]string{}, pids: map[string]string{}},
	}
	f.coord = New(f.catalog, f.store, catalogs, Options{NewID: func() string { return "local-new" }})
	return f
}

func testRecord() *hub.Record {
	r := hub.NewRecord()
	r.PreferredIdentifier = "urn:nbn:fi:lb-1"
	r.Title.Set("fi", "Aineisto")
	return r
}

func harvestRequest(localID string) Request {
	return Request{Caller: DefaultHarvestUser, HarvestSource: "kielipankki", LocalID: localID, Record: testRecord()}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	res, err := f.coord.Create(context.Background(), harvestRequest(""))
	require.NoError(t, err)
	assert.Equal(t, Result{LocalID: "local-new", RemoteID: "cr-new"}, res)
	assert.Equal(t, []string{
		"catalog.create urn:nbn:fi:lb-1",
		"store.create local-new cr-new",
	}, f.log.list())
}

func TestCreateIneligibleRecordMakesNoCalls(t *testing.T) {
	records := map[string]*hub.Record{
		"nil record":        nil,
		"no identifier":     {Title: hub.LangString{"fi": "Aineisto"}},
		"no title":          {PreferredIdentifier: "urn:nbn:fi:lb-1", Title: hub.LangString{}},
		"blank title value": {PreferredIdentifier: "urn:nbn:fi:lb-1", Title: hub.LangString{"fi": "  "}},
	}

	for name, record := range records {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			req := harvestRequest("")
			req.Record = record

			_, err := f.coord.Create(context.Background(), req)
			var invalid *ValidationFailedError
			require.ErrorAs(t, err, &invalid)
			assert.Empty(t, f.log.list())
		})
	}
}

func TestCreateRemoteFailureLeavesStoreUntouched(t *testing.T) {
	errs := []error{
		&catalog.RemoteError{Op: "create", Status: 400, Body: "bad"},
		&catalog.RemoteTransientError{Op: "create", Err: context.DeadlineExceeded},
	}
	for _, remoteErr := range errs {
		f := newFixture(t)
		f.catalog.createErr = remoteErr

		_, err := f.coord.Create(context.Background(), harvestRequest(""))
		assert.ErrorIs(t, err, remoteErr)
		assert.Equal(t, []string{"catalog.create urn:nbn:fi:lb-1"}, f.log.list())
	}
}

func TestCreateExistingRemoteRecord(t *testing.T) {
	f := newFixture(t)
	f.catalog.createRes = catalog.CreateResult{RemoteID: "cr-old", Existed: true}

	res, err := f.coord.Create(context.Background(), harvestRequest(""))
	require.NoError(t, err)
	assert.True(t, res.Existed)
	assert.Equal(t, []string{
		"catalog.create urn:nbn:fi:lb-1",
		"catalog.update cr-old",
		"store.create local-new cr-old",
	}, f.log.list())
}

func TestCreateExistingRemoteRecordRebindsLocalPackage(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-stale"
	f.store.pids["local-1"] = "urn:nbn:fi:lb-1"
	f.catalog.createRes = catalog.CreateResult{RemoteID: "cr-old", Existed: true}

	res, err := f.coord.Create(context.Background(), harvestRequest(""))
	require.NoError(t, err)
	assert.Equal(t, Result{LocalID: "local-1", RemoteID: "cr-old", Existed: true}, res)
	assert.Equal(t, []string{
		"catalog.create urn:nbn:fi:lb-1",
		"catalog.update cr-old",
		"store.update local-1 cr-old",
	}, f.log.list())
	assert.Len(t, f.store.bindings, 1)
	assert.Zero(t, f.coord.locks.size())
}

func TestCreateExistingRemoteRecordUpdateFails(t *testing.T) {
	f := newFixture(t)
	f.catalog.createRes = catalog.CreateResult{RemoteID: "cr-old", Existed: true}
	f.catalog.updateErr = &catalog.RemoteError{Op: "update", Status: 500}

	_, err := f.coord.Create(context.Background(), harvestRequest(""))
	require.Error(t, err)
	assert.NotContains(t, f.log.list(), "store.create local-new cr-old")
}

func TestCreateUnknownHarvestSource(t *testing.T) {
	f := newFixture(t)
	req := harvestRequest("")
	req.HarvestSource = "zenodo"

	_, err := f.coord.Create(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, f.log.list())
}

func TestCreateLocalFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("disk full")

	_, err := f.coord.Create(context.Background(), harvestRequest(""))
	assert.ErrorContains(t, err, "disk full")
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-1"
	f.catalog.existing["cr-1"] = true

	res, err := f.coord.Update(context.Background(), harvestRequest("local-1"))
	require.NoError(t, err)
	assert.Equal(t, Result{LocalID: "local-1", RemoteID: "cr-1"}, res)
	assert.Equal(t, []string{
		"catalog.exists cr-1",
		"catalog.update cr-1",
		"store.update local-1 cr-1",
	}, f.log.list())
}

func TestUpdateReconcilesMissingRemoteRecord(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-gone"

	res, err := f.coord.Update(context.Background(), harvestRequest("local-1"))
	require.NoError(t, err)
	assert.True(t, res.Reconciled)
	assert.Equal(t, "cr-new", res.RemoteID)
	assert.Equal(t, []string{
		"catalog.exists cr-gone",
		"catalog.create urn:nbn:fi:lb-1",
		"store.update local-1 cr-new",
	}, f.log.list())
	assert.Equal(t, "cr-new", f.store.bindings["local-1"])
}

func TestUpdateFailuresLeaveStoreUntouched(t *testing.T) {
	t.Run("update fails", func(t *testing.T) {
		f := newFixture(t)
		f.store.bindings["local-1"] = "cr-1"
		f.catalog.existing["cr-1"] = true
		f.catalog.updateErr = &catalog.RemoteError{Op: "update", Status: 400}

		_, err := f.coord.Update(context.Background(), harvestRequest("local-1"))
		require.Error(t, err)
		assert.Equal(t, "cr-1", f.store.bindings["local-1"])
		assert.NotContains(t, f.log.list(), "store.update local-1 cr-1")
	})

	t.Run("recreate fails", func(t *testing.T) {
		f := newFixture(t)
		f.store.bindings["local-1"] = "cr-gone"
		f.catalog.createErr = &catalog.RemoteTransientError{Op: "create", Err: errors.New("timeout")}

		_, err := f.coord.Update(context.Background(), harvestRequest("local-1"))
		assert.True(t, catalog.IsTransient(err))
		assert.Equal(t, "cr-gone", f.store.bindings["local-1"])
	})

	t.Run("exists fails", func(t *testing.T) {
		f := newFixture(t)
		f.store.bindings["local-1"] = "cr-1"
		f.catalog.existsErr = &catalog.RemoteTransientError{Op: "exists", Err: errors.New("refused")}

		_, err := f.coord.Update(context.Background(), harvestRequest("local-1"))
		require.Error(t, err)
		assert.Equal(t, []string{"catalog.exists cr-1"}, f.log.list())
	})
}

func TestUpdateUnknownLocalID(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.Update(context.Background(), harvestRequest("missing"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.log.list())

	_, err = f.coord.Update(context.Background(), harvestRequest(""))
	assert.Error(t, err)
}

func TestUpdateIneligibleRecord(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-1"
	req := harvestRequest("local-1")
	req.Record.Title = hub.LangString{}

	_, err := f.coord.Update(context.Background(), req)
	var invalid *ValidationFailedError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, f.log.list())
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-1"
	f.catalog.existing["cr-1"] = true

	res, err := f.coord.Delete(context.Background(), harvestRequest("local-1"))
	require.NoError(t, err)
	assert.False(t, res.RemoteSkipped)
	assert.Equal(t, []string{
		"catalog.exists cr-1",
		"catalog.delete cr-1",
		"store.delete local-1",
	}, f.log.list())
}

func TestDeleteSkipsMissingRemoteRecord(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-gone"

	res, err := f.coord.Delete(context.Background(), harvestRequest("local-1"))
	require.NoError(t, err)
	assert.True(t, res.RemoteSkipped)
	assert.Equal(t, []string{
		"catalog.exists cr-gone",
		"store.delete local-1",
	}, f.log.list())
}

func TestDeleteRemoteFailureKeepsLocalPackage(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-1"
	f.catalog.existing["cr-1"] = true
	f.catalog.deleteErr = &catalog.RemoteError{Op: "delete", Status: 500}

	_, err := f.coord.Delete(context.Background(), harvestRequest("local-1"))
	require.Error(t, err)
	assert.Equal(t, "cr-1", f.store.bindings["local-1"])
	assert.NotContains(t, f.log.list(), "store.delete local-1")
}

func TestDeleteWaitsForUpdateOfSamePackage(t *testing.T) {
	f := newFixture(t)
	f.store.bindings["local-1"] = "cr-gone"
	f.store.pids["local-1"] = "urn:nbn:fi:lb-1"
	f.catalog.createEntered = make(chan struct{})
	f.catalog.createRelease = make(chan struct{})
	ctx := context.Background()

	updateDone := make(chan error, 1)
	go func() {
		_, err := f.coord.Update(ctx, harvestRequest("local-1"))
		updateDone <- err
	}()
	<-f.catalog.createEntered

	deleteDone := make(chan error, 1)
	go func() {
		_, err := f.coord.Delete(ctx, harvestRequest("local-1"))
		deleteDone <- err
	}()

	select {
	case err := <-deleteDone:
		t.Fatalf("delete finished while update was recreating the record: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(f.catalog.createRelease)
	require.NoError(t, <-updateDone)
	require.NoError(t, <-deleteDone)

	assert.Equal(t, []string{
		"catalog.exists cr-gone",
		"catalog.create urn:nbn:fi:lb-1",
		"store.update local-1 cr-new",
		"catalog.exists cr-new",
		"store.delete local-1",
	}, f.log.list())
	assert.Eventually(t, func() bool { return f.coord.locks.size() == 0 }, time.Second, time.Millisecond)
}

func TestNonHarvestCallerBypassesCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manual := func(localID string) Request {
		return Request{Caller: "admin", LocalID: localID, Record: testRecord()}
	}

	res, err := f.coord.Create(ctx, manual(""))
	require.NoError(t, err)
	assert.Equal(t, "local-new", res.LocalID)

	f.store.bindings["harvested"] = "cr-9"
	res, err = f.coord.Update(ctx, manual("harvested"))
	require.NoError(t, err)
	assert.Equal(t, "cr-9", res.RemoteID, "manual update keeps the binding")

	_, err = f.coord.Delete(ctx, manual("local-new"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"store.create local-new ",
		"store.update harvested cr-9",
		"store.delete local-new",
	}, f.log.list())
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("a")
	acquired := make(chan struct{})
	go func() {
		defer k.Lock("a")()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock on the same key should block")
	case <-time.After(20 * time.Millisecond):
	}

	// Other keys are independent
	k.Lock("b")()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock was not released")
	}

	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, time.Millisecond)
}
