package harvest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csc-fi/etsin-harvester/catalog"
	"github.com/csc-fi/etsin-harvester/coordinator"
	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/format/cmdi"
	"github.com/csc-fi/etsin-harvester/format/datacite"
	"github.com/csc-fi/etsin-harvester/format/ddi25"
	"github.com/csc-fi/etsin-harvester/format/iso19139"
	"github.com/csc-fi/etsin-harvester/lookup"
	"github.com/csc-fi/etsin-harvester/refine"
	"github.com/csc-fi/etsin-harvester/store"
)

func corpus(identifier string) []byte {
	var b strings.Builder
	b.WriteString(`<cmd:CMD xmlns:cmd="http://www.clarin.eu/cmd/"><cmd:Components><cmd:resourceInfo><cmd:identificationInfo>`)
	b.WriteString(`<cmd:resourceName xml:lang="fi">Korpus</cmd:resourceName>`)
	if identifier != "" {
		b.WriteString(`<cmd:identifier>` + identifier + `</cmd:identifier>`)
	}
	b.WriteString(`</cmd:identificationInfo><cmd:distributionInfo><cmd:licenceInfo><cmd:licence>CLARIN_PUB</cmd:licence></cmd:licenceInfo>`)
	b.WriteString(`</cmd:distributionInfo></cmd:resourceInfo></cmd:Components></cmd:CMD>`)
	return []byte(b.String())
}

type fakeSyncer struct {
	creates []coordinator.Request
	updates []coordinator.Request
	err     error
}

func (f *fakeSyncer) Create(_ context.Context, req coordinator.Request) (coordinator.Result, error) {
	f.creates = append(f.creates, req)
	return coordinator.Result{LocalID: "local-" + req.Record.PreferredIdentifier, RemoteID: "cr"}, f.err
}

func (f *fakeSyncer) Update(_ context.Context, req coordinator.Request) (coordinator.Result, error) {
	f.updates = append(f.updates, req)
	return coordinator.Result{LocalID: req.LocalID, RemoteID: "cr", Reconciled: true}, f.err
}

type fakePackages map[string]string

func (f fakePackages) FindByPreferredIdentifier(_ context.Context, pid string) (*store.Package, error) {
	localID, ok := f[pid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.Package{LocalID: localID, PreferredIdentifier: pid}, nil
}

func newPipeline(t *testing.T, syncer Syncer, packages Packages, opts Options) *Pipeline {
	t.Helper()
	catalogs, err := lookup.NewCatalogRegistry()
	require.NoError(t, err)
	refiners, err := refine.NewDefaultRegistry(catalogs, refine.Options{})
	require.NoError(t, err)
	mappers := format.NewRegistry(&cmdi.Format{}, &datacite.Format{}, &ddi25.Format{}, &iso19139.Format{})
	return New(mappers, refiners, syncer, packages, opts)
}

func TestRunRecoversPerRecord(t *testing.T) {
	syncer := &fakeSyncer{}
	packages := fakePackages{"urn:nbn:fi:lb-2": "local-2"}
	p := newPipeline(t, syncer, packages, Options{})

	items := []Item{
		{GUID: "1", Name: "new.xml", Document: corpus("http://urn.fi/urn:nbn:fi:lb-1")},
		{GUID: "2", Name: "known.xml", Document: corpus("urn:nbn:fi:lb-2")},
		{GUID: "3", Name: "broken.xml", Document: []byte(`<cmd:CMD xmlns:cmd="http://www.clarin.eu/cmd/">`)},
		{GUID: "4", Name: "nopid.xml", Document: corpus("")},
		{GUID: "5", Name: "json.xml", Document: []byte(`{"not": "xml"}`)},
	}

	report, err := p.Run(context.Background(), "kielipankki", items)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total())
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Reconciled)
	assert.Equal(t, 3, report.Failed)

	require.Len(t, syncer.creates, 1)
	assert.Equal(t, "urn:nbn:fi:lb-1", syncer.creates[0].Record.PreferredIdentifier)
	assert.Equal(t, coordinator.DefaultHarvestUser, syncer.creates[0].Caller)
	assert.Equal(t, "kielipankki", syncer.creates[0].HarvestSource)

	require.Len(t, syncer.updates, 1)
	assert.Equal(t, "local-2", syncer.updates[0].LocalID)

	failures := report.Failures()
	require.Len(t, failures, 3)

	var malformed *format.MalformedSourceError
	assert.ErrorAs(t, failures[0].Err, &malformed)
	var missing *refine.DatasetFieldsMissingError
	require.ErrorAs(t, failures[1].Err, &missing)
	assert.Equal(t, []string{"preferred_identifier"}, missing.Fields)
	assert.ErrorContains(t, failures[2].Err, "could not detect")

	var out bytes.Buffer
	require.NoError(t, report.Write(&out))
	assert.Contains(t, out.String(), "kielipankki: 5 items, 1 created, 1 updated (1 reconciled), 0 skipped, 3 failed")
	assert.Contains(t, out.String(), "nopid.xml")
}

func TestRunCountsSkippedRecords(t *testing.T) {
	syncer := &fakeSyncer{}
	p := newPipeline(t, syncer, fakePackages{}, Options{Dialect: format.DialectISO19139})

	doc := []byte(`<gmd:MD_Metadata xmlns:gmd="http://www.isotc211.org/2005/gmd" xmlns:gco="http://www.isotc211.org/2005/gco">
  <gmd:fileIdentifier><gco:CharacterString>unknown-guid</gco:CharacterString></gmd:fileIdentifier>
</gmd:MD_Metadata>`)

	report, err := p.Run(context.Background(), "syke", []Item{{GUID: "unknown-guid", Name: "a.xml", Document: doc}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, syncer.creates)
	assert.ErrorIs(t, report.Items[0].Err, refine.ErrRecordSkipped)
}

func TestRunRemoteFailureIsPerRecord(t *testing.T) {
	syncer := &fakeSyncer{err: &catalog.RemoteError{Op: "create", Status: 400}}
	p := newPipeline(t, syncer, fakePackages{}, Options{})

	items := []Item{
		{GUID: "1", Name: "a.xml", Document: corpus("urn:nbn:fi:lb-1")},
		{GUID: "2", Name: "b.xml", Document: corpus("urn:nbn:fi:lb-2")},
	}
	report, err := p.Run(context.Background(), "kielipankki", items)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Len(t, syncer.creates, 2)
}

func TestRunUnknownSource(t *testing.T) {
	p := newPipeline(t, &fakeSyncer{}, fakePackages{}, Options{})
	_, err := p.Run(context.Background(), "zenodo", nil)
	var unknown *refine.UnknownHarvestSourceError
	assert.ErrorAs(t, err, &unknown)
}

func TestRunRequiresSyncerUnlessDryRun(t *testing.T) {
	p := newPipeline(t, nil, nil, Options{})
	_, err := p.Run(context.Background(), "kielipankki", nil)
	assert.Error(t, err)
}

func TestRunDryRun(t *testing.T) {
	p := newPipeline(t, nil, nil, Options{DryRun: true})
	report, err := p.Run(context.Background(), "kielipankki", []Item{{GUID: "1", Name: "a.xml", Document: corpus("urn:nbn:fi:lb-1")}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refined)
	assert.Equal(t, OutcomeRefined, report.Items[0].Outcome)
	require.NotNil(t, report.Items[0].Record)
	assert.Equal(t, "urn:nbn:fi:lb-1", report.Items[0].Record.PreferredIdentifier)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline(t, &fakeSyncer{}, fakePackages{}, Options{})
	_, err := p.Run(ctx, "kielipankki", []Item{{Name: "a.xml", Document: corpus("urn:nbn:fi:lb-1")}})
	assert.ErrorIs(t, err, context.Canceled)
}

// memoryCatalog is a catalog.Client keeping records in a map.
type memoryCatalog struct {
	records map[string]string
	next    int
}

func (m *memoryCatalog) Create(_ context.Context, ds *catalog.Dataset) (catalog.CreateResult, error) {
	m.next++
	id := fmt.Sprintf("cr-%d", m.next)
	m.records[id] = ds.Record.PreferredIdentifier
	return catalog.CreateResult{RemoteID: id}, nil
}

func (m *memoryCatalog) Update(_ context.Context, remoteID string, ds *catalog.Dataset) error {
	m.records[remoteID] = ds.Record.PreferredIdentifier
	return nil
}

func (m *memoryCatalog) Delete(_ context.Context, remoteID string) error {
	delete(m.records, remoteID)
	return nil
}

func (m *memoryCatalog) Exists(_ context.Context, remoteID string) (bool, error) {
	_, ok := m.records[remoteID]
	return ok, nil
}

func TestHarvestTwiceUpdatesStoredPackage(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "harvest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	catalogs, err := lookup.NewCatalogRegistry()
	require.NoError(t, err)
	remote := &memoryCatalog{records: map[string]string{}}
	coord := coordinator.New(remote, s, catalogs, coordinator.Options{})
	p := newPipeline(t, coord, s, Options{})

	items := []Item{{GUID: "1", Name: "a.xml", Document: corpus("urn:nbn:fi:lb-1")}}

	first, err := p.Run(ctx, "kielipankki", items)
	require.NoError(t, err)
	require.Equal(t, 1, first.Created, "failures: %v", first.Failures())

	// The catalog loses the record between runs
	remote.records = map[string]string{}

	second, err := p.Run(ctx, "kielipankki", items)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, 1, second.Reconciled)

	pkgs, err := s.List(ctx, "kielipankki")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, second.Items[0].Result.RemoteID, pkgs[0].RemoteID)
	assert.Contains(t, remote.records, pkgs[0].RemoteID)
}

func TestReadPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xml"), corpus("urn:nbn:fi:lb-2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.XML"), corpus("urn:nbn:fi:lb-1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xml"), 0o755))

	items, err := ReadPath(dir)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].GUID)
	assert.Equal(t, "b.xml", items[1].Name)

	single, err := ReadPath(filepath.Join(dir, "b.xml"))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "b", single[0].GUID)

	_, err = ReadPath(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
