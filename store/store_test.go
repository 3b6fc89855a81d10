package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// tick makes the store clock advance one second per write.
func tick(s *Store) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	_, err := os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestCreateAndGet(t *testing.T) {
	s := createTestStore(t)
	tick(s)
	ctx := context.Background()

	pkg := Package{
		LocalID:             "local-1",
		RemoteID:            "cr-1",
		PreferredIdentifier: "urn:nbn:fi:lb-1",
		HarvestSource:       "kielipankki",
		Title:               "Aineisto",
	}
	require.NoError(t, s.Create(ctx, pkg))

	got, err := s.Get(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, "cr-1", got.RemoteID)
	assert.Equal(t, "urn:nbn:fi:lb-1", got.PreferredIdentifier)
	assert.Equal(t, "kielipankki", got.HarvestSource)
	assert.Equal(t, "Aineisto", got.Title)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC), got.CreatedAt)

	err = s.Create(ctx, pkg)
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.Error(t, s.Create(ctx, Package{}))
}

func TestUnboundPackage(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Package{LocalID: "manual-1", Title: "Manual"}))

	remoteID, err := s.RemoteID(ctx, "manual-1")
	require.NoError(t, err)
	assert.Empty(t, remoteID)
}

func TestUpdate(t *testing.T) {
	s := createTestStore(t)
	tick(s)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Package{LocalID: "local-1", RemoteID: "cr-1", PreferredIdentifier: "pid"}))
	require.NoError(t, s.Update(ctx, Package{LocalID: "local-1", RemoteID: "cr-2", PreferredIdentifier: "pid", Title: "New"}))

	got, err := s.Get(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, "cr-2", got.RemoteID)
	assert.Equal(t, "New", got.Title)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	err = s.Update(ctx, Package{LocalID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Package{LocalID: "local-1", RemoteID: "cr-1"}))
	require.NoError(t, s.Delete(ctx, "local-1"))

	_, err := s.Get(ctx, "local-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "local-1"), ErrNotFound)

	_, err = s.RemoteID(ctx, "local-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByPreferredIdentifier(t *testing.T) {
	s := createTestStore(t)
	tick(s)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Package{LocalID: "b", RemoteID: "cr-b", PreferredIdentifier: "pid"}))
	require.NoError(t, s.Create(ctx, Package{LocalID: "a", RemoteID: "cr-a", PreferredIdentifier: "pid"}))
	require.NoError(t, s.Create(ctx, Package{LocalID: "c", RemoteID: "cr-c", PreferredIdentifier: "other"}))

	got, err := s.FindByPreferredIdentifier(ctx, "pid")
	require.NoError(t, err)
	assert.Equal(t, "a", got.LocalID, "most recently updated package wins")

	require.NoError(t, s.Update(ctx, Package{LocalID: "b", RemoteID: "cr-b", PreferredIdentifier: "pid"}))
	got, err = s.FindByPreferredIdentifier(ctx, "pid")
	require.NoError(t, err)
	assert.Equal(t, "b", got.LocalID)

	_, err = s.FindByPreferredIdentifier(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Package{LocalID: "2", HarvestSource: "syke"}))
	require.NoError(t, s.Create(ctx, Package{LocalID: "1", HarvestSource: "syke"}))
	require.NoError(t, s.Create(ctx, Package{LocalID: "3", HarvestSource: "fsd"}))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].LocalID)

	syke, err := s.List(ctx, "syke")
	require.NoError(t, err)
	assert.Len(t, syke, 2)

	none, err := s.List(ctx, "kielipankki")
	require.NoError(t, err)
	assert.Empty(t, none)
}
