package store

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncsoftco/tickr/internal/domain"
)

func TestLocalReadMissing(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs())

	_, _, err := s.Read(context.Background(), "data/missing.json")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "data/missing.json")
}

func TestLocalCreateRead(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs())
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "data/a/b.json", "add", []byte("[]")))

	content, version, err := s.Read(ctx, "data/a/b.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(content))
	assert.NotEmpty(t, version)
}

func TestLocalCreateExisting(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs())
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "data/a.json", "add", []byte("[]")))
	err := s.Create(ctx, "data/a.json", "add", []byte("[]"))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestLocalUpdate(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs())
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "data/a.json", "add", []byte("one")))
	_, version, err := s.Read(ctx, "data/a.json")
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "data/a.json", "update", []byte("two"), version))

	content, newVersion, err := s.Read(ctx, "data/a.json")
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))
	assert.NotEqual(t, version, newVersion)
}

func TestLocalUpdateStaleVersion(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs())
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "data/a.json", "add", []byte("one")))
	_, version, err := s.Read(ctx, "data/a.json")
	require.NoError(t, err)

	// another writer got there first
	require.NoError(t, s.Update(ctx, "data/a.json", "update", []byte("two"), version))

	err = s.Update(ctx, "data/a.json", "update", []byte("three"), version)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestLocalUpdateMissing(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs())

	err := s.Update(context.Background(), "data/a.json", "update", []byte("x"), "v1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocalList(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs())
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "data/2021/01/a.json", "add", []byte("[]")))
	require.NoError(t, s.Create(ctx, "data/2021/02/b.json", "add", []byte("[]")))
	require.NoError(t, s.Create(ctx, "data/readme.txt", "add", []byte("hi")))

	entries, err := s.List(ctx, "data")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = e.IsDir
	}
	assert.Equal(t, map[string]bool{"2021": true, "readme.txt": false}, names)

	_, err = s.List(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
