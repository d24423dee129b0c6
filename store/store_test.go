// Copyright © 2024 The runcoliru authors

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, TabsKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, TabsKey, []byte(`[{"id":"main.cpp","content":""}]`)))
	v, ok, err := s.Get(ctx, TabsKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"main.cpp","content":""}]`, string(v))

	require.NoError(t, s.Set(ctx, TabsKey, []byte(`[]`)))
	v, _, err = s.Get(ctx, TabsKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))

	require.NoError(t, s.Set(ctx, "empty", nil))
	v, ok, err = s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)

	require.NoError(t, s.Delete(ctx, TabsKey))
	require.NoError(t, s.Delete(ctx, "never-set"))
	_, ok, err = s.Get(ctx, TabsKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	testStore(t, s)
}

func TestMemoryCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'X'
	v, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
	v[1] = 'Y'
	v, _, _ = s.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Set(ctx, TabsKey, []byte("saved")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, TabsKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "saved", string(v))
}
