package cachestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *Badger {
	t.Helper()

	b, err := NewBadger(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})
	return b
}

func TestBadger_PutGet(t *testing.T) {
	b := newTestBadger(t)
	ctx := context.Background()

	_, found, err := b.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, b.Put(ctx, "k", []byte("value")))

	got, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("value"), got)
}

func TestBadger_Overwrite(t *testing.T) {
	b := newTestBadger(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("one")))
	require.NoError(t, b.Put(ctx, "k", []byte("two")))

	got, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("two"), got)
}

func TestBadger_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewBadger(dir, nil)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, "k", []byte("durable")))
	require.NoError(t, b.Close())

	reopened, err := NewBadger(dir, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	got, found, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("durable"), got)
}
