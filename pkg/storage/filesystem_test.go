package storage

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGet(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Put(context.Background(), "docs/cv.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "docs/cv.pdf", ref)

	data, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestLocalStorageGetMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlobNotFound))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "../../etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidPath))

	_, err = store.Put(context.Background(), "../escape.pdf", []byte("x"))
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestLocalStorageStreamAndCleanup(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ref, err := store.SaveStream("booklets/old.pdf", strings.NewReader("old"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(ref), old, old))

	_, err = store.Put(context.Background(), "booklets/new.pdf", []byte("new"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"booklets/old.pdf"}, deleted)

	_, err = store.Open("booklets/old.pdf")
	assert.True(t, errors.Is(err, ErrBlobNotFound))
	require.NoError(t, store.Delete("booklets/new.pdf"))
	require.NoError(t, store.Delete("booklets/new.pdf"))
}

func TestLocalStorageHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Put(ctx, "a.pdf", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
