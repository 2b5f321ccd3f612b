package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"picpal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		url, err := store.Put(ctx, "uploads/a.jpg", []byte("jpeg-bytes"), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "memory://uploads/a.jpg", url)

		data, contentType, ok := store.Get("uploads/a.jpg")
		require.True(t, ok)
		assert.Equal(t, []byte("jpeg-bytes"), data)
		assert.Equal(t, "image/jpeg", contentType)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := store.Put(ctx, "", []byte("x"), "image/jpeg")
		assert.Error(t, err)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		_, err := store.Put(ctx, "uploads/b.jpg", []byte("x"), "image/jpeg")
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "uploads/b.jpg"))
		_, _, ok := store.Get("uploads/b.jpg")
		assert.False(t, ok)

		require.NoError(t, store.Delete(ctx, "uploads/b.jpg"))
	})
}

func TestFilesystemStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("put writes under root and returns URL", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		store, err := NewFilesystemStore(root, "/media/")
		require.NoError(t, err)

		url, err := store.Put(ctx, "uploads/c.jpg", []byte("payload"), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "/media/uploads/c.jpg", url)

		written, err := os.ReadFile(filepath.Join(root, "uploads", "c.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), written)
	})

	t.Run("delete removes the file and tolerates repeats", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		store, err := NewFilesystemStore(root, "/media")
		require.NoError(t, err)

		_, err = store.Put(ctx, "d.jpg", []byte("payload"), "image/jpeg")
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "d.jpg"))
		_, statErr := os.Stat(filepath.Join(root, "d.jpg"))
		assert.True(t, os.IsNotExist(statErr))

		require.NoError(t, store.Delete(ctx, "d.jpg"))
	})

	t.Run("path traversal is rejected", func(t *testing.T) {
		t.Parallel()
		store, err := NewFilesystemStore(t.TempDir(), "/media")
		require.NoError(t, err)

		_, err = store.Put(ctx, "../escape.jpg", []byte("x"), "image/jpeg")
		assert.Error(t, err)

		assert.Error(t, store.Delete(ctx, "/etc/passwd"))
	})
}

func TestNewStoreFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("memory driver", func(t *testing.T) {
		t.Parallel()
		store, err := NewStoreFromConfig(&config.Config{MediaDriver: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("filesystem driver", func(t *testing.T) {
		t.Parallel()
		store, err := NewStoreFromConfig(&config.Config{
			MediaDriver:    "filesystem",
			MediaUploadDir: t.TempDir(),
			MediaBaseURL:   "/media",
		})
		require.NoError(t, err)
		assert.IsType(t, &FilesystemStore{}, store)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		_, err := NewStoreFromConfig(&config.Config{MediaDriver: "tape"})
		assert.Error(t, err)
	})
}
