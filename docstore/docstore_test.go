package docstore_test

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abrefacil/checkout-server/docstore"
)

var uploadPathPattern = regexp.MustCompile(`^rg/[0-9a-f-]{36}\.pdf$`)

func TestUploaderUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores under a generated path", func(t *testing.T) {
		store := docstore.NewMemoryObjectStore()
		uploader := docstore.NewUploader(store)

		data := []byte("%PDF-1.7 fake")
		uploaded, err := uploader.Upload(ctx, "rg", "application/pdf", data)
		require.NoError(t, err)
		require.Regexp(t, uploadPathPattern, uploaded.Path)
		require.Equal(t, "memory://documents/"+uploaded.Path, uploaded.URL)

		stored, ok := store.Object(uploaded.Path)
		require.True(t, ok)
		require.Equal(t, data, stored)
	})

	t.Run("equal file names never collide", func(t *testing.T) {
		store := docstore.NewMemoryObjectStore()
		uploader := docstore.NewUploader(store)

		first, err := uploader.Upload(ctx, "iptu", "image/png", []byte("one"))
		require.NoError(t, err)
		second, err := uploader.Upload(ctx, "iptu", "image/png", []byte("two"))
		require.NoError(t, err)
		require.NotEqual(t, first.Path, second.Path)
	})

	t.Run("extension follows content type", func(t *testing.T) {
		store := docstore.NewMemoryObjectStore()
		uploader := docstore.NewUploader(store)

		uploaded, err := uploader.Upload(ctx, "cpf", "image/webp", []byte("img"))
		require.NoError(t, err)
		require.Regexp(t, `\.webp$`, uploaded.Path)
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		uploader := docstore.NewUploader(docstore.NewMemoryObjectStore())
		_, err := uploader.Upload(ctx, "rg", "application/zip", []byte("zip"))
		require.ErrorIs(t, err, docstore.ErrUnsupportedType)
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		uploader := docstore.NewUploader(docstore.NewMemoryObjectStore())
		big := bytes.Repeat([]byte("a"), docstore.MaxFileSize+1)
		_, err := uploader.Upload(ctx, "rg", "application/pdf", big)
		require.ErrorIs(t, err, docstore.ErrFileTooLarge)
	})

	t.Run("accepts file at the limit", func(t *testing.T) {
		uploader := docstore.NewUploader(docstore.NewMemoryObjectStore())
		exact := bytes.Repeat([]byte("a"), docstore.MaxFileSize)
		_, err := uploader.Upload(ctx, "rg", "application/pdf", exact)
		require.NoError(t, err)
	})

	t.Run("rejects empty file", func(t *testing.T) {
		uploader := docstore.NewUploader(docstore.NewMemoryObjectStore())
		_, err := uploader.Upload(ctx, "rg", "application/pdf", nil)
		require.ErrorIs(t, err, docstore.ErrEmptyFile)
	})

	t.Run("rejects missing document type", func(t *testing.T) {
		uploader := docstore.NewUploader(docstore.NewMemoryObjectStore())
		_, err := uploader.Upload(ctx, "", "application/pdf", []byte("x"))
		require.ErrorIs(t, err, docstore.ErrMissingDocumentType)
	})
}
