// Package docstore uploads supporting documents (identity papers, IPTU
// bills, e-CPF certificates) to an object storage bucket and hands back
// their public URLs.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MaxFileSize is the upload ceiling. Anything larger is rejected
// before touching the network.
const MaxFileSize = 10 << 20 // 10 MiB

var (
	ErrFileTooLarge        = errors.New("file exceeds the 10MB limit")
	ErrUnsupportedType     = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("empty file")
	ErrMissingDocumentType = errors.New("document type is required")
)

// extensionByContentType doubles as the allow-list.
var extensionByContentType = map[string]string{
	"application/pdf": "pdf",
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
}

// ObjectStore stores a blob under a path and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// Uploaded describes a stored document.
type Uploaded struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Uploader validates and stores documents. Paths are content-addressed
// with a fresh UUID so concurrent uploads of equally named files never
// collide.
type Uploader struct {
	store ObjectStore
}

func NewUploader(store ObjectStore) *Uploader {
	return &Uploader{store: store}
}

// Upload stores data under "{documentType}/{uuid}.{ext}".
func (u *Uploader) Upload(ctx context.Context, documentType, contentType string, data []byte) (*Uploaded, error) {
	if documentType == "" {
		return nil, ErrMissingDocumentType
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	ext, ok := extensionByContentType[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	path := fmt.Sprintf("%s/%s.%s", documentType, uuid.New().String(), ext)
	url, err := u.store.Put(ctx, path, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}
	return &Uploaded{Path: path, URL: url}, nil
}
