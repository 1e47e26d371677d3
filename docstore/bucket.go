package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
)

// BucketStore talks to an object storage bucket over its REST surface:
// objects are written to /object/{bucket}/{path} with a service key and
// served publicly from /object/public/{bucket}/{path}.
type BucketStore struct {
	http   *resty.Client
	bucket string
}

var _ ObjectStore = (*BucketStore)(nil)

// BucketConfig configures a BucketStore.
type BucketConfig struct {
	// BaseURL is the storage API root, e.g.
	// "https://xyzcompany.example.com/storage/v1".
	BaseURL string
	// ServiceKey authenticates writes.
	ServiceKey string
	// Bucket is the bucket name documents land in.
	Bucket string
}

func NewBucketStore(cfg BucketConfig) *BucketStore {
	return &BucketStore{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetAuthToken(cfg.ServiceKey),
		bucket: cfg.Bucket,
	}
}

func (b *BucketStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	resp, err := b.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Post(fmt.Sprintf("/object/%s/%s", b.bucket, path))
	if err != nil {
		return "", fmt.Errorf("object upload failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("object upload rejected (%s): %s", resp.Status(), resp.String())
	}
	return fmt.Sprintf("%s/object/public/%s/%s", b.http.BaseURL, b.bucket, path), nil
}

// MemoryObjectStore is an in-memory ObjectStore for tests and local
// development without a bucket.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ ObjectStore = (*MemoryObjectStore)(nil)

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func (m *MemoryObjectStore) Put(_ context.Context, path, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[path] = stored
	return "memory://documents/" + path, nil
}

// Object returns a stored blob, for assertions in tests.
func (m *MemoryObjectStore) Object(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[path]
	return data, ok
}
