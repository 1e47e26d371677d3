package config

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageBaseURL returns the object storage API root. Empty selects
// the in-memory store.
func (Storage) GetStorageBaseURL() string {
	return GetEnv("STORAGE_BASE_URL", "")
}

func (Storage) GetStorageServiceKey() string {
	return GetEnv("STORAGE_SERVICE_KEY", "")
}

func (Storage) GetDocumentsBucket() string {
	return GetEnv("DOCUMENTS_BUCKET", "documents")
}
