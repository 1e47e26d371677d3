package session

import "errors"

// Store errors
var (
	ErrKeyNotFound = errors.New("key not found")
)

// Store is the local persistent key-value storage holding the session
// slots. The primary slot is shared with the provider client (which
// also writes it); the backup slot is owned exclusively by this
// package. Reads must be cheap and never touch the network.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
}
