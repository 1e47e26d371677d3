package session

import (
	"fmt"
	"regexp"
	"sort"
)

// storageKeyPattern matches the slot key the provider client writes its
// session under.
var storageKeyPattern = regexp.MustCompile(`^sb-.*-auth-token$`)

// Reader reads the persisted session from the primary storage slot
// without any network I/O.
type Reader struct {
	store       Store
	explicitKey string
	projectRef  string
}

// NewReader creates a Reader. explicitKey wins when set; otherwise the
// key is derived from projectRef; otherwise the store is scanned for a
// key matching the known pattern.
func NewReader(store Store, explicitKey, projectRef string) *Reader {
	return &Reader{store: store, explicitKey: explicitKey, projectRef: projectRef}
}

// ResolveKey resolves the primary slot key, or "" when none can be
// determined.
func (r *Reader) ResolveKey() string {
	if r.explicitKey != "" {
		return r.explicitKey
	}
	if r.projectRef != "" {
		return fmt.Sprintf("sb-%s-auth-token", r.projectRef)
	}

	keys, err := r.store.Keys()
	if err != nil {
		return ""
	}
	sort.Strings(keys)
	for _, key := range keys {
		if storageKeyPattern.MatchString(key) {
			return key
		}
	}
	return ""
}

// ReadStored returns the session persisted in the primary slot, or nil
// when the slot is missing, unreadable or holds something incomplete.
// It never returns an error: the slot is also written by the provider
// client and a corrupt value must read as "absent", not as a failure.
func (r *Reader) ReadStored() *Session {
	key := r.ResolveKey()
	if key == "" {
		return nil
	}

	raw, err := r.store.Get(key)
	if err != nil {
		return nil
	}
	return extractSession(raw)
}
