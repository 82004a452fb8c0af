package registry

import (
	"errors"
	"fmt"
)

const (
	MaxNameLen      = 32
	MaxSecretLen    = 64
	DefaultCapacity = 10
)

var (
	// ErrCapacityExceeded is returned by Register when the registry is full.
	ErrCapacityExceeded = errors.New("network registry is full")
	// ErrCredentialTooLong is returned by Register when the name or secret
	// exceeds its bound.
	ErrCredentialTooLong = errors.New("network name or secret too long")
)

// Credential is a pre-shared network name and secret.
type Credential struct {
	Name   string
	Secret string
}

// Registry is a bounded, ordered list of known credentials. Entries are
// immutable once registered; there is no removal.
type Registry struct {
	capacity int
	entries  []Credential
}

// New returns an empty registry. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		entries:  make([]Credential, 0, capacity),
	}
}

// Register appends a credential and returns its index. Lengths are measured
// in bytes. Duplicate names are accepted; the first registered one wins
// during selection.
func (r *Registry) Register(name, secret string) (int, error) {
	if len(r.entries) >= r.capacity {
		return -1, fmt.Errorf("register %q: %w (capacity %d)", name, ErrCapacityExceeded, r.capacity)
	}
	if len(name) > MaxNameLen {
		return -1, fmt.Errorf("register %q: %w: name is %d bytes, max %d", name, ErrCredentialTooLong, len(name), MaxNameLen)
	}
	if len(secret) > MaxSecretLen {
		return -1, fmt.Errorf("register %q: %w: secret is %d bytes, max %d", name, ErrCredentialTooLong, len(secret), MaxSecretLen)
	}
	r.entries = append(r.entries, Credential{Name: name, Secret: secret})
	return len(r.entries) - 1, nil
}

// Get returns the credential at index i. An out-of-range index is a
// programming error and panics.
func (r *Registry) Get(i int) Credential {
	if i < 0 || i >= len(r.entries) {
		panic(fmt.Sprintf("registry: index %d out of range [0,%d)", i, len(r.entries)))
	}
	return r.entries[i]
}

// Lookup returns the index of the first credential registered under name.
func (r *Registry) Lookup(name string) (int, bool) {
	for i, c := range r.entries {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (r *Registry) Len() int { return len(r.entries) }

func (r *Registry) Cap() int { return r.capacity }

// Names returns the registered names in insertion order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, c := range r.entries {
		names = append(names, c.Name)
	}
	return names
}
