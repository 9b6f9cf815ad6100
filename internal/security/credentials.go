// Package security provides credential tracking, log redaction, download host
// filtering, per-chat rate limiting, and subprocess environment sanitization.
package security

import (
	"maps"
	"slices"
	"sync"
)

// CredentialStore holds secrets that become known at runtime, such as the
// bot token read during module configuration. Watchers are told about every
// change so redaction never lags behind the store.
type CredentialStore struct {
	mu       sync.RWMutex
	creds    map[string]string
	watchers []func(values []string)
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]string)}
}

// Set records value under name. An empty value removes the entry.
func (s *CredentialStore) Set(name, value string) {
	s.mu.Lock()
	if value == "" {
		delete(s.creds, name)
	} else {
		s.creds[name] = value
	}
	values := s.valuesLocked()
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(values)
	}
}

// Get returns the value stored under name.
func (s *CredentialStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.creds[name]
	return v, ok
}

// Names returns the credential names in sorted order.
func (s *CredentialStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.creds))
}

// Values returns the distinct credential values in sorted order.
func (s *CredentialStore) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked()
}

// Watch calls fn with the current values now and after every Set.
func (s *CredentialStore) Watch(fn func(values []string)) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	values := s.valuesLocked()
	s.mu.Unlock()
	fn(values)
}

func (s *CredentialStore) valuesLocked() []string {
	return slices.Compact(slices.Sorted(maps.Values(s.creds)))
}
