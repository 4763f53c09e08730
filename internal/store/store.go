package store

import (
	"sync"
	"time"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
)

// Entry is an analysis result together with the time it was stored.
type Entry struct {
	Result   analysis.Result
	Source   string
	LoadedAt time.Time

	// Version increases by one on every Put, starting at 1.
	Version uint64
}

// Store is a thread-safe holder for the current analysis. Each Put replaces
// the whole entry; readers never observe a partially updated result.
type Store struct {
	mu      sync.RWMutex
	current *Entry
	version uint64
	now     func() time.Time // injectable for deterministic tests
}

// New creates an empty Store.
func New() *Store {
	return &Store{now: time.Now}
}

// Put replaces the current result. source names where the data came from,
// usually the input file path. Callers must not modify res after calling Put.
func (s *Store) Put(res analysis.Result, source string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.current = &Entry{
		Result:   res,
		Source:   source,
		LoadedAt: s.now(),
		Version:  s.version,
	}
	return s.current
}

// Get returns the current entry and whether anything has been stored yet.
func (s *Store) Get() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Version returns the version of the current entry, 0 when empty.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
