// Package logstore holds the most recently fetched log result set.
//
// A Store has a single writer path (fetch completion) and any number of
// readers. Every update is a wholesale replacement; readers take a snapshot
// and never see a partially applied result.
package logstore

import (
	"sync"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Token identifies one fetch. Only the most recently issued token may commit.
type Token uint64

// Store is an explicitly owned result-set cell
type Store struct {
	mu         sync.RWMutex
	current    models.LogResultSet
	issued     Token
	generation uint64
}

// New creates a store holding an empty result set
func New() *Store {
	return &Store{
		current: models.LogResultSet{Entries: []models.LogEntry{}},
	}
}

// Replace swaps the held result set unconditionally
func (s *Store) Replace(entries []models.LogEntry, totalFound int) {
	rs := newResultSet(entries, totalFound)

	s.mu.Lock()
	s.current = rs
	s.generation++
	s.mu.Unlock()
}

// Begin issues a token for a fetch about to start. Any earlier token becomes
// stale.
func (s *Store) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit applies a fetch result if tok is still the latest issued token.
// It returns false when the result was superseded and discarded.
func (s *Store) Commit(tok Token, entries []models.LogEntry, totalFound int) bool {
	rs := newResultSet(entries, totalFound)

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.issued {
		return false
	}
	s.current = rs
	s.generation++
	return true
}

// Current reports whether tok is the latest issued token
func (s *Store) Current(tok Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tok == s.issued
}

// Snapshot returns the held result set. The entries slice is shared and must
// be treated as read-only.
func (s *Store) Snapshot() models.LogResultSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsEmpty reports whether the store holds no entries
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.current.Entries) == 0
}

// Generation returns the number of applied replacements
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func newResultSet(entries []models.LogEntry, totalFound int) models.LogResultSet {
	copied := make([]models.LogEntry, len(entries))
	copy(copied, entries)
	if totalFound < len(copied) {
		totalFound = len(copied)
	}
	return models.LogResultSet{Entries: copied, TotalFound: totalFound}
}
