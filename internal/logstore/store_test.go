package logstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

func entries(domains ...string) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(domains))
	for _, d := range domains {
		out = append(out, models.LogEntry{Domain: d, IP: "10.0.0.1", Status: "forwarded"})
	}
	return out
}

func TestNew_IsEmpty(t *testing.T) {
	s := New()
	assert.True(t, s.IsEmpty())
	assert.NotNil(t, s.Snapshot().Entries)
	assert.Equal(t, uint64(0), s.Generation())
}

func TestReplace_SwapsWholesale(t *testing.T) {
	s := New()
	s.Replace(entries("a.com", "b.com"), 10)
	s.Replace(entries("c.com"), 1)

	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "c.com", snap.Entries[0].Domain)
	assert.Equal(t, 1, snap.TotalFound)
	assert.Equal(t, uint64(2), s.Generation())
}

func TestReplace_CopiesInput(t *testing.T) {
	s := New()
	in := entries("a.com")
	s.Replace(in, 1)

	in[0].Domain = "mutated.com"
	assert.Equal(t, "a.com", s.Snapshot().Entries[0].Domain)
}

func TestReplace_TotalFoundNeverBelowLen(t *testing.T) {
	s := New()
	s.Replace(entries("a.com", "b.com"), 0)
	assert.Equal(t, 2, s.Snapshot().TotalFound)
	assert.False(t, s.Snapshot().Truncated())
}

func TestSnapshot_SurvivesLaterReplace(t *testing.T) {
	s := New()
	s.Replace(entries("a.com"), 1)
	held := s.Snapshot()

	s.Replace(entries("b.com", "c.com"), 2)
	require.Len(t, held.Entries, 1)
	assert.Equal(t, "a.com", held.Entries[0].Domain)
}

func TestFetchFailureRetainsPriorResultSet(t *testing.T) {
	s := New()
	r1 := entries("a.com", "b.com")
	s.Replace(r1, 5)
	before := s.Snapshot()

	fetch := func() ([]models.LogEntry, int, error) {
		return nil, 0, errors.New("connection refused")
	}
	tok := s.Begin()
	if got, total, err := fetch(); err == nil {
		s.Commit(tok, got, total)
	}

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 5, s.Snapshot().TotalFound)
}

func TestCommit_DiscardsSupersededResponse(t *testing.T) {
	s := New()
	first := s.Begin()
	second := s.Begin()

	assert.True(t, s.Commit(second, entries("new.com"), 1))
	assert.False(t, s.Commit(first, entries("old.com"), 1))

	assert.Equal(t, "new.com", s.Snapshot().Entries[0].Domain)
	assert.Equal(t, uint64(1), s.Generation())
	assert.False(t, s.Current(first))
	assert.True(t, s.Current(second))
}

func TestCommit_LatestTokenAppliesOnce(t *testing.T) {
	s := New()
	tok := s.Begin()
	assert.True(t, s.Commit(tok, entries("a.com"), 1))
	// the same token may commit again while nothing newer was issued
	assert.True(t, s.Commit(tok, entries("b.com"), 1))
	assert.Equal(t, uint64(2), s.Generation())
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			tok := s.Begin()
			s.Commit(tok, entries("a.com", "b.com"), 2)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := s.Snapshot()
				if n := len(snap.Entries); n != 0 && n != 2 {
					t.Errorf("partial snapshot with %d entries", n)
				}
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, uint64(200), s.Generation())
}
