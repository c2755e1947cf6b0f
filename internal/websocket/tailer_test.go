package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// memRows is a row source whose ids are slice positions plus one
type memRows struct {
	mu      sync.Mutex
	rows    []models.LogEntry
	fail    bool
	started chan struct{}
	once    sync.Once
}

func (m *memRows) add(entries ...models.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, entries...)
}

func (m *memRows) MaxRowID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started != nil {
		m.once.Do(func() { close(m.started) })
	}
	return int64(len(m.rows)), nil
}

func (m *memRows) RowsAfter(ctx context.Context, afterID int64, limit int) ([]models.LogEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, afterID, errors.New("database is locked")
	}
	end := int(afterID) + limit
	if end > len(m.rows) {
		end = len(m.rows)
	}
	if int(afterID) >= end {
		return []models.LogEntry{}, afterID, nil
	}
	out := append([]models.LogEntry(nil), m.rows[afterID:end]...)
	return out, int64(end), nil
}

func TestLogTailer_StreamsRowsWrittenAfterStart(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	src := &memRows{started: make(chan struct{})}
	src.add(models.LogEntry{Timestamp: "2024-03-01 07:59:00", Domain: "old.example.com", IP: "10.0.0.1", Status: "cached"})

	tailer := NewLogTailer(src, hub)
	tailer.SetPollInterval(20 * time.Millisecond)
	tailer.SetBatchSize(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tailer.Start(ctx)
	<-src.started

	src.add(
		models.LogEntry{Timestamp: "2024-03-01 08:00:00", Domain: "a.com", IP: "10.0.0.1", Status: "blocked"},
		models.LogEntry{Timestamp: "2024-03-01 08:00:01", Domain: "b.com", IP: "10.0.0.2", Status: "forwarded"},
		models.LogEntry{Timestamp: "2024-03-01 08:00:02", Domain: "c.com", IP: "10.0.0.3", Status: "cached"},
	)

	var domains []string
	for len(domains) < 3 {
		ev := readEvent(t, conn)
		require.Equal(t, models.EventQueries, ev.Type)
		var got []models.LogEntry
		require.NoError(t, json.Unmarshal(ev.Data, &got))
		for _, e := range got {
			domains = append(domains, e.Domain)
		}
	}
	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, domains)
}

func TestLogTailer_Poll(t *testing.T) {
	hub := NewHub()
	src := &memRows{}
	src.add(
		models.LogEntry{Domain: "a.com"},
		models.LogEntry{Domain: "b.com"},
		models.LogEntry{Domain: "c.com"},
	)
	tailer := NewLogTailer(src, hub)
	tailer.SetBatchSize(2)
	ctx := context.Background()

	// drains every batch even with nobody listening
	assert.Equal(t, int64(3), tailer.poll(ctx, 0, false))
	assert.Equal(t, int64(3), tailer.poll(ctx, 3, true))

	src.add(models.LogEntry{Domain: "d.com"})
	src.mu.Lock()
	src.fail = true
	src.mu.Unlock()
	assert.Equal(t, int64(3), tailer.poll(ctx, 3, true), "cursor must not move on error")
}
