package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/aggregate"
	"github.com/your-username/pihole-log-viewer/internal/config"
	"github.com/your-username/pihole-log-viewer/internal/database"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/parsing"
	"github.com/your-username/pihole-log-viewer/internal/settings"
)

type fakeSource struct {
	mu      sync.Mutex
	lines   []string
	err     error
	cursors []Cursor
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) Name() string { return "ftl" }

func (f *fakeSource) Fetch(ctx context.Context, cursor Cursor) ([]string, error) {
	f.mu.Lock()
	f.cursors = append(f.cursors, cursor)
	entered, release := f.entered, f.release
	f.mu.Unlock()
	if entered != nil {
		close(entered)
		<-release
	}
	return f.lines, f.err
}

type fakeHub struct {
	updates []models.ImportResult
	queries [][]models.LogEntry
}

func (h *fakeHub) BroadcastDataUpdated(r models.ImportResult) { h.updates = append(h.updates, r) }
func (h *fakeHub) BroadcastQueries(e []models.LogEntry)       { h.queries = append(h.queries, e) }

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate(context.Context) error { f.calls++; return nil }

type fakeArchive struct{ rows []models.Query }

func (f *fakeArchive) InsertQueries(_ context.Context, rows []models.Query) error {
	f.rows = append(f.rows, rows...)
	return errors.New("archive offline")
}

type fakeRecorder struct{ errs []error }

func (f *fakeRecorder) ObserveImport(_ string, _ models.ImportResult, err error, _ time.Duration) {
	f.errs = append(f.errs, err)
}

var importNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	db       *database.DB
	source   *fakeSource
	hub      *fakeHub
	cache    *fakeInvalidator
	archive  *fakeArchive
	recorder *fakeRecorder
	importer *Importer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "queries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		db:       db,
		source:   &fakeSource{},
		hub:      &fakeHub{},
		cache:    &fakeInvalidator{},
		archive:  &fakeArchive{},
		recorder: &fakeRecorder{},
	}
	h.importer = NewImporter(db, h.source, parsing.NewManager(parsing.NewFTLParser()),
		settings.NewStore(filepath.Join(dir, "settings.json")), time.UTC,
		WithArchive(h.archive),
		WithInvalidator(h.cache),
		WithBroadcaster(h.hub),
		WithRecorder(h.recorder),
		WithClock(func() time.Time { return importNow }),
	)
	return h
}

func TestImporter_FirstRunFiltersRows(t *testing.T) {
	h := newHarness(t)
	h.source.lines = []string{
		"1|1709280000|a.com|10.0.0.1|2",
		"2|1709280060|ads.net|10.0.0.2|1",
		"3|1709280120|router.lan|127.0.0.1|2",
		"4|1709301600|late.com|10.0.0.1|2",
		"5|1709280180|bad..name|10.0.0.1|2",
		"garbage",
	}

	result, err := h.importer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 1, result.SkippedFuture)
	assert.Equal(t, 1, result.SkippedLocal)
	assert.Equal(t, 1, result.SkippedBad)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 90, result.RetentionDays)
	assert.Equal(t, "Imported 2 new queries", result.Message)

	require.Len(t, h.source.cursors, 1)
	assert.Equal(t, Cursor{Since: importNow.Add(-24 * time.Hour)}, h.source.cursors[0])

	require.Len(t, h.hub.updates, 1)
	require.Len(t, h.hub.queries, 1)
	assert.Equal(t, models.LogEntry{Timestamp: "2024-03-01 08:01:00", Domain: "ads.net", IP: "10.0.0.2", Status: "blocked"}, h.hub.queries[0][1])
	assert.Equal(t, 1, h.cache.calls)
	assert.Len(t, h.archive.rows, 2, "archive failure is only logged")
	assert.Equal(t, []error{nil}, h.recorder.errs)
}

func TestImporter_ResumesAfterLastFTLID(t *testing.T) {
	h := newHarness(t)
	h.source.lines = []string{
		"1|1709280000|a.com|10.0.0.1|2",
		"2|1709280060|ads.net|10.0.0.2|1",
	}
	_, err := h.importer.Run(context.Background())
	require.NoError(t, err)

	h.source.lines = append(h.source.lines, "6|1709280240|b.com|10.0.0.3|3")
	result, err := h.importer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.InsertedCount)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, Cursor{AfterID: 2}, h.source.cursors[1])

	result, err = h.importer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.InsertedCount)
	assert.Equal(t, "No new queries", result.Message)
	assert.Len(t, h.hub.updates, 2)
	assert.Equal(t, 2, h.cache.calls)
}

func TestImporter_FetchError(t *testing.T) {
	h := newHarness(t)
	h.source.err = errors.New("connection refused")

	_, err := h.importer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, h.hub.updates)
	require.Len(t, h.recorder.errs, 1)
	assert.Error(t, h.recorder.errs[0])
}

func TestImporter_RejectsConcurrentRun(t *testing.T) {
	h := newHarness(t)
	h.source.entered = make(chan struct{})
	h.source.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.importer.Run(context.Background())
		done <- err
	}()
	<-h.source.entered

	_, err := h.importer.Run(context.Background())
	assert.ErrorIs(t, err, ErrImportInProgress)

	close(h.source.release)
	require.NoError(t, <-done)
}

type fakeRunner struct {
	result models.ImportResult
	err    error
	calls  chan struct{}
}

func (f *fakeRunner) Run(context.Context) (models.ImportResult, error) {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return f.result, f.err
}

func TestScheduler_RecordsOutcome(t *testing.T) {
	finished := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	runner := &fakeRunner{result: models.ImportResult{FinishedAt: finished}}
	s := NewScheduler(runner, 0)

	assert.Equal(t, "Never", s.LastUpdate().String())

	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.LastUpdate{Time: finished}, s.LastUpdate())

	runner.err = errors.New("ssh: handshake failed")
	_, err = s.RunNow(context.Background())
	require.Error(t, err)
	last := s.LastUpdate()
	assert.Equal(t, finished, last.Time, "a failure keeps the last good time")
	assert.Equal(t, "ssh: handshake failed", last.Err)
	assert.False(t, last.InProgress)

	runner.err = ErrImportInProgress
	_, err = s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrImportInProgress)
	assert.Equal(t, "ssh: handshake failed", s.LastUpdate().Err)
}

func TestScheduler_TriggerAndTick(t *testing.T) {
	runner := &fakeRunner{calls: make(chan struct{}, 8)}
	s := NewScheduler(runner, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Trigger()

	for i := 0; i < 2; i++ {
		select {
		case <-runner.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("import was not started")
		}
	}
	s.Stop()
	s.Stop()
}

func TestSSHSource_Command(t *testing.T) {
	cfg := config.PiholeConfig{
		Host:     "pi.hole",
		Port:     "22",
		User:     "pi",
		Password: "secret",
		FTLDB:    "/etc/pihole/pihole-FTL.db",
		LogPath:  "/var/log/pihole/pihole.log",
		LogLines: 500,
	}

	ftlSource, err := NewSSHSource(cfg, config.SourceFTL)
	require.NoError(t, err)
	assert.Equal(t, "ftl", ftlSource.Name())
	assert.Equal(t,
		`sqlite3 -separator '|' '/etc/pihole/pihole-FTL.db' 'SELECT id, timestamp, domain, client, status FROM queries WHERE id > 7 ORDER BY id;'`,
		ftlSource.Command(Cursor{AfterID: 7}))

	logSource, err := NewSSHSource(cfg, config.SourceLog)
	require.NoError(t, err)
	assert.Equal(t, `tail -n 500 '/var/log/pihole/pihole.log'`, logSource.Command(Cursor{}))
}

func TestSSHSource_ConfigErrors(t *testing.T) {
	_, err := NewSSHSource(config.PiholeConfig{Password: "x"}, config.SourceFTL)
	assert.Error(t, err)

	_, err = NewSSHSource(config.PiholeConfig{Host: "pi.hole", Password: "x"}, "api")
	assert.Error(t, err)

	_, err = NewSSHSource(config.PiholeConfig{Host: "pi.hole"}, config.SourceFTL)
	assert.Error(t, err)

	_, err = NewSSHSource(config.PiholeConfig{Host: "pi.hole", KeyFile: filepath.Join(t.TempDir(), "missing")}, config.SourceFTL)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Nil(t, splitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb\n"))

	for _, c := range []string{"127.0.0.1", "127.0.1.1", "::1", "LOCALHOST"} {
		assert.True(t, aggregate.IsLoopback(c), c)
	}
	assert.False(t, aggregate.IsLoopback("192.168.1.2"))
	assert.True(t, validName("example.com"))
	assert.False(t, validName(""))
}
