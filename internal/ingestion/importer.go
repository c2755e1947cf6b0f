// Package ingestion pulls new queries from the Pi-hole host into the local
// database.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/aggregate"
	"github.com/your-username/pihole-log-viewer/internal/database"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/parsing"
	"github.com/your-username/pihole-log-viewer/internal/settings"
)

// ErrImportInProgress is returned when a run is requested while one is active
var ErrImportInProgress = errors.New("import already in progress")

// ErrNoSource is returned for import requests when no Pi-hole host is set up
var ErrNoSource = errors.New("no import source configured")

// futureTolerance is how far past now a row may be stamped and still be kept
const futureTolerance = time.Hour

// firstImportWindow bounds the first import of an empty database
const firstImportWindow = 24 * time.Hour

// Store is the part of the query database the importer writes to
type Store interface {
	Count(ctx context.Context) (int, error)
	LastFTLID(ctx context.Context) (int64, bool, error)
	LastTimestamp(ctx context.Context, loc *time.Location) (time.Time, bool, error)
	InsertQueries(ctx context.Context, rows []models.Query) (int, error)
	Cleanup(ctx context.Context, retentionDays int, now time.Time) (int64, error)
}

// SettingsLoader supplies the retention setting
type SettingsLoader interface {
	Load() (settings.Settings, error)
}

// Archiver mirrors inserted rows to long-term storage
type Archiver interface {
	InsertQueries(ctx context.Context, rows []models.Query) error
}

// Invalidator drops cached dashboard responses
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Broadcaster pushes import notifications to connected clients
type Broadcaster interface {
	BroadcastDataUpdated(result models.ImportResult)
	BroadcastQueries(entries []models.LogEntry)
}

// Recorder observes finished runs
type Recorder interface {
	ObserveImport(source string, result models.ImportResult, err error, elapsed time.Duration)
}

// Option configures an Importer
type Option func(*Importer)

func WithArchive(a Archiver) Option        { return func(i *Importer) { i.archive = a } }
func WithInvalidator(c Invalidator) Option { return func(i *Importer) { i.cache = c } }
func WithBroadcaster(b Broadcaster) Option { return func(i *Importer) { i.hub = b } }
func WithRecorder(r Recorder) Option       { return func(i *Importer) { i.recorder = r } }
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// Importer runs one import at a time
type Importer struct {
	store    Store
	source   Source
	parsers  *parsing.Manager
	settings SettingsLoader
	loc      *time.Location

	archive  Archiver
	cache    Invalidator
	hub      Broadcaster
	recorder Recorder
	now      func() time.Time

	running sync.Mutex
}

func NewImporter(store Store, source Source, parsers *parsing.Manager, cfg SettingsLoader, loc *time.Location, opts ...Option) *Importer {
	if loc == nil {
		loc = time.Local
	}
	i := &Importer{
		store:    store,
		source:   source,
		parsers:  parsers,
		settings: cfg,
		loc:      loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run performs one import. It returns ErrImportInProgress without waiting
// when another run holds the importer.
func (i *Importer) Run(ctx context.Context) (models.ImportResult, error) {
	if !i.running.TryLock() {
		return models.ImportResult{}, ErrImportInProgress
	}
	defer i.running.Unlock()

	start := i.now().In(i.loc)
	result, err := i.run(ctx, start)
	if i.recorder != nil {
		i.recorder.ObserveImport(i.source.Name(), result, err, i.now().Sub(start))
	}
	if err != nil {
		log.Error().Err(err).Str("source", i.source.Name()).Msg("Import failed")
		return result, err
	}

	log.Info().
		Str("source", i.source.Name()).
		Int("inserted", result.InsertedCount).
		Int("skipped_future", result.SkippedFuture).
		Int("skipped_local", result.SkippedLocal).
		Int("skipped_invalid", result.SkippedBad).
		Int64("removed", result.Removed).
		Int("total", result.TotalRecords).
		Msg("Import finished")
	return result, nil
}

func (i *Importer) run(ctx context.Context, start time.Time) (models.ImportResult, error) {
	result := models.ImportResult{StartedAt: start}

	cfg, err := i.settings.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load settings, using defaults for retention")
		cfg = settings.Defaults()
	}
	result.RetentionDays = cfg.DataRetentionDays

	cursor, err := i.cursor(ctx, start)
	if err != nil {
		return result, fmt.Errorf("read import cursor: %w", err)
	}

	lines, err := i.source.Fetch(ctx, cursor)
	if err != nil {
		return result, fmt.Errorf("fetch from %s source: %w", i.source.Name(), err)
	}

	rows := i.accept(i.parsers.ParseAll(lines), start, &result)

	removed, err := i.store.Cleanup(ctx, cfg.DataRetentionDays, start)
	if err != nil {
		return result, fmt.Errorf("apply retention: %w", err)
	}
	result.Removed = removed

	inserted, err := i.store.InsertQueries(ctx, rows)
	if err != nil {
		return result, fmt.Errorf("insert queries: %w", err)
	}
	result.InsertedCount = inserted

	total, err := i.store.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("count queries: %w", err)
	}
	result.TotalRecords = total
	result.FinishedAt = i.now().In(i.loc)
	result.Message = message(result)

	if inserted > 0 || removed > 0 {
		i.invalidate(ctx)
	}
	if inserted > 0 {
		i.publish(ctx, rows, result)
	}
	return result, nil
}

// cursor resumes after the highest FTL id, else after the newest stored row,
// else a day back
func (i *Importer) cursor(ctx context.Context, start time.Time) (Cursor, error) {
	id, ok, err := i.store.LastFTLID(ctx)
	if err != nil {
		return Cursor{}, err
	}
	if ok {
		return Cursor{AfterID: id}, nil
	}
	last, ok, err := i.store.LastTimestamp(ctx, i.loc)
	if err != nil {
		return Cursor{}, err
	}
	if ok {
		return Cursor{Since: last}, nil
	}
	return Cursor{Since: start.Add(-firstImportWindow)}, nil
}

func (i *Importer) accept(parsed []models.Query, start time.Time, result *models.ImportResult) []models.Query {
	limit := start.Add(futureTolerance)
	rows := make([]models.Query, 0, len(parsed))
	for _, q := range parsed {
		q.Timestamp = q.Timestamp.In(i.loc)
		switch {
		case q.Timestamp.After(limit):
			result.SkippedFuture++
		case aggregate.IsLoopback(q.Client):
			result.SkippedLocal++
		case !validName(q.Domain):
			result.SkippedBad++
		default:
			rows = append(rows, q)
		}
	}
	return rows
}

func (i *Importer) invalidate(ctx context.Context) {
	if i.cache == nil {
		return
	}
	if err := i.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate response cache")
	}
}

func (i *Importer) publish(ctx context.Context, rows []models.Query, result models.ImportResult) {
	if i.archive != nil {
		if err := i.archive.InsertQueries(ctx, rows); err != nil {
			log.Warn().Err(err).Int("rows", len(rows)).Msg("Failed to mirror rows to archive")
		}
	}
	if i.hub == nil {
		return
	}
	i.hub.BroadcastDataUpdated(result)

	entries := make([]models.LogEntry, len(rows))
	for n, q := range rows {
		entries[n] = models.LogEntry{
			Timestamp: q.Timestamp.Format(database.TimestampLayout),
			Domain:    q.Domain,
			IP:        q.Client,
			Status:    q.Status,
		}
	}
	i.hub.BroadcastQueries(entries)
}

func validName(domain string) bool {
	if domain == "" {
		return false
	}
	_, ok := dns.IsDomainName(domain)
	return ok
}

func message(r models.ImportResult) string {
	if r.InsertedCount == 0 {
		return "No new queries"
	}
	return fmt.Sprintf("Imported %d new queries", r.InsertedCount)
}
