// Package viewer runs the fetch, store, aggregate and export pipeline of the
// log viewer against a remote log server.
package viewer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/aggregate"
	"github.com/your-username/pihole-log-viewer/internal/detail"
	"github.com/your-username/pihole-log-viewer/internal/export"
	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/logstore"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

// LogFetcher fetches one filtered result set
type LogFetcher interface {
	FetchLogs(ctx context.Context, spec filter.Spec) (models.LogResultSet, error)
}

// DashboardFetcher fetches the server computed dashboard parts
type DashboardFetcher interface {
	FetchStats(ctx context.Context, date time.Time) (models.Stats, error)
	FetchActivitySeries(ctx context.Context, date time.Time) (models.ChartSeries, error)
	FetchTopDomains(ctx context.Context, date time.Time, limit int) ([]models.AggregateItem, error)
	FetchTopBlockedDomains(ctx context.Context, date time.Time, limit int) ([]models.AggregateItem, error)
	FetchTopIPs(ctx context.Context, date time.Time, limit int) ([]models.AggregateItem, error)
	FetchRecentActivity(ctx context.Context) ([]models.Activity, error)
	FetchAlerts(ctx context.Context) ([]models.AlertItem, error)
}

// Source is everything the viewer needs from the server
type Source interface {
	LogFetcher
	DashboardFetcher
}

// Outcome tells what happened to a fetched result set
type Outcome int

const (
	// Failed means the fetch did not produce a result; the store is untouched
	Failed Outcome = iota
	// Applied means the result replaced the store contents
	Applied
	// Superseded means a newer fetch was issued and the result was dropped
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Superseded:
		return "superseded"
	default:
		return "failed"
	}
}

// DefaultTopLimit is the length of dashboard top lists
const DefaultTopLimit = 10

// Viewer owns a log store and fills it from a Source
type Viewer struct {
	source   Source
	store    *logstore.Store
	exporter *export.Exporter
	topLimit int

	mu      sync.Mutex
	last    filter.Spec
	loaded  bool
	lastErr error
}

// Option configures a Viewer
type Option func(*Viewer)

// WithTopLimit sets the length of dashboard top lists
func WithTopLimit(n int) Option {
	return func(v *Viewer) {
		if n > 0 {
			v.topLimit = n
		}
	}
}

// WithExporter replaces the default exporter
func WithExporter(e *export.Exporter) Option {
	return func(v *Viewer) { v.exporter = e }
}

// New creates a viewer writing into store
func New(source Source, store *logstore.Store, opts ...Option) *Viewer {
	v := &Viewer{
		source:   source,
		store:    store,
		exporter: export.NewExporter(),
		topLimit: DefaultTopLimit,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Store returns the store the viewer writes into
func (v *Viewer) Store() *logstore.Store {
	return v.store
}

// Load validates the raw filter fields and fetches the matching entries.
// A *filter.ValidationError is returned before any request is made.
func (v *Viewer) Load(ctx context.Context, raw filter.RawFields) (Outcome, error) {
	spec, err := filter.Build(raw)
	if err != nil {
		return Failed, err
	}
	return v.LoadSpec(ctx, spec)
}

// LoadSpec fetches the entries matching spec. A failed fetch leaves the store
// as it was; a result overtaken by a newer fetch is discarded.
func (v *Viewer) LoadSpec(ctx context.Context, spec filter.Spec) (Outcome, error) {
	tok := v.store.Begin()

	rs, err := v.source.FetchLogs(ctx, spec)
	if err != nil {
		v.mu.Lock()
		v.lastErr = err
		v.mu.Unlock()
		return Failed, err
	}

	if !v.store.Commit(tok, rs.Entries, rs.TotalFound) {
		log.Debug().Uint64("token", uint64(tok)).Msg("Discarded superseded log result")
		return Superseded, nil
	}

	v.mu.Lock()
	v.last = spec
	v.loaded = true
	v.lastErr = nil
	v.mu.Unlock()
	return Applied, nil
}

// Reload repeats the last applied spec, or an unconstrained one when nothing
// was loaded yet
func (v *Viewer) Reload(ctx context.Context) (Outcome, error) {
	v.mu.Lock()
	spec := v.last
	v.mu.Unlock()
	return v.LoadSpec(ctx, spec)
}

// LastSpec returns the spec of the last applied load
func (v *Viewer) LastSpec() (filter.Spec, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last, v.loaded
}

// LastError returns the error of the most recent failed load, cleared by the
// next applied one
func (v *Viewer) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Run reloads on every tick until ctx is done. Ticks do not wait for the
// previous reload; overlapping reloads are ordered by the store tokens.
// onCycle, when not nil, is called after each reload.
func (v *Viewer) Run(ctx context.Context, interval time.Duration, onCycle func(Outcome, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := v.Reload(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("Periodic refresh failed, keeping previous data")
				}
				if onCycle != nil {
					onCycle(outcome, err)
				}
			}()
		}
	}
}

// Snapshot returns the current result set
func (v *Viewer) Snapshot() models.LogResultSet {
	return v.store.Snapshot()
}

// TopLocal ranks the stored entries without a server round trip
func (v *Viewer) TopLocal(key aggregate.KeyField, limit int) []models.AggregateItem {
	return aggregate.TopN(v.store.Snapshot().Entries, key, limit)
}

// TopBlockedLocal ranks blocked domains among the stored entries
func (v *Viewer) TopBlockedLocal(limit int) []models.AggregateItem {
	return aggregate.TopBlocked(v.store.Snapshot().Entries, limit)
}

// SeriesLocal buckets the stored entries
func (v *Viewer) SeriesLocal(b aggregate.Bucketing) models.ChartSeries {
	return aggregate.BuildSeries(v.store.Snapshot().Entries, b)
}

// SummaryLocal summarises the stored entries
func (v *Viewer) SummaryLocal() models.Stats {
	return aggregate.Summarize(v.store.Snapshot().Entries)
}

// Details drills down into one domain of the stored entries
func (v *Viewer) Details(domain string) detail.Details {
	return detail.For(domain, v.store.Snapshot())
}

// Export writes the stored entries in the given format
func (v *Viewer) Export(w io.Writer, format export.Format, meta models.ReportMeta) error {
	return v.exporter.Export(w, format, v.store.Snapshot().Entries, meta)
}
