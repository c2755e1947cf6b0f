package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Result holds either a value or the error that prevented it
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the value is usable
func (r Result[T]) OK() bool {
	return r.Err == nil
}

func resultOf[T any](v T, err error) Result[T] {
	return Result[T]{Value: v, Err: err}
}

// Dashboard is one consistent fetch of every dashboard part. Each part fails
// on its own.
type Dashboard struct {
	Date       time.Time
	Stats      Result[models.Stats]
	Series     Result[models.ChartSeries]
	TopDomains Result[[]models.AggregateItem]
	TopBlocked Result[[]models.AggregateItem]
	TopClients Result[[]models.AggregateItem]
	Recent     Result[[]models.Activity]
	Alerts     Result[[]models.AlertItem]
}

// Err joins the errors of all failed parts, or returns nil
func (d Dashboard) Err() error {
	var errs []error
	add := func(part string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", part, err))
		}
	}
	add("stats", d.Stats.Err)
	add("series", d.Series.Err)
	add("top domains", d.TopDomains.Err)
	add("top blocked", d.TopBlocked.Err)
	add("top clients", d.TopClients.Err)
	add("recent activity", d.Recent.Err)
	add("alerts", d.Alerts.Err)
	return errors.Join(errs...)
}

// Dashboard fetches every part concurrently. A zero date means today on the
// server.
func (v *Viewer) Dashboard(ctx context.Context, date time.Time) Dashboard {
	d := Dashboard{Date: date}
	src := v.source
	limit := v.topLimit

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { d.Stats = resultOf(src.FetchStats(ctx, date)) })
	run(func() { d.Series = resultOf(src.FetchActivitySeries(ctx, date)) })
	run(func() { d.TopDomains = resultOf(src.FetchTopDomains(ctx, date, limit)) })
	run(func() { d.TopBlocked = resultOf(src.FetchTopBlockedDomains(ctx, date, limit)) })
	run(func() { d.TopClients = resultOf(src.FetchTopIPs(ctx, date, limit)) })
	run(func() { d.Recent = resultOf(src.FetchRecentActivity(ctx)) })
	run(func() { d.Alerts = resultOf(src.FetchAlerts(ctx)) })

	wg.Wait()
	return d
}
