package aggregate

import (
	"fmt"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/status"
)

// maxBuckets bounds the axis of a locally built series
const maxBuckets = 10000

// Bucketing describes the time axis of a series. Zero Start or End is
// derived from the earliest or latest entry.
type Bucketing struct {
	Granularity time.Duration
	Start       time.Time
	End         time.Time
	Layout      string
}

// Hourly returns a 24 bucket axis covering the given day
func Hourly(day time.Time) Bucketing {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return Bucketing{
		Granularity: time.Hour,
		Start:       start,
		End:         start.Add(23 * time.Hour),
		Layout:      "15:04",
	}
}

func (b Bucketing) normalize() Bucketing {
	if b.Granularity <= 0 {
		b.Granularity = time.Hour
	}
	if b.Layout == "" {
		if b.Granularity >= 24*time.Hour {
			b.Layout = "2006-01-02"
		} else {
			b.Layout = "2006-01-02 15:04"
		}
	}
	return b
}

// Bucket is one pre-aggregated row of a series
type Bucket struct {
	Label   string `json:"label"`
	Queries int    `json:"queries"`
	Blocked int    `json:"blocked"`
}

// wallClock keeps the date and clock fields of t and drops its zone, so an
// entry lands in the bucket its own time of day names, the same fields the
// filter time window compares
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// BuildSeries buckets entries by truncating their wall clock timestamps to the
// granularity. Every bucket between start and end is present, zero filled.
// Entries with unparsable timestamps or outside the range are skipped.
func BuildSeries(entries []models.LogEntry, b Bucketing) models.ChartSeries {
	b = b.normalize()

	type point struct {
		at      time.Time
		n       int
		blocked bool
	}
	points := make([]point, 0, len(entries))
	var first, last time.Time
	for _, e := range entries {
		t, ok := e.Time()
		if !ok {
			continue
		}
		t = wallClock(t).Truncate(b.Granularity)
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if last.IsZero() || t.After(last) {
			last = t
		}
		points = append(points, point{at: t, n: e.Occurrences(), blocked: status.IsBlocked(e.Status)})
	}

	start, end := b.Start, b.End
	if start.IsZero() {
		start = first
	}
	if end.IsZero() {
		end = last
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return emptySeries()
	}
	start = wallClock(start).Truncate(b.Granularity)
	end = wallClock(end).Truncate(b.Granularity)
	if n := int(end.Sub(start) / b.Granularity); n >= maxBuckets {
		end = start.Add(time.Duration(maxBuckets-1) * b.Granularity)
	}

	size := int(end.Sub(start)/b.Granularity) + 1
	series := models.ChartSeries{
		Labels:  make([]string, size),
		Queries: make([]int, size),
		Blocked: make([]int, size),
	}
	for i := 0; i < size; i++ {
		series.Labels[i] = start.Add(time.Duration(i) * b.Granularity).Format(b.Layout)
	}

	for _, p := range points {
		if p.at.Before(start) || p.at.After(end) {
			continue
		}
		i := int(p.at.Sub(start) / b.Granularity)
		series.Queries[i] += p.n
		if p.blocked {
			series.Blocked[i] += p.n
		}
	}
	return series
}

// AssembleSeries aligns pre-aggregated buckets onto a full label axis.
// Labels absent from buckets are zero; buckets whose label is not on the
// axis are dropped.
func AssembleSeries(buckets []Bucket, all []string) models.ChartSeries {
	pos := make(map[string]int, len(all))
	series := models.ChartSeries{
		Labels:  make([]string, len(all)),
		Queries: make([]int, len(all)),
		Blocked: make([]int, len(all)),
	}
	for i, label := range all {
		series.Labels[i] = label
		pos[label] = i
	}
	for _, b := range buckets {
		i, ok := pos[b.Label]
		if !ok {
			continue
		}
		series.Queries[i] += b.Queries
		series.Blocked[i] += b.Blocked
	}
	return series
}

// HourLabels returns the 24 labels "00:00" through "23:00"
func HourLabels() []string {
	labels := make([]string, 24)
	for h := range labels {
		labels[h] = fmt.Sprintf("%02d:00", h)
	}
	return labels
}

func emptySeries() models.ChartSeries {
	return models.ChartSeries{Labels: []string{}, Queries: []int{}, Blocked: []int{}}
}
