package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/aggregate"
	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/querybuilder"
	"github.com/your-username/pihole-log-viewer/internal/status"
)

// ActivityLabel renders how long a group of queries kept recurring
func ActivityLabel(minutes int) string {
	switch {
	case minutes <= 0:
		return "Momentary"
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
	default:
		return fmt.Sprintf("%dd %dh", minutes/1440, (minutes%1440)/60)
	}
}

// QueryLogs returns the rows matching spec grouped by domain, client and
// status, most frequent first. The second result counts every matching
// group, so it exceeds len(entries) when spec.Limit truncated the result.
func (d *DB) QueryLogs(ctx context.Context, spec filter.Spec) ([]models.LogEntry, int, error) {
	where := querybuilder.Where(spec)

	var total int
	countSQL := fmt.Sprintf(`
		SELECT COUNT(*) FROM (
			SELECT 1 FROM queries %s GROUP BY domain, client, status
		)`, where.Where())
	if err := d.db.QueryRowContext(ctx, countSQL, where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count log groups: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT
			domain,
			client,
			status,
			COUNT(*) AS count,
			MAX(timestamp) AS last_seen,
			ROUND((julianday(MAX(timestamp)) - julianday(MIN(timestamp))) * 24 * 60) AS duration_minutes
		FROM queries
		%s
		GROUP BY domain, client, status
		ORDER BY count DESC, MIN(id)%s
	`, where.Where(), querybuilder.Limit(spec.Limit))

	rows, err := d.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		var (
			e        models.LogEntry
			count    int
			duration sql.NullFloat64
		)
		if err := rows.Scan(&e.Domain, &e.IP, &e.Status, &count, &e.Timestamp, &duration); err != nil {
			return nil, 0, err
		}
		minutes := int(math.Round(duration.Float64))
		e.Count = models.IntPtr(count)
		e.DurationMinutes = models.IntPtr(minutes)
		e.ActivityTime = ActivityLabel(minutes)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (d *DB) topList(ctx context.Context, column string, where querybuilder.Clause, limit int) ([]models.AggregateItem, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) AS count
		FROM queries
		%s
		GROUP BY %s
		ORDER BY count DESC, MIN(id)%s
	`, column, where.Where(), column, querybuilder.Limit(limit))

	rows, err := d.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.AggregateItem{}
	for rows.Next() {
		var it models.AggregateItem
		if err := rows.Scan(&it.Key, &it.Count); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// TopDomains ranks the domains queried on date
func (d *DB) TopDomains(ctx context.Context, date string, limit int) ([]models.AggregateItem, error) {
	where := querybuilder.Day(date).And("domain != ''")
	return d.topList(ctx, "domain", where, limit)
}

// TopBlockedDomains ranks the domains blocked on date
func (d *DB) TopBlockedDomains(ctx context.Context, date string, limit int) ([]models.AggregateItem, error) {
	where := querybuilder.Day(date).And("domain != ''").And(status.BlockedSQL("status"))
	return d.topList(ctx, "domain", where, limit)
}

// TopClients ranks the clients active on date, loopback excluded
func (d *DB) TopClients(ctx context.Context, date string, limit int) ([]models.AggregateItem, error) {
	where := querybuilder.Day(date).And("client != ''").And(aggregate.NotLoopbackSQL("client"))
	return d.topList(ctx, "client", where, limit)
}

// ActivitySeries returns 24 hourly buckets for date, zero filled
func (d *DB) ActivitySeries(ctx context.Context, date string) (models.ChartSeries, error) {
	where := querybuilder.Day(date)
	query := fmt.Sprintf(`
		SELECT
			%s AS hour,
			COUNT(*) AS total,
			SUM(CASE WHEN %s THEN 1 ELSE 0 END) AS blocked
		FROM queries
		%s
		GROUP BY hour
		ORDER BY hour
	`, querybuilder.HourExpr, status.BlockedSQL("status"), where.Where())

	rows, err := d.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return models.ChartSeries{}, err
	}
	defer rows.Close()

	var buckets []aggregate.Bucket
	for rows.Next() {
		var (
			hour string
			b    aggregate.Bucket
		)
		if err := rows.Scan(&hour, &b.Queries, &b.Blocked); err != nil {
			return models.ChartSeries{}, err
		}
		b.Label = hour + ":00"
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return models.ChartSeries{}, err
	}
	return aggregate.AssembleSeries(buckets, aggregate.HourLabels()), nil
}

// Stats summarises the queries of date
func (d *DB) Stats(ctx context.Context, date string) (models.Stats, error) {
	where := querybuilder.Day(date)
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT NULLIF(client, '')),
			COUNT(DISTINCT NULLIF(domain, ''))
		FROM queries
		%s
	`, status.BlockedSQL("status"), where.Where())

	var st models.Stats
	err := d.db.QueryRowContext(ctx, query, where.Args()...).Scan(
		&st.TotalQueries, &st.BlockedQueries, &st.UniqueClients, &st.UniqueDomains,
	)
	if err != nil {
		return models.Stats{}, err
	}
	st.BlockRate = aggregate.BlockRate(st.BlockedQueries, st.TotalQueries)
	return st, nil
}

// RecentActivity returns the newest rows
func (d *DB) RecentActivity(ctx context.Context, limit int) ([]models.Activity, error) {
	query := "SELECT timestamp, domain, client, status FROM queries ORDER BY timestamp DESC, id DESC" + querybuilder.Limit(limit)
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.Timestamp, &a.Domain, &a.IP, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Rows returns raw rows matching spec in insertion order as log entries
func (d *DB) Rows(ctx context.Context, spec filter.Spec) ([]models.LogEntry, error) {
	where := querybuilder.Where(spec)
	query := fmt.Sprintf("SELECT timestamp, domain, client, status FROM queries %s ORDER BY id%s",
		where.Where(), querybuilder.Limit(spec.Limit))

	rows, err := d.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.Timestamp, &e.Domain, &e.IP, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Grouping keys usable by the spike checks
const (
	GroupClient  = "client"
	GroupDomain  = "domain"
	GroupNetwork = ""
)

func groupExpr(group string) (string, error) {
	switch group {
	case GroupClient:
		return "client", nil
	case GroupDomain:
		return "domain", nil
	case GroupNetwork:
		return "'network'", nil
	}
	return "", fmt.Errorf("unsupported group %q", group)
}

// RecentCounts counts rows per group since the given time
func (d *DB) RecentCounts(ctx context.Context, group string, since time.Time, limit int) ([]models.AggregateItem, error) {
	expr, err := groupExpr(group)
	if err != nil {
		return nil, err
	}
	where := querybuilder.Clause{}.And("timestamp >= ?", since.Format(TimestampLayout))
	if group == GroupClient {
		where = where.And(aggregate.NotLoopbackSQL("client"))
	}
	return d.topList(ctx, expr, where, limit)
}

// HourlyAverages returns, per group, the mean number of rows per active hour
// since the given time
func (d *DB) HourlyAverages(ctx context.Context, group string, since time.Time) (map[string]float64, error) {
	expr, err := groupExpr(group)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT grp, AVG(hits) FROM (
			SELECT %s AS grp, substr(timestamp, 1, 13) AS hr, COUNT(*) AS hits
			FROM queries
			WHERE timestamp >= ?
			GROUP BY grp, hr
		)
		GROUP BY grp
	`, expr)

	rows, err := d.db.QueryContext(ctx, query, since.Format(TimestampLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			key string
			avg float64
		)
		if err := rows.Scan(&key, &avg); err != nil {
			return nil, err
		}
		out[key] = avg
	}
	return out, rows.Err()
}

// RowsAfter returns up to limit raw rows with an id above afterID, oldest
// first, and the id of the last one returned (afterID when none).
func (d *DB) RowsAfter(ctx context.Context, afterID int64, limit int) ([]models.LogEntry, int64, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, timestamp, domain, client, status FROM queries WHERE id > ? ORDER BY id LIMIT ?",
		afterID, limit)
	if err != nil {
		return nil, afterID, fmt.Errorf("failed to read new rows: %w", err)
	}
	defer rows.Close()

	last := afterID
	out := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&last, &e.Timestamp, &e.Domain, &e.IP, &e.Status); err != nil {
			return nil, afterID, err
		}
		out = append(out, e)
	}
	return out, last, rows.Err()
}

// MaxRowID returns the highest row id, 0 for an empty table
func (d *DB) MaxRowID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := d.db.QueryRowContext(ctx, "SELECT MAX(id) FROM queries").Scan(&id)
	return id.Int64, err
}
