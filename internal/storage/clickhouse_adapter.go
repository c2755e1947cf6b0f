// Package storage mirrors imported DNS queries into a ClickHouse archive for
// long term analytics. The local SQLite database stays authoritative.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/config"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/status"
)

// Batch is the subset of a ClickHouse insert batch the archive uses
type Batch interface {
	Append(v ...interface{}) error
	Send() error
	Abort() error
}

type conn interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	Ping(ctx context.Context) error
	Close() error
}

// Archive writes query rows to ClickHouse
type Archive struct {
	conn    conn
	prepare func(ctx context.Context, query string) (Batch, error)
	cfg     Config
}

// Open connects to the ClickHouse server named by cfg and creates the
// archive table.
func Open(ctx context.Context, cfg config.ClickHouseConfig, layout Config) (*Archive, error) {
	log.Info().Str("addr", cfg.Addr).Str("database", cfg.Database).Str("username", cfg.Username).Msg("Connecting to ClickHouse")

	c, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	a := newArchive(c, func(ctx context.Context, query string) (Batch, error) {
		return c.PrepareBatch(ctx, query)
	}, layout)

	if err := a.Health(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to reach ClickHouse: %w", err)
	}
	if err := a.InitSchema(ctx); err != nil {
		c.Close()
		return nil, err
	}
	log.Info().Str("table", layout.table()).Int("retention_days", layout.RetentionDays).Msg("Connected to ClickHouse archive")
	return a, nil
}

func newArchive(c conn, prepare func(context.Context, string) (Batch, error), layout Config) *Archive {
	return &Archive{conn: c, prepare: prepare, cfg: layout}
}

// InitSchema creates the archive table when missing
func (a *Archive) InitSchema(ctx context.Context) error {
	if err := a.conn.Exec(ctx, a.cfg.TableSchema()); err != nil {
		return fmt.Errorf("failed to create archive table: %w", err)
	}
	return nil
}

// InsertQueries appends rows to the archive in a single batch
func (a *Archive) InsertQueries(ctx context.Context, rows []models.Query) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := a.prepare(ctx, "INSERT INTO "+a.cfg.table()+" (ftl_id, timestamp, domain, client, status, blocked)")
	if err != nil {
		return fmt.Errorf("failed to prepare archive batch: %w", err)
	}

	for _, q := range rows {
		var blocked uint8
		if status.IsBlocked(q.Status) {
			blocked = 1
		}
		if err := batch.Append(q.FTLID, q.Timestamp, q.Domain, q.Client, q.Status, blocked); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append archive row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send archive batch: %w", err)
	}
	log.Debug().Int("rows", len(rows)).Msg("Archived queries")
	return nil
}

// Health pings the server
func (a *Archive) Health(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

func (a *Archive) Close() error {
	return a.conn.Close()
}
