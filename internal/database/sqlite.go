package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/your-username/pihole-log-viewer/internal/config"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

// TimestampLayout is how timestamps are stored, in the configured zone
const TimestampLayout = "2006-01-02 15:04:05"

// DB is the local query database
type DB struct {
	db *sql.DB
}

// New opens the database named by the config
func New(cfg config.DatabaseConfig) (*DB, error) {
	log.Info().Str("path", cfg.Path).Msg("Opening query database")
	return Open(cfg.Path)
}

// Open opens or creates the database at path
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open query database: %w", err)
	}
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// InitSchema creates the queries table. Rows imported from FTL are unique by
// ftl_id; rows from the text log are unique by content.
func (d *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ftl_id INTEGER UNIQUE,
		timestamp TEXT NOT NULL,
		domain TEXT NOT NULL,
		client TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queries_timestamp ON queries(timestamp);
	CREATE INDEX IF NOT EXISTS idx_queries_domain ON queries(domain);
	CREATE INDEX IF NOT EXISTS idx_queries_client ON queries(client);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_queries_event
		ON queries(timestamp, domain, client, status) WHERE ftl_id IS NULL;
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Health checks that the database answers
func (d *DB) Health(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// InsertQueries stores rows, ignoring duplicates. It returns the number of
// rows actually inserted.
func (d *DB) InsertQueries(ctx context.Context, rows []models.Query) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO queries (ftl_id, timestamp, domain, client, status)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, q := range rows {
		var ftlID interface{}
		if q.FTLID != nil {
			ftlID = *q.FTLID
		}
		res, err := stmt.ExecContext(ctx, ftlID, q.Timestamp.Format(TimestampLayout), q.Domain, q.Client, q.Status)
		if err != nil {
			return 0, fmt.Errorf("failed to insert query: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Count returns the number of stored rows
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queries").Scan(&n)
	return n, err
}

// LastTimestamp returns the newest stored timestamp, in loc
func (d *DB) LastTimestamp(ctx context.Context, loc *time.Location) (time.Time, bool, error) {
	var ts sql.NullString
	if err := d.db.QueryRowContext(ctx, "SELECT MAX(timestamp) FROM queries").Scan(&ts); err != nil {
		return time.Time{}, false, err
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.ParseInLocation(TimestampLayout, ts.String, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bad stored timestamp %q: %w", ts.String, err)
	}
	return t, true, nil
}

// LastFTLID returns the highest imported FTL row id
func (d *DB) LastFTLID(ctx context.Context) (int64, bool, error) {
	var id sql.NullInt64
	if err := d.db.QueryRowContext(ctx, "SELECT MAX(ftl_id) FROM queries").Scan(&id); err != nil {
		return 0, false, err
	}
	return id.Int64, id.Valid, nil
}

// Cleanup removes rows older than retentionDays before now
func (d *DB) Cleanup(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -retentionDays).Format(TimestampLayout)
	result, err := d.db.ExecContext(ctx, "DELETE FROM queries WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
