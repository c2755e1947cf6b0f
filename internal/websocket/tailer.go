package websocket

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// RowSource reads stored rows by insertion id
type RowSource interface {
	RowsAfter(ctx context.Context, afterID int64, limit int) ([]models.LogEntry, int64, error)
	MaxRowID(ctx context.Context) (int64, error)
}

// LogTailer polls the database for rows written by other processes and
// streams them to clients. Used when the server runs no importer of its own.
type LogTailer struct {
	source       RowSource
	hub          *Hub
	pollInterval time.Duration
	batchSize    int
}

func NewLogTailer(source RowSource, hub *Hub) *LogTailer {
	return &LogTailer{
		source:       source,
		hub:          hub,
		pollInterval: 2 * time.Second,
		batchSize:    500,
	}
}

// Start tails from the current end of the table until ctx ends. Rows stored
// before Start are never sent.
func (lt *LogTailer) Start(ctx context.Context) {
	ticker := time.NewTicker(lt.pollInterval)
	defer ticker.Stop()

	lastID, started := lt.tableEnd(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Log tailer stopping")
			return
		case <-ticker.C:
			if !started {
				lastID, started = lt.tableEnd(ctx)
				continue
			}
			// the cursor still advances with nobody listening
			lastID = lt.poll(ctx, lastID, lt.hub.GetConnectedClients() > 0)
		}
	}
}

func (lt *LogTailer) tableEnd(ctx context.Context) (int64, bool) {
	id, err := lt.source.MaxRowID(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Log tailer could not read the table end")
		}
		return 0, false
	}
	return id, true
}

// poll drains every batch above lastID and returns the new cursor
func (lt *LogTailer) poll(ctx context.Context, lastID int64, send bool) int64 {
	for {
		entries, next, err := lt.source.RowsAfter(ctx, lastID, lt.batchSize)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("Failed to fetch new rows")
			}
			return lastID
		}
		if send {
			lt.hub.BroadcastQueries(entries)
		}
		if len(entries) > 0 {
			log.Debug().Int("count", len(entries)).Int64("last_id", next).Msg("Tailed new rows")
		}
		lastID = next
		if len(entries) < lt.batchSize {
			return lastID
		}
	}
}

// SetPollInterval updates the polling interval
func (lt *LogTailer) SetPollInterval(interval time.Duration) {
	lt.pollInterval = interval
}

// SetBatchSize updates the batch size
func (lt *LogTailer) SetBatchSize(size int) {
	lt.batchSize = size
}
