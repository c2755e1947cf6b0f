package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

type fakeConn struct {
	execs  []string
	pinged bool
	closed bool
}

func (f *fakeConn) Exec(_ context.Context, query string, _ ...interface{}) error {
	f.execs = append(f.execs, query)
	return nil
}

func (f *fakeConn) Ping(context.Context) error {
	f.pinged = true
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type fakeBatch struct {
	rows      [][]interface{}
	failAt    int
	sent      bool
	aborted   bool
	statement string
}

func (b *fakeBatch) Append(v ...interface{}) error {
	if b.failAt > 0 && len(b.rows)+1 == b.failAt {
		return errors.New("column type mismatch")
	}
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error  { b.sent = true; return nil }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

func newTestArchive(b *fakeBatch) (*Archive, *fakeConn) {
	c := &fakeConn{}
	a := newArchive(c, func(_ context.Context, query string) (Batch, error) {
		b.statement = query
		return b, nil
	}, DefaultConfig())
	return a, c
}

func TestArchive_InsertQueries(t *testing.T) {
	b := &fakeBatch{}
	a, _ := newTestArchive(b)
	id := int64(42)
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	err := a.InsertQueries(context.Background(), []models.Query{
		{FTLID: &id, Timestamp: ts, Domain: "ads.example.com", Client: "10.0.0.1", Status: "blocked"},
		{Timestamp: ts, Domain: "example.com", Client: "10.0.0.2", Status: "forwarded"},
	})
	require.NoError(t, err)

	assert.True(t, b.sent)
	assert.Equal(t, "INSERT INTO dns_queries (ftl_id, timestamp, domain, client, status, blocked)", b.statement)
	require.Len(t, b.rows, 2)
	assert.Equal(t, []interface{}{&id, ts, "ads.example.com", "10.0.0.1", "blocked", uint8(1)}, b.rows[0])
	assert.Equal(t, uint8(0), b.rows[1][5])
}

func TestArchive_InsertNothing(t *testing.T) {
	b := &fakeBatch{}
	a, _ := newTestArchive(b)
	require.NoError(t, a.InsertQueries(context.Background(), nil))
	assert.Empty(t, b.statement)
}

func TestArchive_AppendFailureAborts(t *testing.T) {
	b := &fakeBatch{failAt: 2}
	a, _ := newTestArchive(b)
	err := a.InsertQueries(context.Background(), []models.Query{
		{Domain: "a.com", Status: "cached"},
		{Domain: "b.com", Status: "cached"},
	})
	require.Error(t, err)
	assert.True(t, b.aborted)
	assert.False(t, b.sent)
}

func TestArchive_SchemaAndLifecycle(t *testing.T) {
	a, c := newTestArchive(&fakeBatch{})
	ctx := context.Background()

	require.NoError(t, a.InitSchema(ctx))
	require.NoError(t, a.Health(ctx))
	require.NoError(t, a.Close())

	require.Len(t, c.execs, 1)
	assert.Contains(t, c.execs[0], "CREATE TABLE IF NOT EXISTS dns_queries")
	assert.True(t, c.pinged)
	assert.True(t, c.closed)
}

func TestConfig_TableSchema(t *testing.T) {
	cfg := Config{Table: "q", PartitionType: "monthly", CompressionCodec: "lz4hc", RetentionDays: 30}
	schema := cfg.TableSchema()

	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS q (")
	assert.Contains(t, schema, "CODEC(LZ4HC(9))")
	assert.Contains(t, schema, "PARTITION BY toYYYYMM(timestamp)")
	assert.Contains(t, schema, "TTL timestamp + INTERVAL 30 DAY DELETE")

	cfg.RetentionDays = 0
	assert.NotContains(t, cfg.TableSchema(), "TTL")
}
