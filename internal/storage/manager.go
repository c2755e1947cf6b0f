package storage

import (
	"fmt"
	"strings"
)

// Config describes the archive table layout
type Config struct {
	Table            string
	PartitionType    string // "daily", "weekly", "monthly"
	CompressionCodec string // "LZ4", "ZSTD", "LZ4HC"
	CompressionLevel int
	RetentionDays    int // 0 keeps rows forever
}

// DefaultConfig returns the archive layout used by the server
func DefaultConfig() Config {
	return Config{
		Table:            "dns_queries",
		PartitionType:    "daily",
		CompressionCodec: "ZSTD",
		CompressionLevel: 3,
		RetentionDays:    365,
	}
}

// TableSchema returns the CREATE TABLE statement for the archive
func (c Config) TableSchema() string {
	codec := c.compressionClause()
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		ftl_id Nullable(Int64),
		timestamp DateTime CODEC(%s),
		domain String CODEC(%s),
		client LowCardinality(String) CODEC(%s),
		status LowCardinality(String),
		blocked UInt8,
		base_domain String MATERIALIZED cutToFirstSignificantSubdomain(domain),
		INDEX idx_domain domain TYPE bloom_filter(0.01) GRANULARITY 1,
		INDEX idx_client client TYPE set(1000) GRANULARITY 1
	) ENGINE = ReplacingMergeTree()
	%s
	ORDER BY (timestamp, client, domain, status)
	%s
	SETTINGS index_granularity = 8192
	`, c.table(), codec, codec, codec, c.partitionClause(), c.ttlClause())
}

func (c Config) table() string {
	if c.Table == "" {
		return DefaultConfig().Table
	}
	return c.Table
}

func (c Config) compressionClause() string {
	switch strings.ToUpper(c.CompressionCodec) {
	case "ZSTD":
		if c.CompressionLevel > 0 {
			return fmt.Sprintf("ZSTD(%d)", c.CompressionLevel)
		}
		return "ZSTD(3)"
	case "LZ4HC":
		if c.CompressionLevel > 0 {
			return fmt.Sprintf("LZ4HC(%d)", c.CompressionLevel)
		}
		return "LZ4HC(9)"
	case "LZ4":
		return "LZ4"
	default:
		return "ZSTD(3)"
	}
}

func (c Config) partitionClause() string {
	switch c.PartitionType {
	case "weekly":
		return "PARTITION BY toYYYYWW(timestamp)"
	case "monthly":
		return "PARTITION BY toYYYYMM(timestamp)"
	default:
		return "PARTITION BY toYYYYMMDD(timestamp)"
	}
}

func (c Config) ttlClause() string {
	if c.RetentionDays <= 0 {
		return ""
	}
	return fmt.Sprintf("TTL timestamp + INTERVAL %d DAY DELETE", c.RetentionDays)
}
