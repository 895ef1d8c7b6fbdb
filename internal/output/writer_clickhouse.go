package output

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"BurstScope/internal/config"
	"BurstScope/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS bursts (
    Num         UInt64,
    SrcAddr     String,
    DstAddr     String,
    SrcPort     Nullable(UInt16),
    DstPort     Nullable(UInt16),
    StartTime   Float64,
    EndTime     Float64,
    ReportTime  Float64,
    PacketCount UInt64,
    ByteCount   UInt64
) ENGINE = MergeTree()
ORDER BY (StartTime, Num);
`

const defaultBatchSize = 256

// ClickHouseWriter batches emitted bursts into a ClickHouse table for
// offline analysis across captures.
type ClickHouseWriter struct {
	conn      driver.Conn
	batchSize int
	pending   []*model.BurstRecord
}

// NewClickHouseWriter connects, ensures the table exists and returns the
// writer.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}
	return &ClickHouseWriter{conn: conn, batchSize: batchSize}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Write buffers the burst and flushes a full batch.
func (w *ClickHouseWriter) Write(rec *model.BurstRecord) error {
	w.pending = append(w.pending, rec)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.flush()
}

// Close flushes any remaining bursts and closes the connection.
func (w *ClickHouseWriter) Close() error {
	flushErr := w.flush()
	if err := w.conn.Close(); err != nil {
		return err
	}
	return flushErr
}

func (w *ClickHouseWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO bursts")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rec := range w.pending {
		err = batch.Append(
			rec.Num,
			rec.Key.SrcAddr,
			rec.Key.DstAddr,
			nullablePort(rec.Key, rec.Key.SrcPort),
			nullablePort(rec.Key, rec.Key.DstPort),
			rec.Start,
			rec.End,
			rec.ReportTime,
			rec.Packets,
			rec.Bytes,
		)
		if err != nil {
			return fmt.Errorf("failed to append burst to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Printf("Wrote %d bursts to ClickHouse", len(w.pending))
	w.pending = w.pending[:0]
	return nil
}

func nullablePort(key model.FlowKey, port uint16) interface{} {
	if !key.WithPorts {
		return nil
	}
	return port
}
