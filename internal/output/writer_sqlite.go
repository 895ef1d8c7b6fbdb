package output

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"BurstScope/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bursts (
	num          INTEGER,
	src_addr     TEXT,
	dst_addr     TEXT,
	src_port     INTEGER,
	dst_port     INTEGER,
	start_time   DOUBLE,
	end_time     DOUBLE,
	report_time  DOUBLE,
	packet_count INTEGER,
	byte_count   INTEGER
);
CREATE INDEX IF NOT EXISTS bursts_start_time ON bursts (start_time);
`

// SQLiteWriter stores emitted bursts in a local database file so a
// capture session can be queried later without re-running it.
type SQLiteWriter struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewSQLiteWriter opens or creates the database and ensures the schema.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open burst store: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize burst store: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO bursts
		(num, src_addr, dst_addr, src_port, dst_port,
		 start_time, end_time, report_time, packet_count, byte_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	return &SQLiteWriter{db: db, insert: insert}, nil
}

// Write stores one burst.
func (w *SQLiteWriter) Write(rec *model.BurstRecord) error {
	var srcPort, dstPort interface{}
	if rec.Key.WithPorts {
		srcPort, dstPort = rec.Key.SrcPort, rec.Key.DstPort
	}
	_, err := w.insert.Exec(
		rec.Num,
		rec.Key.SrcAddr, rec.Key.DstAddr,
		srcPort, dstPort,
		rec.Start, rec.End, rec.ReportTime,
		rec.Packets, rec.Bytes,
	)
	if err != nil {
		return fmt.Errorf("failed to store burst: %w", err)
	}
	return nil
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	w.insert.Close()
	return w.db.Close()
}
