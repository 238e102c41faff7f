package exporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

func init() {
	Register(sqliteFormat{})
}

// sqliteFormat stores each record as name/value rows keyed by record id, so
// reports with different keys share one schema and reopening appends.
type sqliteFormat struct{}

func (sqliteFormat) Name() string         { return "sqlite" }
func (sqliteFormat) Extensions() []string { return []string{".db", ".sqlite"} }

func (sqliteFormat) Open(path string) (LogWriter, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	return &sqliteWriter{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS record_fields (
    record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
    name      TEXT NOT NULL,
    kind      TEXT NOT NULL,
    value     TEXT NOT NULL,
    PRIMARY KEY (record_id, name)
);
CREATE INDEX IF NOT EXISTS idx_record_fields_name ON record_fields(name);
`

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

// sqliteWriter commits every record in its own transaction.
type sqliteWriter struct {
	db *sql.DB
}

func (w *sqliteWriter) Write(record Record) error {
	return w.insert(context.Background(), record)
}

func (w *sqliteWriter) insert(ctx context.Context, record Record) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO records (created_at) VALUES (?)`, time.Now().UTC())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO record_fields (record_id, name, kind, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, name := range OrderedKeys(record) {
		val := record[name]
		if val == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, name, string(kindOf(val)), FormatValue(val)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert field %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Flush is a no-op: every write is committed.
func (w *sqliteWriter) Flush() error { return nil }

func (w *sqliteWriter) Close() error {
	return w.db.Close()
}

// Load returns records in insertion order.
func (sqliteFormat) Load(path string) ([]Record, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
SELECT record_id, name, kind, value
FROM record_fields
ORDER BY record_id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	lastID := int64(-1)
	for rows.Next() {
		var (
			id                int64
			name, kind, value string
		)
		if err := rows.Scan(&id, &name, &kind, &value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		if id != lastID {
			records = append(records, make(Record))
			lastID = id
		}
		records[len(records)-1][name] = decodeValue(valueKind(kind), value)
	}
	return records, rows.Err()
}
