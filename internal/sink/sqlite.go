package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
)

// SQLiteRowSink stores target rows in a sqlite table with a TEXT column per
// target column plus the row_key primary key. Ambiguous rows go to the
// reprocess_queue table.
type SQLiteRowSink struct {
	db      *sql.DB
	table   string
	columns []string
	logger  *zap.Logger

	upsertStmt  *sql.Stmt
	deleteStmt  *sql.Stmt
	requeueStmt *sql.Stmt
}

// QueuedRow is one entry of the reprocess queue.
type QueuedRow struct {
	Key      []byte
	Window   int
	QueuedAt time.Time
}

// OpenSQLiteRowSink opens (creating if needed) the target table of t at path.
func OpenSQLiteRowSink(ctx context.Context, path string, t *schema.Table, logger *zap.Logger) (*SQLiteRowSink, error) {
	if !schema.ValidateIdentifier(t.Name) {
		return nil, fmt.Errorf("sink: invalid table name %q", t.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sink: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	s := &SQLiteRowSink{db: db, table: t.Name, logger: logger}
	for _, c := range t.Catalog.All() {
		s.columns = append(s.columns, c.TargetName())
	}

	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepare(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRowSink) createTables(ctx context.Context) error {
	defs := []string{"row_key BLOB PRIMARY KEY"}
	for _, c := range s.columns {
		defs = append(defs, schema.QuoteIdentifier(c)+" TEXT")
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) WITHOUT ROWID", s.table, strings.Join(defs, ", ")),
		`CREATE TABLE IF NOT EXISTS reprocess_queue (
			row_key BLOB PRIMARY KEY,
			scan_window INTEGER NOT NULL,
			queued_at INTEGER NOT NULL
		) WITHOUT ROWID`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sink: failed to create table: %w", err)
		}
	}
	return nil
}

func (s *SQLiteRowSink) prepare(ctx context.Context) error {
	cols := []string{"row_key"}
	marks := []string{"?"}
	for _, c := range s.columns {
		cols = append(cols, schema.QuoteIdentifier(c))
		marks = append(marks, "?")
	}

	var err error
	s.upsertStmt, err = s.db.PrepareContext(ctx, fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("sink: failed to prepare upsert statement: %w", err)
	}
	s.deleteStmt, err = s.db.PrepareContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE row_key = ?", s.table))
	if err != nil {
		return fmt.Errorf("sink: failed to prepare delete statement: %w", err)
	}
	s.requeueStmt, err = s.db.PrepareContext(ctx,
		"INSERT OR REPLACE INTO reprocess_queue (row_key, scan_window, queued_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("sink: failed to prepare requeue statement: %w", err)
	}
	return nil
}

// Apply replaces the row at key. Columns missing from values are stored as NULL.
func (s *SQLiteRowSink) Apply(ctx context.Context, key []byte, values map[string]string) error {
	args := make([]interface{}, 0, len(s.columns)+1)
	args = append(args, key)
	for _, c := range s.columns {
		if v, ok := values[c]; ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	if _, err := s.upsertStmt.ExecContext(ctx, args...); err != nil {
		return merrors.NewSinkError(fmt.Sprintf("failed to write row %x", key), err)
	}
	return nil
}

// Delete removes the row at key.
func (s *SQLiteRowSink) Delete(ctx context.Context, key []byte) error {
	if _, err := s.deleteStmt.ExecContext(ctx, key); err != nil {
		return merrors.NewSinkError(fmt.Sprintf("failed to delete row %x", key), err)
	}
	return nil
}

// Requeue records key for a later run with a wider window.
func (s *SQLiteRowSink) Requeue(ctx context.Context, key []byte, window int) error {
	if _, err := s.requeueStmt.ExecContext(ctx, key, window, time.Now().UnixMilli()); err != nil {
		return merrors.NewSinkError(fmt.Sprintf("failed to requeue row %x", key), err)
	}
	s.logger.Debug("row requeued", zap.Binary("row_key", key), zap.Int("window", window))
	return nil
}

// Queued returns the reprocess queue in key order.
func (s *SQLiteRowSink) Queued(ctx context.Context) ([]QueuedRow, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT row_key, scan_window, queued_at FROM reprocess_queue ORDER BY row_key")
	if err != nil {
		return nil, merrors.NewSinkError("failed to read reprocess queue", err)
	}
	defer rows.Close()

	var out []QueuedRow
	for rows.Next() {
		var q QueuedRow
		var at int64
		if err := rows.Scan(&q.Key, &q.Window, &at); err != nil {
			return nil, merrors.NewSinkError("failed to scan reprocess queue", err)
		}
		q.QueuedAt = time.UnixMilli(at)
		out = append(out, q)
	}
	return out, rows.Err()
}

// Row returns the stored non-NULL columns of key, or nil when the row is absent.
func (s *SQLiteRowSink) Row(ctx context.Context, key []byte) (map[string]string, error) {
	var found map[string]string
	err := s.scan(ctx, "WHERE row_key = ?", []interface{}{key}, func(_ []byte, values map[string]string) error {
		found = values
		return nil
	})
	return found, err
}

// Count returns the number of stored rows.
func (s *SQLiteRowSink) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, merrors.NewSinkError("failed to count rows", err)
	}
	return n, nil
}

// ReconEntity recomputes the reconciliation counters from the stored rows.
func (s *SQLiteRowSink) ReconEntity(ctx context.Context, ops recon.ColumnOperations) (*recon.ReconEntity, error) {
	entity := recon.NewReconEntity()
	err := s.scan(ctx, "", nil, func(key []byte, values map[string]string) error {
		if err := entity.Add(values, ops); err != nil {
			return fmt.Errorf("row %x: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *SQLiteRowSink) scan(ctx context.Context, where string, args []interface{}, fn func([]byte, map[string]string) error) error {
	cols := []string{"row_key"}
	for _, c := range s.columns {
		cols = append(cols, schema.QuoteIdentifier(c))
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s %s ORDER BY row_key",
		strings.Join(cols, ", "), s.table, where), args...)
	if err != nil {
		return merrors.NewSinkError("failed to scan target rows", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key []byte
		cells := make([]sql.NullString, len(s.columns))
		dest := make([]interface{}, 0, len(cells)+1)
		dest = append(dest, &key)
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return merrors.NewSinkError("failed to scan target row", err)
		}

		values := make(map[string]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				values[s.columns[i]] = c.String
			}
		}
		if err := fn(key, values); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the prepared statements and the database.
func (s *SQLiteRowSink) Close() error {
	for _, stmt := range []*sql.Stmt{s.upsertStmt, s.deleteStmt, s.requeueStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
