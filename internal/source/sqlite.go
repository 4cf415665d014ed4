package source

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/merge"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// SQLiteSource reads rows from a cells table holding one record per stored
// version or tombstone:
//
//	cells(row_key BLOB, family TEXT, qualifier TEXT, ts INTEGER, kind TEXT, value BLOB)
type SQLiteSource struct {
	db     *sql.DB
	table  string
	window int
	logger *zap.Logger

	mu      sync.Mutex
	scanCtx context.Context
	cancel  context.CancelFunc
	rows    *sql.Rows
	pending *keyedCell
	done    bool
	read    int64
}

type keyedCell struct {
	key  []byte
	cell types.Cell
}

// OpenSQLiteSource opens (creating if needed) the cells table at path.
func OpenSQLiteSource(ctx context.Context, path, table string, window int, logger *zap.Logger) (*SQLiteSource, error) {
	if !schema.ValidateIdentifier(table) {
		return nil, fmt.Errorf("source: invalid table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("source: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			row_key BLOB NOT NULL,
			family TEXT NOT NULL,
			qualifier TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			value BLOB
		)`, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_row ON %s(row_key, family, qualifier, ts)", table, table),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("source: failed to create cells table: %w", err)
		}
	}

	scanCtx, cancel := context.WithCancel(context.Background())
	return &SQLiteSource{
		db:      db,
		table:   table,
		window:  window,
		logger:  logger,
		scanCtx: scanCtx,
		cancel:  cancel,
	}, nil
}

// WriteCells appends cells for key in one transaction.
func (s *SQLiteSource) WriteCells(ctx context.Context, key []byte, cells []types.Cell) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("source: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (row_key, family, qualifier, ts, kind, value) VALUES (?, ?, ?, ?, ?, ?)", s.table))
	if err != nil {
		return fmt.Errorf("source: failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range cells {
		if !c.Kind.Valid() {
			return merrors.NewMergeError(merrors.CodeInvalidOperation,
				fmt.Sprintf("unknown cell kind %q", c.Kind), nil)
		}
		if _, err := stmt.ExecContext(ctx, key, c.Family, c.Qualifier, c.Timestamp, string(c.Kind), c.Value); err != nil {
			return fmt.Errorf("source: failed to insert cell: %w", err)
		}
	}
	return tx.Commit()
}

// Next returns the next row in key order.
func (s *SQLiteSource) Next(ctx context.Context) (*merge.RowHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, io.EOF
	}
	if s.rows == nil {
		rows, err := s.db.QueryContext(s.scanCtx, fmt.Sprintf(
			"SELECT row_key, family, qualifier, ts, kind, value FROM %s ORDER BY row_key, family, qualifier, ts DESC",
			s.table))
		if err != nil {
			return nil, merrors.NewSourceError("failed to scan cells", err)
		}
		s.rows = rows
	}
	if s.pending == nil {
		first, err := s.scan()
		if err != nil {
			return nil, err
		}
		if first == nil {
			s.finish()
			return nil, io.EOF
		}
		s.pending = first
	}

	w := newWindowed(s.pending.key, s.window)
	if err := w.add(s.pending.cell); err != nil {
		return nil, err
	}
	for {
		kc, err := s.scan()
		if err != nil {
			return nil, err
		}
		if kc == nil {
			s.pending = nil
			s.finish()
			break
		}
		if !bytes.Equal(kc.key, w.history.Key) {
			s.pending = kc
			break
		}
		if err := w.add(kc.cell); err != nil {
			return nil, err
		}
	}
	s.read++
	return w.history, nil
}

// Reread scans a single row with the given window.
func (s *SQLiteSource) Reread(ctx context.Context, key []byte, window int) (*merge.RowHistory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT family, qualifier, ts, kind, value FROM %s WHERE row_key = ? ORDER BY family, qualifier, ts DESC",
		s.table), key)
	if err != nil {
		return nil, merrors.NewSourceError(fmt.Sprintf("failed to reread row %x", key), err)
	}
	defer rows.Close()

	w := newWindowed(key, window)
	for rows.Next() {
		var c types.Cell
		var kind string
		if err := rows.Scan(&c.Family, &c.Qualifier, &c.Timestamp, &kind, &c.Value); err != nil {
			return nil, merrors.NewSourceError("failed to scan cell", err)
		}
		c.Kind = types.CellKind(kind)
		if err := w.add(c); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, merrors.NewSourceError(fmt.Sprintf("failed to reread row %x", key), err)
	}
	return w.history, nil
}

// RowsRead returns the number of rows returned by Next.
func (s *SQLiteSource) RowsRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read
}

// Close stops any running scan and closes the database.
func (s *SQLiteSource) Close() error {
	s.mu.Lock()
	s.finish()
	s.mu.Unlock()
	s.cancel()
	s.logger.Debug("source closed", zap.String("table", s.table), zap.Int64("rows_read", s.read))
	return s.db.Close()
}

func (s *SQLiteSource) scan() (*keyedCell, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, merrors.NewSourceError("failed to scan cells", err)
		}
		return nil, nil
	}
	var kc keyedCell
	var kind string
	if err := s.rows.Scan(&kc.key, &kc.cell.Family, &kc.cell.Qualifier, &kc.cell.Timestamp, &kind, &kc.cell.Value); err != nil {
		return nil, merrors.NewSourceError("failed to scan cell", err)
	}
	kc.cell.Kind = types.CellKind(kind)
	return &kc, nil
}

func (s *SQLiteSource) finish() {
	s.done = true
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
}
