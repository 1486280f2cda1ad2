package trace

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS traces (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP NOT NULL,
	request_id TEXT NOT NULL,
	model TEXT NOT NULL,
	raw_input BLOB,
	raw_backend_output BLOB,
	final_output BLOB
);
CREATE INDEX IF NOT EXISTS idx_traces_created_at ON traces(created_at);
`

// SQLiteConfig configures the SQLite trace backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long writes wait on a locked database.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// SQLiteRecorder persists trace records to a SQLite database and supports
// retention pruning.
type SQLiteRecorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteRecorder opens (creating if necessary) the trace database.
func NewSQLiteRecorder(cfg SQLiteConfig) (*SQLiteRecorder, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite trace path is empty")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create trace schema: %w", err)
	}

	logger := slog.Default().With("component", "trace.sqlite")
	logger.Info("trace database initialized", "path", cfg.Path)

	return &SQLiteRecorder{db: db, logger: logger}, nil
}

// Record implements Recorder. Insert failures are logged and dropped.
func (r *SQLiteRecorder) Record(ctx context.Context, rec *Record) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO traces (created_at, request_id, model, raw_input, raw_backend_output, final_output)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC(), rec.RequestID, rec.Model,
		rec.RawInput, rec.RawBackendOutput, rec.FinalOutput,
	)
	if err != nil {
		r.logger.Warn("failed to insert trace record", "error", err)
	}
}

// Prune deletes records created before the cutoff, then enforces maxRecords
// by dropping the oldest surplus rows. maxRecords <= 0 disables the count
// cap. It returns the number of rows deleted.
func (r *SQLiteRecorder) Prune(ctx context.Context, before time.Time, maxRecords int64) (int64, error) {
	var deleted int64

	res, err := r.db.ExecContext(ctx, `DELETE FROM traces WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune traces by age: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += n
	}

	if maxRecords > 0 {
		res, err = r.db.ExecContext(ctx,
			`DELETE FROM traces WHERE id NOT IN (SELECT id FROM traces ORDER BY id DESC LIMIT ?)`,
			maxRecords,
		)
		if err != nil {
			return deleted, fmt.Errorf("failed to prune traces by count: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}

	return deleted, nil
}

// Count returns the number of stored trace records.
func (r *SQLiteRecorder) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traces`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
