package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"blinkmon/host/logger"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrInvalidDBPath = errors.New("store path is empty")
	ErrStorageInit   = errors.New("failed to initialize report store")
	ErrStorageAccess = errors.New("failed to access report store")
)

const defaultDirPerm = 0o755

const schema = `
CREATE TABLE IF NOT EXISTS usage (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    seq INTEGER NOT NULL,
    timestamp INTEGER NOT NULL,
    percent REAL NOT NULL,
    working INTEGER NOT NULL,
    sleeping INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage(timestamp);
`

// Store keeps a history of records in SQLite
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenStore opens or creates the database at path
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, ErrInvalidDBPath
	}

	logger.Debug().Msgf("Initializing report store at: %s", path)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageInit, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageInit, err)
	}

	return &Store{db: db}, nil
}

// Publish inserts one record
func (s *Store) Publish(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO usage (seq, timestamp, percent, working, sleeping)
        VALUES (?, ?, ?, ?, ?)
    `,
		rec.Seq,
		rec.Timestamp.UnixMilli(),
		rec.Percent,
		rec.Working,
		rec.Sleeping,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageAccess, err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
        SELECT seq, timestamp, percent, working, sleeping
        FROM usage
        ORDER BY id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageAccess, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts int64
		if err := rows.Scan(&rec.Seq, &ts, &rec.Percent, &rec.Working, &rec.Sleeping); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageAccess, err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageAccess, err)
	}
	return records, nil
}

// Average returns the mean utilization of the records since t
func (s *Store) Average(ctx context.Context, since time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(percent) FROM usage WHERE timestamp >= ?`,
		since.UnixMilli(),
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageAccess, err)
	}
	return avg.Float64, nil
}

// Close closes the database
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageAccess, err)
	}
	return nil
}
