package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// timeFormat is RFC 3339 with fixed-width nanoseconds. Fixed width keeps
// lexicographic order equal to chronological order, which the default
// most-recently-updated sort relies on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// dbFileName is the database file created inside the data directory.
const dbFileName = "surface.db"

// Store owns the SQLite database backing documents, index rows and raw
// definitions. Write correctness rests on SQLite's own locking plus the
// version-token guard on updates.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates the data directory if needed, opens (or creates) the
// database file and ensures the schema exists.
func Open(dataDir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(dataDir, dbFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}

	logger.Debug("store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle. Idempotent.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// formatTime renders a timestamp in the store's canonical form.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime reads a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}
