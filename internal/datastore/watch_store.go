package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"notteru/internal/models"
)

// WatchStore is the durable mapping from watch name to watch record.
// Put is an idempotent upsert keyed by name; Scan returns every record.
type WatchStore interface {
	Scan(ctx context.Context) ([]models.Watch, error)
	Put(ctx context.Context, watch models.Watch) error
}

// SQLiteWatchStore implements WatchStore on a single `queries` table.
// Concurrent Puts for different names are independent; concurrent Puts for
// the same name are last-write-wins, which is acceptable because a sweep
// writes each name at most once.
type SQLiteWatchStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteWatchStore opens (creating if necessary) the watch database and
// ensures the schema exists.
func NewSQLiteWatchStore(dataSourceName string, logger zerolog.Logger) (*SQLiteWatchStore, error) {
	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dbDir, err)
	}

	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening watch store %s: %w", dataSourceName, err)
	}

	store := &SQLiteWatchStore{
		db:     db,
		logger: logger.With().Str("component", "WatchStore").Logger(),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing watch store schema: %w", err)
	}

	store.logger.Info().Str("path", dataSourceName).Msg("Watch store initialized")
	return store, nil
}

func (s *SQLiteWatchStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS queries (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		selector TEXT NOT NULL,
		filter_string TEXT NOT NULL,
		last_latest_output TEXT NOT NULL DEFAULT '',
		not_fetched INTEGER NOT NULL DEFAULT 1
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteWatchStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Scan returns every stored watch. Records failing validation are skipped
// with a warning rather than aborting the scan.
func (s *SQLiteWatchStore) Scan(ctx context.Context) ([]models.Watch, error) {
	query := `SELECT name, url, selector, filter_string, last_latest_output, not_fetched FROM queries`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to scan queries table")
		return nil, fmt.Errorf("%w: scanning queries: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var watches []models.Watch
	for rows.Next() {
		var w models.Watch
		if err := rows.Scan(&w.Name, &w.URL, &w.Selector, &w.FilterString, &w.LastLatestOutput, &w.NotFetched); err != nil {
			return nil, fmt.Errorf("%w: reading query row: %v", ErrStoreUnavailable, err)
		}
		if err := w.Validate(); err != nil {
			s.logger.Warn().Err(err).Str("name", w.Name).Msg("Skipping invalid watch record")
			continue
		}
		watches = append(watches, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query rows: %v", ErrStoreUnavailable, err)
	}

	s.logger.Debug().Int("count", len(watches)).Msg("Scanned watch records")
	return watches, nil
}

// Put upserts a watch keyed by name. Re-registering an existing name
// overwrites the stored record.
func (s *SQLiteWatchStore) Put(ctx context.Context, watch models.Watch) error {
	if err := watch.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}

	query := `
	INSERT INTO queries (name, url, selector, filter_string, last_latest_output, not_fetched)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		url = excluded.url,
		selector = excluded.selector,
		filter_string = excluded.filter_string,
		last_latest_output = excluded.last_latest_output,
		not_fetched = excluded.not_fetched
	`
	_, err := s.db.ExecContext(ctx, query,
		watch.Name, watch.URL, watch.Selector, watch.FilterString, watch.LastLatestOutput, watch.NotFetched)
	if err != nil {
		s.logger.Error().Err(err).Str("name", watch.Name).Msg("Failed to put watch record")
		return fmt.Errorf("%w: putting %q: %v", ErrWriteRejected, watch.Name, err)
	}

	s.logger.Debug().Str("name", watch.Name).Msg("Stored watch record")
	return nil
}
