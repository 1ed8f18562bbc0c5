package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
	"github.com/Sternrassler/trendnow-cache/pkg/models"

	_ "modernc.org/sqlite"
)

const createNewsCacheTable = `
CREATE TABLE IF NOT EXISTS news_cache (
	url TEXT PRIMARY KEY,
	parent_url TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

const createNewsCacheParentIndex = `CREATE INDEX IF NOT EXISTS idx_news_cache_parent_url ON news_cache(parent_url)`

const createTopicsTable = `
CREATE TABLE IF NOT EXISTS topics (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	position INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

const (
	selectNewsCache = `SELECT url, parent_url, created_at FROM news_cache WHERE url = ?`

	upsertNewsCache = `
INSERT INTO news_cache (url, parent_url, created_at) VALUES (?, ?, ?)
ON CONFLICT(url) DO UPDATE SET parent_url = excluded.parent_url, created_at = excluded.created_at`

	deleteNewsCacheByParent = `DELETE FROM news_cache WHERE parent_url = ?`

	selectTopics = `SELECT id, name, created_at FROM topics ORDER BY position, id`

	upsertTopic = `
INSERT INTO topics (id, name, position, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, position = excluded.position, created_at = excluded.created_at`
)

// SQLiteStore is a cache.MetadataStore backed by a SQLite database file.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dbPath and
// initializes the schema. ":memory:" gives a private in-memory database.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection serializes writers and keeps ":memory:" a single database
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec(createNewsCacheTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create news_cache schema: %w", err)
	}

	if _, err := conn.Exec(createNewsCacheParentIndex); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create news_cache index: %w", err)
	}

	if _, err := conn.Exec(createTopicsTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create topics schema: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Get returns the record for url or cache.ErrRecordNotFound.
func (s *SQLiteStore) Get(ctx context.Context, url string) (*cache.CacheRecord, error) {
	var rec cache.CacheRecord
	err := s.conn.QueryRowContext(ctx, selectNewsCache, url).Scan(&rec.URL, &rec.ParentURL, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache record: %w", err)
	}
	return &rec, nil
}

// Upsert inserts rec or replaces the record with the same URL.
func (s *SQLiteStore) Upsert(ctx context.Context, rec cache.CacheRecord) error {
	if _, err := s.conn.ExecContext(ctx, upsertNewsCache, rec.URL, rec.ParentURL, rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert cache record %s: %w", rec.URL, err)
	}
	return nil
}

// DeleteByParent removes every record filed under parentURL.
func (s *SQLiteStore) DeleteByParent(ctx context.Context, parentURL string) error {
	if _, err := s.conn.ExecContext(ctx, deleteNewsCacheByParent, parentURL); err != nil {
		return fmt.Errorf("failed to delete cache records for %s: %w", parentURL, err)
	}
	return nil
}

// Topics returns the stored topics in the order they were saved.
func (s *SQLiteStore) Topics(ctx context.Context) ([]models.Topic, error) {
	rows, err := s.conn.QueryContext(ctx, selectTopics)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}
	return topics, nil
}

// SaveTopics inserts or replaces topics, stamping each with savedAt.
func (s *SQLiteStore) SaveTopics(ctx context.Context, topics []models.Topic, savedAt time.Time) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertTopic)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	createdAt := savedAt.UnixMilli()
	for i, t := range topics {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Name, i, createdAt); err != nil {
			return fmt.Errorf("failed to insert topic %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
