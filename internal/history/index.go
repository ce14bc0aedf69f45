package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a sqlite-backed metadata index over stored sessions. It keeps
// listing and tag filtering cheap without loading every snapshot file.
type Index struct {
	db *sql.DB
}

// NewIndex opens the index database and initializes the schema.
func NewIndex(ctx context.Context, dbPath string) (*Index, error) {
	// WAL mode allows a reader alongside the single writer
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers well
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return idx, nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		tags       TEXT NOT NULL DEFAULT '',
		items      INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
	`

	if _, err := idx.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Upsert inserts or refreshes a session's index row.
func (idx *Index) Upsert(meta SessionMeta) error {
	query := `
		INSERT INTO sessions (session_id, title, created_at, updated_at, tags, items)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			title      = excluded.title,
			updated_at = excluded.updated_at,
			tags       = excluded.tags,
			items      = excluded.items
	`

	_, err := idx.db.Exec(query,
		meta.ID, meta.Title,
		meta.CreatedAt.UnixMilli(), meta.UpdatedAt.UnixMilli(),
		strings.Join(meta.Tags, ","), meta.Items)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Remove deletes a session's index row. Removing an unknown id is not an
// error.
func (idx *Index) Remove(id string) error {
	_, err := idx.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// List returns indexed sessions newest first. When tag is non-empty only
// sessions carrying that tag are returned.
func (idx *Index) List(tag string) ([]SessionMeta, error) {
	rows, err := idx.db.Query(`
		SELECT session_id, title, created_at, updated_at, tags, items
		FROM sessions
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionMeta
	for rows.Next() {
		var meta SessionMeta
		var createdAt, updatedAt int64
		var tags string
		if err := rows.Scan(&meta.ID, &meta.Title, &createdAt, &updatedAt, &tags, &meta.Items); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		meta.CreatedAt = time.UnixMilli(createdAt).UTC()
		meta.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		if tags != "" {
			meta.Tags = strings.Split(tags, ",")
		}
		if tag != "" && !hasTag(meta.Tags, tag) {
			continue
		}
		sessions = append(sessions, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
