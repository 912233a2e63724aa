package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one downloaded file in the history table.
type Entry struct {
	ID            int64
	RunID         string
	Platform      string
	Title         string
	MediaType     string
	FilePath      string
	SourceURL     string
	FileSize      int64
	PlaylistTitle string
	PlaylistIndex int
	CreatedAt     time.Time
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS downloads (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id          TEXT NOT NULL DEFAULT '',
    platform        TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    media_type      TEXT NOT NULL DEFAULT 'video',
    file_path       TEXT NOT NULL UNIQUE,
    source_url      TEXT NOT NULL DEFAULT '',
    file_size       INTEGER NOT NULL DEFAULT 0,
    playlist_title  TEXT NOT NULL DEFAULT '',
    playlist_index  INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_downloads_platform ON downloads(platform);
CREATE INDEX IF NOT EXISTS idx_downloads_run_id ON downloads(run_id);
CREATE INDEX IF NOT EXISTS idx_downloads_created_at ON downloads(created_at);
`

// DB wraps an SQLite connection for the download history.
type DB struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: sqlDB}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// AddEntry inserts or refreshes the row for entry.FilePath.
func (d *DB) AddEntry(entry Entry) (int64, error) {
	if d == nil || d.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO downloads (
			run_id, platform, title, media_type, file_path,
			source_url, file_size, playlist_title, playlist_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			run_id=excluded.run_id, platform=excluded.platform,
			title=excluded.title, media_type=excluded.media_type,
			source_url=excluded.source_url, file_size=excluded.file_size,
			playlist_title=excluded.playlist_title,
			playlist_index=excluded.playlist_index,
			created_at=datetime('now')
	`,
		entry.RunID, entry.Platform, entry.Title, entry.MediaType, entry.FilePath,
		entry.SourceURL, entry.FileSize, entry.PlaylistTitle, entry.PlaylistIndex,
	)
	if err != nil {
		return 0, fmt.Errorf("recording download: %w", err)
	}

	// LastInsertId is unreliable for ON CONFLICT DO UPDATE; query the actual row ID.
	var id int64
	if err := d.db.QueryRow("SELECT id FROM downloads WHERE file_path = ?", entry.FilePath).Scan(&id); err != nil {
		return 0, fmt.Errorf("querying recorded download id: %w", err)
	}
	return id, nil
}

// ListEntries returns history rows, newest first. An empty platform
// matches every platform.
func (d *DB) ListEntries(platform string, limit, offset int) ([]Entry, error) {
	if d == nil || d.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := d.db.Query(`
		SELECT id, run_id, platform, title, media_type, file_path,
			source_url, file_size, playlist_title, playlist_index, created_at
		FROM downloads
		WHERE ? = '' OR platform = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, platform, platform, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.Platform, &e.Title, &e.MediaType, &e.FilePath,
			&e.SourceURL, &e.FileSize, &e.PlaylistTitle, &e.PlaylistIndex, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning download row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of recorded downloads.
func (d *DB) Count() (int, error) {
	if d == nil || d.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM downloads").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting downloads: %w", err)
	}
	return count, nil
}
