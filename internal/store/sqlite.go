package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements FormatStore and Registry using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the property store.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		namespace TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		UNIQUE(namespace, name)
	);
	CREATE TABLE IF NOT EXISTS page_props (
		page_id INTEGER NOT NULL,
		prop TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (page_id, prop)
	);
	CREATE INDEX IF NOT EXISTS idx_page_props_prop ON page_props(prop);
	`
	_, err := s.db.Exec(schema)
	return err
}

// EnsurePage registers a page if needed and returns its article id.
func (s *SQLiteStore) EnsurePage(ctx context.Context, namespace, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO pages (namespace, name) VALUES (?, ?) ON CONFLICT(namespace, name) DO NOTHING",
		namespace, name,
	)
	if err != nil {
		return 0, fmt.Errorf("insert page: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM pages WHERE namespace = ? AND name = ?",
		namespace, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select page id: %w", err)
	}
	return id, nil
}

// ArticleID implements title.PageIndex. Unregistered pages yield 0.
func (s *SQLiteStore) ArticleID(namespace, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM pages WHERE namespace = ? AND name = ?",
		namespace, name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select page id: %w", err)
	}
	return id, nil
}

// AllPages lists every registered page.
func (s *SQLiteStore) AllPages(ctx context.Context) ([]Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, namespace, name FROM pages ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.Namespace, &p.Name); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return pages, nil
}

// BatchRead implements FormatStore.
func (s *SQLiteStore) BatchRead(ctx context.Context, pageIDs []int64, props []string) ([]PropRow, error) {
	if len(pageIDs) == 0 || len(props) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(
		"SELECT page_id, prop, value FROM page_props WHERE page_id IN (%s) AND prop IN (%s)",
		placeholders(len(pageIDs)), placeholders(len(props)),
	)

	args := make([]any, 0, len(pageIDs)+len(props))
	for _, id := range pageIDs {
		args = append(args, id)
	}
	for _, p := range props {
		args = append(args, p)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query page props: %w", err)
	}
	defer rows.Close()

	var out []PropRow
	for rows.Next() {
		var r PropRow
		if err := rows.Scan(&r.PageID, &r.Prop, &r.Value); err != nil {
			return nil, fmt.Errorf("scan prop row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Write implements FormatStore. An empty value deletes the property so stale
// declarations do not survive a re-render that dropped them.
func (s *SQLiteStore) Write(ctx context.Context, pageID int64, prop, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM page_props WHERE page_id = ? AND prop = ?", pageID, prop)
		if err != nil {
			return fmt.Errorf("delete page prop: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_props (page_id, prop, value) VALUES (?, ?, ?)
		 ON CONFLICT(page_id, prop) DO UPDATE SET value = excluded.value`,
		pageID, prop, value,
	)
	if err != nil {
		return fmt.Errorf("upsert page prop: %w", err)
	}
	return nil
}

// DeleteAll implements FormatStore. It also unregisters the page.
func (s *SQLiteStore) DeleteAll(ctx context.Context, pageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM page_props WHERE page_id = ?", pageID); err != nil {
		return fmt.Errorf("delete page props: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pages WHERE id = ?", pageID); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
