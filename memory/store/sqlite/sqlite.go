// Package sqlite implements the memory store on a single SQLite database
// file, suitable for deployments that outgrow per-user flat files.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/personaflow/tieredmem/memory"
)

// Store persists both memory tiers in one SQLite database.
type Store struct {
	db *sql.DB
}

// New opens or creates the database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS short_term (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL,
		embedding  TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_short_term_user ON short_term(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS long_term (
		user_id    TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendShortTerm inserts one item.
func (s *Store) AppendShortTerm(ctx context.Context, item memory.Item) error {
	var embedding *string
	if item.HasEmbedding() {
		b, err := json.Marshal(item.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
		str := string(b)
		embedding = &str
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO short_term (id, user_id, content, embedding, created_at) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.Content, embedding, item.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert short-term item: %w", err)
	}
	return nil
}

// ListShortTerm returns the user's items, newest first.
func (s *Store) ListShortTerm(ctx context.Context, userID string) ([]memory.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, embedding, created_at FROM short_term
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query short-term items: %w", err)
	}
	defer rows.Close()

	var items []memory.Item
	for rows.Next() {
		var (
			item      memory.Item
			embedding sql.NullString
			createdAt string
		)
		if err := rows.Scan(&item.ID, &item.Content, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("scan short-term item: %w", err)
		}
		item.UserID = userID
		item.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &item.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding for %s: %w", item.ID, err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteShortTerm removes one item; false when no row matched.
func (s *Store) DeleteShortTerm(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM short_term WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete short-term item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearShortTerm removes all of the user's items.
func (s *Store) ClearShortTerm(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM short_term WHERE user_id = ?`, userID)
	return err
}

// ReplaceLongTerm upserts the user's model blob.
func (s *Store) ReplaceLongTerm(ctx context.Context, userID, blob string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO long_term (user_id, model, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET model = excluded.model, updated_at = excluded.updated_at`,
		userID, blob, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("replace long-term model: %w", err)
	}
	return nil
}

// ReadLongTerm returns the blob, "" when no row exists.
func (s *Store) ReadLongTerm(ctx context.Context, userID string) (string, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT model FROM long_term WHERE user_id = ?`, userID).Scan(&blob)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read long-term model: %w", err)
	}
	return blob, nil
}

// DeleteLongTerm removes the user's model row.
func (s *Store) DeleteLongTerm(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM long_term WHERE user_id = ?`, userID)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
