// Package file implements the memory store over per-user files, the
// canonical persisted layout: a JSON array of short-term records
// (short_term_<user>.json, newest appended last) and a free-text long-term
// blob (long_term_<user>.txt).
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/personaflow/tieredmem/memory"
)

// Store persists one user's memories in plain files under a root directory.
type Store struct {
	dir string

	// Guards the read-modify-write of the short-term files against
	// concurrent writers within this process.
	mu sync.Mutex
}

// New creates the root directory if needed and returns a file store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

type shortTermRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// AppendShortTerm appends one item to the user's collection.
func (s *Store) AppendShortTerm(ctx context.Context, item memory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readShortTerm(item.UserID)
	if err != nil {
		return err
	}
	records = append(records, shortTermRecord{
		ID:        item.ID,
		Content:   item.Content,
		Embedding: item.Embedding,
		Timestamp: item.Timestamp.Format(time.RFC3339Nano),
	})
	return s.writeShortTerm(item.UserID, records)
}

// ListShortTerm returns the user's items, newest first.
func (s *Store) ListShortTerm(ctx context.Context, userID string) ([]memory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readShortTerm(userID)
	if err != nil {
		return nil, err
	}
	items := make([]memory.Item, 0, len(records))
	for _, rec := range records {
		ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil {
			// Tolerate older second-precision records.
			ts, _ = time.Parse(time.RFC3339, rec.Timestamp)
		}
		items = append(items, memory.Item{
			ID:        rec.ID,
			Content:   rec.Content,
			Embedding: rec.Embedding,
			Timestamp: ts,
			UserID:    userID,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].ID > items[j].ID
		}
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items, nil
}

// DeleteShortTerm removes one item; false when it was not present.
func (s *Store) DeleteShortTerm(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readShortTerm(userID)
	if err != nil {
		return false, err
	}
	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return false, nil
	}
	if err := s.writeShortTerm(userID, kept); err != nil {
		return false, err
	}
	return true, nil
}

// ClearShortTerm removes the user's collection file.
func (s *Store) ClearShortTerm(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.shortTermPath(userID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove short-term file: %w", err)
	}
	return nil
}

// ReplaceLongTerm overwrites the user's blob in one write call.
func (s *Store) ReplaceLongTerm(ctx context.Context, userID, blob string) error {
	if err := os.WriteFile(s.longTermPath(userID), []byte(blob), 0o644); err != nil {
		return fmt.Errorf("write long-term file: %w", err)
	}
	return nil
}

// ReadLongTerm returns the blob, "" when the file is absent.
func (s *Store) ReadLongTerm(ctx context.Context, userID string) (string, error) {
	data, err := os.ReadFile(s.longTermPath(userID))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read long-term file: %w", err)
	}
	return string(data), nil
}

// DeleteLongTerm removes the blob file.
func (s *Store) DeleteLongTerm(ctx context.Context, userID string) error {
	err := os.Remove(s.longTermPath(userID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove long-term file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) readShortTerm(userID string) ([]shortTermRecord, error) {
	data, err := os.ReadFile(s.shortTermPath(userID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read short-term file: %w", err)
	}
	var records []shortTermRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode short-term file: %w", err)
	}
	return records, nil
}

func (s *Store) writeShortTerm(userID string, records []shortTermRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode short-term records: %w", err)
	}
	if err := os.WriteFile(s.shortTermPath(userID), data, 0o644); err != nil {
		return fmt.Errorf("write short-term file: %w", err)
	}
	return nil
}

func (s *Store) shortTermPath(userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("short_term_%s.json", sanitize(userID)))
}

func (s *Store) longTermPath(userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("long_term_%s.txt", sanitize(userID)))
}

// sanitize keeps user IDs safe for use in file names.
func sanitize(userID string) string {
	if userID == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, userID)
}
