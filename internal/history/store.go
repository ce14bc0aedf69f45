package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/notelab/sidechat/internal/chat"
)

// SessionMeta is the lightweight listing view of a stored session.
type SessionMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags,omitempty"`
	Items     int       `json:"items"`
}

// Store handles persistence of session snapshots.
type Store struct {
	basePath string
	index    *Index
}

// NewStore creates a session store rooted at basePath. The index is
// optional; when present Save and Delete keep it in sync.
func NewStore(basePath string, index *Index) *Store {
	return &Store{
		basePath: filepath.Join(basePath, "sessions"),
		index:    index,
	}
}

// Path returns the file a session is stored at.
func (s *Store) Path(id string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// Save persists a session snapshot to disk.
func (s *Store) Save(sess *chat.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session has no id: %w", chat.ErrInvalidInput)
	}

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.Path(sess.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if s.index != nil {
		if err := s.index.Upsert(metaOf(sess)); err != nil {
			return fmt.Errorf("failed to index session: %w", err)
		}
	}

	return nil
}

// Load retrieves a specific session. The file is validated against the
// snapshot schema before decoding so a corrupt file fails loudly instead
// of producing a half-formed session.
func (s *Store) Load(id string) (*chat.Session, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := ValidateSnapshot(data); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	var sess chat.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// Delete removes a session from disk and the index.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.Path(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	if s.index != nil {
		if err := s.index.Remove(id); err != nil {
			return fmt.Errorf("failed to deindex session: %w", err)
		}
	}
	return nil
}

// List returns metadata for every stored session, newest first. It reads
// the files directly so it stays correct even without an index.
func (s *Store) List() ([]SessionMeta, error) {
	entries, err := os.ReadDir(s.basePath)
	if os.IsNotExist(err) {
		return []SessionMeta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list session directory: %w", err)
	}

	var sessions []SessionMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			continue // Skip unreadable files
		}

		var sess chat.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue // Skip invalid files
		}

		sessions = append(sessions, metaOf(&sess))
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

func metaOf(sess *chat.Session) SessionMeta {
	return SessionMeta{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Tags:      append([]string(nil), sess.Tags...),
		Items:     len(sess.Items),
	}
}
