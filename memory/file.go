package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/petasbytes/research-agent/internal/transcript"
)

// FileStore keeps one JSON file per session under Dir.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir, defaulting to ".agent/sessions".
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = filepath.Join(".agent", "sessions")
	}
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

// Load reads the session file.
func (s *FileStore) Load(ctx context.Context, sessionID string) ([]transcript.Message, error) {
	if err := checkID(sessionID); err != nil {
		return nil, err
	}
	msgs, err := LoadConversation(s.path(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return msgs, nil
}

// Save writes the transcript to a temp file in Dir and renames it into place,
// so readers never see a partial file.
func (s *FileStore) Save(ctx context.Context, sessionID string, msgs []transcript.Message) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := encode(msgs)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, "tmp-"+sessionID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(sessionID)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Delete removes the session file. Deleting a missing session is not an error.
func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	if err := os.Remove(s.path(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}
