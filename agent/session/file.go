package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore keeps all sessions in a single JSON document on disk, read and
// written wholesale. A mutex serializes access so concurrent agent
// operations cannot interleave partial writes.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

type FileConfig struct {
	Path string `envconfig:"PATH" split_words:"true" default:"user_sessions.json"`
}

func NewFileStore(cfg FileConfig) (*FileStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("session file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}
	return &FileStore{path: path, now: time.Now}, nil
}

func (s *FileStore) Get(_ context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	data, ok := sessions[userID]
	if !ok {
		return map[string]any{}, nil
	}
	return data, nil
}

func (s *FileStore) Update(_ context.Context, userID string, partial map[string]any) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	sessions[userID] = merge(sessions[userID], partial, s.now())
	return s.save(sessions)
}

func (s *FileStore) Delete(_ context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := sessions[userID]; !ok {
		return nil
	}
	delete(sessions, userID)
	return s.save(sessions)
}

func (s *FileStore) ListAll(_ context.Context) (map[string]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) PurgeOlderThan(_ context.Context, days int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return 0, err
	}

	cutoff := time.Duration(days) * 24 * time.Hour
	removed := 0
	for userID, data := range sessions {
		age, ok := sessionAge(data, s.now())
		if !ok {
			continue
		}
		if age > cutoff {
			delete(sessions, userID)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(sessions)
}

func (s *FileStore) load() (map[string]map[string]any, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]map[string]any{}, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(raw) == 0 {
		return map[string]map[string]any{}, nil
	}

	var sessions map[string]map[string]any
	if err := json.Unmarshal(raw, &sessions); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("session file corrupt, starting empty")
		return map[string]map[string]any{}, nil
	}
	if sessions == nil {
		sessions = map[string]map[string]any{}
	}
	return sessions, nil
}

// save writes the whole document via a temp file so a crash mid-write cannot
// truncate existing sessions.
func (s *FileStore) save(sessions map[string]map[string]any) error {
	raw, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
