package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// FileStore keeps settings in a JSON file
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "settings_file_store").Logger(),
	}
}

// Load reads the file and merges it over the defaults. A missing file is
// created with the defaults.
func (s *FileStore) Load(ctx context.Context) (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		defaults := Defaults()
		if err := s.write(defaults); err != nil {
			return nil, err
		}
		s.logger.Info().Str("path", s.path).Msg("created settings file with defaults")
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var stored Values
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return Merge(Defaults(), stored), nil
}

// Save writes values merged over what is already stored
func (s *FileStore) Save(ctx context.Context, values Values) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(Merge(current, values))
}

// Reset restores the defaults
func (s *FileStore) Reset(ctx context.Context) (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := Defaults()
	if err := s.write(defaults); err != nil {
		return nil, err
	}
	s.logger.Info().Str("path", s.path).Msg("settings reset to defaults")
	return defaults, nil
}

func (s *FileStore) write(values Values) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
