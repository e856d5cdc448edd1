package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a TOML file. Tables are read into dotted
// keys ("llm.model") and written back as tables.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.docqa/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".docqa")
	}
	return NewConfigStoreAt(filepath.Join(configDir, "config.toml"))
}

// NewConfigStoreAt creates a config store backed by an explicit file path,
// as given by the --config flag.
func NewConfigStoreAt(filePath string) (*ConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{filePath: filePath, data: make(map[string]any)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	return config.AsString(v)
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	return config.AsInt(v)
}

// GetFloat retrieves a floating point configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	return config.AsFloat(v)
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	return config.AsBool(v)
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	return config.AsStringSlice(v)
}

// Set stores value and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save writes the current values to the file.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save replaces the file through a temporary sibling, so a crash never
// leaves a truncated config behind. The caller holds the lock.
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(config.Nest(s.data))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

// Load replaces the in-memory values with the file's. A missing file
// leaves the store empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = make(map[string]any)
		return nil
	}
	if err != nil {
		return err
	}

	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	s.data = config.Flatten(tables)
	return nil
}

// Path returns the TOML file the store reads and writes.
func (s *ConfigStore) Path() string {
	return s.filePath
}
