package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"transbuddy/internal/domain"
)

const watchDebounce = 200 * time.Millisecond

// Store persists user settings as a TOML file.
type Store struct {
	path string
	log  zerolog.Logger

	mu     sync.Mutex
	cached *domain.Settings
}

func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored settings. A missing file yields defaults.
func (s *Store) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return clone(*s.cached), nil
	}

	loaded, err := s.read()
	if err != nil {
		return domain.Settings{}, err
	}
	s.cached = &loaded
	return clone(loaded), nil
}

// Save writes settings atomically. Backend ids are validated by callers.
func (s *Store) Save(settings domain.Settings) error {
	settings = normalize(settings)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set settings permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	s.cached = &settings
	return nil
}

// Watch reloads settings when the file changes on disk and hands the new
// value to onChange. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(domain.Settings)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}

	debounced := debounce.New(watchDebounce)
	reload := func() {
		s.invalidate()
		loaded, err := s.Load()
		if err != nil {
			s.log.Warn().Err(err).Str("path", s.path).Msg("settings reload failed")
			return
		}
		s.log.Info().Str("path", s.path).Msg("settings reloaded")
		if onChange != nil {
			onChange(loaded)
		}
	}

	base := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				debounced(reload)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("settings watcher error")
		}
	}
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Store) read() (domain.Settings, error) {
	var loaded domain.Settings
	if _, err := toml.DecodeFile(s.path, &loaded); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return normalize(domain.Settings{}), nil
		}
		return domain.Settings{}, fmt.Errorf("failed to read settings %q: %w", s.path, err)
	}
	return normalize(loaded), nil
}

func normalize(settings domain.Settings) domain.Settings {
	settings.APIKey = strings.TrimSpace(settings.APIKey)
	settings.AudioDevice = strings.TrimSpace(settings.AudioDevice)
	settings.APIType = domain.Backend(strings.ToLower(strings.TrimSpace(string(settings.APIType))))
	if settings.APIType == "" {
		settings.APIType = domain.DefaultBackend
	}
	return settings
}

func clone(settings domain.Settings) domain.Settings {
	if settings.Substitutions != nil {
		settings.Substitutions = append([]domain.Substitution(nil), settings.Substitutions...)
	}
	return settings
}
