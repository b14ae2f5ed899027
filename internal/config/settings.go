package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is returned when facility settings fail validation
var ErrInvalidSettings = errors.New("invalid settings")

// SettingsStore holds the facility settings and writes edits back to the
// YAML file they came from
type SettingsStore struct {
	mu      sync.RWMutex
	path    string
	current types.Settings
	logger  zerolog.Logger
}

// LoadSettings reads the settings file at path. A missing file yields the
// defaults; an empty path keeps settings in memory only.
func LoadSettings(path string, logger zerolog.Logger) (*SettingsStore, error) {
	s := &SettingsStore{
		path:    path,
		current: types.DefaultSettings(),
		logger:  logger,
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info().Str("path", path).Msg("settings file not found, using defaults")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	loaded := types.DefaultSettings()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	loaded = normalize(loaded)
	if err := ValidateSettings(loaded); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	s.current = loaded

	logger.Info().
		Str("path", path).
		Strs("services", loaded.Services).
		Int("counters", loaded.Counters).
		Int("call_timeout_seconds", loaded.CallTimeoutSeconds).
		Msg("settings loaded")
	return s, nil
}

// Settings returns a copy of the current settings
func (s *SettingsStore) Settings() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update validates next, persists it and makes it current. Tickets
// already issued keep their service type.
func (s *SettingsStore) Update(next types.Settings) (types.Settings, error) {
	next = normalize(next.Clone())
	if err := ValidateSettings(next); err != nil {
		return types.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		data, err := yaml.Marshal(next)
		if err != nil {
			return types.Settings{}, fmt.Errorf("encode settings: %w", err)
		}
		if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
			return types.Settings{}, fmt.Errorf("write settings %s: %w", s.path, err)
		}
	}
	s.current = next

	s.logger.Info().
		Strs("services", next.Services).
		Int("counters", next.Counters).
		Int("call_timeout_seconds", next.CallTimeoutSeconds).
		Msg("settings updated")
	return next.Clone(), nil
}

// ValidateSettings checks the constraints the ticket core relies on
func ValidateSettings(s types.Settings) error {
	if len(s.Services) == 0 {
		return fmt.Errorf("%w: at least one service is required", ErrInvalidSettings)
	}
	seen := make(map[string]bool, len(s.Services))
	for _, svc := range s.Services {
		if strings.TrimSpace(svc) == "" {
			return fmt.Errorf("%w: blank service name", ErrInvalidSettings)
		}
		if seen[svc] {
			return fmt.Errorf("%w: duplicate service %q", ErrInvalidSettings, svc)
		}
		seen[svc] = true
	}
	if s.Counters < 1 {
		return fmt.Errorf("%w: counters must be at least 1, got %d", ErrInvalidSettings, s.Counters)
	}
	if s.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: call timeout must be positive, got %d", ErrInvalidSettings, s.CallTimeoutSeconds)
	}
	if s.VoiceRate <= 0 || s.VoiceRate > 10 {
		return fmt.Errorf("%w: voice rate must be in (0, 10], got %g", ErrInvalidSettings, s.VoiceRate)
	}
	if s.VoiceVolume < 0 || s.VoiceVolume > 1 {
		return fmt.Errorf("%w: voice volume must be in [0, 1], got %g", ErrInvalidSettings, s.VoiceVolume)
	}
	return nil
}

func normalize(s types.Settings) types.Settings {
	for i, svc := range s.Services {
		s.Services[i] = strings.TrimSpace(svc)
	}
	return s
}
