package usecase

import (
	"fmt"
	"strings"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
)

// SettingsService validates and persists user settings.
type SettingsService struct {
	store     ports.SettingsStore
	supported func(domain.Backend) bool
}

func NewSettingsService(store ports.SettingsStore, supported func(domain.Backend) bool) *SettingsService {
	return &SettingsService{store: store, supported: supported}
}

// Get returns the stored settings, API key included.
func (s *SettingsService) Get() (domain.Settings, error) {
	return s.store.Load()
}

// Save applies update on top of the stored settings. An unsupported backend
// is a configuration error and nothing is written.
func (s *SettingsService) Save(update domain.SettingsUpdate) (domain.Settings, error) {
	backend := domain.Backend(strings.ToLower(strings.TrimSpace(string(update.APIType))))
	if backend == "" {
		backend = domain.DefaultBackend
	}
	if s.supported != nil && !s.supported(backend) {
		return domain.Settings{}, newSessionError(domain.ErrorCodeConfig, domain.SessionReasonConfigInvalid,
			fmt.Errorf("unsupported transcription backend %q", update.APIType))
	}

	current, err := s.store.Load()
	if err != nil {
		return domain.Settings{}, err
	}
	if update.APIKey != domain.RedactedAPIKey {
		current.APIKey = strings.TrimSpace(update.APIKey)
	}
	current.APIType = backend
	current.AudioDevice = strings.TrimSpace(update.AudioDevice)

	if err := s.store.Save(current); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return current, nil
}

// CompleteOnboarding records that the first-run flow was finished.
func (s *SettingsService) CompleteOnboarding() error {
	current, err := s.store.Load()
	if err != nil {
		return err
	}
	if current.OnboardingCompleted {
		return nil
	}
	current.OnboardingCompleted = true
	return s.store.Save(current)
}
