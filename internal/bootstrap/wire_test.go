package bootstrap

import (
	"path/filepath"
	"testing"

	"transbuddy/internal/config"
	"transbuddy/internal/domain"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TRANSBUDDY_LOG_FILE", filepath.Join(home, "logs", "transbuddy.log"))
	t.Setenv("TRANSBUDDY_SETTINGS_PATH", filepath.Join(home, "settings.toml"))
	t.Setenv("TRANSBUDDY_NOTIFICATIONS", "false")
	return home
}

func TestBuildSuccess(t *testing.T) {
	setupEnv(t)

	services, err := Build(config.Overrides{EnvFile: "missing.env"}, noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(func() { _ = services.Close() })

	if services.Controller == nil || services.Settings == nil || services.Hotkey == nil {
		t.Fatalf("expected controller, settings and hotkey services")
	}
	if services.Control != nil {
		t.Fatalf("control api should be disabled without an address")
	}
	if status := services.Controller.Status(); status.State != domain.SessionStateIdle {
		t.Fatalf("unexpected initial state: %+v", status)
	}
}

func TestBuildEnablesControlAPI(t *testing.T) {
	home := setupEnv(t)

	services, err := Build(config.Overrides{
		EnvFile:      "missing.env",
		ControlAddr:  "127.0.0.1:0",
		SettingsPath: filepath.Join(home, "override.toml"),
	}, noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(func() { _ = services.Close() })

	if services.Control == nil {
		t.Fatalf("expected control api")
	}
	if got := services.Store.Path(); got != filepath.Join(home, "override.toml") {
		t.Fatalf("unexpected settings path: %s", got)
	}
}

func TestBuildFailsOnInvalidHotkey(t *testing.T) {
	setupEnv(t)
	t.Setenv("TRANSBUDDY_HOTKEY_PRIMARY", "Hyper+Q")

	if _, err := Build(config.Overrides{EnvFile: "missing.env"}, noopEventSink{}); err == nil {
		t.Fatalf("expected build error due to invalid hotkey")
	}
}

func TestNewRegistryBuildsConfiguredBackends(t *testing.T) {
	setupEnv(t)

	cfg, err := config.Load(config.Overrides{EnvFile: "missing.env"})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	registry := NewRegistry(cfg)
	for _, backend := range []domain.Backend{domain.BackendOpenAI, domain.BackendElevenLabs, domain.BackendDeepgram} {
		transcriber, err := registry.New(backend, "key")
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		if transcriber.Name() == "" {
			t.Fatalf("%s: expected a provider name", backend)
		}
	}
	if _, err := registry.New("whisper.cpp", "key"); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(_ domain.SessionState, _ domain.SessionStateReason) {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                              {}
func (noopEventSink) TranscriptReady(_ string)                                               {}
func (noopEventSink) TextInserted(_ string)                                                  {}
func (noopEventSink) SettingsRequested()                                                     {}
