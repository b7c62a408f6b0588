package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(Overrides{EnvFile: filepath.Join(home, "missing.env")})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}
	if want := filepath.Join(home, "Library", "Logs", "TransBuddy", "transbuddy.log"); cfg.Log.File != want {
		t.Fatalf("unexpected log file: %q", cfg.Log.File)
	}
	if want := filepath.Join(home, "Library", "Application Support", "TransBuddy", "settings.toml"); cfg.Settings.Path != want {
		t.Fatalf("unexpected settings path: %q", cfg.Settings.Path)
	}
	if cfg.Recorder.Command != "sox" || cfg.Recorder.ProcessName != "sox" || cfg.Recorder.SweepCommand != "killall" {
		t.Fatalf("unexpected recorder config: %+v", cfg.Recorder)
	}
	if cfg.Recorder.SampleRate != 44100 || cfg.Recorder.Channels != 1 {
		t.Fatalf("unexpected audio format: %+v", cfg.Recorder)
	}
	if cfg.Recorder.TempDir == "" {
		t.Fatalf("expected temp dir default")
	}
	if cfg.Session.Debounce != 800*time.Millisecond ||
		cfg.Session.ProcessingGrace != 500*time.Millisecond ||
		cfg.Session.CancelCooldown != 1500*time.Millisecond ||
		cfg.Session.MinRecording != time.Second ||
		cfg.Session.MinAudioBytes != 1000 ||
		cfg.Session.HTTPTimeout != 60*time.Second {
		t.Fatalf("unexpected session timings: %+v", cfg.Session)
	}
	if cfg.Target.FallbackApp != "TextEdit" {
		t.Fatalf("unexpected fallback app: %q", cfg.Target.FallbackApp)
	}
	if !reflect.DeepEqual(cfg.Target.ExcludedApps, []string{"Finder"}) {
		t.Fatalf("unexpected excluded apps: %v", cfg.Target.ExcludedApps)
	}
	if !reflect.DeepEqual(cfg.Target.SelfNames, []string{"TransBuddy"}) {
		t.Fatalf("unexpected self names: %v", cfg.Target.SelfNames)
	}
	if cfg.Hotkey.Primary != "F5" || cfg.Hotkey.Fallback != "Cmd+5" {
		t.Fatalf("unexpected hotkeys: %+v", cfg.Hotkey)
	}
	if cfg.Control.Addr != "" {
		t.Fatalf("expected control api disabled by default, got %q", cfg.Control.Addr)
	}
	if cfg.OpenAI.Model != "whisper-1" || cfg.ElevenLabs.Model != "scribe_v1" || cfg.Deepgram.Model != "nova-2" {
		t.Fatalf("unexpected provider models: %+v %+v %+v", cfg.OpenAI, cfg.ElevenLabs, cfg.Deepgram)
	}
	if !cfg.Notifications {
		t.Fatalf("expected notifications enabled by default")
	}
}

func TestLoadRespectsEnvAndOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TRANSBUDDY_LOG_LEVEL", "debug")
	t.Setenv("TRANSBUDDY_RECORDER_COMMAND", "/opt/homebrew/bin/sox")
	t.Setenv("TRANSBUDDY_RECORDER_SAMPLE_RATE", "0")
	t.Setenv("TRANSBUDDY_TARGET_EXCLUDED_APPS", "Finder, Dock ,,")
	t.Setenv("TRANSBUDDY_TARGET_FALLBACK_APP", " Notes ")
	t.Setenv("TRANSBUDDY_SESSION_CANCEL_COOLDOWN", "2s")
	t.Setenv("TRANSBUDDY_SESSION_SUBSTITUTION_ITERATION_LIMIT", "-1")
	t.Setenv("TRANSBUDDY_CONTROL_ADDR", "127.0.0.1:1")
	t.Setenv("TRANSBUDDY_NOTIFICATIONS", "false")

	cfg, err := Load(Overrides{
		EnvFile:      filepath.Join(home, "missing.env"),
		LogLevel:     "warn",
		SettingsPath: filepath.Join(home, "custom.toml"),
		ControlAddr:  "127.0.0.1:7777",
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Fatalf("expected cli override to win, got %q", cfg.Log.Level)
	}
	if cfg.Settings.Path != filepath.Join(home, "custom.toml") {
		t.Fatalf("unexpected settings path: %q", cfg.Settings.Path)
	}
	if cfg.Control.Addr != "127.0.0.1:7777" {
		t.Fatalf("unexpected control addr: %q", cfg.Control.Addr)
	}
	if cfg.Recorder.Command != "/opt/homebrew/bin/sox" {
		t.Fatalf("unexpected recorder command: %q", cfg.Recorder.Command)
	}
	if cfg.Recorder.SampleRate != 44100 {
		t.Fatalf("expected invalid sample rate to fall back, got %d", cfg.Recorder.SampleRate)
	}
	if !reflect.DeepEqual(cfg.Target.ExcludedApps, []string{"Finder", "Dock"}) {
		t.Fatalf("unexpected excluded apps: %v", cfg.Target.ExcludedApps)
	}
	if cfg.Target.FallbackApp != "Notes" {
		t.Fatalf("unexpected fallback app: %q", cfg.Target.FallbackApp)
	}
	if cfg.Session.CancelCooldown != 2*time.Second {
		t.Fatalf("unexpected cooldown: %v", cfg.Session.CancelCooldown)
	}
	if cfg.Session.IterationLimit != 30 {
		t.Fatalf("expected iteration limit fallback, got %d", cfg.Session.IterationLimit)
	}
	if cfg.Notifications {
		t.Fatalf("expected notifications disabled")
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	const key = "TRANSBUDDY_HOTKEY_PRIMARY"
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv failed: %v", err)
	}

	envFile := filepath.Join(home, "test.env")
	if err := os.WriteFile(envFile, []byte(key+"=F6\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(Overrides{EnvFile: envFile})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Hotkey.Primary != "F6" {
		t.Fatalf("expected hotkey from env file, got %q", cfg.Hotkey.Primary)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TRANSBUDDY_SESSION_DEBOUNCE", "soon")

	if _, err := Load(Overrides{EnvFile: filepath.Join(home, "missing.env")}); err == nil {
		t.Fatalf("expected parse error")
	}
}
