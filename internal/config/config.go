package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "TRANSBUDDY_"

// Config stores runtime configuration. User-facing settings such as the API
// key live in the settings store instead.
type Config struct {
	Log        LogConfig        `envPrefix:"LOG_"`
	Settings   SettingsConfig   `envPrefix:"SETTINGS_"`
	Recorder   RecorderConfig   `envPrefix:"RECORDER_"`
	Target     TargetConfig     `envPrefix:"TARGET_"`
	Session    SessionConfig    `envPrefix:"SESSION_"`
	Inject     InjectConfig     `envPrefix:"INJECT_"`
	Hotkey     HotkeyConfig     `envPrefix:"HOTKEY_"`
	Control    ControlConfig    `envPrefix:"CONTROL_"`
	OpenAI     OpenAIConfig     `envPrefix:"OPENAI_"`
	ElevenLabs ElevenLabsConfig `envPrefix:"ELEVENLABS_"`
	Deepgram   DeepgramConfig   `envPrefix:"DEEPGRAM_"`

	Notifications bool `env:"NOTIFICATIONS" envDefault:"true"`
}

type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
	File  string `env:"FILE,expand" envDefault:"${HOME}/Library/Logs/TransBuddy/transbuddy.log"`
}

type SettingsConfig struct {
	Path string `env:"PATH,expand" envDefault:"${HOME}/Library/Application Support/TransBuddy/settings.toml"`
}

type RecorderConfig struct {
	Command      string        `env:"COMMAND" envDefault:"sox"`
	ProcessName  string        `env:"PROCESS_NAME" envDefault:"sox"`
	SweepCommand string        `env:"SWEEP_COMMAND" envDefault:"killall"`
	SampleRate   int           `env:"SAMPLE_RATE" envDefault:"44100"`
	Channels     int           `env:"CHANNELS" envDefault:"1"`
	TempDir      string        `env:"TEMP_DIR"`
	StopGrace    time.Duration `env:"STOP_GRACE" envDefault:"1200ms"`
	StartupProbe time.Duration `env:"STARTUP_PROBE" envDefault:"250ms"`
}

type TargetConfig struct {
	FallbackApp  string        `env:"FALLBACK_APP" envDefault:"TextEdit"`
	ExcludedApps []string      `env:"EXCLUDED_APPS" envDefault:"Finder" envSeparator:","`
	SelfNames    []string      `env:"SELF_NAMES" envDefault:"TransBuddy" envSeparator:","`
	LaunchWait   time.Duration `env:"LAUNCH_WAIT" envDefault:"1s"`
	VerifyTarget bool          `env:"VERIFY" envDefault:"true"`
}

type SessionConfig struct {
	Debounce        time.Duration `env:"DEBOUNCE" envDefault:"800ms"`
	ProcessingGrace time.Duration `env:"PROCESSING_GRACE" envDefault:"500ms"`
	CancelCooldown  time.Duration `env:"CANCEL_COOLDOWN" envDefault:"1500ms"`
	MinRecording    time.Duration `env:"MIN_RECORDING" envDefault:"1s"`
	MinAudioBytes   int64         `env:"MIN_AUDIO_BYTES" envDefault:"1000"`
	RestartPause    time.Duration `env:"RESTART_PAUSE" envDefault:"1s"`
	SweepSettle     time.Duration `env:"SWEEP_SETTLE" envDefault:"300ms"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"60s"`
	IterationLimit  int           `env:"SUBSTITUTION_ITERATION_LIMIT" envDefault:"30"`
}

type InjectConfig struct {
	OsascriptCommand string        `env:"OSASCRIPT" envDefault:"osascript"`
	SettleDelay      time.Duration `env:"SETTLE_DELAY" envDefault:"300ms"`
	RestoreClipboard bool          `env:"RESTORE_CLIPBOARD" envDefault:"true"`
	RestoreDelay     time.Duration `env:"RESTORE_DELAY" envDefault:"600ms"`
}

type HotkeyConfig struct {
	Primary  string `env:"PRIMARY" envDefault:"F5"`
	Fallback string `env:"FALLBACK" envDefault:"Cmd+5"`
}

type ControlConfig struct {
	Addr         string        `env:"ADDR"`
	Token        string        `env:"TOKEN"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
}

type OpenAIConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model   string `env:"MODEL" envDefault:"whisper-1"`
}

type ElevenLabsConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://api.elevenlabs.io/v1"`
	Model   string `env:"MODEL" envDefault:"scribe_v1"`
}

type DeepgramConfig struct {
	BaseURL     string `env:"BASE_URL" envDefault:"https://api.deepgram.com/v1"`
	Model       string `env:"MODEL" envDefault:"nova-2"`
	Language    string `env:"LANGUAGE"`
	SmartFormat bool   `env:"SMART_FORMAT" envDefault:"true"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile      string
	LogLevel     string
	SettingsPath string
	ControlAddr  string
}

// Load reads configuration from a .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if overrides.LogLevel != "" {
		cfg.Log.Level = overrides.LogLevel
	}
	if overrides.SettingsPath != "" {
		cfg.Settings.Path = overrides.SettingsPath
	}
	if overrides.ControlAddr != "" {
		cfg.Control.Addr = overrides.ControlAddr
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Recorder.SampleRate <= 0 {
		c.Recorder.SampleRate = 44100
	}
	if c.Recorder.Channels <= 0 {
		c.Recorder.Channels = 1
	}
	if c.Recorder.TempDir == "" {
		c.Recorder.TempDir = os.TempDir()
	}
	if c.Session.IterationLimit <= 0 {
		c.Session.IterationLimit = 30
	}
	c.Target.ExcludedApps = compact(c.Target.ExcludedApps)
	c.Target.SelfNames = compact(c.Target.SelfNames)
	c.Target.FallbackApp = strings.TrimSpace(c.Target.FallbackApp)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
