package ports

import (
	"context"

	"transbuddy/internal/domain"
)

// RecorderConfig describes one recording to a file.
type RecorderConfig struct {
	Path       string
	SampleRate int
	Channels   int
	Device     string
}

// Recording is a running recorder process.
type Recording interface {
	Path() string
	// Stop terminates gracefully, escalating when the process lingers.
	Stop() error
	// Kill terminates immediately without waiting for the file to be finalized.
	Kill() error
	// Done is closed when the process exits for any reason.
	Done() <-chan struct{}
	// Err reports how the process exited once Done is closed.
	Err() error
}

// Recorder starts external audio recorder processes.
type Recorder interface {
	Start(ctx context.Context, cfg RecorderConfig) (Recording, error)
	// Sweep terminates stray recorder instances by process name.
	Sweep(ctx context.Context, force bool) error
}

// AppTracker queries and launches desktop applications.
type AppTracker interface {
	FrontmostApplication(ctx context.Context) (string, error)
	VisibleApplications(ctx context.Context) ([]string, error)
	IsRunning(ctx context.Context, name string) (bool, error)
	Launch(ctx context.Context, name string) error
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Name() string
}

// TranscriberFactory selects a backend implementation by id.
type TranscriberFactory interface {
	New(backend domain.Backend, apiKey string) (Transcriber, error)
}

// TextInjector makes text appear at the cursor of a named application.
type TextInjector interface {
	Insert(ctx context.Context, app string, text string) error
}

// TextTransformer rewrites a transcript before insertion.
type TextTransformer interface {
	Apply(text string) (string, error)
}

// SettingsStore reads and writes persisted user settings.
type SettingsStore interface {
	Load() (domain.Settings, error)
	Save(settings domain.Settings) error
}

// DeviceLister enumerates audio input devices.
type DeviceLister interface {
	InputDevices(ctx context.Context) ([]domain.AudioDevice, error)
}

// EventSink emits lifecycle events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	SessionError(code domain.ErrorCode, detail string)
	TranscriptReady(text string)
	TextInserted(app string)
	SettingsRequested()
}
