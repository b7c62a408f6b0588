package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"transbuddy/internal/bootstrap"
	"transbuddy/internal/config"
	"transbuddy/internal/domain"
	"transbuddy/internal/macos"
	"transbuddy/internal/providers"
	"transbuddy/internal/usecase"
)

const (
	eventSession               = "session-state"
	eventRecordingStarted      = "recording-started"
	eventRecordingStopped      = "recording-stopped"
	eventRecordingError        = "recording-error"
	eventTranscriptionStarted  = "transcription-started"
	eventTranscriptionComplete = "transcription-completed"
	eventTranscriptionError    = "transcription-error"
	eventTextInserted          = "text-inserted"
	eventCancelled             = "cancel-recording-direct"
	eventOpenSettings          = "open-settings"
)

const overlayHideDelay = 2 * time.Second

// shell is the window surface the app drives.
type shell interface {
	Emit(event string, payload any)
	Show()
	Hide()
}

type wailsShell struct {
	ctx context.Context
}

func (s wailsShell) Emit(event string, payload any) {
	if payload == nil {
		runtime.EventsEmit(s.ctx, event)
		return
	}
	runtime.EventsEmit(s.ctx, event, payload)
}

func (s wailsShell) Show() { runtime.WindowShow(s.ctx) }
func (s wailsShell) Hide() { runtime.WindowHide(s.ctx) }

// dictation is the controller surface the window commands drive.
type dictation interface {
	Toggle(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Cancel(ctx context.Context) error
	Status() domain.Status
}

// App is the Wails application root.
type App struct {
	ctx       context.Context
	overrides config.Overrides

	mu        sync.Mutex
	shell     shell
	hideDelay time.Duration
	hideTimer *time.Timer

	dictation dictation
	services  *bootstrap.Services
	stopRun   context.CancelFunc
	bootErr   error
}

func NewApp(overrides config.Overrides) *App {
	return &App{overrides: overrides, hideDelay: overlayHideDelay}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.mu.Lock()
	a.shell = wailsShell{ctx: ctx}
	a.mu.Unlock()

	services, err := bootstrap.Build(a.overrides, a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services
	a.dictation = services.Controller

	runCtx, cancel := context.WithCancel(ctx)
	a.stopRun = cancel
	go services.Run(runCtx)

	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

// shutdown stops a recording in progress and releases the runtime graph.
func (a *App) shutdown(_ context.Context) {
	if a.stopRun != nil {
		a.stopRun()
	}
	if a.services != nil {
		if err := a.services.Close(); err != nil {
			a.services.Log.Warn().Err(err).Msg("shutdown incomplete")
		}
	}
}

// ToggleRecording starts a session when idle and stops it while recording.
func (a *App) ToggleRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.command(a.dictation.Toggle(a.ctx))
}

// StartRecording starts a session, restarting one that is already recording.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.command(a.dictation.Start(a.ctx))
}

// CancelRecording discards the in-progress recording without transcribing it.
func (a *App) CancelRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.dictation.Cancel(a.ctx); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		return err
	}
	return nil
}

// CloseOverlay stops a running recording or hides the overlay.
func (a *App) CloseOverlay() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if a.dictation.Status().State == domain.SessionStateRecording {
		_, err := a.command(a.dictation.Stop(a.ctx))
		return err
	}
	a.withShell(func(s shell) { s.Hide() })
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.dictation == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateFailed, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.dictation.Status()
}

// GetAudioDevices lists audio input devices.
func (a *App) GetAudioDevices() ([]domain.AudioDevice, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Devices.InputDevices(a.ctx)
}

// GetSettings returns the stored settings with the API key redacted.
func (a *App) GetSettings() (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	settings, err := a.services.Settings.Get()
	if err != nil {
		return domain.Settings{}, err
	}
	return settings.Redacted(), nil
}

// SaveSettings validates and persists the user-editable settings.
func (a *App) SaveSettings(update domain.SettingsUpdate) (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	settings, err := a.services.Settings.Save(update)
	if err != nil {
		return domain.Settings{}, err
	}
	return settings.Redacted(), nil
}

// GetAPIOptions lists the selectable transcription backends.
func (a *App) GetAPIOptions() []domain.BackendOption {
	return providers.BackendOptions()
}

// FinishOnboarding records that the user completed onboarding.
func (a *App) FinishOnboarding() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Settings.CompleteOnboarding()
}

func (a *App) OpenAccessibilitySettings() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Privacy.OpenPane(a.ctx, macos.PaneAccessibility)
}

func (a *App) OpenMicrophoneSettings() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Privacy.OpenPane(a.ctx, macos.PaneMicrophone)
}

// CheckAccessibilityPermission reports whether System Events automation works.
func (a *App) CheckAccessibilityPermission() bool {
	if a.requireReady() != nil {
		return false
	}
	return a.services.Privacy.AccessibilityGranted(a.ctx)
}

// command turns a controller result into a status for the UI. Ignored
// triggers are not errors; session failures were already emitted.
func (a *App) command(err error) (domain.Status, error) {
	status := a.dictation.Status()
	var serr *usecase.SessionError
	switch {
	case err == nil,
		errors.Is(err, usecase.ErrTriggerIgnored),
		errors.Is(err, usecase.ErrCancelled):
		return status, nil
	case errors.As(err, &serr):
		return status, nil
	default:
		return status, err
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.dictation == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) withShell(fn func(shell)) {
	a.mu.Lock()
	s := a.shell
	a.mu.Unlock()
	if s != nil {
		fn(s)
	}
}

func (a *App) emit(event string, payload any) {
	a.withShell(func(s shell) { s.Emit(event, payload) })
}

func (a *App) showOverlay() {
	a.mu.Lock()
	if a.hideTimer != nil {
		a.hideTimer.Stop()
		a.hideTimer = nil
	}
	s := a.shell
	a.mu.Unlock()
	if s != nil {
		s.Show()
	}
}

func (a *App) hideOverlay(delay time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.shell == nil {
		return
	}
	if a.hideTimer != nil {
		a.hideTimer.Stop()
		a.hideTimer = nil
	}
	if delay <= 0 {
		a.shell.Hide()
		return
	}
	s := a.shell
	a.hideTimer = time.AfterFunc(delay, s.Hide)
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.emit(eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})

	if event := stateEvent(state); event != "" {
		a.emit(event, nil)
	}

	switch state {
	case domain.SessionStateCapturing:
		a.showOverlay()
	case domain.SessionStateCancelled:
		a.hideOverlay(0)
	}
}

// SessionError emits a recording or transcription error to the overlay.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	event := eventTranscriptionError
	if code.RecordingPhase() {
		event = eventRecordingError
	}
	a.emit(event, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
	a.hideOverlay(a.hideDelay)
}

// TranscriptReady emits the raw transcript.
func (a *App) TranscriptReady(text string) {
	a.emit(eventTranscriptionComplete, map[string]string{"text": text})
}

// TextInserted emits the insertion and hides the overlay shortly after.
func (a *App) TextInserted(app string) {
	a.emit(eventTextInserted, map[string]string{"app": app})
	a.hideOverlay(a.hideDelay)
}

// SettingsRequested asks the frontend to show the settings view.
func (a *App) SettingsRequested() {
	a.emit(eventOpenSettings, nil)
	a.showOverlay()
}

func stateEvent(state domain.SessionState) string {
	switch state {
	case domain.SessionStateRecording:
		return eventRecordingStarted
	case domain.SessionStateStopping:
		return eventRecordingStopped
	case domain.SessionStateTranscribing:
		return eventTranscriptionStarted
	case domain.SessionStateCancelled:
		return eventCancelled
	default:
		return ""
	}
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonCapturingTarget:
		return "Preparing recording..."
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingRestarted:
		return "Recording restarted"
	case domain.SessionReasonRecordingStopped:
		return "Recording stopped"
	case domain.SessionReasonTranscribing:
		return "Transcribing..."
	case domain.SessionReasonInserting:
		return "Inserting text..."
	case domain.SessionReasonTextInserted:
		return "Text inserted"
	case domain.SessionReasonRecordingCancelled:
		return "Recording cancelled"
	case domain.SessionReasonConfigInvalid:
		return "Settings incomplete"
	case domain.SessionReasonNoTarget:
		return "No target application"
	case domain.SessionReasonRecorderFailed:
		return "Recorder failed"
	case domain.SessionReasonTooShort:
		return "Recording too short"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	case domain.SessionReasonInsertionFailed:
		return "Text insertion failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeConfig:
		return "Settings incomplete. Please check the API key and backend."
	case domain.ErrorCodeResolution:
		return "No application found to receive the text"
	case domain.ErrorCodeRecording:
		return "Recording failed"
	case domain.ErrorCodeDuration:
		return "Recording too short. Hold the hotkey a little longer."
	case domain.ErrorCodeTranscription:
		return "Transcription failed"
	case domain.ErrorCodeInsertion:
		return "Text could not be inserted"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
