package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

type fakeRecorder struct {
	mu         sync.Mutex
	size       int
	startErr   error
	configs    []ports.RecorderConfig
	recordings []*fakeRecording
	sweeps     int

	// When set, Start signals started and then blocks until ctx is done.
	// The file is written only after that, the way a slow recorder opens
	// its output late.
	started chan struct{}
}

func (f *fakeRecorder) Start(ctx context.Context, cfg ports.RecorderConfig) (ports.Recording, error) {
	f.mu.Lock()
	f.configs = append(f.configs, cfg)
	started := f.started
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-ctx.Done()
		_ = os.WriteFile(cfg.Path, make([]byte, 16), 0o600)
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	size := f.size
	if size == 0 {
		size = 4096
	}
	if err := os.WriteFile(cfg.Path, make([]byte, size), 0o600); err != nil {
		return nil, err
	}
	rec := &fakeRecording{path: cfg.Path, done: make(chan struct{})}
	f.recordings = append(f.recordings, rec)
	return rec, nil
}

func (f *fakeRecorder) Sweep(context.Context, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return nil
}

func (f *fakeRecorder) last() *fakeRecording {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.recordings) == 0 {
		return nil
	}
	return f.recordings[len(f.recordings)-1]
}

type fakeRecording struct {
	path string
	done chan struct{}

	mu        sync.Mutex
	once      sync.Once
	stopCalls int
	killCalls int
	exitErr   error
}

func (f *fakeRecording) Path() string { return f.path }

func (f *fakeRecording) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeRecording) Kill() error {
	f.mu.Lock()
	f.killCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
	return nil
}

// exit simulates the recorder process dying on its own.
func (f *fakeRecording) exit(err error) {
	f.mu.Lock()
	f.exitErr = err
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}

func (f *fakeRecording) Done() <-chan struct{} { return f.done }

func (f *fakeRecording) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exitErr
}

func (f *fakeRecording) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls, f.killCalls
}

type fakeTracker struct {
	mu         sync.Mutex
	front      string
	frontErr   error
	visible    []string
	notRunning map[string]bool
	launchErr  error
	launched   []string
	checked    []string
}

func (f *fakeTracker) FrontmostApplication(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.front, f.frontErr
}

func (f *fakeTracker) VisibleApplications(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visible...), nil
}

func (f *fakeTracker) IsRunning(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, name)
	return !f.notRunning[name], nil
}

func (f *fakeTracker) Launch(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return f.launchErr
	}
	f.launched = append(f.launched, name)
	return nil
}

func (f *fakeTracker) setFront(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.front = name
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	audio []byte
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.audio = audio
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFactory struct {
	transcriber *fakeTranscriber
	err         error
	requested   []domain.Backend
}

func (f *fakeFactory) New(backend domain.Backend, _ string) (ports.Transcriber, error) {
	f.requested = append(f.requested, backend)
	if f.err != nil {
		return nil, f.err
	}
	return f.transcriber, nil
}

type insertCall struct {
	app  string
	text string
}

type fakeInjector struct {
	mu    sync.Mutex
	calls []insertCall
	err   error
}

func (f *fakeInjector) Insert(ctx context.Context, app string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, insertCall{app: app, text: text})
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.err
}

func (f *fakeInjector) snapshot() []insertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]insertCall(nil), f.calls...)
}

type fakeSettings struct {
	settings domain.Settings
	err      error
}

func (f *fakeSettings) Load() (domain.Settings, error) { return f.settings, f.err }

func (f *fakeSettings) Save(settings domain.Settings) error {
	f.settings = settings
	return nil
}

type bracketTransformer struct{}

func (bracketTransformer) Apply(text string) (string, error) {
	return fmt.Sprintf("<%s>", text), nil
}

// fakeEventSink records every event as a compact string.
type fakeEventSink struct {
	mu     sync.Mutex
	events []string
	errors []string
}

func (f *fakeEventSink) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.record("state:" + string(state) + ":" + string(reason))
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	f.errors = append(f.errors, detail)
	f.mu.Unlock()
	f.record("error:" + string(code))
}

func (f *fakeEventSink) TranscriptReady(text string) { f.record("transcript:" + text) }
func (f *fakeEventSink) TextInserted(app string)     { f.record("inserted:" + app) }
func (f *fakeEventSink) SettingsRequested()          { f.record("settings") }

func (f *fakeEventSink) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeEventSink) lastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errors) == 0 {
		return ""
	}
	return f.errors[len(f.errors)-1]
}

// terminalEvents counts inserted, error and cancellation events.
func (f *fakeEventSink) terminalEvents() int {
	count := 0
	for _, event := range f.snapshot() {
		switch {
		case strings.HasPrefix(event, "inserted:"),
			strings.HasPrefix(event, "error:"),
			event == "state:cancelled:recording_cancelled":
			count++
		}
	}
	return count
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes []string
	ignored  []string
}

func (f *fakeMetrics) SessionFinished(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeMetrics) TriggerIgnored(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignored = append(f.ignored, reason)
}

func (f *fakeMetrics) RecordingObserved(time.Duration)             {}
func (f *fakeMetrics) TranscriptionObserved(string, time.Duration) {}

type harness struct {
	clock       *fakeClock
	recorder    *fakeRecorder
	tracker     *fakeTracker
	transcriber *fakeTranscriber
	factory     *fakeFactory
	injector    *fakeInjector
	settings    *fakeSettings
	events      *fakeEventSink
	metrics     *fakeMetrics
	controller  *DictationController
	tempDir     string
}

func newHarness(tempDir string, configure func(h *harness, cfg *Config)) *harness {
	h := &harness{
		clock:       newFakeClock(),
		recorder:    &fakeRecorder{},
		tracker:     &fakeTracker{front: "Notes", notRunning: map[string]bool{}},
		transcriber: &fakeTranscriber{text: "hello world"},
		injector:    &fakeInjector{},
		settings: &fakeSettings{settings: domain.Settings{
			APIKey:  "sk-test",
			APIType: domain.BackendOpenAI,
		}},
		events:  &fakeEventSink{},
		metrics: &fakeMetrics{},
		tempDir: tempDir,
	}
	h.factory = &fakeFactory{transcriber: h.transcriber}

	cfg := Config{
		TempDir:        tempDir,
		SampleRate:     44100,
		Channels:       1,
		Debounce:       800 * time.Millisecond,
		Grace:          500 * time.Millisecond,
		CancelCooldown: 1500 * time.Millisecond,
		MinRecording:   time.Second,
		MinAudioBytes:  1000,
		RestartPause:   time.Second,
		VerifyTarget:   true,
	}
	if configure != nil {
		configure(h, &cfg)
	}

	resolver := NewTargetResolver(h.tracker, h.clock, ResolverConfig{
		SelfNames:    []string{"TransBuddy"},
		ExcludedApps: []string{"Finder"},
		FallbackApp:  "TextEdit",
	}, zerolog.Nop())

	h.controller = NewDictationController(Dependencies{
		Recorder:     h.recorder,
		Resolver:     resolver,
		Tracker:      h.tracker,
		Transcribers: h.factory,
		Injector:     h.injector,
		Settings:     h.settings,
		Events:       h.events,
		Metrics:      h.metrics,
		Clock:        h.clock,
		Log:          zerolog.Nop(),
	}, cfg)
	return h
}

func (h *harness) tempFiles() []string {
	entries, err := os.ReadDir(h.tempDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
