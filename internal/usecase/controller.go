package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
)

// ErrCancelled is returned to a start that lost its session to Cancel.
var ErrCancelled = errors.New("session cancelled")

// Config controls recording and session timing.
type Config struct {
	TempDir        string
	SampleRate     int
	Channels       int
	Debounce       time.Duration
	Grace          time.Duration
	CancelCooldown time.Duration
	MinRecording   time.Duration
	MinAudioBytes  int64
	RestartPause   time.Duration
	SweepSettle    time.Duration
	VerifyTarget   bool
}

// VocabularyFunc compiles the substitutions stored in settings.
type VocabularyFunc func(substitutions []domain.Substitution) (ports.TextTransformer, error)

// Metrics observes session outcomes.
type Metrics interface {
	SessionFinished(outcome string)
	TriggerIgnored(reason string)
	RecordingObserved(d time.Duration)
	TranscriptionObserved(backend string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) SessionFinished(string)                      {}
func (nopMetrics) TriggerIgnored(string)                       {}
func (nopMetrics) RecordingObserved(time.Duration)             {}
func (nopMetrics) TranscriptionObserved(string, time.Duration) {}

// Dependencies are the collaborators of a DictationController.
type Dependencies struct {
	Recorder     ports.Recorder
	Resolver     *TargetResolver
	Tracker      ports.AppTracker
	Transcribers ports.TranscriberFactory
	Injector     ports.TextInjector
	Settings     ports.SettingsStore
	Vocabulary   VocabularyFunc
	Events       ports.EventSink
	Metrics      Metrics
	Clock        Clock
	Log          zerolog.Logger
}

// DictationController drives the push-to-talk lifecycle: capture the target
// application, record, transcribe and insert the text.
type DictationController struct {
	recorder     ports.Recorder
	resolver     *TargetResolver
	transcribers ports.TranscriberFactory
	settings     ports.SettingsStore
	vocabulary   VocabularyFunc
	events       ports.EventSink
	metrics      Metrics
	clock        Clock
	log          zerolog.Logger
	finalizer    transcriptFinalizer
	guard        *TriggerGuard
	cfg          Config

	mu           sync.Mutex
	current      *session
	lastCancelAt time.Time
	watchers     sync.WaitGroup
}

func NewDictationController(deps Dependencies, cfg Config) *DictationController {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Resolver == nil {
		deps.Resolver = NewTargetResolver(deps.Tracker, deps.Clock, ResolverConfig{}, deps.Log)
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &DictationController{
		recorder:     deps.Recorder,
		resolver:     deps.Resolver,
		transcribers: deps.Transcribers,
		settings:     deps.Settings,
		vocabulary:   deps.Vocabulary,
		events:       deps.Events,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		log:          deps.Log,
		finalizer:    newTranscriptFinalizer(deps.Tracker, deps.Injector, cfg.VerifyTarget),
		guard:        NewTriggerGuard(cfg.Debounce, cfg.Grace),
		cfg:          cfg,
	}
}

// Toggle starts a session when idle and stops it while recording. Triggers
// rejected by the guard return ErrTriggerIgnored.
func (c *DictationController) Toggle(ctx context.Context) error {
	return c.trigger(func() error {
		current, state := c.active()
		switch {
		case current == nil:
			return c.start(ctx, domain.SessionReasonRecordingStarted)
		case state == domain.SessionStateRecording:
			return c.stop(ctx, current)
		default:
			return ErrBusy
		}
	})
}

// Start begins a session. A session that is already recording is stopped and
// transcribed first, then a new one starts after the restart pause.
func (c *DictationController) Start(ctx context.Context) error {
	return c.trigger(func() error {
		current, state := c.active()
		if current == nil {
			return c.start(ctx, domain.SessionReasonRecordingStarted)
		}
		if state != domain.SessionStateRecording {
			return ErrBusy
		}

		if err := c.stop(ctx, current); err != nil {
			current.log.Debug().Err(err).Msg("previous session ended with error before restart")
		}
		if err := c.clock.Sleep(ctx, c.cfg.RestartPause); err != nil {
			return err
		}
		return c.start(ctx, domain.SessionReasonRecordingRestarted)
	})
}

// Stop ends the recording and runs transcription and insertion. It bypasses
// the trigger guard and is used when the overlay closes mid-recording.
func (c *DictationController) Stop(ctx context.Context) error {
	current, state := c.active()
	if current == nil || state != domain.SessionStateRecording {
		return ErrNoActiveSession
	}
	return c.stop(ctx, current)
}

// Cancel discards a session that is capturing its target or recording. The
// backend is never contacted.
func (c *DictationController) Cancel(ctx context.Context) error {
	c.mu.Lock()
	sess := c.current
	if sess == nil || (sess.state != domain.SessionStateCapturing && sess.state != domain.SessionStateRecording) {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	sess.state = domain.SessionStateCancelled
	c.current = nil
	recording := sess.recording
	sess.release()
	sess.cancel()
	c.mu.Unlock()

	if recording != nil {
		if err := recording.Kill(); err != nil {
			sess.log.Warn().Err(err).Msg("failed to kill recorder")
		}
	}
	c.removeAudio(sess)

	c.mu.Lock()
	c.lastCancelAt = c.clock.Now()
	c.mu.Unlock()

	sess.log.Info().Msg("recording cancelled")
	c.metrics.SessionFinished("cancelled")
	c.events.SessionStateChanged(domain.SessionStateCancelled, domain.SessionReasonRecordingCancelled)
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
	return nil
}

// Status returns the current session status.
func (c *DictationController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return c.current.status()
}

// Wait blocks until recorder watchers have returned.
func (c *DictationController) Wait() {
	c.watchers.Wait()
}

func (c *DictationController) trigger(fn func() error) error {
	if ok, reason := c.guard.Acquire(c.clock.Now()); !ok {
		c.metrics.TriggerIgnored(string(reason))
		c.log.Debug().Str("reason", string(reason)).Msg("trigger ignored")
		return ErrTriggerIgnored
	}
	defer func() { c.guard.Release(c.clock.Now()) }()
	return fn()
}

func (c *DictationController) active() (*session, domain.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, domain.SessionStateIdle
	}
	return c.current, c.current.state
}

func (c *DictationController) start(ctx context.Context, reason domain.SessionStateReason) error {
	settings, transcriber, transformer, err := c.prepare()
	if err != nil {
		return c.failUnstarted(err)
	}

	if wait := c.cooldownRemaining(); wait > 0 {
		c.log.Debug().Dur("wait", wait).Msg("delaying start after recent cancel")
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	sess := c.newSession(ctx, settings, transcriber, transformer)
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		sess.cancel()
		return ErrBusy
	}
	c.current = sess
	c.mu.Unlock()

	sess.log.Info().Str("backend", transcriber.Name()).Msg("session started")
	c.events.SessionStateChanged(domain.SessionStateCapturing, domain.SessionReasonCapturingTarget)

	if err := c.recorder.Sweep(sess.ctx, false); err != nil {
		sess.log.Debug().Err(err).Msg("pre-start recorder sweep failed")
	}
	if err := c.clock.Sleep(sess.ctx, c.cfg.SweepSettle); err != nil {
		return c.abandon(sess, err)
	}

	target, err := c.resolver.Resolve(sess.ctx)
	if err != nil {
		return c.abandon(sess, newSessionError(domain.ErrorCodeResolution, domain.SessionReasonNoTarget,
			fmt.Errorf("no target application found: %w", err)))
	}
	sess.log = sess.log.With().Str("target", target).Logger()

	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return ErrCancelled
	}
	sess.target = target
	c.mu.Unlock()

	recording, err := c.recorder.Start(sess.ctx, ports.RecorderConfig{
		Path:       sess.path,
		SampleRate: c.cfg.SampleRate,
		Channels:   c.cfg.Channels,
		Device:     strings.TrimSpace(settings.AudioDevice),
	})
	if err != nil {
		return c.abandon(sess, newSessionError(domain.ErrorCodeRecording, domain.SessionReasonRecorderFailed,
			fmt.Errorf("recording could not be started: %w", err)))
	}

	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		_ = recording.Kill()
		c.removeAudio(sess)
		return ErrCancelled
	}
	sess.recording = recording
	sess.startedAt = c.clock.Now()
	sess.state = domain.SessionStateRecording
	c.mu.Unlock()

	c.watchers.Add(1)
	go c.watchRecorder(sess, recording)

	sess.log.Info().Msg("recording started")
	c.events.SessionStateChanged(domain.SessionStateRecording, reason)
	return nil
}

// prepare reads settings once for the session and validates them before any
// side effect.
func (c *DictationController) prepare() (domain.Settings, ports.Transcriber, ports.TextTransformer, error) {
	settings, err := c.settings.Load()
	if err != nil {
		return domain.Settings{}, nil, nil, newSessionError(domain.ErrorCodeConfig, domain.SessionReasonConfigInvalid,
			fmt.Errorf("settings could not be loaded: %w", err))
	}

	if strings.TrimSpace(settings.APIKey) == "" {
		c.events.SettingsRequested()
		return domain.Settings{}, nil, nil, newSessionError(domain.ErrorCodeConfig, domain.SessionReasonConfigInvalid,
			fmt.Errorf("%w; add it in settings", ErrMissingAPIKey))
	}

	transcriber, err := c.transcribers.New(settings.APIType, settings.APIKey)
	if err != nil {
		c.events.SettingsRequested()
		return domain.Settings{}, nil, nil, newSessionError(domain.ErrorCodeConfig, domain.SessionReasonConfigInvalid, err)
	}

	var transformer ports.TextTransformer
	if c.vocabulary != nil && len(settings.Substitutions) > 0 {
		transformer, err = c.vocabulary(settings.Substitutions)
		if err != nil {
			return domain.Settings{}, nil, nil, newSessionError(domain.ErrorCodeConfig, domain.SessionReasonConfigInvalid,
				fmt.Errorf("invalid vocabulary substitution: %w", err))
		}
	}
	return settings, transcriber, transformer, nil
}

func (c *DictationController) newSession(ctx context.Context, settings domain.Settings, transcriber ports.Transcriber, transformer ports.TextTransformer) *session {
	id := uuid.NewString()
	sessCtx, cancel := context.WithCancel(ctx)
	name := fmt.Sprintf("transbuddy_recording_%d.wav", c.clock.Now().UnixMilli())
	return &session{
		id:          id,
		path:        filepath.Join(c.cfg.TempDir, name),
		settings:    settings,
		transcriber: transcriber,
		transformer: transformer,
		log:         c.log.With().Str("session", id).Logger(),
		ctx:         sessCtx,
		cancel:      cancel,
		state:       domain.SessionStateCapturing,
		released:    make(chan struct{}),
	}
}

func (c *DictationController) cooldownRemaining() time.Duration {
	c.mu.Lock()
	last := c.lastCancelAt
	c.mu.Unlock()
	if last.IsZero() {
		return 0
	}
	return c.cfg.CancelCooldown - c.clock.Now().Sub(last)
}

func (c *DictationController) stop(ctx context.Context, sess *session) error {
	// Once stopping begins the upload and paste run to completion even if
	// the caller goes away.
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	if c.current != sess || sess.state != domain.SessionStateRecording {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	sess.state = domain.SessionStateStopping
	sess.release()
	recording := sess.recording
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateStopping, domain.SessionReasonRecordingStopped)
	if err := recording.Stop(); err != nil {
		sess.log.Warn().Err(err).Msg("recorder did not stop cleanly")
	}

	elapsed := c.clock.Now().Sub(sess.startedAt)
	c.metrics.RecordingObserved(elapsed)
	sess.log.Info().Dur("elapsed", elapsed).Msg("recording stopped")
	if elapsed < c.cfg.MinRecording {
		return c.fail(sess, newSessionError(domain.ErrorCodeDuration, domain.SessionReasonTooShort,
			fmt.Errorf("recording too short; hold for at least %s", c.cfg.MinRecording)))
	}

	c.setState(sess, domain.SessionStateTranscribing)
	c.events.SessionStateChanged(domain.SessionStateTranscribing, domain.SessionReasonTranscribing)

	audio, err := os.ReadFile(sess.path)
	if err != nil || int64(len(audio)) < c.cfg.MinAudioBytes {
		return c.fail(sess, newSessionError(domain.ErrorCodeDuration, domain.SessionReasonTooShort,
			errors.New("recording too short or empty")))
	}

	began := c.clock.Now()
	text, err := sess.transcriber.Transcribe(ctx, audio, filepath.Base(sess.path))
	c.metrics.TranscriptionObserved(sess.transcriber.Name(), c.clock.Now().Sub(began))
	if err != nil {
		return c.fail(sess, newSessionError(domain.ErrorCodeTranscription, domain.SessionReasonTranscriptionFailed,
			fmt.Errorf("transcription failed: %w", err)))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return c.fail(sess, newSessionError(domain.ErrorCodeTranscription, domain.SessionReasonTranscriptionFailed,
			errors.New("no speech detected")))
	}
	sess.log.Info().Int("chars", len(text)).Msg("transcript received")
	c.events.TranscriptReady(text)

	c.setState(sess, domain.SessionStateInserting)
	c.events.SessionStateChanged(domain.SessionStateInserting, domain.SessionReasonInserting)

	if _, err := c.finalizer.Finalize(ctx, sess.target, sess.transformer, text); err != nil {
		return c.fail(sess, err)
	}

	c.events.TextInserted(sess.target)
	c.finish(sess, domain.SessionStateIdle)
	c.removeAudio(sess)
	sess.log.Info().Msg("text inserted")
	c.metrics.SessionFinished("inserted")
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonTextInserted)
	return nil
}

func (c *DictationController) watchRecorder(sess *session, recording ports.Recording) {
	defer c.watchers.Done()

	select {
	case <-recording.Done():
	case <-sess.released:
		return
	}

	c.mu.Lock()
	if c.current != sess || sess.state != domain.SessionStateRecording {
		c.mu.Unlock()
		return
	}
	c.current = nil
	sess.state = domain.SessionStateFailed
	sess.cancel()
	c.mu.Unlock()

	detail := errors.New("recorder exited unexpectedly")
	if err := recording.Err(); err != nil {
		detail = fmt.Errorf("recorder exited unexpectedly: %w", err)
	}
	c.failed(sess, newSessionError(domain.ErrorCodeRecording, domain.SessionReasonRecorderFailed, detail))
}

func (c *DictationController) setState(sess *session, state domain.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess.state = state
}

// finish detaches sess. It reports false when the session was already
// detached by Cancel or another failure path.
func (c *DictationController) finish(sess *session, state domain.SessionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != sess {
		return false
	}
	c.current = nil
	sess.state = state
	sess.release()
	sess.cancel()
	return true
}

// abandon fails a session that has not started recording. After a cancel the
// error is swallowed since Cancel already reported the outcome, but the file
// is removed again in case the recorder created it late.
func (c *DictationController) abandon(sess *session, err error) error {
	c.mu.Lock()
	owned := c.current == sess
	c.mu.Unlock()
	if !owned {
		c.removeAudio(sess)
		return ErrCancelled
	}
	return c.fail(sess, err)
}

func (c *DictationController) fail(sess *session, err error) error {
	if !c.finish(sess, domain.SessionStateFailed) {
		return ErrCancelled
	}
	return c.failed(sess, err)
}

func (c *DictationController) failed(sess *session, err error) error {
	c.removeAudio(sess)
	serr := classify(err)
	sess.log.Error().Err(serr.Err).Str("code", string(serr.Code)).Msg("session failed")
	c.report(serr)
	return serr
}

func (c *DictationController) failUnstarted(err error) error {
	serr := classify(err)
	c.log.Warn().Err(serr.Err).Str("code", string(serr.Code)).Msg("session not started")
	c.report(serr)
	return serr
}

func (c *DictationController) report(serr *SessionError) {
	c.metrics.SessionFinished(string(serr.Code))
	c.events.SessionError(serr.Code, serr.Error())
	c.events.SessionStateChanged(domain.SessionStateFailed, serr.Reason)
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

func (c *DictationController) removeAudio(sess *session) {
	if err := os.Remove(sess.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		sess.log.Warn().Err(err).Str("path", sess.path).Msg("failed to remove recording")
	}
}

func classify(err error) *SessionError {
	var serr *SessionError
	if errors.As(err, &serr) {
		return serr
	}
	return newSessionError(domain.ErrorCodeRecording, domain.SessionReasonRecorderFailed, err)
}
