package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"transbuddy/internal/api"
	"transbuddy/internal/audio"
	"transbuddy/internal/config"
	"transbuddy/internal/domain"
	"transbuddy/internal/hotkey"
	"transbuddy/internal/logging"
	"transbuddy/internal/macos"
	"transbuddy/internal/metrics"
	"transbuddy/internal/notify"
	"transbuddy/internal/ports"
	"transbuddy/internal/providers"
	"transbuddy/internal/settings"
	"transbuddy/internal/usecase"
	"transbuddy/internal/vocab"
)

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Log        zerolog.Logger
	Controller *usecase.DictationController
	Settings   *usecase.SettingsService
	Store      *settings.Store
	Devices    *audio.SystemProfilerDevices
	Privacy    *macos.Privacy
	Hotkey     *hotkey.Listener
	Control    *api.Server

	logCloser io.Closer
}

// Build wires all backend dependencies for the current runtime.
func Build(overrides config.Overrides, eventSink ports.EventSink) (*Services, error) {
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, err
	}
	for _, spec := range []string{cfg.Hotkey.Primary, cfg.Hotkey.Fallback} {
		if spec == "" {
			continue
		}
		if _, err := hotkey.Parse(spec); err != nil {
			return nil, fmt.Errorf("invalid hotkey configuration: %w", err)
		}
	}

	log, closer := logging.New(logging.Config{Level: cfg.Log.Level, File: cfg.Log.File})

	if cfg.Notifications {
		eventSink = notify.NewSink(eventSink, nil, logging.Component(log, "notify"))
	}

	store := settings.NewStore(cfg.Settings.Path, logging.Component(log, "settings"))
	script := macos.NewOsascript(cfg.Inject.OsascriptCommand)
	tracker := macos.NewTracker(script, nil)
	clock := usecase.SystemClock()

	resolver := usecase.NewTargetResolver(tracker, clock, usecase.ResolverConfig{
		SelfNames:    cfg.Target.SelfNames,
		ExcludedApps: cfg.Target.ExcludedApps,
		FallbackApp:  cfg.Target.FallbackApp,
		LaunchWait:   cfg.Target.LaunchWait,
	}, logging.Component(log, "resolver"))

	injector := macos.NewPasteInjector(script, macos.SystemClipboard{}, macos.InjectorOptions{
		TempDir:          cfg.Recorder.TempDir,
		SettleDelay:      cfg.Inject.SettleDelay,
		RestoreClipboard: cfg.Inject.RestoreClipboard,
		RestoreDelay:     cfg.Inject.RestoreDelay,
	}, logging.Component(log, "injector"))

	limit := cfg.Session.IterationLimit
	controller := usecase.NewDictationController(usecase.Dependencies{
		Recorder:     NewRecorder(cfg),
		Resolver:     resolver,
		Tracker:      tracker,
		Transcribers: NewRegistry(cfg),
		Injector:     injector,
		Settings:     store,
		Vocabulary: func(subs []domain.Substitution) (ports.TextTransformer, error) {
			return vocab.Compile(subs, limit)
		},
		Events:  eventSink,
		Metrics: metrics.Recorder{},
		Clock:   clock,
		Log:     logging.Component(log, "controller"),
	}, usecase.Config{
		TempDir:        cfg.Recorder.TempDir,
		SampleRate:     cfg.Recorder.SampleRate,
		Channels:       cfg.Recorder.Channels,
		Debounce:       cfg.Session.Debounce,
		Grace:          cfg.Session.ProcessingGrace,
		CancelCooldown: cfg.Session.CancelCooldown,
		MinRecording:   cfg.Session.MinRecording,
		MinAudioBytes:  cfg.Session.MinAudioBytes,
		RestartPause:   cfg.Session.RestartPause,
		SweepSettle:    cfg.Session.SweepSettle,
		VerifyTarget:   cfg.Target.VerifyTarget,
	})

	registerCollector(metrics.NewCollector(controller), log)

	services := &Services{
		Config:     cfg,
		Log:        log,
		Controller: controller,
		Settings:   usecase.NewSettingsService(store, providers.Supported),
		Store:      store,
		Devices:    audio.NewSystemProfilerDevices(nil),
		Privacy:    macos.NewPrivacy(script, nil),
		Hotkey:     hotkey.NewListener(cfg.Hotkey.Primary, cfg.Hotkey.Fallback, logging.Component(log, "hotkey")),
		logCloser:  closer,
	}

	if cfg.Control.Addr != "" {
		services.Control = api.NewServer(api.Config{
			Addr:         cfg.Control.Addr,
			Token:        cfg.Control.Token,
			ReadTimeout:  cfg.Control.ReadTimeout,
			WriteTimeout: cfg.Control.WriteTimeout,
		}, api.Deps{
			Dictation: controller,
			Settings:  services.Settings,
			Devices:   services.Devices,
			Backends:  providers.BackendOptions,
		}, logging.Component(log, "api"))
	}

	return services, nil
}

// NewRegistry builds the transcription backends from runtime configuration.
func NewRegistry(cfg config.Config) *providers.Registry {
	return providers.NewRegistry(providers.Options{
		HTTPTimeout:         cfg.Session.HTTPTimeout,
		OpenAI:              providers.Endpoint{BaseURL: cfg.OpenAI.BaseURL, Model: cfg.OpenAI.Model},
		ElevenLabs:          providers.Endpoint{BaseURL: cfg.ElevenLabs.BaseURL, Model: cfg.ElevenLabs.Model},
		Deepgram:            providers.Endpoint{BaseURL: cfg.Deepgram.BaseURL, Model: cfg.Deepgram.Model},
		DeepgramLanguage:    cfg.Deepgram.Language,
		DeepgramSmartFormat: cfg.Deepgram.SmartFormat,
	})
}

// NewRecorder builds the recorder process adapter.
func NewRecorder(cfg config.Config) *audio.SoxRecorder {
	return audio.NewSoxRecorder(audio.Options{
		Command:      cfg.Recorder.Command,
		ProcessName:  cfg.Recorder.ProcessName,
		SweepCommand: cfg.Recorder.SweepCommand,
		StopGrace:    cfg.Recorder.StopGrace,
		StartupProbe: cfg.Recorder.StartupProbe,
	})
}

// Run starts the settings watcher, the global hotkey and the control API,
// and blocks until ctx is done.
func (s *Services) Run(ctx context.Context) {
	go func() {
		if err := s.Store.Watch(ctx, nil); err != nil {
			s.Log.Warn().Err(err).Msg("settings watcher stopped")
		}
	}()

	go func() {
		err := s.Hotkey.Run(ctx, func() {
			if err := s.Controller.Toggle(ctx); err != nil && !expected(err) {
				s.Log.Debug().Err(err).Msg("hotkey toggle failed")
			}
		})
		if err != nil {
			s.Log.Error().Err(err).Msg("no global hotkey available")
		}
	}()

	if s.Control != nil {
		go func() {
			if err := s.Control.Start(); err != nil {
				s.Log.Error().Err(err).Msg("control api stopped")
			}
		}()
	}

	<-ctx.Done()
}

// Close stops an in-progress recording, shuts the control API down and
// flushes the log file.
func (s *Services) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Session.HTTPTimeout+5*time.Second)
	defer cancel()

	var errs []error
	if err := s.Controller.Stop(ctx); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		errs = append(errs, err)
	}
	s.Controller.Wait()
	if s.Control != nil {
		if err := s.Control.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.logCloser != nil {
		if err := s.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// expected reports errors that are part of normal hotkey use and already
// surfaced through the event sink.
func expected(err error) bool {
	var serr *usecase.SessionError
	return errors.Is(err, usecase.ErrTriggerIgnored) ||
		errors.Is(err, usecase.ErrBusy) ||
		errors.Is(err, usecase.ErrCancelled) ||
		errors.As(err, &serr)
}

func registerCollector(c prometheus.Collector, log zerolog.Logger) {
	if err := prometheus.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			log.Warn().Err(err).Msg("failed to register session collector")
		}
	}
}
