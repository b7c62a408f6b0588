package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
	"transbuddy/internal/providers/deepgram"
	"transbuddy/internal/providers/elevenlabs"
	"transbuddy/internal/providers/openai"
)

// ErrUnsupportedBackend is a configuration error raised before any network call.
var ErrUnsupportedBackend = errors.New("unsupported transcription backend")

var backendOptions = []domain.BackendOption{
	{ID: domain.BackendOpenAI, Name: "OpenAI Whisper", Default: true},
	{ID: domain.BackendElevenLabs, Name: "ElevenLabs Scribe"},
	{ID: domain.BackendDeepgram, Name: "Deepgram"},
}

// Endpoint overrides the base URL and model of one backend.
type Endpoint struct {
	BaseURL string
	Model   string
}

// Options configures every backend the registry can build.
type Options struct {
	HTTPTimeout         time.Duration
	OpenAI              Endpoint
	ElevenLabs          Endpoint
	Deepgram            Endpoint
	DeepgramLanguage    string
	DeepgramSmartFormat bool
}

// Registry builds transcribers for the static backend list.
type Registry struct {
	opts Options
}

func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts}
}

// New returns the transcriber for backend, authenticated with apiKey.
func (r *Registry) New(backend domain.Backend, apiKey string) (ports.Transcriber, error) {
	switch Normalize(backend) {
	case domain.BackendOpenAI:
		return openai.New(openai.Config{
			APIKey:  apiKey,
			BaseURL: r.opts.OpenAI.BaseURL,
			Model:   r.opts.OpenAI.Model,
			Timeout: r.opts.HTTPTimeout,
		}), nil
	case domain.BackendElevenLabs:
		return elevenlabs.New(elevenlabs.Config{
			APIKey:  apiKey,
			BaseURL: r.opts.ElevenLabs.BaseURL,
			Model:   r.opts.ElevenLabs.Model,
			Timeout: r.opts.HTTPTimeout,
		}), nil
	case domain.BackendDeepgram:
		return deepgram.NewProvider(deepgram.Config{
			APIKey:          apiKey,
			APIBaseURL:      r.opts.Deepgram.BaseURL,
			Model:           r.opts.Deepgram.Model,
			Language:        r.opts.DeepgramLanguage,
			SmartFormat:     r.opts.DeepgramSmartFormat,
			FinalizeTimeout: r.opts.HTTPTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, string(backend))
	}
}

// Normalize lowercases and trims a backend id.
func Normalize(backend domain.Backend) domain.Backend {
	return domain.Backend(strings.ToLower(strings.TrimSpace(string(backend))))
}

// Supported reports whether backend is in the static list.
func Supported(backend domain.Backend) bool {
	normalized := Normalize(backend)
	for _, option := range backendOptions {
		if option.ID == normalized {
			return true
		}
	}
	return false
}

// BackendOptions lists the selectable backends.
func BackendOptions() []domain.BackendOption {
	return append([]domain.BackendOption(nil), backendOptions...)
}
