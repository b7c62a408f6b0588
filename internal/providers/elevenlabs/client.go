package elevenlabs

import (
	"context"
	"net/http"
	"strings"
	"time"

	"transbuddy/internal/providers/upload"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModel   = "scribe_v1"
)

// Config controls the ElevenLabs Speech-to-Text client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Language   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the ElevenLabs /speech-to-text endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, client: client}
}

func (c *Client) Name() string { return "elevenlabs" }

func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", upload.ErrMissingAPIKey
	}

	header := http.Header{}
	header.Set("xi-api-key", c.cfg.APIKey)

	body, err := upload.Post(ctx, c.client, upload.Request{
		Provider:  c.Name(),
		URL:       strings.TrimRight(c.cfg.BaseURL, "/") + "/speech-to-text",
		Header:    header,
		FileField: "file",
		Filename:  filename,
		Audio:     audio,
		Fields: []upload.Field{
			{Name: "model_id", Value: c.cfg.Model},
			{Name: "language_code", Value: c.cfg.Language},
		},
	})
	if err != nil {
		return "", err
	}
	return upload.DecodeText(body)
}
