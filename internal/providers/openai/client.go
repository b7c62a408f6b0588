package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"transbuddy/internal/providers/upload"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
)

// Config controls the OpenAI transcription client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the OpenAI /audio/transcriptions endpoint.
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

func (c *Client) Name() string { return "openai" }

// Transcribe uploads the audio and returns the "text" field of the response.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", upload.ErrMissingAPIKey
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	body, err := upload.Post(ctx, c.client, upload.Request{
		Provider:  c.Name(),
		URL:       strings.TrimRight(c.cfg.BaseURL, "/") + "/audio/transcriptions",
		Header:    header,
		FileField: "file",
		Filename:  filename,
		Audio:     audio,
		Fields: []upload.Field{
			{Name: "model", Value: c.cfg.Model},
			{Name: "response_format", Value: "json"},
		},
	})
	if err != nil {
		return "", err
	}
	return upload.DecodeText(body)
}
