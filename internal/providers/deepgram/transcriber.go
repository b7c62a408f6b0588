package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"transbuddy/internal/providers/upload"
)

const (
	defaultBaseURL         = "https://api.deepgram.com/v1"
	defaultModel           = "nova-2"
	defaultChunkSize       = 8192
	defaultFinalizeTimeout = 10 * time.Second
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey          string
	APIBaseURL      string
	Model           string
	Language        string
	SmartFormat     bool
	ChunkSize       int
	FinalizeTimeout time.Duration
	Dialer          *websocket.Dialer
}

// Provider streams a finished recording over the live listen endpoint and
// collects the final transcript.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = defaultFinalizeTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return "deepgram" }

func (p *Provider) Transcribe(ctx context.Context, audio []byte, _ string) (string, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return "", upload.ErrMissingAPIKey
	}

	wsURL, err := buildListenURL(p.cfg)
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.cfg.Dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return "", upload.NewStatusError(p.Name(), resp, body)
		}
		return "", fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	session := newStreamingSession(conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.Done():
		}
	}()

	aggregator := newTranscriptAggregator()
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for event := range session.Events() {
			aggregator.Add(event)
		}
	}()

	sendErr := pumpAudioChunks(audio, session, p.cfg.ChunkSize)
	_ = session.CloseSend()
	streamErr := waitForStream(session, p.cfg.FinalizeTimeout)
	<-consumed

	raw := aggregator.Raw()
	if raw == "" {
		if sendErr != nil {
			return "", sendErr
		}
		if streamErr != nil {
			return "", streamErr
		}
	}
	return raw, nil
}

func pumpAudioChunks(audio []byte, session *streamingSession, chunkSize int) error {
	for start := 0; start < len(audio); start += chunkSize {
		end := start + chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := session.SendAudio(audio[start:end]); err != nil {
			return fmt.Errorf("failed to stream audio: %w", err)
		}
	}
	return nil
}

func waitForStream(session *streamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}

// buildListenURL omits encoding and sample rate: recordings are WAV files and
// Deepgram reads the format from the container header.
func buildListenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("interim_results", "false")
	query.Set("punctuate", "true")
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
