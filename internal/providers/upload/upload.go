package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxMessageLen = 300

// ErrMissingAPIKey is returned before any network call when no key is set.
var ErrMissingAPIKey = errors.New("API key is not configured")

// Field is one extra multipart form field.
type Field struct {
	Name  string
	Value string
}

// Request describes one multipart audio upload.
type Request struct {
	Provider  string
	URL       string
	Header    http.Header
	FileField string
	Filename  string
	Audio     []byte
	Fields    []Field
}

// StatusError reports a non-success HTTP response from a backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Message == "" {
		return fmt.Sprintf("%s API error (status %s)", e.Provider, status)
	}
	return fmt.Sprintf("%s API error (status %s): %s", e.Provider, status, e.Message)
}

// NewStatusError builds a StatusError from a response and its body.
func NewStatusError(provider string, resp *http.Response, body []byte) *StatusError {
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    ExtractMessage(body),
	}
}

// Post sends the multipart upload and returns the body of a 2xx response.
func Post(ctx context.Context, client *http.Client, req Request) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	field := req.FileField
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	for _, f := range req.Fields {
		if f.Value == "" {
			continue
		}
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", req.Provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewStatusError(req.Provider, resp, body)
	}
	return body, nil
}

// DecodeText extracts the top-level "text" field. A missing or null field is
// an empty transcript, not an error.
func DecodeText(body []byte) (string, error) {
	var payload struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if payload.Text == nil {
		return "", nil
	}
	return strings.TrimSpace(*payload.Text), nil
}

// ExtractMessage pulls a human readable message out of a backend error body.
func ExtractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		for _, key := range []string{"error", "detail", "message", "err_msg"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			if msg := messageFrom(raw); msg != "" {
				return msg
			}
		}
	}
	return truncate(string(trimmed))
}

func messageFrom(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return truncate(strings.TrimSpace(text))
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return truncate(strings.TrimSpace(nested.Message))
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
