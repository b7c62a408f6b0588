package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPostSendsMultipartBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("X-Key"); got != "secret" {
			t.Errorf("unexpected header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart failed: %v", err)
			return
		}
		if r.FormValue("model") != "m1" {
			t.Errorf("unexpected model %q", r.FormValue("model"))
		}
		if _, ok := r.MultipartForm.Value["empty"]; ok {
			t.Errorf("empty field should be omitted")
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "clip.wav" || string(data) != "RIFFdata" {
			t.Errorf("unexpected file %q: %q", header.Filename, data)
		}
		_, _ = w.Write([]byte(`{"text":" hi "}`))
	}))
	defer server.Close()

	body, err := Post(context.Background(), server.Client(), Request{
		Provider:  "test",
		URL:       server.URL,
		Header:    http.Header{"X-Key": []string{"secret"}},
		FileField: "audio",
		Filename:  "clip.wav",
		Audio:     []byte("RIFFdata"),
		Fields:    []Field{{Name: "model", Value: "m1"}, {Name: "empty", Value: ""}},
	})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	text, err := DecodeText(body)
	if err != nil || text != "hi" {
		t.Fatalf("unexpected text %q err=%v", text, err)
	}
}

func TestPostReturnsStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	_, err := Post(context.Background(), server.Client(), Request{Provider: "openai", URL: server.URL, Filename: "a.wav"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected status error, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected code %d", statusErr.StatusCode)
	}
	msg := err.Error()
	if !strings.Contains(msg, "401 Unauthorized") || !strings.Contains(msg, "Incorrect API key provided") {
		t.Fatalf("unexpected error message: %q", msg)
	}
}

func TestDecodeTextMissingFieldIsEmpty(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{}`, `{"text":null}`, `{"language":"en"}`} {
		text, err := DecodeText([]byte(body))
		if err != nil || text != "" {
			t.Fatalf("body %s: expected empty text, got %q err=%v", body, text, err)
		}
	}
	if _, err := DecodeText([]byte("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestExtractMessageShapes(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`{"error":{"message":"bad key"}}`:                "bad key",
		`{"error":"quota exceeded"}`:                     "quota exceeded",
		`{"detail":{"status":"invalid","message":"no"}}`: "no",
		`{"detail":"Not Found"}`:                         "Not Found",
		`{"err_code":"X","err_msg":"deepgram says no"}`:  "deepgram says no",
		`plain text failure`:                             "plain text failure",
		``:                                               "",
	}
	for body, want := range cases {
		if got := ExtractMessage([]byte(body)); got != want {
			t.Fatalf("body %q: expected %q, got %q", body, want, got)
		}
	}

	long := strings.Repeat("x", maxMessageLen+10)
	if got := ExtractMessage([]byte(long)); len(got) != maxMessageLen+3 {
		t.Fatalf("expected truncated message, got len %d", len(got))
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	message := "x" + strings.Repeat("é", maxMessageLen)
	got := truncate(message)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") || len(got) > maxMessageLen+3 {
		t.Fatalf("unexpected truncation: len %d", len(got))
	}
	if want := "x" + strings.Repeat("é", (maxMessageLen-1)/2) + "..."; got != want {
		t.Fatalf("expected cut at the last whole rune, got len %d want %d", len(got), len(want))
	}
}

func TestStatusErrorWithoutReasonPhrase(t *testing.T) {
	t.Parallel()

	err := &StatusError{Provider: "elevenlabs", StatusCode: 503}
	if got := err.Error(); got != "elevenlabs API error (status 503 Service Unavailable)" {
		t.Fatalf("unexpected message: %q", got)
	}
}
