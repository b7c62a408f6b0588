package domain

import "time"

// SessionState models the dictation lifecycle.
type SessionState string

const (
	SessionStateIdle         SessionState = "idle"
	SessionStateCapturing    SessionState = "capturing"
	SessionStateRecording    SessionState = "recording"
	SessionStateStopping     SessionState = "stopping"
	SessionStateTranscribing SessionState = "transcribing"
	SessionStateInserting    SessionState = "inserting"
	SessionStateCancelled    SessionState = "cancelled"
	SessionStateFailed       SessionState = "failed"
)

// Terminal reports whether the state ends a session.
func (s SessionState) Terminal() bool {
	return s == SessionStateIdle || s == SessionStateCancelled || s == SessionStateFailed
}

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonCapturingTarget     SessionStateReason = "capturing_target"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted  SessionStateReason = "recording_restarted"
	SessionReasonRecordingStopped    SessionStateReason = "recording_stopped"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonInserting           SessionStateReason = "inserting"
	SessionReasonTextInserted        SessionStateReason = "text_inserted"
	SessionReasonRecordingCancelled  SessionStateReason = "recording_cancelled"
	SessionReasonConfigInvalid       SessionStateReason = "config_invalid"
	SessionReasonNoTarget            SessionStateReason = "no_target"
	SessionReasonRecorderFailed      SessionStateReason = "recorder_failed"
	SessionReasonTooShort            SessionStateReason = "too_short"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonInsertionFailed     SessionStateReason = "insertion_failed"
)

// ErrorCode classifies session failures.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeConfig        ErrorCode = "config"
	ErrorCodeResolution    ErrorCode = "resolution"
	ErrorCodeRecording     ErrorCode = "recording"
	ErrorCodeDuration      ErrorCode = "duration"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeInsertion     ErrorCode = "insertion"
)

// RecordingPhase reports whether the code belongs to a failure raised before
// any audio reached a backend. The UI shows these as recording errors.
func (c ErrorCode) RecordingPhase() bool {
	switch c {
	case ErrorCodeStartup, ErrorCodeConfig, ErrorCodeResolution, ErrorCodeRecording:
		return true
	default:
		return false
	}
}

// Backend identifies a transcription provider.
type Backend string

const (
	BackendOpenAI     Backend = "openai"
	BackendElevenLabs Backend = "elevenlabs"
	BackendDeepgram   Backend = "deepgram"
)

// DefaultBackend is used when no backend has been chosen.
const DefaultBackend = BackendOpenAI

// Substitution rewrites transcribed text before insertion.
type Substitution struct {
	From  string `json:"from" toml:"from"`
	To    string `json:"to" toml:"to"`
	Regex bool   `json:"regex,omitempty" toml:"regex,omitempty"`
}

// Settings is the persisted user configuration.
type Settings struct {
	APIKey              string         `json:"apiKey" toml:"api_key"`
	APIType             Backend        `json:"apiType" toml:"api_type"`
	AudioDevice         string         `json:"audioDevice" toml:"audio_device"`
	OnboardingCompleted bool           `json:"onboardingCompleted" toml:"onboarding_completed"`
	Substitutions       []Substitution `json:"substitutions,omitempty" toml:"substitutions,omitempty"`
}

// RedactedAPIKey replaces a stored key in settings handed to clients.
const RedactedAPIKey = "********"

// Redacted returns a copy safe to hand to a UI or API client.
func (s Settings) Redacted() Settings {
	if s.APIKey != "" {
		s.APIKey = RedactedAPIKey
	}
	return s
}

// SettingsUpdate is the user-editable subset of Settings. An APIKey equal to
// RedactedAPIKey keeps the stored key.
type SettingsUpdate struct {
	APIKey      string  `json:"apiKey"`
	APIType     Backend `json:"apiType"`
	AudioDevice string  `json:"audioDevice"`
}

// BackendOption is one entry of the static backend list.
type BackendOption struct {
	ID      Backend `json:"id"`
	Name    string  `json:"name"`
	Default bool    `json:"default"`
}

// AudioDevice is an audio input device known to the OS.
type AudioDevice struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState `json:"state"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	Target    string       `json:"target,omitempty"`
	StartedAt *time.Time   `json:"startedAt,omitempty"`
	Message   string       `json:"message,omitempty"`
}
