package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
)

const title = "TransBuddy"

// Func shows one desktop notification.
type Func func(title, message string) error

// Desktop shows a system notification.
func Desktop(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Sink forwards every event to next and raises a desktop notification for
// session errors. Notifications are best effort; a failure is only logged.
type Sink struct {
	next   ports.EventSink
	notify Func
	log    zerolog.Logger
}

func NewSink(next ports.EventSink, notify Func, log zerolog.Logger) *Sink {
	if notify == nil {
		notify = Desktop
	}
	return &Sink{next: next, notify: notify, log: log}
}

func (s *Sink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.next.SessionStateChanged(state, reason)
}

func (s *Sink) SessionError(code domain.ErrorCode, detail string) {
	s.next.SessionError(code, detail)
	if err := s.notify(title, detail); err != nil {
		s.log.Debug().Err(err).Msg("desktop notification failed")
	}
}

func (s *Sink) TranscriptReady(text string) {
	s.next.TranscriptReady(text)
}

func (s *Sink) TextInserted(app string) {
	s.next.TextInserted(app)
}

func (s *Sink) SettingsRequested() {
	s.next.SettingsRequested()
}
