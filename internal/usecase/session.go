package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
)

// session is one record, transcribe and insert cycle. Mutable fields are
// guarded by the controller mutex.
type session struct {
	id          string
	path        string
	settings    domain.Settings
	transcriber ports.Transcriber
	transformer ports.TextTransformer
	log         zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state     domain.SessionState
	target    string
	startedAt time.Time
	recording ports.Recording

	// released is closed once stop or cancel owns the recording.
	released    chan struct{}
	releaseOnce sync.Once
}

func (s *session) release() {
	s.releaseOnce.Do(func() { close(s.released) })
}

func (s *session) status() domain.Status {
	status := domain.Status{
		State:     s.state,
		Active:    !s.state.Terminal(),
		SessionID: s.id,
		Target:    s.target,
	}
	if !s.startedAt.IsZero() {
		startedAt := s.startedAt
		status.StartedAt = &startedAt
	}
	return status
}
