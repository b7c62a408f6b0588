package hotkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// registration is one global hotkey held by the OS.
type registration interface {
	Events() <-chan struct{}
	Unregister() error
}

type registerFunc func(Binding) (registration, error)

// Listener registers a primary binding, falling back to a second binding
// when the primary cannot be registered.
type Listener struct {
	primary  string
	fallback string
	register registerFunc
	log      zerolog.Logger
}

func NewListener(primary, fallback string, log zerolog.Logger) *Listener {
	return &Listener{primary: primary, fallback: fallback, register: registerSystem, log: log}
}

// Run calls onTrigger for every key press until ctx is done. onTrigger runs
// on its own goroutine so a slow session never blocks the key loop.
func (l *Listener) Run(ctx context.Context, onTrigger func()) error {
	reg, binding, err := l.registerAny()
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Unregister(); err != nil {
			l.log.Warn().Err(err).Msg("failed to unregister hotkey")
		}
	}()
	l.log.Info().Str("hotkey", binding.String()).Msg("hotkey registered")

	events := reg.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			go onTrigger()
		}
	}
}

func (l *Listener) registerAny() (registration, Binding, error) {
	var errs []error
	for _, spec := range []string{l.primary, l.fallback} {
		if spec == "" {
			continue
		}
		binding, err := Parse(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reg, err := l.register(binding)
		if err != nil {
			l.log.Warn().Err(err).Str("hotkey", spec).Msg("hotkey registration failed")
			errs = append(errs, fmt.Errorf("register %s: %w", spec, err))
			continue
		}
		return reg, binding, nil
	}
	if len(errs) == 0 {
		return nil, Binding{}, errors.New("no hotkey configured")
	}
	return nil, Binding{}, errors.Join(errs...)
}
