package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transbuddy/internal/ports"
)

// ErrNoTarget means no application could be chosen to receive text.
var ErrNoTarget = errors.New("no usable target application")

var itemDescriptor = regexp.MustCompile(`item \d+ of `)

// ResolverConfig names the applications the resolver must look past.
type ResolverConfig struct {
	// SelfNames match any application whose name contains one of them.
	SelfNames []string
	// ExcludedApps match by exact name.
	ExcludedApps []string
	FallbackApp  string
	LaunchWait   time.Duration
}

// TargetResolver picks the application that receives inserted text.
type TargetResolver struct {
	tracker ports.AppTracker
	clock   Clock
	cfg     ResolverConfig
	log     zerolog.Logger
}

func NewTargetResolver(tracker ports.AppTracker, clock Clock, cfg ResolverConfig, log zerolog.Logger) *TargetResolver {
	if clock == nil {
		clock = systemClock{}
	}
	return &TargetResolver{tracker: tracker, clock: clock, cfg: cfg, log: log}
}

// Resolve returns the frontmost application unless it is excluded, then the
// first visible application that is not excluded, then the fallback editor.
func (r *TargetResolver) Resolve(ctx context.Context) (string, error) {
	front, err := r.tracker.FrontmostApplication(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("frontmost application query failed")
	} else if name := NormalizeAppName(front); name != "" && !r.excluded(name) {
		return name, nil
	}

	visible, err := r.tracker.VisibleApplications(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("visible application query failed")
	}
	for _, candidate := range visible {
		if name := NormalizeAppName(candidate); name != "" && !r.excluded(name) {
			return name, nil
		}
	}

	return r.fallback(ctx)
}

func (r *TargetResolver) fallback(ctx context.Context) (string, error) {
	app := strings.TrimSpace(r.cfg.FallbackApp)
	if app == "" {
		return "", ErrNoTarget
	}

	running, err := r.tracker.IsRunning(ctx, app)
	if err != nil {
		r.log.Debug().Err(err).Str("app", app).Msg("running check failed; launching fallback")
	}
	if running {
		return app, nil
	}

	r.log.Info().Str("app", app).Msg("launching fallback editor")
	if err := r.tracker.Launch(ctx, app); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoTarget, err)
	}
	if err := r.clock.Sleep(ctx, r.cfg.LaunchWait); err != nil {
		return "", err
	}
	return app, nil
}

func (r *TargetResolver) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, self := range r.cfg.SelfNames {
		if self != "" && strings.Contains(lower, strings.ToLower(self)) {
			return true
		}
	}
	for _, excluded := range r.cfg.ExcludedApps {
		if strings.EqualFold(name, excluded) {
			return true
		}
	}
	return false
}

// NormalizeAppName reduces automation output such as "Safari, Mail" or
// "item 1 of Safari" to a single application name.
func NormalizeAppName(raw string) string {
	name := raw
	if first, _, found := strings.Cut(name, ","); found {
		name = first
	}
	name = itemDescriptor.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
