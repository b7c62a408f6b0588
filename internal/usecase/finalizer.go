package usecase

import (
	"context"
	"fmt"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
)

// transcriptFinalizer applies vocabulary and inserts the result into the
// target captured at session start.
type transcriptFinalizer struct {
	tracker  ports.AppTracker
	injector ports.TextInjector
	verify   bool
}

func newTranscriptFinalizer(tracker ports.AppTracker, injector ports.TextInjector, verify bool) transcriptFinalizer {
	return transcriptFinalizer{tracker: tracker, injector: injector, verify: verify}
}

func (f transcriptFinalizer) Finalize(ctx context.Context, target string, transformer ports.TextTransformer, raw string) (string, error) {
	text := raw
	if transformer != nil {
		transformed, err := transformer.Apply(raw)
		if err != nil {
			return "", newSessionError(domain.ErrorCodeInsertion, domain.SessionReasonInsertionFailed,
				fmt.Errorf("vocabulary substitution failed: %w", err))
		}
		text = transformed
	}

	if f.verify && f.tracker != nil {
		running, err := f.tracker.IsRunning(ctx, target)
		if err != nil {
			return "", newSessionError(domain.ErrorCodeInsertion, domain.SessionReasonInsertionFailed,
				fmt.Errorf("could not verify target application %q: %w", target, err))
		}
		if !running {
			return "", newSessionError(domain.ErrorCodeInsertion, domain.SessionReasonInsertionFailed,
				fmt.Errorf("target application %q is no longer running; text could not be inserted", target))
		}
	}

	if err := f.injector.Insert(ctx, target, text); err != nil {
		return "", newSessionError(domain.ErrorCodeInsertion, domain.SessionReasonInsertionFailed,
			fmt.Errorf("text could not be inserted: %w", err))
	}
	return text, nil
}
