package macos

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const (
	frontmostScript = `tell application "System Events"
	set frontApp to name of first application process whose frontmost is true
end tell
return frontApp`

	visibleScript = `tell application "System Events" to get name of every process whose visible is true`
)

// Opener runs the macOS open command with the given arguments.
type Opener func(ctx context.Context, args ...string) error

func execOpen(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "open", args...).CombinedOutput()
	if err != nil {
		if text := strings.TrimSpace(string(out)); text != "" {
			return fmt.Errorf("open %s: %s: %w", strings.Join(args, " "), text, err)
		}
		return fmt.Errorf("open %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

// Tracker answers questions about running applications through System Events.
type Tracker struct {
	script ScriptRunner
	open   Opener
}

func NewTracker(script ScriptRunner, open Opener) *Tracker {
	if open == nil {
		open = execOpen
	}
	return &Tracker{script: script, open: open}
}

func (t *Tracker) FrontmostApplication(ctx context.Context) (string, error) {
	name, err := t.script.Run(ctx, frontmostScript)
	if err != nil {
		return "", fmt.Errorf("failed to query frontmost application: %w", err)
	}
	return name, nil
}

func (t *Tracker) VisibleApplications(ctx context.Context) ([]string, error) {
	out, err := t.script.Run(ctx, visibleScript)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible applications: %w", err)
	}
	var names []string
	for _, part := range strings.Split(out, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (t *Tracker) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := t.script.Run(ctx, "return application "+quote(name)+" is running")
	if err != nil {
		return false, fmt.Errorf("failed to check whether %s is running: %w", name, err)
	}
	return strings.EqualFold(out, "true"), nil
}

func (t *Tracker) Launch(ctx context.Context, name string) error {
	if err := t.open(ctx, "-a", name); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	return nil
}
