package macos

import (
	"context"
	"fmt"
)

// PrivacyPane identifies a System Settings privacy pane.
type PrivacyPane string

const (
	PaneAccessibility PrivacyPane = "Privacy_Accessibility"
	PaneMicrophone    PrivacyPane = "Privacy_Microphone"
)

const accessibilityProbe = `tell application "System Events" to get name of first application process whose frontmost is true`

// Privacy opens privacy panes and probes automation permission.
type Privacy struct {
	script ScriptRunner
	open   Opener
}

func NewPrivacy(script ScriptRunner, open Opener) *Privacy {
	if open == nil {
		open = execOpen
	}
	return &Privacy{script: script, open: open}
}

func (p *Privacy) OpenPane(ctx context.Context, pane PrivacyPane) error {
	url := "x-apple.systempreferences:com.apple.preference.security?" + string(pane)
	if err := p.open(ctx, url); err != nil {
		return fmt.Errorf("failed to open %s settings: %w", pane, err)
	}
	return nil
}

// AccessibilityGranted runs a harmless System Events query. It fails when the
// process has not been granted automation access.
func (p *Privacy) AccessibilityGranted(ctx context.Context) bool {
	_, err := p.script.Run(ctx, accessibilityProbe)
	return err == nil
}
