package macos

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ScriptRunner executes AppleScript source and returns trimmed stdout.
type ScriptRunner interface {
	Run(ctx context.Context, script string) (string, error)
}

// Osascript runs scripts through the osascript binary. The script is fed
// over stdin so no shell quoting is involved.
type Osascript struct {
	Command string
}

func NewOsascript(command string) *Osascript {
	if strings.TrimSpace(command) == "" {
		command = "osascript"
	}
	return &Osascript{Command: command}
}

func (o *Osascript) Run(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, o.Command, "-")
	cmd.Stdin = strings.NewReader(script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	errText := strings.TrimSpace(stderr.String())
	if err != nil {
		if errText != "" {
			return "", fmt.Errorf("osascript failed: %s: %w", errText, err)
		}
		return "", fmt.Errorf("osascript failed: %w", err)
	}
	// osascript can exit 0 while still reporting a script error.
	if errText != "" {
		return "", fmt.Errorf("osascript failed: %s", errText)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// quote renders s as an AppleScript string literal.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
