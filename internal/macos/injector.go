package macos

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
)

// Clipboard reads and writes the system pasteboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard is the pasteboard of the logged-in user.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

type InjectorOptions struct {
	TempDir          string
	SettleDelay      time.Duration
	RestoreClipboard bool
	RestoreDelay     time.Duration
}

// PasteInjector inserts text by loading it into the clipboard from a temp file,
// activating the target application and sending Cmd+V.
type PasteInjector struct {
	script    ScriptRunner
	clipboard Clipboard
	opts      InjectorOptions
	log       zerolog.Logger
}

func NewPasteInjector(script ScriptRunner, clip Clipboard, opts InjectorOptions, log zerolog.Logger) *PasteInjector {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return &PasteInjector{script: script, clipboard: clip, opts: opts, log: log}
}

func (p *PasteInjector) Insert(ctx context.Context, app string, text string) error {
	app = strings.TrimSpace(app)
	if app == "" {
		return fmt.Errorf("no target application")
	}

	file, err := os.CreateTemp(p.opts.TempDir, "transbuddy_text_*.txt")
	if err != nil {
		return fmt.Errorf("failed to create text file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.WriteString(text); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write text file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write text file: %w", err)
	}

	previous, hasPrevious := p.savedClipboard()

	if _, err := p.script.Run(ctx, pasteScript(path, app, p.opts.SettleDelay)); err != nil {
		return fmt.Errorf("failed to paste into %s: %w", app, err)
	}

	if hasPrevious {
		p.restore(previous)
	}
	return nil
}

func (p *PasteInjector) savedClipboard() (string, bool) {
	if !p.opts.RestoreClipboard || p.clipboard == nil {
		return "", false
	}
	previous, err := p.clipboard.ReadAll()
	if err != nil {
		p.log.Debug().Err(err).Msg("clipboard not readable; skipping restore")
		return "", false
	}
	return previous, true
}

func (p *PasteInjector) restore(previous string) {
	write := func() {
		if err := p.clipboard.WriteAll(previous); err != nil {
			p.log.Warn().Err(err).Msg("failed to restore clipboard")
		}
	}
	if p.opts.RestoreDelay <= 0 {
		write()
		return
	}
	// The target reads the pasteboard asynchronously after Cmd+V.
	time.AfterFunc(p.opts.RestoreDelay, write)
}

func pasteScript(path, app string, settle time.Duration) string {
	delay := strconv.FormatFloat(settle.Seconds(), 'f', -1, 64)
	return strings.Join([]string{
		"set theText to (read POSIX file " + quote(path) + " as «class utf8»)",
		"set the clipboard to theText",
		"tell application " + quote(app),
		"\tactivate",
		"end tell",
		"delay " + delay,
		`tell application "System Events"`,
		"\tkeystroke \"v\" using {command down}",
		"end tell",
	}, "\n")
}
