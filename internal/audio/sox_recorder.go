package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"transbuddy/internal/ports"
)

// Options controls how the recorder binary is invoked and torn down.
type Options struct {
	Command      string
	ProcessName  string
	SweepCommand string
	StopGrace    time.Duration
	StartupProbe time.Duration
}

// SoxRecorder records microphone audio to a file with an external sox process.
type SoxRecorder struct {
	opts Options
}

func NewSoxRecorder(opts Options) *SoxRecorder {
	if opts.Command == "" {
		opts.Command = "sox"
	}
	if opts.ProcessName == "" {
		opts.ProcessName = "sox"
	}
	if opts.SweepCommand == "" {
		opts.SweepCommand = "killall"
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 1200 * time.Millisecond
	}
	if opts.StartupProbe <= 0 {
		opts.StartupProbe = 250 * time.Millisecond
	}
	return &SoxRecorder{opts: opts}
}

// Args builds the recorder invocation for cfg.
func Args(cfg ports.RecorderConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	args := []string{"-q"}
	if cfg.Device != "" {
		args = append(args, "-t", "coreaudio", cfg.Device)
	} else {
		args = append(args, "-d")
	}
	return append(args,
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", strconv.Itoa(cfg.Channels),
		cfg.Path,
	)
}

func (r *SoxRecorder) Start(ctx context.Context, cfg ports.RecorderConfig) (ports.Recording, error) {
	if cfg.Path == "" {
		return nil, errors.New("recording path is required")
	}

	// The process outlives the request context; it is ended through Stop or Kill.
	cmd := exec.Command(r.opts.Command, Args(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", r.opts.Command, err)
	}

	rec := &soxRecording{
		path:    cfg.Path,
		process: cmd.Process,
		stderr:  &stderr,
		done:    make(chan struct{}),
		sweep:   r.Sweep,
		grace:   r.opts.StopGrace,
	}
	go func() {
		rec.exitErr = cmd.Wait()
		close(rec.done)
	}()

	select {
	case <-rec.done:
		if rec.exitErr != nil {
			return nil, fmt.Errorf("%s exited before recording started: %w: %s", r.opts.Command, rec.exitErr, trimOutput(stderr.String()))
		}
		return nil, fmt.Errorf("%s exited before recording started", r.opts.Command)
	case <-ctx.Done():
		_ = rec.Kill()
		return nil, ctx.Err()
	case <-time.After(r.opts.StartupProbe):
	}

	return rec, nil
}

// Sweep terminates stray recorder processes by name. A sweep that finds no
// process is not an error.
func (r *SoxRecorder) Sweep(ctx context.Context, force bool) error {
	args := []string{r.opts.ProcessName}
	if force {
		args = []string{"-9", r.opts.ProcessName}
	}
	err := exec.CommandContext(ctx, r.opts.SweepCommand, args...).Run()
	return normalizeStopErr(err)
}

type soxRecording struct {
	path    string
	process *os.Process
	stderr  *bytes.Buffer

	done    chan struct{}
	exitErr error

	sweep func(ctx context.Context, force bool) error
	grace time.Duration

	stopOnce sync.Once
	stopErr  error
	stopped  bool
	mu       sync.Mutex
}

func (s *soxRecording) Path() string {
	return s.path
}

func (s *soxRecording) Done() <-chan struct{} {
	return s.done
}

// Err reports an abnormal exit. Exits caused by Stop or Kill are not errors.
func (s *soxRecording) Err() error {
	select {
	case <-s.done:
	default:
		return nil
	}
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped || s.exitErr == nil {
		return nil
	}
	return fmt.Errorf("recorder exited: %w: %s", s.exitErr, trimOutput(s.stderr.String()))
}

// Stop sends SIGTERM so sox finalizes the WAV header, escalates to SIGKILL
// after the grace period, then sweeps by name.
func (s *soxRecording) Stop() error {
	s.stopOnce.Do(func() {
		s.markStopped()
		_ = s.process.Signal(syscall.SIGTERM)

		select {
		case <-s.done:
		case <-time.After(s.grace):
			_ = s.process.Kill()
			<-s.done
		}
		s.stopErr = normalizeStopErr(s.exitErr)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.sweep(ctx, false)
	})
	return s.stopErr
}

// Kill sends SIGKILL immediately and force-sweeps by name without waiting for
// a graceful shutdown.
func (s *soxRecording) Kill() error {
	s.stopOnce.Do(func() {
		s.markStopped()
		if err := s.process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.stopErr = err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.sweep(ctx, false)
		_ = s.sweep(ctx, true)
	})
	return s.stopErr
}

func (s *soxRecording) markStopped() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimOutput(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
