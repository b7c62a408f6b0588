package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"transbuddy/internal/ports"
)

func TestArgs(t *testing.T) {
	t.Parallel()

	got := Args(ports.RecorderConfig{Path: "/tmp/a.wav"})
	want := []string{"-q", "-d", "-r", "44100", "-c", "1", "/tmp/a.wav"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected default args: %v", got)
	}

	got = Args(ports.RecorderConfig{Path: "/tmp/b.wav", SampleRate: 16000, Channels: 2, Device: "USB Mic"})
	want = []string{"-q", "-t", "coreaudio", "USB Mic", "-r", "16000", "-c", "2", "/tmp/b.wav"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected device args: %v", got)
	}
}

func TestSoxRecorderStartAndStopGracefully(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sweepLog := filepath.Join(dir, "sweep.log")
	script := writeScript(t, "rec.sh", "#!/usr/bin/env bash\nout=\"${@: -1}\"\ntrap 'echo finalized > \"$out\"; exit 0' TERM\nwhile true; do sleep 0.05; done\n")
	recorder := NewSoxRecorder(Options{
		Command:      script,
		SweepCommand: writeSweepScript(t, sweepLog),
		StartupProbe: 50 * time.Millisecond,
	})

	path := filepath.Join(dir, "out.wav")
	rec, err := recorder.Start(context.Background(), ports.RecorderConfig{Path: path})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if rec.Path() != path {
		t.Fatalf("unexpected path %q", rec.Path())
	}

	if err := rec.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	<-rec.Done()
	if rec.Err() != nil {
		t.Fatalf("expected clean exit, got %v", rec.Err())
	}

	contents, err := os.ReadFile(path)
	if err != nil || strings.TrimSpace(string(contents)) != "finalized" {
		t.Fatalf("expected recorder to finalize output, got %q err=%v", contents, err)
	}
	if got := readLines(t, sweepLog); !reflect.DeepEqual(got, []string{"sox"}) {
		t.Fatalf("unexpected sweep calls: %v", got)
	}
}

func TestSoxRecorderStopEscalatesToKill(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "stubborn.sh", "#!/usr/bin/env bash\ntrap '' TERM\nwhile true; do sleep 0.05; done\n")
	recorder := NewSoxRecorder(Options{
		Command:      script,
		SweepCommand: "true",
		StopGrace:    100 * time.Millisecond,
		StartupProbe: 50 * time.Millisecond,
	})

	rec, err := recorder.Start(context.Background(), ports.RecorderConfig{Path: filepath.Join(t.TempDir(), "x.wav")})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	started := time.Now()
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	select {
	case <-rec.Done():
	default:
		t.Fatalf("expected process to be gone after stop")
	}
	if elapsed := time.Since(started); elapsed < 100*time.Millisecond {
		t.Fatalf("expected stop to wait for the grace period, took %v", elapsed)
	}
}

func TestSoxRecorderKillIsImmediateAndForceSweeps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sweepLog := filepath.Join(dir, "sweep.log")
	script := writeScript(t, "rec.sh", "#!/usr/bin/env bash\ntrap '' TERM\nwhile true; do sleep 0.05; done\n")
	recorder := NewSoxRecorder(Options{
		Command:      script,
		SweepCommand: writeSweepScript(t, sweepLog),
		StopGrace:    5 * time.Second,
		StartupProbe: 50 * time.Millisecond,
	})

	rec, err := recorder.Start(context.Background(), ports.RecorderConfig{Path: filepath.Join(dir, "x.wav")})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	started := time.Now()
	if err := rec.Kill(); err != nil {
		t.Fatalf("kill failed: %v", err)
	}
	select {
	case <-rec.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("process did not exit after kill")
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("kill waited too long: %v", elapsed)
	}
	if rec.Err() != nil {
		t.Fatalf("killed recording should not report an abnormal exit: %v", rec.Err())
	}
	if got := readLines(t, sweepLog); !reflect.DeepEqual(got, []string{"sox", "-9 sox"}) {
		t.Fatalf("unexpected sweep calls: %v", got)
	}

	if err := rec.Stop(); err != nil {
		t.Fatalf("stop after kill should be a no-op, got %v", err)
	}
}

func TestSoxRecorderStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no input device' 1>&2\nexit 1\n")
	recorder := NewSoxRecorder(Options{Command: script, SweepCommand: "true", StartupProbe: time.Second})

	_, err := recorder.Start(context.Background(), ports.RecorderConfig{Path: filepath.Join(t.TempDir(), "x.wav")})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before recording started") || !strings.Contains(err.Error(), "no input device") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSoxRecorderStartMissingBinary(t *testing.T) {
	t.Parallel()

	recorder := NewSoxRecorder(Options{Command: filepath.Join(t.TempDir(), "missing-sox")})
	if _, err := recorder.Start(context.Background(), ports.RecorderConfig{Path: "/tmp/x.wav"}); err == nil {
		t.Fatalf("expected spawn error")
	}
	if _, err := recorder.Start(context.Background(), ports.RecorderConfig{}); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestSoxRecorderReportsAbnormalExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "flaky.sh", "#!/usr/bin/env bash\nsleep 0.3\necho 'device removed' 1>&2\nexit 3\n")
	recorder := NewSoxRecorder(Options{Command: script, SweepCommand: "true", StartupProbe: 50 * time.Millisecond})

	rec, err := recorder.Start(context.Background(), ports.RecorderConfig{Path: filepath.Join(t.TempDir(), "x.wav")})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if rec.Err() != nil {
		t.Fatalf("running recording should not report an error")
	}

	select {
	case <-rec.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("recorder did not exit")
	}
	if rec.Err() == nil || !strings.Contains(rec.Err().Error(), "device removed") {
		t.Fatalf("expected abnormal exit error, got %v", rec.Err())
	}
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func writeSweepScript(t *testing.T, logPath string) string {
	t.Helper()
	return writeScript(t, "sweep.sh", "#!/usr/bin/env bash\necho \"$*\" >> '"+logPath+"'\nexit 1\n")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(contents)), "\n")
}
