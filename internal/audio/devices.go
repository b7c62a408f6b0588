package audio

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"transbuddy/internal/domain"
)

// CommandOutput runs a command and returns its stdout.
type CommandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// SystemProfilerDevices lists input devices from system_profiler.
type SystemProfilerDevices struct {
	run CommandOutput
}

func NewSystemProfilerDevices(run CommandOutput) *SystemProfilerDevices {
	if run == nil {
		run = execOutput
	}
	return &SystemProfilerDevices{run: run}
}

func (d *SystemProfilerDevices) InputDevices(ctx context.Context) ([]domain.AudioDevice, error) {
	out, err := d.run(ctx, "system_profiler", "SPAudioDataType")
	if err != nil {
		return nil, fmt.Errorf("failed to query audio devices: %w", err)
	}
	return ParseInputDevices(string(out)), nil
}

// ParseInputDevices extracts devices that report input channels. Device
// names are the entries nested directly under "Devices:".
func ParseInputDevices(output string) []domain.AudioDevice {
	var (
		devices     []domain.AudioDevice
		current     *domain.AudioDevice
		isInput     bool
		deviceDepth = -1
	)

	flush := func() {
		if current != nil && isInput {
			devices = append(devices, *current)
		}
		current = nil
		isInput = false
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		if trimmed == "Devices:" {
			deviceDepth = -1
			flush()
			continue
		}

		if strings.HasSuffix(trimmed, ":") && (deviceDepth == -1 || indent == deviceDepth) && !strings.Contains(trimmed, ": ") {
			if trimmed == "Audio:" {
				continue
			}
			flush()
			deviceDepth = indent
			current = &domain.AudioDevice{Name: strings.TrimSuffix(trimmed, ":")}
			continue
		}

		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Input Channels":
			isInput = true
		case "Default Input Device":
			current.Default = strings.EqualFold(strings.TrimSpace(value), "yes")
		}
	}
	flush()
	return devices
}
