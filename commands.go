package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"transbuddy/internal/audio"
	"transbuddy/internal/bootstrap"
	"transbuddy/internal/config"
	"transbuddy/internal/domain"
	"transbuddy/internal/providers"
	"transbuddy/internal/settings"
	"transbuddy/internal/vocab"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.NewSystemProfilerDevices(nil).InputDevices(cmd.Context())
			if err != nil {
				return err
			}
			printDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
}

func printDevices(w io.Writer, devices []domain.AudioDevice) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No input devices found.")
		return
	}
	for _, device := range devices {
		marker := " "
		if device.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\n", marker, device.Name)
	}
}

func newTranscribeCmd(overrides *config.Overrides) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an existing audio file with the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*overrides)
			if err != nil {
				return err
			}
			stored, err := settings.NewStore(cfg.Settings.Path, zerolog.Nop()).Load()
			if err != nil {
				return err
			}
			if backend != "" {
				stored.APIType = domain.Backend(backend)
			}
			if stored.APIKey == "" {
				return fmt.Errorf("no API key configured in %s", cfg.Settings.Path)
			}

			transcriber, err := bootstrap.NewRegistry(cfg).New(stored.APIType, stored.APIKey)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read audio file: %w", err)
			}
			text, err := transcriber.Transcribe(cmd.Context(), data, filepath.Base(args[0]))
			if err != nil {
				return err
			}

			engine, err := vocab.Compile(stored.Substitutions, cfg.Session.IterationLimit)
			if err != nil {
				return err
			}
			text, err = engine.Apply(strings.TrimSpace(text))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "backend id overriding the stored setting (openai, elevenlabs, deepgram)")
	return cmd
}

// check is one prerequisite reported by doctor.
type check struct {
	name   string
	ok     bool
	detail string
}

func newDoctorCmd(overrides *config.Overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*overrides)
			if err != nil {
				return err
			}
			stored, err := settings.NewStore(cfg.Settings.Path, zerolog.Nop()).Load()
			if err != nil {
				return err
			}

			checks := []check{
				binaryCheck(cfg.Recorder.Command, "install with: brew install sox"),
				binaryCheck(cfg.Inject.OsascriptCommand, "ships with macOS"),
				binaryCheck("system_profiler", "needed to list input devices"),
			}
			checks = append(checks, settingsChecks(stored)...)

			if !printChecks(cmd.OutOrStdout(), checks) {
				fmt.Fprintln(cmd.OutOrStdout(), "\nSome prerequisites are missing.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\nAll prerequisites met. Ready to dictate!")
			return nil
		},
	}
}

func binaryCheck(name, hint string) check {
	path, err := exec.LookPath(name)
	if err != nil {
		return check{name: name, detail: "not found: " + hint}
	}
	return check{name: name, ok: true, detail: path}
}

func settingsChecks(stored domain.Settings) []check {
	key := check{name: "API key", ok: stored.APIKey != "", detail: "configured"}
	if !key.ok {
		key.detail = "not set; open the settings window to add one"
	}
	backend := check{name: "Backend", ok: providers.Supported(stored.APIType), detail: string(stored.APIType)}
	if !backend.ok {
		backend.detail = fmt.Sprintf("%q is not supported", stored.APIType)
	}
	return []check{key, backend}
}

func printChecks(w io.Writer, checks []check) bool {
	allOK := true
	for _, c := range checks {
		mark := "ok"
		if !c.ok {
			mark = "!!"
			allOK = false
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", mark, c.name, c.detail)
	}
	return allOK
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "transbuddy", version)
		},
	}
}
