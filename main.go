package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	"transbuddy/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	overrides := &config.Overrides{}

	rootCmd := &cobra.Command{
		Use:           "transbuddy",
		Short:         "Push-to-talk dictation into the frontmost application",
		Long:          "TransBuddy records while you hold the hotkey, transcribes the audio with a cloud backend and pastes the text where your cursor is.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesktop(*overrides)
		},
	}
	rootCmd.Version = version

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&overrides.EnvFile, "env-file", "", "path to a .env file (default ./.env)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.SettingsPath, "settings", "", "path to the settings file")
	flags.StringVar(&overrides.ControlAddr, "control-addr", "", "listen address of the local control API")

	rootCmd.AddCommand(newRunCmd(overrides))
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newTranscribeCmd(overrides))
	rootCmd.AddCommand(newDoctorCmd(overrides))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newRunCmd(overrides *config.Overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the desktop app and listen for the hotkey",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesktop(*overrides)
		},
	}
}

func runDesktop(overrides config.Overrides) error {
	app := NewApp(overrides)

	return wails.Run(&options.App{
		Title:             "TransBuddy",
		Width:             380,
		Height:            140,
		Frameless:         true,
		AlwaysOnTop:       true,
		StartHidden:       true,
		HideWindowOnClose: true,
		BackgroundColour:  &options.RGBA{R: 0, G: 0, B: 0, A: 0},
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			WebviewIsTransparent: true,
			WindowIsTranslucent:  true,
		},
	})
}
