package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voicebridge/capture"
	"voicebridge/gemini"
	"voicebridge/languages"
	"voicebridge/logging"
	"voicebridge/playback"
	"voicebridge/tui"
	"voicebridge/workflow"
)

// Build info - set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#2DD4BF")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38BDF8")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#34D399"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F87171"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8A8A8"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2DD4BF")).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)

	logo = `
    ╭─────────────────────────────────────╮
    │  VoiceBridge - speak any language   │
    ╰─────────────────────────────────────╯`
)

type appState struct {
	verbose     bool
	jsonLogs    bool
	logFile     string
	outDir      string
	backend     string
	callTimeout time.Duration

	logger *zap.Logger

	// gatewayFn builds the AI gateway; tests swap in a fake
	gatewayFn func() (workflow.Gateway, error)
}

func newApp() *appState {
	outDir := os.Getenv("VOICEBRIDGE_OUT_DIR")
	if outDir == "" {
		outDir = "."
	}
	app := &appState{
		verbose:     envBool("VOICEBRIDGE_DEBUG"),
		outDir:      outDir,
		backend:     "auto",
		callTimeout: workflow.DefaultCallTimeout,
	}
	app.gatewayFn = app.newGeminiGateway
	return app
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "voicebridge",
		Short:         "Capture speech or text, translate it and hear it in other languages",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts := logging.Options{Verbose: app.verbose, JSON: app.jsonLogs, File: app.logFile}
			// The full screen UI owns the terminal
			if cmd.Name() == "voicebridge" && opts.File == "" {
				app.logger = zap.NewNop()
				return nil
			}
			logger, err := logging.New(opts)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runUI()
		},
	}

	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().StringVar(&app.logFile, "log-file", app.logFile, "Write logs to this file")
	cmd.PersistentFlags().StringVar(&app.outDir, "out", app.outDir, "Directory for downloaded voiceovers")
	cmd.PersistentFlags().StringVar(&app.backend, "backend", app.backend, "Recording backend: auto|pw-record|arecord|ffmpeg")
	cmd.PersistentFlags().DurationVar(&app.callTimeout, "timeout", app.callTimeout, "Timeout for each AI call")

	cmd.AddCommand(newRunCmd(app))
	cmd.AddCommand(newWizardCmd(app))
	cmd.AddCommand(newLanguagesCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newUpdateCmd(app))

	return cmd
}

func main() {
	// Load .env file if it exists (won't error if missing)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(newApp())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		if errors.Is(err, errMissingAPIKey) {
			fmt.Fprintln(os.Stderr, infoStyle.Render(gemini.GetAPIKeyHelp()))
		}
		if shouldPrintUsageHint(err) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
		}
		os.Exit(1)
	}
}

var errMissingAPIKey = errors.New("missing Gemini API key")

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) newGeminiGateway() (workflow.Gateway, error) {
	cfg, err := gemini.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMissingAPIKey, err)
	}
	client, err := gemini.NewClientFromConfig(cfg, gemini.WithLogger(a.log()))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *appState) newRecorder() *capture.ExecRecorder {
	opts := []capture.RecorderOption{capture.WithRecorderLogger(a.log())}
	if a.backend != "" && a.backend != "auto" {
		opts = append(opts, capture.WithPreferredBackend(a.backend))
	}
	return capture.NewExecRecorder(opts...)
}

func (a *appState) runUI() error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return errNoTerminal
	}
	gateway, err := a.gatewayFn()
	if err != nil {
		return err
	}

	return tui.Run(tui.Options{
		Gateway:     gateway,
		Recorder:    a.newRecorder(),
		Player:      playback.NewExecPlayer(playback.WithLogger(a.log())),
		OutputDir:   a.outDir,
		CallTimeout: a.callTimeout,
		Logger:      a.log(),
	})
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the supported target languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, l := range languages.All() {
				fmt.Fprintf(w, "%-6s %s\n", l.Code, l.Name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printVersion(cmd.OutOrStdout())
			return nil
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "voicebridge %s\n", version)
	fmt.Fprintf(w, "  commit: %s\n", commit)
	fmt.Fprintf(w, "  built:  %s\n", date)
	fmt.Fprintf(w, "  go:     %s\n", runtime.Version())
	fmt.Fprintf(w, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func shouldPrintUsageHint(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"accepts ",
		"required flag",
		"if any flags in the group",
		"at least one of the flags",
	}

	for _, pattern := range patterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}

	return false
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
