package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge/capture"
	"voicebridge/workflow"
	"voicebridge/workflow/workflowtest"
)

func newTestGateway() *workflowtest.Gateway {
	gw := workflowtest.NewGateway()
	gw.Translations = []workflow.TranslatedText{
		{Code: "fr", Text: "Bonjour mon ami"},
		{Code: "de", Text: "Hallo mein Freund"},
	}
	return gw
}

func newTestCmd(t *testing.T, gw workflow.Gateway, args ...string) (*cobra.Command, *appState, *bytes.Buffer) {
	t.Helper()

	app := newApp()
	app.outDir = t.TempDir()
	app.gatewayFn = func() (workflow.Gateway, error) { return gw, nil }

	cmd := newRootCmd(app)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	return cmd, app, out
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd(newApp())

	for _, name := range []string{"run", "wizard", "languages", "version", "update"} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}
	for _, flag := range []string{"verbose", "json", "log-file", "out", "backend", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootHelp(t *testing.T) {
	cmd, _, out := newTestCmd(t, newTestGateway(), "--help")

	require.NoError(t, cmd.Execute())
	for _, want := range []string{"run", "wizard", "languages", "update"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd, _, out := newTestCmd(t, newTestGateway(), "version")

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "voicebridge dev")
	assert.Contains(t, out.String(), "commit: none")
}

func TestLanguagesCommand(t *testing.T) {
	cmd, _, out := newTestCmd(t, newTestGateway(), "languages")

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "French")
	assert.Contains(t, out.String(), "de ")
}

func TestRunCommandText(t *testing.T) {
	gw := newTestGateway()
	cmd, _, out := newTestCmd(t, gw, "run", "--text", "Hola mi amigo", "--to", "fr,de")

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Detected Spanish (es)")
	assert.Contains(t, out.String(), "Bonjour mon ami")
	assert.Contains(t, out.String(), "Hallo mein Freund")

	assert.Equal(t, 1, gw.CallCount("detect"))
	assert.Equal(t, 1, gw.CallCount("translate"))
	assert.Equal(t, 0, gw.CallCount("synthesize"))

	calls := gw.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "Spanish", last.Source)
	assert.Equal(t, []string{"fr", "de"}, last.Targets)
}

func TestRunCommandVoice(t *testing.T) {
	gw := newTestGateway()
	cmd, app, out := newTestCmd(t, gw, "run", "--text", "Hola", "--to", "fr,de", "--voice")

	require.NoError(t, cmd.Execute())
	assert.Equal(t, 2, gw.CallCount("synthesize"))

	for _, name := range []string{"fr_french.wav", "de_german.wav"} {
		_, err := os.Stat(filepath.Join(app.outDir, name))
		assert.NoError(t, err, name)
	}
	assert.Contains(t, out.String(), "Saved")
}

func TestRunCommandVoiceFailureIsPerLanguage(t *testing.T) {
	gw := newTestGateway()
	gw.VoiceErr = map[string]error{"Hallo mein Freund": errors.New("quota exceeded")}
	cmd, app, _ := newTestCmd(t, gw, "run", "--text", "Hola", "--to", "fr,de", "--voice")

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voiceover failed for de")

	_, statErr := os.Stat(filepath.Join(app.outDir, "fr_french.wav"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(app.outDir, "de_german.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCommandAudioFile(t *testing.T) {
	gw := newTestGateway()
	gw.Capture = workflow.Capture{
		Transcript: "Hola desde el audio",
		Language:   workflow.Language{Name: "Spanish", Code: "es"},
	}

	path := filepath.Join(t.TempDir(), "memo.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVEfmt "), 0o644))

	cmd, _, out := newTestCmd(t, gw, "run", "--audio", path, "--to", "fr")

	require.NoError(t, cmd.Execute())
	assert.Equal(t, 1, gw.CallCount("transcribe"))
	assert.Equal(t, 0, gw.CallCount("detect"))
	assert.Contains(t, out.String(), "Hola desde el audio")
	assert.Contains(t, out.String(), "Bonjour mon ami")
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		setup   func(gw *workflowtest.Gateway)
		wantErr string
	}{
		{
			name:    "missing input",
			args:    []string{"run", "--to", "fr"},
			wantErr: "at least one of the flags",
		},
		{
			name:    "both inputs",
			args:    []string{"run", "--text", "Hola", "--audio", "memo.wav", "--to", "fr"},
			wantErr: "if any flags in the group",
		},
		{
			name:    "missing targets",
			args:    []string{"run", "--text", "Hola"},
			wantErr: "required flag",
		},
		{
			name:    "unsupported language",
			args:    []string{"run", "--text", "Hola", "--to", "zz"},
			wantErr: "unsupported language",
		},
		{
			name:    "blank text",
			args:    []string{"run", "--text", "   ", "--to", "fr"},
			wantErr: capture.ErrEmptyInput.Error(),
		},
		{
			name:    "unsupported file",
			args:    []string{"run", "--audio", "notes.pdf", "--to", "fr"},
			wantErr: "unsupported file",
		},
		{
			name:    "detect failure",
			args:    []string{"run", "--text", "Hola", "--to", "fr"},
			setup:   func(gw *workflowtest.Gateway) { gw.DetectErr = errors.New("service unavailable") },
			wantErr: "language detection failed: service unavailable",
		},
		{
			name:    "no usable translations",
			args:    []string{"run", "--text", "Hola", "--to", "it"},
			wantErr: workflow.ErrNoTranslations.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway()
			if tt.setup != nil {
				tt.setup(gw)
			}
			cmd, _, _ := newTestCmd(t, gw, tt.args...)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), strings.ToLower(tt.wantErr))
		})
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := newApp().newGeminiGateway()
	require.Error(t, err)
	assert.ErrorIs(t, err, errMissingAPIKey)
}

func TestGeminiGatewayFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	gw, err := newApp().newGeminiGateway()
	require.NoError(t, err)
	assert.NotNil(t, gw)
}

func TestUpdateRefusesDevBuild(t *testing.T) {
	cmd, _, _ := newTestCmd(t, newTestGateway(), "update", "--check")

	err := cmd.Execute()
	assert.ErrorIs(t, err, errDevBuild)
}

func TestIsReleaseVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"dev", false},
		{"", false},
		{"v1.2.3", true},
		{"0.4.0", true},
		{"vnext", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := isReleaseVersion(tt.version); got != tt.want {
				t.Errorf("isReleaseVersion(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestShouldPrintUsageHint(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("unknown command \"foo\" for \"voicebridge\""), true},
		{errors.New("unknown flag: --bogus"), true},
		{errors.New(`required flag(s) "to" not set`), true},
		{errors.New("language detection failed: timeout"), false},
	}

	for _, tt := range tests {
		if got := shouldPrintUsageHint(tt.err); got != tt.want {
			t.Errorf("shouldPrintUsageHint(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		t.Setenv("VOICEBRIDGE_TEST_FLAG", v)
		assert.True(t, envBool("VOICEBRIDGE_TEST_FLAG"), v)
	}
	for _, v := range []string{"", "0", "false", "nope"} {
		t.Setenv("VOICEBRIDGE_TEST_FLAG", v)
		assert.False(t, envBool("VOICEBRIDGE_TEST_FLAG"), v)
	}
}

func TestNewAppReadsEnvironment(t *testing.T) {
	t.Setenv("VOICEBRIDGE_OUT_DIR", "/tmp/voiceovers")
	t.Setenv("VOICEBRIDGE_DEBUG", "1")

	app := newApp()
	assert.Equal(t, "/tmp/voiceovers", app.outDir)
	assert.True(t, app.verbose)
	assert.Equal(t, workflow.DefaultCallTimeout, app.callTimeout)
}

func TestRootCommandNeedsTerminal(t *testing.T) {
	// go test pipes stdout, so the full screen UI must refuse to start
	gw := newTestGateway()
	cmd, _, _ := newTestCmd(t, gw)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	assert.ErrorIs(t, err, errNoTerminal)
	assert.Empty(t, gw.Calls())
}

func TestProgressDisabledIsNoop(t *testing.T) {
	stop := startSpinner(false, new(bytes.Buffer), "Translating")
	stop()
	stop()

	bar := startCountProgress(false, new(bytes.Buffer), "Generating voiceovers", 3)
	bar.Add(1)
	bar.Finish()
	assert.Nil(t, bar.bar)
}

func TestCountProgressWritesToWriter(t *testing.T) {
	buf := new(bytes.Buffer)
	bar := startCountProgress(true, buf, "Generating voiceovers", 2)
	bar.Add(2)
	bar.Finish()
	assert.NotNil(t, bar.bar)
}

func TestLoadingTitle(t *testing.T) {
	assert.Equal(t, workflow.LoadingDetect, loadingTitle(workflow.SubmitText{Text: "Hola"}))
	assert.Equal(t, workflow.LoadingTranscribe, loadingTitle(workflow.SubmitAudio{
		Audio: workflow.Audio{Data: []byte("RIFF"), MIMEType: "audio/wav"},
	}))
}

func TestWizardSteps(t *testing.T) {
	gw := newTestGateway()
	app := newApp()
	app.outDir = t.TempDir()
	machine := app.newMachine(gw)
	ctx := context.Background()

	s, err := captureStep(ctx, machine, workflow.SubmitText{Text: "Hola mi amigo"})
	require.NoError(t, err)
	assert.Equal(t, workflow.PhaseCaptured, s.Phase)
	assert.Equal(t, "es", s.Detected.Code)

	s, err = translateStep(ctx, machine, []string{"fr", "de"})
	require.NoError(t, err)
	require.Len(t, s.Translations, 2)
	assert.Equal(t, "Bonjour mon ami", s.Translations[0].Text)

	gw.VoiceErr = map[string]error{"Hallo mein Freund": errors.New("quota exceeded")}
	saved, failed := app.voiceoverStep(ctx, machine, []string{"fr", "de", "it"})

	require.Len(t, saved, 1)
	assert.Equal(t, filepath.Join(app.outDir, "fr_french.wav"), saved[0].Path)
	_, statErr := os.Stat(saved[0].Path)
	assert.NoError(t, statErr)

	require.Len(t, failed, 2)
	assert.ErrorContains(t, failed[0], "quota exceeded")
	assert.ErrorIs(t, failed[1], workflow.ErrUnknownTranslation)
	assert.Equal(t, 2, gw.CallCount("synthesize"))
}

func TestWizardStepFailures(t *testing.T) {
	gw := newTestGateway()
	gw.DetectErr = errors.New("service unavailable")
	machine := newApp().newMachine(gw)
	ctx := context.Background()

	s, err := captureStep(ctx, machine, workflow.SubmitText{Text: "Hola"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language detection failed")
	assert.Equal(t, workflow.PhaseIdle, s.Phase)

	gw.DetectErr = nil
	machine.Dispatch(ctx, workflow.DismissError{})
	_, err = captureStep(ctx, machine, workflow.SubmitText{Text: "Hola"})
	require.NoError(t, err)

	s, err = translateStep(ctx, machine, []string{"it"})
	assert.ErrorIs(t, err, workflow.ErrNoTranslations)
	assert.Equal(t, workflow.PhaseCaptured, s.Phase)
}

func TestCompleteTargets(t *testing.T) {
	all, directive := completeTargets(nil, nil, "")
	assert.Contains(t, all, "fr")
	assert.NotZero(t, directive&cobra.ShellCompDirectiveNoFileComp)

	next, _ := completeTargets(nil, nil, "fr,")
	assert.Contains(t, next, "fr,de")
	assert.NotContains(t, next, "fr,fr")
}
