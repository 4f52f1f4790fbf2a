package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voicebridge/capture"
	"voicebridge/languages"
	"voicebridge/share"
	"voicebridge/workflow"
)

// runOptions holds the flags of the non-interactive pipeline
type runOptions struct {
	text    string
	audio   string
	targets []string
	voice   bool
}

func newRunCmd(app *appState) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Translate text or an audio file without the interactive UI",
		Example: `  voicebridge run --text "Hola, ¿cómo estás?" --to en,fr
  voicebridge run --audio memo.wav --to de --voice --out ./voiceovers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runPipeline(cmd.Context(), cmd.OutOrStdout(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "Text to translate")
	cmd.Flags().StringVar(&opts.audio, "audio", "", "Audio file (or .txt file) to transcribe and translate")
	cmd.Flags().StringSliceVar(&opts.targets, "to", nil, "Target language codes, e.g. en,fr")
	cmd.Flags().BoolVar(&opts.voice, "voice", false, "Generate and save a voiceover for every translation")
	cmd.MarkFlagsOneRequired("text", "audio")
	cmd.MarkFlagsMutuallyExclusive("text", "audio")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.RegisterFlagCompletionFunc("to", completeTargets)

	return cmd
}

// completeTargets offers the supported codes not already typed into --to
func completeTargets(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done := strings.Split(toComplete, ",")
	prefix := strings.Join(done[:len(done)-1], ",")
	if prefix != "" {
		prefix += ","
	}
	typed := make(map[string]bool, len(done))
	for _, c := range done[:len(done)-1] {
		typed[languages.Normalize(c)] = true
	}

	var out []string
	for _, code := range languages.Codes() {
		if !typed[code] {
			out = append(out, prefix+code)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func (o runOptions) input() (capture.Input, error) {
	if o.audio != "" {
		return capture.FromFile(o.audio)
	}
	return capture.FromText(o.text), nil
}

func validateTargets(codes []string) ([]string, error) {
	var out []string
	for _, c := range codes {
		code := languages.Normalize(c)
		if code == "" {
			continue
		}
		if !languages.Valid(code) {
			return nil, fmt.Errorf("unsupported language %q (run 'voicebridge languages' for the list)", c)
		}
		out = append(out, code)
	}
	if len(out) == 0 {
		return nil, workflow.ErrEmptySelection
	}
	return out, nil
}

func (a *appState) newMachine(gateway workflow.Gateway) *workflow.Machine {
	dispatcher := workflow.NewDispatcher(gateway,
		workflow.WithLogger(a.log()),
		workflow.WithCallTimeout(a.callTimeout),
	)
	return workflow.NewMachine(dispatcher, workflow.WithMachineLogger(a.log()))
}

// settle dispatches ev, waits for every call it started and returns the result
func settle(ctx context.Context, m *workflow.Machine, ev workflow.Event) workflow.Session {
	m.Dispatch(ctx, ev)
	m.Wait()
	return m.Snapshot()
}

// settleWithProgress is settle behind a stderr spinner
func (a *appState) settleWithProgress(ctx context.Context, m *workflow.Machine, ev workflow.Event, description string) workflow.Session {
	stop := startSpinner(a.progressEnabled(), os.Stderr, description)
	defer stop()
	return settle(ctx, m, ev)
}

func (a *appState) runPipeline(ctx context.Context, w io.Writer, opts runOptions) error {
	targets, err := validateTargets(opts.targets)
	if err != nil {
		return err
	}

	in, err := opts.input()
	if err != nil {
		return err
	}
	ev, err := in.Event()
	if err != nil {
		return err
	}

	gateway, err := a.gatewayFn()
	if err != nil {
		return err
	}
	machine := a.newMachine(gateway)

	description := "Detecting language"
	if in.IsAudio() {
		description = "Transcribing"
	}
	s := a.settleWithProgress(ctx, machine, ev, description)
	if s.Phase != workflow.PhaseCaptured {
		return phaseError(s)
	}
	fmt.Fprintln(w, subtitleStyle.Render(fmt.Sprintf("Detected %s (%s)", s.Detected.Name, s.Detected.Code)))
	if in.IsAudio() {
		fmt.Fprintln(w, s.Transcript)
	}

	machine.Dispatch(ctx, workflow.SelectTargets{Codes: targets})
	s = a.settleWithProgress(ctx, machine, workflow.RequestTranslate{}, "Translating")
	if s.Phase != workflow.PhaseTranslated {
		return phaseError(s)
	}

	for _, code := range targets {
		if _, ok := s.Translation(code); !ok {
			a.log().Warn("no translation returned", zap.String("language", code))
		}
	}
	for _, t := range s.Translations {
		fmt.Fprintln(w, boxStyle.Render(titleStyle.Render(t.LanguageName)+"\n"+t.Text))
	}

	if !opts.voice {
		return nil
	}
	return a.saveVoiceovers(ctx, w, machine)
}

func (a *appState) saveVoiceovers(ctx context.Context, w io.Writer, machine *workflow.Machine) error {
	translations := machine.Snapshot().Translations
	bar := startCountProgress(a.progressEnabled(), os.Stderr, "Generating voiceovers", len(translations))
	// One at a time keeps TTS quota usage predictable
	for _, t := range translations {
		machine.Dispatch(ctx, workflow.RequestVoiceover{Code: t.LanguageCode})
		machine.Wait()
		bar.Add(1)
	}
	bar.Finish()

	var failed []string
	for _, t := range machine.Snapshot().Translations {
		if t.Err != nil {
			a.log().Warn("voiceover failed", zap.String("language", t.LanguageCode), zap.Error(t.Err))
			failed = append(failed, t.LanguageCode)
			continue
		}
		res, err := share.Download(t, share.Options{Dir: a.outDir, Overwrite: true})
		if err != nil {
			a.log().Warn("saving voiceover failed", zap.String("language", t.LanguageCode), zap.Error(err))
			failed = append(failed, t.LanguageCode)
			continue
		}
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("Saved %s (%s)", res.Path, res.HumanSize())))
	}

	if len(failed) > 0 {
		return fmt.Errorf("voiceover failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func phaseError(s workflow.Session) error {
	if s.Err != nil {
		return s.Err
	}
	return errors.New("workflow stopped in phase " + s.Phase.String())
}
