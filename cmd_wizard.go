package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"voicebridge/capture"
	"voicebridge/languages"
	"voicebridge/share"
	"voicebridge/workflow"
)

func newWizardCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Step-by-step guided translation using forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gateway, err := app.gatewayFn()
			if err != nil {
				return err
			}

			fmt.Println(titleStyle.Render(logo))
			for {
				if !app.runWizard(cmd.Context(), gateway) {
					break
				}
			}
			fmt.Println(subtitleStyle.Render("\nThanks for using VoiceBridge!"))
			return nil
		},
	}
}

func formError(err error) bool {
	if err == nil {
		return false
	}
	if !errors.Is(err, huh.ErrUserAborted) {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
	}
	return true
}

// runWizard walks one capture -> translate -> voiceover round. It reports
// whether the user wants another round.
func (a *appState) runWizard(ctx context.Context, gateway workflow.Gateway) bool {
	machine := a.newMachine(gateway)

	// Step 1: Capture
	in, err := a.askInput(ctx)
	if formError(err) {
		return askToContinue()
	}
	ev, err := in.Event()
	if formError(err) {
		return askToContinue()
	}

	var s workflow.Session
	_ = spinner.New().
		Title(loadingTitle(ev)).
		Action(func() { s, err = captureStep(ctx, machine, ev) }).
		Run()
	if formError(err) {
		return askToContinue()
	}

	fmt.Println(boxStyle.Render(fmt.Sprintf("Detected: %s (%s)\n\n%s", s.Detected.Name, s.Detected.Code, s.Transcript)))

	// Step 2: Review
	if err := a.askEdit(ctx, machine); formError(err) {
		return askToContinue()
	}

	targets, err := askTargets(s.Detected.Code)
	if formError(err) {
		return askToContinue()
	}

	// Step 3: Translate
	_ = spinner.New().
		Title(fmt.Sprintf("Translating into %d languages...", len(targets))).
		Action(func() { s, err = translateStep(ctx, machine, targets) }).
		Run()
	if formError(err) {
		return askToContinue()
	}

	for _, t := range s.Translations {
		fmt.Println(boxStyle.Render(titleStyle.Render(t.LanguageName) + "\n" + t.Text))
	}

	// Step 4: Listen
	a.askVoiceovers(ctx, machine)

	return askToContinue()
}

// captureStep detects or transcribes the input and waits for the result
func captureStep(ctx context.Context, machine *workflow.Machine, ev workflow.Event) (workflow.Session, error) {
	s := settle(ctx, machine, ev)
	if s.Phase != workflow.PhaseCaptured {
		return s, phaseError(s)
	}
	return s, nil
}

// translateStep selects targets and waits for the translations
func translateStep(ctx context.Context, machine *workflow.Machine, targets []string) (workflow.Session, error) {
	machine.Dispatch(ctx, workflow.SelectTargets{Codes: targets})
	s := settle(ctx, machine, workflow.RequestTranslate{})
	if s.Phase != workflow.PhaseTranslated {
		return s, phaseError(s)
	}
	return s, nil
}

func loadingTitle(ev workflow.Event) string {
	if _, ok := ev.(workflow.SubmitAudio); ok {
		return workflow.LoadingTranscribe
	}
	return workflow.LoadingDetect
}

func (a *appState) askInput(ctx context.Context) (capture.Input, error) {
	var source string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("What do you want to translate?").
			Options(
				huh.NewOption("Type some text", "text"),
				huh.NewOption("Pick an audio or text file", "file"),
				huh.NewOption("Record from the microphone", "record"),
			).
			Value(&source),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return capture.Input{}, err
	}

	switch source {
	case "file":
		return askFile()
	case "record":
		return a.record(ctx)
	}

	var text string
	err = huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title("Your text").
			Placeholder("Type or paste the text you want to translate...").
			CharLimit(10000).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return workflow.ErrEmptyText
				}
				return nil
			}).
			Value(&text),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return capture.Input{}, err
	}
	return capture.FromText(text), nil
}

func askFile() (capture.Input, error) {
	var path string
	startDir, _ := os.Getwd()

	allowed := append(capture.AudioExtensions(), ".txt", ".md")
	err := huh.NewForm(huh.NewGroup(
		huh.NewFilePicker().
			Title("Select a file").
			Description("Audio is transcribed, text files are used as-is").
			Picking(true).
			CurrentDirectory(startDir).
			ShowHidden(false).
			ShowSize(true).
			Height(15).
			AllowedTypes(allowed).
			Value(&path),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return capture.Input{}, err
	}
	return capture.FromFile(path)
}

func (a *appState) record(ctx context.Context) (capture.Input, error) {
	rec := a.newRecorder()
	if err := rec.Start(ctx); err != nil {
		return capture.Input{}, err
	}

	var stop bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Recording with %s...", rec.Backend())).
			Description("Speak now, then confirm to stop").
			Affirmative("Stop").
			Negative("Discard").
			Value(&stop),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil || !stop {
		rec.Cancel()
		if err == nil {
			err = huh.ErrUserAborted
		}
		return capture.Input{}, err
	}

	var in capture.Input
	_ = spinner.New().
		Title("Finishing recording...").
		Action(func() { in, err = capture.FromRecording(rec) }).
		Run()
	return in, err
}

func (a *appState) askEdit(ctx context.Context, machine *workflow.Machine) error {
	s := machine.Snapshot()

	var edit bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Edit the transcript before translating?").
			Affirmative("Edit").
			Negative("Looks good").
			Value(&edit),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil || !edit {
		return err
	}

	text := s.Transcript
	err = huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title("Transcript").
			CharLimit(10000).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return workflow.ErrEmptyTranscript
				}
				return nil
			}).
			Value(&text),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return err
	}

	if s = machine.Dispatch(ctx, workflow.SaveTranscript{Text: text}); s.Err != nil {
		return s.Err
	}
	return nil
}

func askTargets(source string) ([]string, error) {
	var options []huh.Option[string]
	for _, l := range languages.All() {
		if l.Code == source {
			continue
		}
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", l.Name, l.Code), l.Code))
	}

	var targets []string
	err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Translate into").
			Description("space to select, / to filter").
			Options(options...).
			Filterable(true).
			Height(12).
			Validate(func(codes []string) error {
				if len(codes) == 0 {
					return workflow.ErrEmptySelection
				}
				return nil
			}).
			Value(&targets),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	return targets, err
}

func (a *appState) askVoiceovers(ctx context.Context, machine *workflow.Machine) {
	s := machine.Snapshot()

	var options []huh.Option[string]
	for _, t := range s.Translations {
		options = append(options, huh.NewOption(t.LanguageName, t.LanguageCode))
	}

	var codes []string
	err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Generate voiceovers?").
			Description(fmt.Sprintf("Files are saved to %s. Select none to skip.", a.outDir)).
			Options(options...).
			Value(&codes),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil || len(codes) == 0 {
		return
	}

	var (
		saved  []*share.Result
		failed []error
	)
	_ = spinner.New().
		Title("Generating voiceovers...").
		Action(func() { saved, failed = a.voiceoverStep(ctx, machine, codes) }).
		Run()

	for _, err := range failed {
		fmt.Println(errorStyle.Render(err.Error()))
	}
	if len(saved) > 0 {
		lines := make([]string, 0, len(saved))
		for _, res := range saved {
			lines = append(lines, fmt.Sprintf("%s  %s", res.Path, infoStyle.Render(res.HumanSize())))
		}
		fmt.Println(successStyle.Render(boxStyle.Render("Saved voiceovers\n\n" + strings.Join(lines, "\n"))))
	}
}

// voiceoverStep generates voiceovers for codes concurrently and saves the ones
// that succeed to the output directory. Failures are reported per language.
func (a *appState) voiceoverStep(ctx context.Context, machine *workflow.Machine, codes []string) ([]*share.Result, []error) {
	for _, code := range codes {
		machine.Dispatch(ctx, workflow.RequestVoiceover{Code: code})
	}
	machine.Wait()

	var (
		saved  []*share.Result
		failed []error
	)
	s := machine.Snapshot()
	for _, code := range codes {
		t, ok := s.Translation(code)
		if !ok {
			failed = append(failed, fmt.Errorf("%s: %w", code, workflow.ErrUnknownTranslation))
			continue
		}
		if t.Err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", t.LanguageName, t.Err))
			continue
		}
		res, err := share.Download(t, share.Options{Dir: a.outDir, Overwrite: true})
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", t.LanguageName, err))
			continue
		}
		saved = append(saved, res)
	}
	return saved, failed
}

func askToContinue() bool {
	var choice string
	selectNext := huh.NewSelect[string]().
		Title("What next?").
		Options(
			huh.NewOption("Translate something else", "another"),
			huh.NewOption("Exit", "exit"),
		).
		Value(&choice)

	err := huh.NewForm(huh.NewGroup(selectNext)).
		WithTheme(huh.ThemeCatppuccin()).
		Run()

	if err != nil {
		return false
	}

	return choice == "another"
}
