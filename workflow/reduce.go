package workflow

import (
	"fmt"
	"strings"

	"voicebridge/languages"
)

// Loading labels shown while a phase is busy
const (
	LoadingDetect     = "Detecting language..."
	LoadingTranscribe = "Transcribing audio..."
)

// Reduce applies ev to s and returns the next session plus the gateway call to
// make, if any. It performs no I/O and never mutates s.
func Reduce(s Session, ev Event) (Session, Command) {
	s = s.Clone()

	switch ev := ev.(type) {
	case SubmitText:
		return submitText(s, ev)
	case SubmitAudio:
		return submitAudio(s, ev)
	case CaptureSucceeded:
		return captureSucceeded(s, ev), nil
	case CaptureFailed:
		return captureFailed(s, ev), nil
	case SelectTargets:
		s.Targets = normalizeTargets(ev.Codes)
		return s, nil
	case ToggleTarget:
		return toggleTarget(s, ev), nil
	case RequestTranslate:
		return requestTranslate(s)
	case TranslateSucceeded:
		return translateSucceeded(s, ev), nil
	case TranslateFailed:
		return translateFailed(s, ev), nil
	case SaveTranscript:
		return saveTranscript(s, ev), nil
	case RequestVoiceover:
		return requestVoiceover(s, ev)
	case VoiceoverSucceeded:
		return voiceoverSucceeded(s, ev), nil
	case VoiceoverFailed:
		return voiceoverFailed(s, ev), nil
	case SelectTab:
		return selectTab(s, ev.Code), nil
	case NextTab:
		return cycleTab(s, 1), nil
	case PrevTab:
		return cycleTab(s, -1), nil
	case ItemFailed:
		if i := s.translationIndex(ev.Code); i >= 0 {
			s.Translations[i].Err = ev.Err
		}
		return s, nil
	case DismissError:
		s.Err = nil
		return s, nil
	case Reset:
		return Session{ID: s.ID, Generation: s.Generation + 1}, nil
	}

	return s, nil
}

func submitText(s Session, ev SubmitText) (Session, Command) {
	if err := checkIdle(s); err != nil {
		s.Err = err
		return s, nil
	}
	if strings.TrimSpace(ev.Text) == "" {
		s.Err = ErrEmptyText
		return s, nil
	}

	s = beginCapture(s, LoadingDetect)
	return s, DetectCommand{Gen: s.Generation, Text: ev.Text}
}

func submitAudio(s Session, ev SubmitAudio) (Session, Command) {
	if err := checkIdle(s); err != nil {
		s.Err = err
		return s, nil
	}
	if len(ev.Audio.Data) == 0 {
		s.Err = ErrEmptyAudio
		return s, nil
	}

	s = beginCapture(s, LoadingTranscribe)
	return s, TranscribeCommand{Gen: s.Generation, Audio: ev.Audio}
}

func checkIdle(s Session) error {
	switch {
	case s.Phase.Busy():
		return ErrBusy
	case s.Phase != PhaseIdle:
		return ErrInvalidPhase
	}
	return nil
}

func beginCapture(s Session, label string) Session {
	s.Generation++
	s.Phase = PhaseCapturing
	s.Loading = label
	s.Err = nil
	s.Transcript = ""
	s.Detected = nil
	s.Translations = nil
	s.ActiveTab = ""
	return s
}

func captureSucceeded(s Session, ev CaptureSucceeded) Session {
	if ev.Gen != s.Generation || s.Phase != PhaseCapturing {
		return s
	}

	lang := ev.Capture.Language
	lang.Code = languages.Normalize(lang.Code)
	if lang.Code == "" {
		return captureFailed(s, CaptureFailed{Gen: ev.Gen, Err: ErrNoDetectedLanguage})
	}
	if lang.Name == "" {
		lang.Name = languages.Name(lang.Code)
	}

	s.Phase = PhaseCaptured
	s.Loading = ""
	s.Transcript = ev.Capture.Transcript
	s.Detected = &lang
	return s
}

func captureFailed(s Session, ev CaptureFailed) Session {
	if ev.Gen != s.Generation || s.Phase != PhaseCapturing {
		return s
	}

	s.Phase = PhaseIdle
	s.Loading = ""
	s.Transcript = ""
	s.Detected = nil
	s.Err = ev.Err
	return s
}

func normalizeTargets(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		c = languages.Normalize(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func toggleTarget(s Session, ev ToggleTarget) Session {
	code := languages.Normalize(ev.Code)
	if code == "" {
		return s
	}
	for i, c := range s.Targets {
		if c == code {
			s.Targets = append(s.Targets[:i], s.Targets[i+1:]...)
			return s
		}
	}
	s.Targets = append(s.Targets, code)
	return s
}

func requestTranslate(s Session) (Session, Command) {
	switch {
	case s.Phase.Busy():
		s.Err = ErrBusy
		return s, nil
	case s.Detected == nil:
		s.Err = ErrNoDetectedLanguage
		return s, nil
	case s.Phase != PhaseCaptured:
		s.Err = ErrInvalidPhase
		return s, nil
	case len(s.Targets) == 0:
		s.Err = ErrEmptySelection
		return s, nil
	}

	s.Generation++
	s.Phase = PhaseTranslating
	s.Err = nil
	s.Loading = translatingLabel(len(s.Targets))

	s.Requested = append([]string(nil), s.Targets...)

	return s, TranslateCommand{
		Gen:            s.Generation,
		Text:           s.Transcript,
		SourceLanguage: s.Detected.Name,
		Targets:        append([]string(nil), s.Requested...),
	}
}

func translatingLabel(n int) string {
	if n == 1 {
		return "Translating to 1 language..."
	}
	return fmt.Sprintf("Translating to %d languages...", n)
}

func translateSucceeded(s Session, ev TranslateSucceeded) Session {
	if ev.Gen != s.Generation || s.Phase != PhaseTranslating {
		return s
	}

	// Codes the call did not ask for are ignored; requested codes missing from
	// the response simply have no tab. The selection may have changed since.
	items := make([]Translation, 0, len(ev.Results))
	seen := make(map[string]bool, len(ev.Results))
	for _, r := range ev.Results {
		code := languages.Normalize(r.Code)
		if !s.requested(code) || seen[code] || strings.TrimSpace(r.Text) == "" {
			continue
		}
		seen[code] = true
		items = append(items, Translation{
			LanguageName: languages.Name(code),
			LanguageCode: code,
			Text:         r.Text,
		})
	}

	s.Loading = ""
	if len(items) == 0 {
		s.Phase = PhaseCaptured
		s.Err = ErrNoTranslations
		return s
	}

	s.Phase = PhaseTranslated
	s.Translations = items
	s.ActiveTab = items[0].LanguageCode
	return s
}

func translateFailed(s Session, ev TranslateFailed) Session {
	if ev.Gen != s.Generation || s.Phase != PhaseTranslating {
		return s
	}

	s.Phase = PhaseCaptured
	s.Loading = ""
	s.Err = ev.Err
	return s
}

func saveTranscript(s Session, ev SaveTranscript) Session {
	switch {
	case s.Phase.Busy():
		s.Err = ErrBusy
		return s
	case s.Phase != PhaseCaptured && s.Phase != PhaseTranslated:
		s.Err = ErrInvalidPhase
		return s
	case strings.TrimSpace(ev.Text) == "":
		s.Err = ErrEmptyTranscript
		return s
	}

	s.Transcript = ev.Text
	s.Err = nil
	if s.Phase == PhaseTranslated {
		s.Generation++
		s.Translations = nil
		s.ActiveTab = ""
		s.Phase = PhaseCaptured
	}
	return s
}

func requestVoiceover(s Session, ev RequestVoiceover) (Session, Command) {
	if s.Phase != PhaseTranslated {
		s.Err = ErrInvalidPhase
		return s, nil
	}

	i := s.translationIndex(ev.Code)
	if i < 0 {
		s.Err = ErrUnknownTranslation
		return s, nil
	}
	if s.Translations[i].Generating {
		return s, nil
	}

	s.Translations[i].Generating = true
	s.Translations[i].Err = nil
	return s, SynthesizeCommand{Gen: s.Generation, Code: ev.Code, Text: s.Translations[i].Text}
}

func voiceoverSucceeded(s Session, ev VoiceoverSucceeded) Session {
	i := s.translationIndex(ev.Code)
	if ev.Gen != s.Generation || i < 0 {
		return s
	}

	audio := ev.Audio
	s.Translations[i].Audio = &audio
	s.Translations[i].Generating = false
	return s
}

func voiceoverFailed(s Session, ev VoiceoverFailed) Session {
	i := s.translationIndex(ev.Code)
	if ev.Gen != s.Generation || i < 0 {
		return s
	}

	s.Translations[i].Generating = false
	s.Translations[i].Err = ev.Err
	return s
}

func selectTab(s Session, code string) Session {
	if s.translationIndex(code) < 0 {
		s.Err = ErrUnknownTranslation
		return s
	}
	s.ActiveTab = code
	return s
}

func cycleTab(s Session, step int) Session {
	n := len(s.Translations)
	if n == 0 {
		return s
	}
	i := s.translationIndex(s.ActiveTab)
	if i < 0 {
		i = 0
	} else {
		i = ((i+step)%n + n) % n
	}
	s.ActiveTab = s.Translations[i].LanguageCode
	return s
}
