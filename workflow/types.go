// Package workflow holds the capture -> translate -> voiceover session state machine.
//
// Reduce is a pure transition function over Session values. Gateway calls are
// described by the Command it returns and executed separately by a Dispatcher,
// whose result events are fed back through Reduce. Every command is tagged with
// the session generation it was issued under so late results for a reset or
// edited session are dropped instead of applied.
package workflow

import "errors"

// Phase is the workflow's current named state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCapturing
	PhaseCaptured
	PhaseTranslating
	PhaseTranslated
)

// String returns a human-readable phase name
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCapturing:
		return "capturing"
	case PhaseCaptured:
		return "captured"
	case PhaseTranslating:
		return "translating"
	case PhaseTranslated:
		return "translated"
	default:
		return "unknown"
	}
}

// Busy reports whether a capture or translate call is in flight
func (p Phase) Busy() bool {
	return p == PhaseCapturing || p == PhaseTranslating
}

// Validation errors. They never reach the gateway and never change the phase.
var (
	ErrEmptyText          = errors.New("please enter some text first")
	ErrEmptyAudio         = errors.New("no audio was captured")
	ErrEmptyTranscript    = errors.New("transcript cannot be empty")
	ErrEmptySelection     = errors.New("select at least one target language")
	ErrNoDetectedLanguage = errors.New("source language has not been detected")
	ErrBusy               = errors.New("another request is still running")
	ErrInvalidPhase       = errors.New("action not available right now")
	ErrUnknownTranslation = errors.New("no translation for that language")
)

// ErrNoTranslations is raised when the gateway answered but none of the requested codes came back
var ErrNoTranslations = errors.New("the translation service returned no usable translations")

// Translation is one translated rendering of the transcript
type Translation struct {
	LanguageName string
	LanguageCode string
	Text         string

	// Audio is set once a voiceover has been generated
	Audio *Audio

	// Generating is true while a voiceover call is in flight for this item
	Generating bool

	// Err holds the last voiceover/share/download failure for this item only
	Err error
}

// Session is the single source of truth for one user interaction
type Session struct {
	ID string

	Phase   Phase
	Err     error
	Loading string

	Transcript string
	Detected   *Language

	// Targets is the language selection for the next translate call
	Targets []string
	// Requested is the target list of the translate call in flight or last made
	Requested []string

	Translations []Translation
	ActiveTab    string

	// Generation increments whenever pending results must be abandoned
	Generation uint64
}

// NewSession returns an idle session
func NewSession(id string) Session {
	return Session{ID: id}
}

// Translation returns the item for a language code
func (s Session) Translation(code string) (Translation, bool) {
	if i := s.translationIndex(code); i >= 0 {
		return s.Translations[i], true
	}
	return Translation{}, false
}

// Active returns the translation the active tab points at
func (s Session) Active() (Translation, bool) {
	if s.ActiveTab == "" {
		return Translation{}, false
	}
	return s.Translation(s.ActiveTab)
}

// HasTarget reports whether code is part of the selection
func (s Session) HasTarget(code string) bool {
	for _, c := range s.Targets {
		if c == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to other goroutines
func (s Session) Clone() Session {
	out := s
	if s.Detected != nil {
		lang := *s.Detected
		out.Detected = &lang
	}
	if s.Targets != nil {
		out.Targets = append([]string(nil), s.Targets...)
	}
	if s.Requested != nil {
		out.Requested = append([]string(nil), s.Requested...)
	}
	if s.Translations != nil {
		out.Translations = make([]Translation, len(s.Translations))
		copy(out.Translations, s.Translations)
	}
	return out
}

func (s Session) requested(code string) bool {
	for _, c := range s.Requested {
		if c == code {
			return true
		}
	}
	return false
}

func (s Session) translationIndex(code string) int {
	for i, t := range s.Translations {
		if t.LanguageCode == code {
			return i
		}
	}
	return -1
}
