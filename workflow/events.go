package workflow

// Event is anything that can move a Session forward
type Event interface {
	event()
}

// User-initiated events
type (
	// SubmitText starts language detection for typed text
	SubmitText struct{ Text string }

	// SubmitAudio starts transcription of an uploaded file or a finished recording
	SubmitAudio struct{ Audio Audio }

	// SelectTargets replaces the language selection
	SelectTargets struct{ Codes []string }

	// ToggleTarget adds or removes one code from the selection
	ToggleTarget struct{ Code string }

	// RequestTranslate translates the transcript into the selection
	RequestTranslate struct{}

	// SaveTranscript replaces the transcript with an edited version
	SaveTranscript struct{ Text string }

	// RequestVoiceover synthesizes audio for one translation
	RequestVoiceover struct{ Code string }

	// SelectTab moves the active tab to a language code
	SelectTab struct{ Code string }

	// NextTab and PrevTab cycle through the translation tabs
	NextTab struct{}
	PrevTab struct{}

	// ItemFailed records a share/download failure against one translation
	ItemFailed struct {
		Code string
		Err  error
	}

	// DismissError clears the session-level error message
	DismissError struct{}

	// Reset abandons everything and returns to idle
	Reset struct{}
)

// Gateway results. Gen is the generation the originating command carried.
type (
	CaptureSucceeded struct {
		Gen     uint64
		Capture Capture
	}

	CaptureFailed struct {
		Gen uint64
		Err error
	}

	TranslateSucceeded struct {
		Gen     uint64
		Results []TranslatedText
	}

	TranslateFailed struct {
		Gen uint64
		Err error
	}

	VoiceoverSucceeded struct {
		Gen   uint64
		Code  string
		Audio Audio
	}

	VoiceoverFailed struct {
		Gen  uint64
		Code string
		Err  error
	}
)

func (SubmitText) event()         {}
func (SubmitAudio) event()        {}
func (SelectTargets) event()      {}
func (ToggleTarget) event()       {}
func (RequestTranslate) event()   {}
func (SaveTranscript) event()     {}
func (RequestVoiceover) event()   {}
func (SelectTab) event()          {}
func (NextTab) event()            {}
func (PrevTab) event()            {}
func (ItemFailed) event()         {}
func (DismissError) event()       {}
func (Reset) event()              {}
func (CaptureSucceeded) event()   {}
func (CaptureFailed) event()      {}
func (TranslateSucceeded) event() {}
func (TranslateFailed) event()    {}
func (VoiceoverSucceeded) event() {}
func (VoiceoverFailed) event()    {}

// Command describes one gateway call Reduce wants made
type Command interface {
	Generation() uint64
}

type (
	DetectCommand struct {
		Gen  uint64
		Text string
	}

	TranscribeCommand struct {
		Gen   uint64
		Audio Audio
	}

	TranslateCommand struct {
		Gen            uint64
		Text           string
		SourceLanguage string
		Targets        []string
	}

	SynthesizeCommand struct {
		Gen  uint64
		Code string
		Text string
	}
)

func (c DetectCommand) Generation() uint64     { return c.Gen }
func (c TranscribeCommand) Generation() uint64 { return c.Gen }
func (c TranslateCommand) Generation() uint64  { return c.Gen }
func (c SynthesizeCommand) Generation() uint64 { return c.Gen }
