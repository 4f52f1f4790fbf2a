package workflow

import "context"

// Language is a detected source language
type Language struct {
	Name string `json:"languageName"`
	Code string `json:"languageCode"`
}

// Capture is what detect and transcribe both produce
type Capture struct {
	Transcript string
	Language   Language
}

// TranslatedText is one entry of a translate response, in response order
type TranslatedText struct {
	Code string
	Text string
}

// Audio is an opaque playable audio payload
type Audio struct {
	Data     []byte
	MIMEType string
}

// Gateway is the remote AI service. Every call is one-shot request/response
// without built-in retry.
type Gateway interface {
	// DetectLanguage names the language text is written in
	DetectLanguage(ctx context.Context, text string) (Language, error)

	// Transcribe turns recorded speech into text and names its language
	Transcribe(ctx context.Context, audio Audio) (Capture, error)

	// Translate renders text into every target code with a single call.
	// Entries come back in response order; codes may be missing.
	Translate(ctx context.Context, text, sourceLanguage string, targets []string) ([]TranslatedText, error)

	// SynthesizeVoice reads text aloud
	SynthesizeVoice(ctx context.Context, text string) (Audio, error)
}
