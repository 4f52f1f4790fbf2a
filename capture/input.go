// Package capture turns user input (typed text, an audio file or a live
// microphone recording) into the payload submitted to the workflow.
package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"voicebridge/workflow"
)

// MaxFileSize is the largest input file accepted (inline request limit)
const MaxFileSize = 20 * 1024 * 1024

var (
	ErrEmptyInput       = errors.New("nothing to submit")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrFileTooLarge     = errors.New("file too large")
	ErrAmbiguousPayload = errors.New("input has both text and audio")
)

// Input is a normalized capture payload: exactly one of Text or Audio is set
type Input struct {
	Text  string
	Audio *workflow.Audio
}

// Event converts the input into the workflow event that submits it
func (in Input) Event() (workflow.Event, error) {
	hasText := strings.TrimSpace(in.Text) != ""
	hasAudio := in.Audio != nil && len(in.Audio.Data) > 0
	switch {
	case hasText && hasAudio:
		return nil, ErrAmbiguousPayload
	case hasText:
		return workflow.SubmitText{Text: in.Text}, nil
	case hasAudio:
		return workflow.SubmitAudio{Audio: *in.Audio}, nil
	default:
		return nil, ErrEmptyInput
	}
}

// IsAudio reports whether the input carries audio
func (in Input) IsAudio() bool {
	return in.Audio != nil
}

// FromText wraps typed text
func FromText(text string) Input {
	return Input{Text: text}
}

// FromAudio wraps already-loaded audio
func FromAudio(audio workflow.Audio) Input {
	return Input{Audio: &audio}
}

// FromFile loads an audio or plain text file. The type is chosen by extension.
func FromFile(path string) (Input, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Input{}, ErrEmptyInput
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType := audioMIMEType(ext)
	isText := ext == ".txt" || ext == ".md"
	if mimeType == "" && !isText {
		return Input{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return Input{}, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return Input{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return Input{}, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrFileTooLarge, filepath.Base(path), info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return Input{}, fmt.Errorf("%w: %s is empty", ErrEmptyInput, filepath.Base(path))
	}

	if isText {
		if !utf8.Valid(data) {
			return Input{}, fmt.Errorf("%s is not valid UTF-8 text", filepath.Base(path))
		}
		return FromText(string(data)), nil
	}
	return FromAudio(workflow.Audio{Data: data, MIMEType: mimeType}), nil
}

// FromRecording stops r and wraps what it captured
func FromRecording(r Recorder) (Input, error) {
	audio, err := r.Stop()
	if err != nil {
		return Input{}, err
	}
	return FromAudio(audio), nil
}

// audioMIMEType returns the MIME type for supported audio extensions
func audioMIMEType(ext string) string {
	switch ext {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mp3"
	case ".aiff", ".aif":
		return "audio/aiff"
	case ".aac":
		return "audio/aac"
	case ".m4a":
		return "audio/mp4"
	case ".ogg", ".oga", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	default:
		return ""
	}
}

// AudioExtensions lists the accepted audio file extensions
func AudioExtensions() []string {
	return []string{".wav", ".mp3", ".aiff", ".aif", ".aac", ".m4a", ".ogg", ".oga", ".opus", ".flac", ".webm"}
}
