// Package share exports translation results: voiceovers to disk and text to the clipboard.
package share

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"

	"voicebridge/workflow"
)

var (
	ErrNoAudio              = errors.New("no voiceover generated yet")
	ErrNothingToShare       = errors.New("translation is empty")
	ErrClipboardUnavailable = errors.New("clipboard is not available on this system")
	ErrFileExists           = errors.New("file exists")
)

// writeClipboard is swapped out in tests
var writeClipboard = clipboard.WriteAll

// Options configures Download
type Options struct {
	// Dir is the directory to write files to
	Dir string

	// Overwrite allows replacing an existing file
	Overwrite bool
}

// Result describes a written file
type Result struct {
	Path string
	Size int64
}

// HumanSize formats Size like "48 kB"
func (r *Result) HumanSize() string {
	return humanize.Bytes(uint64(r.Size))
}

// Download writes the translation's voiceover as <code>_<language>.<ext>
func Download(t workflow.Translation, opts Options) (*Result, error) {
	if t.Audio == nil || len(t.Audio.Data) == 0 {
		return nil, ErrNoAudio
	}

	if opts.Dir == "" {
		opts.Dir = "."
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(opts.Dir, Filename(t))
	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
		}
	}

	if err := os.WriteFile(path, t.Audio.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return &Result{Path: path, Size: int64(len(t.Audio.Data))}, nil
}

// Filename is the download name for a translation's voiceover
func Filename(t workflow.Translation) string {
	ext := ".wav"
	if t.Audio != nil {
		ext = extension(t.Audio.MIMEType)
	}
	code := sanitizeFilename(t.LanguageCode, "xx")
	return code + "_" + sanitizeFilename(t.LanguageName, "voiceover") + ext
}

// Share copies the translated text to the system clipboard
func Share(t workflow.Translation) error {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return ErrNothingToShare
	}
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// sanitizeFilename creates a safe, lowercase filename fragment
func sanitizeFilename(name, fallback string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
		"(", "_",
		")", "_",
		",", "_",
	)
	result := strings.ToLower(replacer.Replace(name))

	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	result = strings.Trim(result, "_.")

	if len(result) > 50 {
		result = strings.TrimRight(result[:50], "_")
	}
	if result == "" {
		result = fallback
	}
	return result
}

func extension(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}
