// Package languages holds the catalogue of translation targets offered to the user.
package languages

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a target language offered for translation
type Language struct {
	Code string // ISO 639-1
	Name string // English display name
}

// supportedCodes lists the ISO 639-1 codes offered as translation targets
var supportedCodes = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "sv", "pl", "uk",
	"ru", "el", "tr", "ar", "hi", "zh", "ja", "ko", "vi", "id",
}

var namer = display.English.Languages()

// All returns the supported languages sorted by display name
func All() []Language {
	out := make([]Language, 0, len(supportedCodes))
	for _, code := range supportedCodes {
		out = append(out, Language{Code: code, Name: Name(code)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Normalize lowercases and trims a language code, reducing tags like "pt-BR" to their base
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// Valid reports whether code is one of the supported targets
func Valid(code string) bool {
	code = Normalize(code)
	for _, c := range supportedCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Name returns the English display name for an ISO 639-1 code.
// Unknown codes are returned unchanged so callers always have something to show.
func Name(code string) string {
	norm := Normalize(code)
	if norm == "" {
		return code
	}
	tag, err := language.Parse(norm)
	if err != nil {
		return code
	}
	if name := namer.Name(tag); name != "" {
		return name
	}
	return code
}

// Codes returns the supported codes in catalogue order
func Codes() []string {
	out := make([]string, len(supportedCodes))
	copy(out, supportedCodes)
	return out
}
