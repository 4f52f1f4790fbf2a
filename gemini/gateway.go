package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"

	"voicebridge/languages"
	"voicebridge/wav"
	"voicebridge/workflow"
)

var (
	// ErrNoSpeech is returned when a recording contains nothing to transcribe
	ErrNoSpeech = errors.New("no speech detected in audio")
	// ErrNoAudio is returned when the speech model answers without an audio part
	ErrNoAudio = errors.New("no audio in speech response")
)

var _ workflow.Gateway = (*Client)(nil)

const detectPrompt = `Identify the language of the text below.
Respond with JSON only, in the form {"languageName": "<English name>", "languageCode": "<ISO 639-1 code>"}.

Text:
%s`

const transcribePrompt = `Transcribe the speech in this audio recording exactly as spoken, in the original language. Do not translate.
Respond with JSON only, in the form {"transcript": "<text>", "languageName": "<English name>", "languageCode": "<ISO 639-1 code>"}.
If there is no intelligible speech, return an empty transcript.`

const translatePrompt = `Translate the text below from %s into each of these languages: %s.
Respond with a single JSON object whose keys are exactly these ISO 639-1 codes: %s.
Each value is the translated text. Keep the meaning, tone and formatting. Do not add commentary.

Text:
%s`

// DetectLanguage identifies the language of text
func (c *Client) DetectLanguage(ctx context.Context, text string) (workflow.Language, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return workflow.Language{}, workflow.ErrEmptyText
	}

	req := &GenerateContentRequest{
		Contents: []*Content{{
			Role:  "user",
			Parts: []*Part{{Text: fmt.Sprintf(detectPrompt, text)}},
		}},
		GenerationConfig: &GenerationConfig{
			Temperature:      floatPtr(0),
			ResponseMimeType: "application/json",
		},
	}

	resp, err := c.generateContent(ctx, OpDetect, c.model, req)
	if err != nil {
		return workflow.Language{}, err
	}
	out, err := responseText(resp)
	if err != nil {
		return workflow.Language{}, err
	}

	var lang workflow.Language
	if err := unmarshalJSON(out, &lang); err != nil {
		return workflow.Language{}, fmt.Errorf("failed to parse detection result: %w", err)
	}
	return completeLanguage(lang)
}

// Transcribe turns recorded speech into text and reports its language
func (c *Client) Transcribe(ctx context.Context, audio workflow.Audio) (workflow.Capture, error) {
	if len(audio.Data) == 0 {
		return workflow.Capture{}, workflow.ErrEmptyAudio
	}
	if len(audio.Data) > MaxInlineAudioSize {
		return workflow.Capture{}, fmt.Errorf("audio too large for inline upload: %d bytes (max %d)", len(audio.Data), MaxInlineAudioSize)
	}

	req := &GenerateContentRequest{
		Contents: []*Content{{
			Role: "user",
			Parts: []*Part{
				{Text: transcribePrompt},
				{InlineData: &InlineData{
					MIMEType: audioMIMEType(audio.MIMEType),
					Data:     base64.StdEncoding.EncodeToString(audio.Data),
				}},
			},
		}},
		GenerationConfig: &GenerationConfig{
			Temperature:      floatPtr(0),
			ResponseMimeType: "application/json",
		},
	}

	resp, err := c.generateContent(ctx, OpTranscribe, c.model, req)
	if err != nil {
		return workflow.Capture{}, err
	}
	out, err := responseText(resp)
	if err != nil {
		return workflow.Capture{}, err
	}

	var result struct {
		Transcript string `json:"transcript"`
		workflow.Language
	}
	if err := unmarshalJSON(out, &result); err != nil {
		return workflow.Capture{}, fmt.Errorf("failed to parse transcription result: %w", err)
	}

	transcript := strings.TrimSpace(result.Transcript)
	if transcript == "" {
		return workflow.Capture{}, ErrNoSpeech
	}
	lang, err := completeLanguage(result.Language)
	if err != nil {
		return workflow.Capture{}, err
	}
	return workflow.Capture{Transcript: transcript, Language: lang}, nil
}

// Translate renders text into every target language in a single request.
// Results keep the order of the model's JSON object; codes it left out are absent.
func (c *Client) Translate(ctx context.Context, text, sourceLanguage string, targets []string) ([]workflow.TranslatedText, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, workflow.ErrEmptyTranscript
	}
	if len(targets) == 0 {
		return nil, workflow.ErrEmptySelection
	}

	names := make([]string, len(targets))
	for i, code := range targets {
		names[i] = fmt.Sprintf("%s (%s)", languages.Name(code), code)
	}
	if sourceLanguage == "" {
		sourceLanguage = "the source language"
	}

	req := &GenerateContentRequest{
		Contents: []*Content{{
			Role: "user",
			Parts: []*Part{{Text: fmt.Sprintf(translatePrompt,
				sourceLanguage, strings.Join(names, ", "), strings.Join(targets, ", "), text)}},
		}},
		GenerationConfig: &GenerationConfig{
			Temperature:      floatPtr(0.2),
			ResponseMimeType: "application/json",
		},
	}

	resp, err := c.generateContent(ctx, OpTranslate, c.model, req)
	if err != nil {
		return nil, err
	}
	out, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return parseTranslations(out)
}

// SynthesizeVoice speaks text with the configured prebuilt voice and returns WAV audio
func (c *Client) SynthesizeVoice(ctx context.Context, text string) (workflow.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return workflow.Audio{}, workflow.ErrEmptyText
	}

	req := &GenerateContentRequest{
		Contents: []*Content{{
			Role:  "user",
			Parts: []*Part{{Text: text}},
		}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: &VoiceConfig{
					PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: c.voice},
				},
			},
		},
	}

	resp, err := c.generateContent(ctx, OpSynthesize, c.ttsModel, req)
	if err != nil {
		return workflow.Audio{}, err
	}
	parts, err := firstCandidate(resp)
	if err != nil {
		return workflow.Audio{}, err
	}

	for _, p := range parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return workflow.Audio{}, fmt.Errorf("failed to decode audio: %w", err)
		}
		return toPlayable(data, p.InlineData.MIMEType)
	}
	return workflow.Audio{}, ErrNoAudio
}

// toPlayable wraps raw PCM in a WAV container; other formats pass through
func toPlayable(data []byte, mimeType string) (workflow.Audio, error) {
	if len(data) == 0 {
		return workflow.Audio{}, ErrNoAudio
	}
	if format, ok := wav.ParsePCMMIME(mimeType); ok {
		encoded, err := wav.Encode(data, format)
		if err != nil {
			return workflow.Audio{}, err
		}
		return workflow.Audio{Data: encoded, MIMEType: "audio/wav"}, nil
	}
	if wav.IsWAV(data) {
		return workflow.Audio{Data: data, MIMEType: "audio/wav"}, nil
	}
	return workflow.Audio{Data: data, MIMEType: mimeType}, nil
}

// parseTranslations reads a {"code": "text"} object keeping key order.
// Non-string values and blank texts are skipped.
func parseTranslations(text string) ([]workflow.TranslatedText, error) {
	text = cleanJSON(text)
	if !gjson.Valid(text) {
		fixed, err := jsonrepair.JSONRepair(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse translation result: %w", err)
		}
		text = fixed
	}

	root := gjson.Parse(text)
	if nested := root.Get("translations"); nested.IsObject() {
		root = nested
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("failed to parse translation result: expected a JSON object")
	}

	var out []workflow.TranslatedText
	root.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			return true
		}
		code := languages.Normalize(key.String())
		body := strings.TrimSpace(value.String())
		if code == "" || body == "" {
			return true
		}
		out = append(out, workflow.TranslatedText{Code: code, Text: body})
		return true
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("translation result contained no translations")
	}
	return out, nil
}

// unmarshalJSON decodes model output, repairing malformed JSON when needed
func unmarshalJSON(text string, v any) error {
	data := []byte(cleanJSON(text))
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

// completeLanguage normalizes the code and fills in a missing name
func completeLanguage(lang workflow.Language) (workflow.Language, error) {
	lang.Code = languages.Normalize(lang.Code)
	lang.Name = strings.TrimSpace(lang.Name)
	if lang.Code == "" {
		return workflow.Language{}, fmt.Errorf("model did not report a language code")
	}
	if lang.Name == "" {
		lang.Name = languages.Name(lang.Code)
	}
	return lang, nil
}

// audioMIMEType strips codec parameters and defaults to WAV
func audioMIMEType(mimeType string) string {
	if mimeType == "" {
		return "audio/wav"
	}
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return mimeType
	}
	return base
}
