// Package gemini implements the voicebridge AI gateway on top of the Google Gemini
// generateContent REST API: language detection, speech transcription, bulk
// translation and text-to-speech.
package gemini

import (
	"time"
)

// Model constants for Gemini models
const (
	// ModelGemini25Flash is the fast, efficient model for text and audio understanding
	ModelGemini25Flash = "gemini-2.5-flash"
	// ModelGemini25Pro is Gemini 2.5 Pro for harder transcription jobs
	ModelGemini25Pro = "gemini-2.5-pro"
	// ModelGemini20Flash is the previous generation fast model
	ModelGemini20Flash = "gemini-2.0-flash"
	// ModelGemini25FlashTTS generates speech from text
	ModelGemini25FlashTTS = "gemini-2.5-flash-preview-tts"
	// ModelGemini25ProTTS is the higher quality speech model
	ModelGemini25ProTTS = "gemini-2.5-pro-preview-tts"
)

// DefaultVoice is the prebuilt voice used for voiceovers
const DefaultVoice = "Kore"

// Operation names reported to observers
const (
	OpDetect     = "detect"
	OpTranscribe = "transcribe"
	OpTranslate  = "translate"
	OpSynthesize = "synthesize"
)

// APIError represents an error from the Gemini API
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// GenerateContentRequest is the request structure for the Gemini API
type GenerateContentRequest struct {
	Contents          []*Content        `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []*SafetySetting  `json:"safetySettings,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
}

// Content represents a content block in the API
type Content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*Part `json:"parts"`
}

// Part represents a part of content (text or inline data)
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData represents binary data (audio) inline
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // Base64 encoded
}

// GenerationConfig contains generation parameters
type GenerationConfig struct {
	Temperature        *float64      `json:"temperature,omitempty"`
	TopP               *float64      `json:"topP,omitempty"`
	TopK               *int          `json:"topK,omitempty"`
	MaxOutputTokens    *int          `json:"maxOutputTokens,omitempty"`
	StopSequences      []string      `json:"stopSequences,omitempty"`
	ResponseMimeType   string        `json:"responseMimeType,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the voice for audio responses
type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

// VoiceConfig wraps the prebuilt voice choice
type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// PrebuiltVoiceConfig names one of the built-in voices
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// SafetySetting configures content safety filters
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerateContentResponse is the response from the Gemini API
type GenerateContentResponse struct {
	Candidates     []*Candidate    `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// PromptFeedback is set when the prompt itself was blocked
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// Candidate represents a generated response candidate
type Candidate struct {
	Content       *Content        `json:"content"`
	FinishReason  string          `json:"finishReason"`
	SafetyRatings []*SafetyRating `json:"safetyRatings,omitempty"`
}

// SafetyRating represents a content safety rating
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

// UsageMetadata contains token usage information
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// CallInfo describes one finished API call for transparency feeds.
// It never contains the API key or the payload itself.
type CallInfo struct {
	// Operation is one of the Op* constants
	Operation string

	// Model is the model name used
	Model string

	// Endpoint URL (sanitized, no API keys)
	Endpoint string

	// RequestBytes is the size of the JSON request body
	RequestBytes int

	// StatusCode HTTP status code, 0 when the request never completed
	StatusCode int

	// Latency time taken for the request
	Latency time.Duration

	// TokensTotal consumed
	TokensTotal int

	// Err is set when the call failed
	Err error
}

// Observer receives a CallInfo after every API call
type Observer func(CallInfo)
