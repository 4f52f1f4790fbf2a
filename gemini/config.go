package gemini

import (
	"fmt"
	"os"
)

// Config is the gateway configuration read from the environment
type Config struct {
	APIKey   string
	Model    string
	TTSModel string
	Voice    string
	BaseURL  string
}

// LoadConfig reads GEMINI_API_KEY (or GOOGLE_API_KEY), GEMINI_MODEL,
// GEMINI_TTS_MODEL, GEMINI_VOICE and GEMINI_BASE_URL. A missing key is an error.
func LoadConfig() (Config, error) {
	if err := CheckConfig(); err != nil {
		return Config{}, err
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	cfg := Config{
		APIKey:   apiKey,
		Model:    os.Getenv("GEMINI_MODEL"),
		TTSModel: os.Getenv("GEMINI_TTS_MODEL"),
		Voice:    os.Getenv("GEMINI_VOICE"),
		BaseURL:  os.Getenv("GEMINI_BASE_URL"),
	}
	if cfg.Model == "" {
		cfg.Model = ModelGemini25Flash
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = ModelGemini25FlashTTS
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return cfg, nil
}

// CheckConfig verifies the Gemini configuration is set up
func CheckConfig() error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY or GOOGLE_API_KEY environment variable not set")
	}
	return nil
}

// GetAPIKeyHelp returns help text for setting up the API key
func GetAPIKeyHelp() string {
	return `voicebridge needs a Google Gemini API key for detection, transcription,
translation and voiceovers.

1. Go to https://aistudio.google.com/apikey
2. Sign in with your Google account
3. Click "Create API key"
4. Set the environment variable:

   export GEMINI_API_KEY="your-api-key"

Or create a .env file with:
   GEMINI_API_KEY=your-api-key

Optional:
  GEMINI_MODEL      - text/audio model (default: gemini-2.5-flash)
  GEMINI_TTS_MODEL  - speech model (default: gemini-2.5-flash-preview-tts)
  GEMINI_VOICE      - prebuilt voice name (default: Kore)`
}
