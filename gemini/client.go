package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// BaseURL is the Google AI Studio API base URL
	BaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout for API requests
	DefaultTimeout = 2 * time.Minute

	// MaxInlineAudioSize is the largest audio payload sent inline (20MB request limit)
	MaxInlineAudioSize = 20 * 1024 * 1024
)

// Client is the Google Gemini API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	model      string
	ttsModel   string
	voice      string
	logger     *zap.Logger

	observerMu sync.RWMutex
	observer   Observer
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		if parsed.Host == "" {
			return
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithModel sets the model used for detect, transcribe and translate
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTTSModel sets the speech generation model
func WithTTSModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.ttsModel = model
		}
	}
}

// WithVoice sets the prebuilt voice used for speech
func WithVoice(voice string) ClientOption {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithLogger enables request logging at debug level
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a callback for every finished API call
func WithObserver(fn Observer) ClientOption {
	return func(c *Client) {
		c.observer = fn
	}
}

// NewClient creates a new Google Gemini API client
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		model:    ModelGemini25Flash,
		ttsModel: ModelGemini25FlashTTS,
		voice:    DefaultVoice,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NewClientFromEnv creates a client from GEMINI_* environment variables
func NewClientFromEnv(opts ...ClientOption) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(cfg, opts...)
}

// NewClientFromConfig creates a client from a loaded Config; opts are applied last
func NewClientFromConfig(cfg Config, opts ...ClientOption) (*Client, error) {
	base := []ClientOption{
		WithModel(cfg.Model),
		WithTTSModel(cfg.TTSModel),
		WithVoice(cfg.Voice),
	}
	if cfg.BaseURL != "" {
		base = append(base, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(cfg.APIKey, append(base, opts...)...)
}

// Observe replaces the call observer. Safe to call while requests are running.
func (c *Client) Observe(fn Observer) {
	c.observerMu.Lock()
	defer c.observerMu.Unlock()
	c.observer = fn
}

func (c *Client) notify(info CallInfo) {
	c.observerMu.RLock()
	fn := c.observer
	c.observerMu.RUnlock()
	if fn != nil {
		fn(info)
	}
}

// generateContent makes an API call to generate content
func (c *Client) generateContent(ctx context.Context, op, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	apiURL := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	info := CallInfo{
		Operation:    op,
		Model:        model,
		Endpoint:     apiURL,
		RequestBytes: len(body),
	}
	start := time.Now()
	defer func() {
		info.Latency = time.Since(start)
		c.notify(info)
	}()

	// Don't log the body as it can contain large base64 audio
	c.logger.Debug("gemini request",
		zap.String("op", op),
		zap.String("url", apiURL),
		zap.Int("bytes", len(body)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		info.Err = err
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		info.Err = err
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	info.StatusCode = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		info.Err = err
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("gemini response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error.Message == "" {
			info.Err = fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
			return nil, info.Err
		}
		info.Err = &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErr.Error.Message,
			Details:    apiErr.Error.Status,
		}
		return nil, info.Err
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		info.Err = err
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.UsageMetadata != nil {
		info.TokensTotal = result.UsageMetadata.TotalTokenCount
	}

	return &result, nil
}

// firstCandidate returns the first candidate's parts or a descriptive error
func firstCandidate(resp *GenerateContentResponse) ([]*Part, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("request blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			return nil, fmt.Errorf("no content in response (finish reason %s)", candidate.FinishReason)
		}
		return nil, fmt.Errorf("no content in response")
	}
	return candidate.Content.Parts, nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *GenerateContentResponse) (string, error) {
	parts, err := firstCandidate(resp)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("empty text in response")
	}
	return text, nil
}

// cleanJSON removes markdown code fences models like to wrap JSON in
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Helper function to create float pointer
func floatPtr(f float64) *float64 {
	return &f
}
