// Package workflowtest provides a deterministic in-memory Gateway for tests.
package workflowtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"voicebridge/workflow"
)

// ErrNotConfigured is returned when a call has no scripted answer
var ErrNotConfigured = errors.New("workflowtest: no scripted response")

// Call records one gateway invocation
type Call struct {
	Op      string
	Text    string
	Source  string
	Targets []string
}

// Gateway answers from scripted fields and records every call.
// Block, when set, holds calls for that operation until the channel is closed.
type Gateway struct {
	mu    sync.Mutex
	calls []Call

	Language      workflow.Language
	DetectErr     error
	Capture       workflow.Capture
	TranscribeErr error

	// Translations is returned as-is, in order, for every translate call
	Translations []workflow.TranslatedText
	TranslateErr error

	// Voices maps translated text to audio; a missing entry falls back to Voice
	Voices   map[string]workflow.Audio
	Voice    workflow.Audio
	VoiceErr map[string]error

	Block map[string]chan struct{}
}

// NewGateway returns a gateway with sensible defaults for a Spanish source
func NewGateway() *Gateway {
	return &Gateway{
		Language: workflow.Language{Name: "Spanish", Code: "es"},
		Voice:    workflow.Audio{Data: []byte("RIFF....WAVE"), MIMEType: "audio/wav"},
		Block:    make(map[string]chan struct{}),
	}
}

// Calls returns a copy of the recorded calls
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallCount counts calls for one operation
func (g *Gateway) CallCount(op string) int {
	n := 0
	for _, c := range g.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (g *Gateway) record(ctx context.Context, c Call) error {
	g.mu.Lock()
	g.calls = append(g.calls, c)
	block := g.Block[c.Op]
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (g *Gateway) DetectLanguage(ctx context.Context, text string) (workflow.Language, error) {
	if err := g.record(ctx, Call{Op: "detect", Text: text}); err != nil {
		return workflow.Language{}, err
	}
	if strings.TrimSpace(text) == "" {
		return workflow.Language{}, errors.New("empty text")
	}
	if g.DetectErr != nil {
		return workflow.Language{}, g.DetectErr
	}
	return g.Language, nil
}

func (g *Gateway) Transcribe(ctx context.Context, audio workflow.Audio) (workflow.Capture, error) {
	if err := g.record(ctx, Call{Op: "transcribe", Source: audio.MIMEType}); err != nil {
		return workflow.Capture{}, err
	}
	if g.TranscribeErr != nil {
		return workflow.Capture{}, g.TranscribeErr
	}
	if g.Capture.Transcript == "" {
		return workflow.Capture{}, ErrNotConfigured
	}
	return g.Capture, nil
}

func (g *Gateway) Translate(ctx context.Context, text, source string, targets []string) ([]workflow.TranslatedText, error) {
	if err := g.record(ctx, Call{Op: "translate", Text: text, Source: source, Targets: append([]string(nil), targets...)}); err != nil {
		return nil, err
	}
	if g.TranslateErr != nil {
		return nil, g.TranslateErr
	}
	return append([]workflow.TranslatedText(nil), g.Translations...), nil
}

func (g *Gateway) SynthesizeVoice(ctx context.Context, text string) (workflow.Audio, error) {
	if err := g.record(ctx, Call{Op: "synthesize", Text: text}); err != nil {
		return workflow.Audio{}, err
	}
	if err, ok := g.VoiceErr[text]; ok {
		return workflow.Audio{}, err
	}
	if a, ok := g.Voices[text]; ok {
		return a, nil
	}
	return g.Voice, nil
}

// Hold makes calls for op block until Release is called
func (g *Gateway) Hold(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Block[op] = make(chan struct{})
}

// Release unblocks calls held for op
func (g *Gateway) Release(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.Block[op]; ok {
		close(ch)
		delete(g.Block, op)
	}
}
