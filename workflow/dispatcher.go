package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultCallTimeout bounds a single gateway call
const DefaultCallTimeout = 2 * time.Minute

// Dispatcher executes Commands against a Gateway and turns the outcome into the
// Event Reduce expects. Gateway errors never escape; they become failure events.
type Dispatcher struct {
	gateway Gateway
	logger  *zap.Logger
	timeout time.Duration
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for call tracing
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithCallTimeout overrides DefaultCallTimeout; zero disables the timeout
func WithCallTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// NewDispatcher creates a dispatcher for gateway
func NewDispatcher(gateway Gateway, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		gateway: gateway,
		logger:  zap.NewNop(),
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run performs cmd and returns the resulting event
func (d *Dispatcher) Run(ctx context.Context, cmd Command) Event {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	ev := d.run(ctx, cmd)
	d.logger.Debug("gateway call finished",
		zap.String("command", fmt.Sprintf("%T", cmd)),
		zap.Uint64("generation", cmd.Generation()),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("result", fmt.Sprintf("%T", ev)),
	)
	return ev
}

func (d *Dispatcher) run(ctx context.Context, cmd Command) Event {
	switch c := cmd.(type) {
	case DetectCommand:
		lang, err := d.gateway.DetectLanguage(ctx, c.Text)
		if err != nil {
			return CaptureFailed{Gen: c.Gen, Err: fmt.Errorf("language detection failed: %w", err)}
		}
		return CaptureSucceeded{Gen: c.Gen, Capture: Capture{Transcript: c.Text, Language: lang}}

	case TranscribeCommand:
		capture, err := d.gateway.Transcribe(ctx, c.Audio)
		if err != nil {
			return CaptureFailed{Gen: c.Gen, Err: fmt.Errorf("transcription failed: %w", err)}
		}
		return CaptureSucceeded{Gen: c.Gen, Capture: capture}

	case TranslateCommand:
		results, err := d.gateway.Translate(ctx, c.Text, c.SourceLanguage, c.Targets)
		if err != nil {
			return TranslateFailed{Gen: c.Gen, Err: fmt.Errorf("translation failed: %w", err)}
		}
		return TranslateSucceeded{Gen: c.Gen, Results: results}

	case SynthesizeCommand:
		audio, err := d.gateway.SynthesizeVoice(ctx, c.Text)
		if err != nil {
			return VoiceoverFailed{Gen: c.Gen, Code: c.Code, Err: fmt.Errorf("voiceover failed: %w", err)}
		}
		if len(audio.Data) == 0 {
			return VoiceoverFailed{Gen: c.Gen, Code: c.Code, Err: fmt.Errorf("voiceover failed: no audio returned")}
		}
		return VoiceoverSucceeded{Gen: c.Gen, Code: c.Code, Audio: audio}
	}

	panic(fmt.Sprintf("workflow: unknown command %T", cmd))
}
