// Package playback plays generated voiceovers through an external audio player.
package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicebridge/workflow"
)

var (
	ErrNoPlayerAvailable = errors.New("no audio player available")
	ErrNoAudio           = errors.New("nothing to play")
)

// Player plays one clip at a time
type Player interface {
	// Play blocks until the clip ends or Stop is called. Starting a clip stops the previous one.
	Play(ctx context.Context, audio workflow.Audio) error
	Stop() error
	Playing() bool
}

// Command is an external player invocation
type Command struct {
	Name string
	// Args builds the command line for playing file
	Args func(file string) []string
}

// FFplay plays through ffplay without opening a window
func FFplay() Command {
	return Command{Name: "ffplay", Args: func(file string) []string {
		return []string{"-nodisp", "-autoexit", "-hide_banner", "-loglevel", "error", file}
	}}
}

// Paplay plays through PulseAudio/PipeWire
func Paplay() Command {
	return Command{Name: "paplay", Args: func(file string) []string { return []string{file} }}
}

// Aplay plays through ALSA
func Aplay() Command {
	return Command{Name: "aplay", Args: func(file string) []string { return []string{"-q", file} }}
}

// Afplay is the macOS player
func Afplay() Command {
	return Command{Name: "afplay", Args: func(file string) []string { return []string{file} }}
}

// DefaultCommands returns the players tried on goos, in order
func DefaultCommands(goos string) []Command {
	switch goos {
	case "darwin":
		return []Command{Afplay(), FFplay()}
	case "linux":
		return []Command{FFplay(), Paplay(), Aplay()}
	default:
		return []Command{FFplay()}
	}
}

// ExecPlayer plays audio by writing it to a temp file and running the first available command
type ExecPlayer struct {
	commands []Command
	dir      string
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// PlayerOption configures an ExecPlayer
type PlayerOption func(*ExecPlayer)

// WithCommands replaces the platform default players
func WithCommands(commands ...Command) PlayerOption {
	return func(p *ExecPlayer) {
		p.commands = commands
	}
}

// WithTempDir sets where clips are written before playing
func WithTempDir(dir string) PlayerOption {
	return func(p *ExecPlayer) {
		p.dir = dir
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) PlayerOption {
	return func(p *ExecPlayer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewExecPlayer returns a player using the commands for the current OS
func NewExecPlayer(opts ...PlayerOption) *ExecPlayer {
	p := &ExecPlayer{
		commands: DefaultCommands(runtime.GOOS),
		dir:      os.TempDir(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play writes audio to a temp file and plays it
func (p *ExecPlayer) Play(ctx context.Context, audio workflow.Audio) error {
	if len(audio.Data) == 0 {
		return ErrNoAudio
	}
	command, err := p.pick()
	if err != nil {
		return err
	}

	if err := p.Stop(); err != nil {
		return err
	}

	path := filepath.Join(p.dir, "voicebridge-play-"+uuid.NewString()+extension(audio.MIMEType))
	if err := os.WriteFile(path, audio.Data, 0o600); err != nil {
		return fmt.Errorf("failed to write clip: %w", err)
	}
	defer os.Remove(path)

	playCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	defer close(done)

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.done == done {
			p.cancel = nil
			p.done = nil
		}
		p.mu.Unlock()
		cancel()
	}()

	p.logger.Debug("playing clip", zap.String("player", command.Name), zap.Int("bytes", len(audio.Data)))
	cmd := exec.CommandContext(playCtx, command.Name, command.Args(path)...)
	err = cmd.Run()
	if playCtx.Err() != nil {
		// Stopped by Stop or the caller's context
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", command.Name, err)
	}
	return nil
}

// Stop ends the current clip and waits for the player to exit
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Playing reports whether a clip is playing
func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

func (p *ExecPlayer) pick() (Command, error) {
	for _, c := range p.commands {
		if _, err := exec.LookPath(c.Name); err == nil {
			return c, nil
		}
	}
	return Command{}, ErrNoPlayerAvailable
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
