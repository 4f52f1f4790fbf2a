package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicebridge/wav"
	"voicebridge/workflow"
)

var (
	ErrNoBackendAvailable = errors.New("no recording backend available")
	ErrAlreadyRecording   = errors.New("already recording")
	ErrNotRecording       = errors.New("not recording")
	ErrEmptyRecording     = errors.New("recording is empty")
)

// StopGrace is how long a backend gets to flush after the stop signal before it is killed
const StopGrace = 3 * time.Second

// State is the recorder's two-state toggle
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder captures microphone audio between Start and Stop
type Recorder interface {
	Start(ctx context.Context) error
	// Stop finalizes the recording and returns the buffered audio
	Stop() (workflow.Audio, error)
	// Cancel discards an in-progress recording
	Cancel()
	State() State
}

// ExecRecorder records through an external command writing WAV to a temp file
type ExecRecorder struct {
	backends  []Backend
	preferred string
	dir       string
	grace     time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	state   State
	cmd     *exec.Cmd
	done    chan error
	stopped chan struct{}
	path    string
	backend string
}

// RecorderOption configures an ExecRecorder
type RecorderOption func(*ExecRecorder)

// WithBackends replaces the platform default backends
func WithBackends(backends ...Backend) RecorderOption {
	return func(r *ExecRecorder) {
		r.backends = backends
	}
}

// WithPreferredBackend picks a backend by name ("auto" or "" keeps the default order)
func WithPreferredBackend(name string) RecorderOption {
	return func(r *ExecRecorder) {
		r.preferred = name
	}
}

// WithTempDir sets where in-progress recordings are written
func WithTempDir(dir string) RecorderOption {
	return func(r *ExecRecorder) {
		r.dir = dir
	}
}

// WithStopGrace overrides StopGrace
func WithStopGrace(d time.Duration) RecorderOption {
	return func(r *ExecRecorder) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithRecorderLogger sets the logger
func WithRecorderLogger(logger *zap.Logger) RecorderOption {
	return func(r *ExecRecorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewExecRecorder returns a recorder using the backends for the current OS
func NewExecRecorder(opts ...RecorderOption) *ExecRecorder {
	r := &ExecRecorder{
		backends: DefaultBackends(runtime.GOOS),
		dir:      os.TempDir(),
		grace:    StopGrace,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports whether a recording is in progress
func (r *ExecRecorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Backend returns the name of the backend used by the current or last recording
func (r *ExecRecorder) Backend() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend
}

// Start launches the recording process. It keeps running until Stop or Cancel,
// or until ctx is done, in which case the process is killed and the file removed.
func (r *ExecRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrAlreadyRecording
	}

	backend, err := SelectBackend(r.backends, r.preferred)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}
	path := filepath.Join(r.dir, "voicebridge-"+uuid.NewString()+".wav")

	cmd := exec.Command(backend.Command, backend.Args(path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: failed to start: %w", backend.Name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	stopped := make(chan struct{})
	r.state = StateRecording
	r.cmd = cmd
	r.done = done
	r.stopped = stopped
	r.path = path
	r.backend = backend.Name
	r.logger.Debug("recording started", zap.String("backend", backend.Name), zap.String("path", path))

	go r.watch(ctx, cmd, stopped)
	return nil
}

// watch cancels the recording if ctx ends first
func (r *ExecRecorder) watch(ctx context.Context, cmd *exec.Cmd, stopped <-chan struct{}) {
	select {
	case <-stopped:
		return
	case <-ctx.Done():
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == cmd {
		r.logger.Debug("recording cancelled by context", zap.Error(ctx.Err()))
		r.release(true)
	}
}

// Stop signals the backend to finish, waits for it and returns the recorded WAV
func (r *ExecRecorder) Stop() (workflow.Audio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return workflow.Audio{}, ErrNotRecording
	}

	path := r.path
	waitErr := r.release(false)
	defer removeRecording(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if waitErr != nil {
			return workflow.Audio{}, fmt.Errorf("%s: %w", r.backend, waitErr)
		}
		return workflow.Audio{}, fmt.Errorf("failed to read recording: %w", err)
	}

	info, err := wav.DecodeHeader(data)
	if err != nil {
		return workflow.Audio{}, fmt.Errorf("invalid recording: %w", err)
	}
	if info.DataSize == 0 {
		return workflow.Audio{}, ErrEmptyRecording
	}

	return workflow.Audio{Data: data, MIMEType: "audio/wav"}, nil
}

// Cancel kills an in-progress recording and discards its file
func (r *ExecRecorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording {
		r.release(true)
	}
}

// release stops the process and resets to idle; callers hold mu.
// A kill removes the file too. The returned error is the process exit
// error when it did not stop because we asked it to.
func (r *ExecRecorder) release(kill bool) error {
	cmd, done, path := r.cmd, r.done, r.path
	close(r.stopped)
	r.state = StateIdle
	r.cmd = nil
	r.done = nil
	r.stopped = nil
	r.path = ""

	if kill {
		_ = cmd.Process.Kill()
		<-done
		removeRecording(path)
		return nil
	}

	select {
	case err := <-done:
		// Exited before we asked it to stop
		return err
	default:
	}

	stopSignalSent := cmd.Process.Signal(os.Interrupt) == nil
	timer := time.NewTimer(r.grace)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil && stopSignalSent {
			r.logger.Debug("recording process exited after stop signal", zap.Error(err))
			return nil
		}
		return err
	case <-timer.C:
		r.logger.Debug("recording process ignored stop signal, killing", zap.Duration("grace", r.grace))
		_ = cmd.Process.Kill()
		<-done
		return nil
	}
}

func removeRecording(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
