package capture

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// Recording format sent to the gateway
const (
	SampleRate = 16000
	Channels   = 1
)

// Backend is an external command that records the default microphone into a WAV file
type Backend struct {
	Name    string
	Command string
	// Args builds the command line for writing to out
	Args func(out string) []string
}

// Available reports whether the backend's command is on PATH
func (b Backend) Available() bool {
	return commandAvailable(b.Command)
}

// PipeWire records with pw-record
func PipeWire() Backend {
	return Backend{
		Name:    "pw-record",
		Command: "pw-record",
		Args: func(out string) []string {
			return []string{"--rate", strconv.Itoa(SampleRate), "--channels", strconv.Itoa(Channels), "--format", "s16", out}
		},
	}
}

// ALSA records with arecord
func ALSA() Backend {
	return Backend{
		Name:    "arecord",
		Command: "arecord",
		Args: func(out string) []string {
			return []string{"-q", "-f", "S16_LE", "-r", strconv.Itoa(SampleRate), "-c", strconv.Itoa(Channels), out}
		},
	}
}

// FFmpeg records from the given input format and device, e.g. "pulse"/"default"
// on Linux or "avfoundation"/":0" on macOS
func FFmpeg(format, input string) Backend {
	return Backend{
		Name:    "ffmpeg",
		Command: "ffmpeg",
		Args: func(out string) []string {
			return []string{
				"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
				"-f", format, "-i", input,
				"-ac", strconv.Itoa(Channels),
				"-ar", strconv.Itoa(SampleRate),
				"-c:a", "pcm_s16le",
				out,
			}
		},
	}
}

// DefaultBackends returns the backends tried on goos, in order
func DefaultBackends(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{PipeWire(), ALSA(), FFmpeg("pulse", "default")}
	case "darwin":
		return []Backend{FFmpeg("avfoundation", ":0")}
	default:
		return nil
	}
}

// SelectBackend picks preferred by name, or the first available one
func SelectBackend(backends []Backend, preferred string) (Backend, error) {
	if len(backends) == 0 {
		return Backend{}, ErrNoBackendAvailable
	}

	if preferred != "" && preferred != "auto" {
		for _, backend := range backends {
			if backend.Name == preferred {
				if !backend.Available() {
					return Backend{}, fmt.Errorf("requested backend %q is not available", preferred)
				}
				return backend, nil
			}
		}
		return Backend{}, fmt.Errorf("unknown backend %q", preferred)
	}

	for _, backend := range backends {
		if backend.Available() {
			return backend, nil
		}
	}

	return Backend{}, errors.Join(ErrNoBackendAvailable, fmt.Errorf("install one of: %s", backendNames(backends)))
}

func backendNames(backends []Backend) string {
	names := ""
	for i, b := range backends {
		if i > 0 {
			names += ", "
		}
		names += b.Name
	}
	return names
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
