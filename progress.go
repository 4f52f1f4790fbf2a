package main

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

var errNoTerminal = errors.New("the interactive UI needs a terminal; use 'voicebridge run' for scripted use")

type stopFunc func()

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// progressEnabled reports whether spinners may draw on stderr.
// Verbose runs log to stderr, so spinners would interleave with log lines.
func (a *appState) progressEnabled() bool {
	return !a.verbose && !a.jsonLogs && isTerminal(os.Stderr)
}

func startSpinner(enabled bool, w io.Writer, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

// countProgress is a bounded bar for work with a known number of items
type countProgress struct {
	bar *progressbar.ProgressBar
}

func startCountProgress(enabled bool, w io.Writer, description string, total int) *countProgress {
	if !enabled || total <= 0 {
		return &countProgress{}
	}
	return &countProgress{bar: progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *countProgress) Add(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

func (p *countProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
