// Package progress renders the progress flag of an application state in a
// terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/ziadkadry99/mydms/internal/state"
)

// Reporter shows or hides an activity indicator.
type Reporter interface {
	Start(description string)
	Stop()
}

// NewReporter returns a TerminalReporter writing to w, or a CIReporter if the
// CI environment variable is set or w is not a terminal.
func NewReporter(w io.Writer) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" || !isTerminal(w) {
		return &CIReporter{w: w}
	}
	return &TerminalReporter{w: w, interval: 100 * time.Millisecond}
}

// Follow starts r whenever ch carries true and stops it on false. The current
// value of ch is applied immediately.
func Follow(ch *state.Channel[bool], r Reporter) *state.Subscription {
	return ch.Subscribe(func(busy bool) {
		if busy {
			r.Start("Loading")
			return
		}
		r.Stop()
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// TerminalReporter displays a spinner in the terminal.
type TerminalReporter struct {
	w        io.Writer
	interval time.Duration

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	done chan struct{}
}

// Start shows the spinner. It is a no-op while the spinner is visible.
func (r *TerminalReporter) Start(description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		return
	}
	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	r.done = make(chan struct{})
	go spin(r.bar, r.interval, r.done)
}

// Stop clears the spinner.
func (r *TerminalReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		return
	}
	close(r.done)
	_ = r.bar.Finish()
	r.bar = nil
}

func spin(bar *progressbar.ProgressBar, interval time.Duration, done <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			_ = bar.Add(1)
		}
	}
}

// CIReporter prints one line per transition, suitable for logs.
type CIReporter struct {
	w io.Writer

	mu     sync.Mutex
	active bool
}

func (r *CIReporter) Start(description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return
	}
	r.active = true
	fmt.Fprintf(r.w, "%s...\n", description)
}

func (r *CIReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.active = false
	fmt.Fprintln(r.w, "done")
}
