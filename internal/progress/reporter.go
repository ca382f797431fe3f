// Package progress renders a live one-line status of a running scan.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/nao1215/exposcan/internal/model"
)

// DefaultInterval is how often the status line is refreshed.
const DefaultInterval = 800 * time.Millisecond

// Source provides counter snapshots.
type Source interface {
	Snapshot() model.Stats
}

// Reporter redraws a status line on a terminal until stopped.
// It writes nothing when its output is not a terminal.
type Reporter struct {
	out      io.Writer
	src      Source
	interval time.Duration
	enabled  bool

	mu      sync.Mutex
	width   int
	started bool
	quit    chan struct{}
	done    chan struct{}
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithInterval sets the refresh interval.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithEnabled overrides terminal detection.
func WithEnabled(enabled bool) Option {
	return func(r *Reporter) {
		r.enabled = enabled
	}
}

// New creates a Reporter drawing snapshots of src on out.
func New(out io.Writer, src Source, opts ...Option) *Reporter {
	r := &Reporter{
		out:      out,
		src:      src,
		interval: DefaultInterval,
		enabled:  IsTerminal(out),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// Enabled reports whether the Reporter draws anything.
func (r *Reporter) Enabled() bool {
	return r.enabled
}

// Start begins refreshing the line. It is a no-op when disabled or
// already started.
func (r *Reporter) Start() {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.loop()
}

func (r *Reporter) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			r.draw(r.src.Snapshot())
		}
	}
}

// Stop draws the final counters, ends the line and waits for the
// refresh goroutine to exit. It is safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.quit)
	done := r.done
	r.mu.Unlock()

	<-done
	r.draw(r.src.Snapshot())
	fmt.Fprintln(r.out)
}

// draw overwrites the previous line, padding with spaces when the new
// line is shorter.
func (r *Reporter) draw(s model.Stats) {
	line := Line(s)

	r.mu.Lock()
	defer r.mu.Unlock()

	pad := ""
	if n := r.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	r.width = len(line)
	fmt.Fprintf(r.out, "\r%s%s", line, pad)
}

// Line formats a snapshot, e.g.
// "scanning: 120 ok, 4 failed, 2 findings, 00:12".
func Line(s model.Stats) string {
	elapsed := s.Elapsed.Round(time.Second)
	minutes := int(elapsed / time.Minute)
	seconds := int((elapsed % time.Minute) / time.Second)
	return fmt.Sprintf("scanning: %d ok, %d failed, %d findings, %02d:%02d",
		s.Succeeded, s.Failed, s.Findings, minutes, seconds)
}
