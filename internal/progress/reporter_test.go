package progress

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/exposcan/internal/model"
)

type fakeSource struct {
	calls atomic.Int64
}

func (f *fakeSource) Snapshot() model.Stats {
	n := f.calls.Add(1)
	return model.Stats{Succeeded: n, Failed: 1, Findings: 2, Elapsed: 75 * time.Second}
}

// syncBuffer guards a bytes.Buffer shared with the refresh goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stats model.Stats
		want  string
	}{
		{
			name:  "zero",
			stats: model.Stats{},
			want:  "scanning: 0 ok, 0 failed, 0 findings, 00:00",
		},
		{
			name:  "minutes",
			stats: model.Stats{Succeeded: 120, Failed: 4, Findings: 2, Elapsed: 2*time.Minute + 5400*time.Millisecond},
			want:  "scanning: 120 ok, 4 failed, 2 findings, 02:05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Line(tt.stats); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReporterDraws(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	src := &fakeSource{}
	r := New(out, src, WithEnabled(true), WithInterval(5*time.Millisecond))

	r.Start()
	r.Start()
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	got := out.String()
	if !strings.HasPrefix(got, "\r") {
		t.Errorf("output should start with a carriage return: %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Errorf("output should end with a newline after Stop: %q", got)
	}
	if !strings.Contains(got, "2 findings, 01:15") {
		t.Errorf("output missing status: %q", got)
	}
	if strings.Count(got, "\n") != 1 {
		t.Errorf("Stop should end the line exactly once: %q", got)
	}
}

func TestReporterDisabled(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	src := &fakeSource{}
	r := New(&out, src, WithInterval(time.Millisecond))

	if r.Enabled() {
		t.Fatal("a buffer is not a terminal")
	}

	r.Start()
	time.Sleep(10 * time.Millisecond)
	r.Stop()

	if out.Len() != 0 {
		t.Errorf("disabled reporter wrote %q", out.String())
	}
	if src.calls.Load() != 0 {
		t.Errorf("disabled reporter took %d snapshots", src.calls.Load())
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Error("a regular file is not a terminal")
	}
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
