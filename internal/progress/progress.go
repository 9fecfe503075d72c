// Package progress draws per-group normalization progress on a terminal.
package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Reporter hands out progress callbacks, one per group. When output is not a
// terminal the callbacks do nothing and log lines carry the progress instead.
type Reporter struct {
	out     io.Writer
	enabled bool
}

// NewReporter creates a Reporter that draws to out only when out is a terminal.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out, enabled: IsTerminal(out)}
}

// NewReporterTo creates a Reporter with explicit control over drawing.
func NewReporterTo(out io.Writer, enabled bool) *Reporter {
	return &Reporter{out: out, enabled: enabled}
}

// Enabled reports whether callbacks draw anything.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Start returns a callback receiving (done, total) for one group's clips.
// The bar finishes when done reaches total.
func (r *Reporter) Start(label string, total int) func(done, total int) {
	if !r.Enabled() || total <= 0 {
		return func(int, int) {}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(r.out, "\n") }),
	)

	var once sync.Once
	return func(done, total int) {
		_ = bar.Set(done)
		if done >= total {
			once.Do(func() { _ = bar.Finish() })
		}
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
