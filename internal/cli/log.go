package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blobstack/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Assembled 3x2x104x104 stack (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, p.elapsed().Round(time.Millisecond))
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start)
}

// exported reports a finished file export to hooks, with the file size when
// the file exists.
func exported(ctx context.Context, hooks observability.ExportHooks, kind, path string, start time.Time, err error) {
	var size int64
	if info, statErr := os.Stat(path); statErr == nil {
		size = info.Size()
	}
	hooks.OnExport(ctx, kind, path, size, time.Since(start), err)
}
