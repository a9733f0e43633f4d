package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/blobstack/pkg/observability"
)

// Spinner is a terminal progress indicator that stops with its context.
// Its message can change while it runs.
type Spinner struct {
	w       io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string

	mu      sync.Mutex
	message string
	width   int // widest message drawn so far
}

// newSpinner creates a spinner on stderr that stops when ctx is cancelled.
func newSpinner(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.draw(s.frames[i%len(s.frames)])
			}
		}
	}()
}

// SetMessage replaces the text next to the spinner.
func (s *Spinner) SetMessage(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = fmt.Sprintf(format, args...)
}

// Message returns the current text.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(s.message))
	pad := strings.Repeat(" ", s.width-len(s.message))
	fmt.Fprintf(s.w, "\r%s %s%s", styleIconSpinner.Render(frame), StyleDim.Render(s.message), pad)
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", max(s.width, len(s.message))+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// =============================================================================
// Pipeline progress
// =============================================================================

// spinnerHooks forwards pipeline events to next and mirrors chunk progress
// in the spinner message.
type spinnerHooks struct {
	observability.PipelineHooks
	spinner *Spinner
}

func (h spinnerHooks) OnSynthesizeStart(ctx context.Context, chunk, cells int) {
	h.spinner.SetMessage("Synthesizing %d cells (chunk %d)...", cells, chunk+1)
	h.PipelineHooks.OnSynthesizeStart(ctx, chunk, cells)
}

func (h spinnerHooks) OnSegmentStart(ctx context.Context, chunk, foreground int) {
	h.spinner.SetMessage("Segmenting %d voxels (chunk %d)...", foreground, chunk+1)
	h.PipelineHooks.OnSegmentStart(ctx, chunk, foreground)
}

func (h spinnerHooks) OnChunkComplete(ctx context.Context, chunk, total int, maxLabel uint32) {
	h.spinner.SetMessage("Merged chunk %d/%d (%d labels)...", chunk+1, total, maxLabel)
	h.PipelineHooks.OnChunkComplete(ctx, chunk, total, maxLabel)
}
