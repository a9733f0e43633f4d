// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Hooks are passed
// explicitly to the components that emit events (for example
// pipeline.NewRunner); there is no process-wide registry.
//
// # Usage
//
// Attach logging hooks to a runner:
//
//	hooks := observability.NewLogHooks(logger)
//	runner := pipeline.NewRunner(logger, hooks)
//
// Components call hooks around each stage:
//
//	hooks.OnSynthesizeStart(ctx, chunk, cells)
//	// ... synthesize ...
//	hooks.OnSynthesizeComplete(ctx, chunk, duration, err)
package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the synthesis pipeline. Chunk is the
// zero-based chunk index; a single assembly reports chunk 0.
type PipelineHooks interface {
	// Synthesis events
	OnSynthesizeStart(ctx context.Context, chunk, cells int)
	OnSynthesizeComplete(ctx context.Context, chunk int, duration time.Duration, err error)

	// Segmentation events
	OnSegmentStart(ctx context.Context, chunk int, foreground int)
	OnSegmentComplete(ctx context.Context, chunk int, labels int, duration time.Duration, err error)

	// OnChunkComplete fires after a chunk has been merged into the stack.
	OnChunkComplete(ctx context.Context, chunk, total int, maxLabel uint32)
}

// =============================================================================
// Export Hooks
// =============================================================================

// ExportHooks receives events from file exports (stacks, region tables, ROI
// sets).
type ExportHooks interface {
	// OnExport records a finished export of kind to path.
	OnExport(ctx context.Context, kind, path string, size int64, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnSynthesizeStart(context.Context, int, int)                       {}
func (NoopPipelineHooks) OnSynthesizeComplete(context.Context, int, time.Duration, error)   {}
func (NoopPipelineHooks) OnSegmentStart(context.Context, int, int)                          {}
func (NoopPipelineHooks) OnSegmentComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnChunkComplete(context.Context, int, int, uint32)                 {}

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnExport(context.Context, string, string, int64, time.Duration, error) {}

// =============================================================================
// Logging Implementations
// =============================================================================

// LogHooks logs every event at debug level, and failures at error level.
// It implements both PipelineHooks and ExportHooks.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks that write to logger. A nil logger uses the
// charmbracelet/log default logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{Logger: logger}
}

func (h *LogHooks) OnSynthesizeStart(_ context.Context, chunk, cells int) {
	h.Logger.Debug("synthesizing", "chunk", chunk, "cells", cells)
}

func (h *LogHooks) OnSynthesizeComplete(_ context.Context, chunk int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("synthesis failed", "chunk", chunk, "error", err)
		return
	}
	h.Logger.Debug("synthesized", "chunk", chunk, "duration", d)
}

func (h *LogHooks) OnSegmentStart(_ context.Context, chunk, foreground int) {
	h.Logger.Debug("segmenting", "chunk", chunk, "foreground", humanize.Comma(int64(foreground)))
}

func (h *LogHooks) OnSegmentComplete(_ context.Context, chunk, labels int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("segmentation failed", "chunk", chunk, "error", err)
		return
	}
	h.Logger.Debug("segmented", "chunk", chunk, "labels", labels, "duration", d)
}

func (h *LogHooks) OnChunkComplete(_ context.Context, chunk, total int, maxLabel uint32) {
	h.Logger.Debug("merged chunk", "chunk", chunk+1, "of", total, "max_label", maxLabel)
}

func (h *LogHooks) OnExport(_ context.Context, kind, path string, size int64, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("export failed", "kind", kind, "path", path, "error", err)
		return
	}
	h.Logger.Debug("exported", "kind", kind, "path", path, "size", humanize.Bytes(uint64(max(size, 0))), "duration", d)
}
