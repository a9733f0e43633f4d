package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/matzehuels/blobstack/pkg/observability"
	"github.com/matzehuels/blobstack/pkg/regions"
	"github.com/matzehuels/blobstack/pkg/segment"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// Runner encapsulates pipeline execution with logging and hooks.
//
// The Runner is stateless apart from its logger and hooks; it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options as long as the hooks are safe for concurrent use.
type Runner struct {
	Logger *log.Logger
	Hooks  observability.PipelineHooks
}

// NewRunner creates a runner.
// If logger is nil, the charmbracelet/log default logger is used.
// If hooks is nil, NoopPipelineHooks is used.
func NewRunner(logger *log.Logger, hooks observability.PipelineHooks) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if hooks == nil {
		hooks = observability.NoopPipelineHooks{}
	}
	return &Runner{
		Logger: logger,
		Hooks:  hooks,
	}
}

// Execute runs the complete synthesize → segment → measure pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		RunID:   uuid.NewString(),
		Options: opts,
	}

	// Stages 1+2: Synthesize and segment
	stack, stats, err := r.Build(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Stack = stack
	result.Stats = stats

	r.Logger.Info("assembled stack",
		"dims", stack.Dims(),
		"dtype", stack.DType(),
		"cells", stats.Cells,
		"chunks", stats.Chunks,
		"size", humanize.Bytes(stack.Bytes()),
		"duration", stats.SynthTime+stats.SegmentTime)

	// Stage 3: Measure
	measureStart := time.Now()
	labels := stack.Channel(LabelChannel)
	if opts.Resegment {
		labels, err = r.Resegment(labels)
		if err != nil {
			return nil, fmt.Errorf("resegment: %w", err)
		}
	}
	table, err := regions.Measure(labels, stack.Channel(PrimaryChannel), stack.Channel(SecondaryChannel))
	if err != nil {
		return nil, fmt.Errorf("measure: %w", err)
	}
	result.Labels = labels
	result.Regions = table
	result.Stats.Labels = table.Len()
	result.Stats.MeasureTime = time.Since(measureStart)

	r.Logger.Info("measured regions",
		"regions", table.Len(),
		"duration", result.Stats.MeasureTime)

	return result, nil
}

// Build runs synthesis and segmentation only, as a single assembly or through
// the chunk driver depending on opts.
func (r *Runner) Build(ctx context.Context, opts Options) (*volume.Stack, Stats, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, Stats{}, fmt.Errorf("invalid options: %w", err)
	}
	st := newStage(r.Logger, r.Hooks)

	var (
		stack *volume.Stack
		err   error
	)
	if opts.Chunked() {
		r.Logger.Debug("running chunked", "cells", opts.NumCells, "chunk_size", opts.ChunkSize, "chunks", opts.Chunks())
		stack, err = st.chunked(ctx, opts.NumCells, opts.ChunkSize, opts.Shape, opts.DType, opts.Seed, opts.Params)
	} else {
		stack, err = st.assemble(ctx, 0, opts.NumCells, opts.Shape, opts.DType, opts.Seed, opts.Params)
		if err == nil {
			st.stats.Chunks = 1
			r.Hooks.OnChunkComplete(ctx, 0, 1, stack.Channel(LabelChannel).Max())
		}
	}
	if err != nil {
		return nil, st.stats, err
	}
	return stack, st.stats, nil
}

// Resegment runs the watershed again on the non-zero voxels of labels. The
// result keeps at least the dtype of labels.
func (r *Runner) Resegment(labels *volume.Volume) (*volume.Volume, error) {
	out, err := segment.Segment(labels.NonZero())
	if err != nil {
		return nil, err
	}
	out.DType = volume.Widest(labels.DType, volume.DTypeFor(out.Max()))
	r.Logger.Debug("resegmented labels", "before", labels.Max(), "after", out.Max())
	return out, nil
}
