package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/observability"
	"github.com/matzehuels/blobstack/pkg/segment"
	"github.com/matzehuels/blobstack/pkg/synth"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// Assemble synthesizes numCells blobs and returns the three-channel stack
// (primary intensity, secondary intensity, labels) with dims (3, Z, Y, X).
//
// The label channel segments the Otsu foreground of the primary channel. Its
// dtype is the narrowest one holding the largest label, but never narrower
// than dtype.
func Assemble(ctx context.Context, numCells int, shape volume.Shape, dtype volume.DType, seed uint64, p synth.Params) (*volume.Stack, error) {
	return newStage(nil, nil).assemble(ctx, 0, numCells, shape, dtype, seed, p)
}

// Chunked builds a stack from nCells/chunkSize independent assemblies of
// chunkSize cells. Chunk i is seeded with baseSeed+i.
//
// Intensity channels are divided by the chunk count (integer division) and
// summed, so the merged channel stays within dtype. Non-zero labels of chunk
// i are shifted past every label of chunks 0..i-1 and overlaid onto the merged
// label channel, so label IDs from different chunks never collide. With a
// single chunk the result equals Assemble(ctx, chunkSize, ..., baseSeed, p).
func Chunked(ctx context.Context, nCells, chunkSize int, shape volume.Shape, dtype volume.DType, baseSeed uint64, p synth.Params) (*volume.Stack, error) {
	return newStage(nil, nil).chunked(ctx, nCells, chunkSize, shape, dtype, baseSeed, p)
}

// stage carries the logger, hooks and timing counters through one run.
type stage struct {
	logger *log.Logger
	hooks  observability.PipelineHooks
	stats  Stats
}

func newStage(logger *log.Logger, hooks observability.PipelineHooks) *stage {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if hooks == nil {
		hooks = observability.NoopPipelineHooks{}
	}
	return &stage{logger: logger, hooks: hooks}
}

func (s *stage) assemble(ctx context.Context, chunk, numCells int, shape volume.Shape, dtype volume.DType, seed uint64, p synth.Params) (*volume.Stack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 1: Synthesize
	s.hooks.OnSynthesizeStart(ctx, chunk, numCells)
	start := time.Now()
	out, err := synth.Generate(numCells, shape, dtype, seed, p)
	elapsed := time.Since(start)
	s.hooks.OnSynthesizeComplete(ctx, chunk, elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	s.stats.SynthTime += elapsed
	s.stats.Cells += numCells
	if out.Empty {
		w := errors.New(errors.ErrCodeEmptyVolume, "chunk %d: intensity channel has no positive maximum, written as zeros", chunk)
		s.stats.EmptyChunks++
		s.stats.Warnings = append(s.stats.Warnings, w)
		s.logger.Warn(errors.UserMessage(w), "code", w.Code, "cells", numCells, "seed", seed)
	}

	// Stage 2: Segment
	start = time.Now()
	mask := foreground(out.Primary)
	if mask == nil {
		s.logger.Warn("primary channel is constant, no foreground", "chunk", chunk, "seed", seed)
		mask = volume.NewMask(shape)
	}
	s.hooks.OnSegmentStart(ctx, chunk, mask.Count())
	labels, err := segment.Segment(mask)
	elapsed = time.Since(start)
	var n int
	if err == nil {
		n = int(labels.Max())
	}
	s.hooks.OnSegmentComplete(ctx, chunk, n, elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	s.stats.SegmentTime += elapsed
	labels.DType = volume.Widest(dtype, volume.DTypeFor(labels.Max()))

	s.logger.Debug("assembled chunk", "chunk", chunk, "seed", seed, "foreground", mask.Count(), "labels", n)
	return volume.NewStack(out.Primary, out.Secondary, labels)
}

// foreground thresholds v at its Otsu level. It returns nil when v is
// constant.
func foreground(v *volume.Volume) *volume.Mask {
	t, ok := segment.Otsu(v)
	if !ok {
		return nil
	}
	return v.Threshold(t)
}

func (s *stage) chunked(ctx context.Context, nCells, chunkSize int, shape volume.Shape, dtype volume.DType, baseSeed uint64, p synth.Params) (*volume.Stack, error) {
	if chunkSize < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "chunk size must be positive, got %d", chunkSize)
	}
	lots := nCells / chunkSize
	if lots < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d cells do not fill one chunk of %d", nCells, chunkSize)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if rem := nCells % chunkSize; rem != 0 {
		s.logger.Warn("dropping cells that do not fill a chunk", "cells", nCells, "chunk_size", chunkSize, "dropped", rem)
	}

	merged := volume.ZeroStack(3, shape, dtype)
	acc0 := merged.Channel(PrimaryChannel).Data
	acc1 := merged.Channel(SecondaryChannel).Data
	accL := merged.Channel(LabelChannel).Data
	div := uint32(lots)
	var maxLabel uint32

	for i := 0; i < lots; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, err := s.assemble(ctx, i, chunkSize, shape, dtype, baseSeed+uint64(i), p)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		for j, v := range st.Channel(PrimaryChannel).Data {
			acc0[j] += v / div
		}
		for j, v := range st.Channel(SecondaryChannel).Data {
			acc1[j] += v / div
		}
		lbl := st.Channel(LabelChannel)
		for j, l := range segment.Relabel(lbl, maxLabel).Data {
			if l != 0 {
				accL[j] = l
			}
		}
		maxLabel += lbl.Max()
		s.stats.Chunks++
		s.hooks.OnChunkComplete(ctx, i, lots, maxLabel)
	}

	merged.Channel(LabelChannel).DType = volume.Widest(dtype, volume.DTypeFor(maxLabel))
	return merged, nil
}
