// Package display renders volume stacks for inspection.
//
// Every backend implements [Displayer]. The headless [Discard] does nothing;
// [PlotDisplay] writes one PNG heatmap per channel, [HTMLDisplay] writes an
// interactive ECharts page, and [Server] serves the same pages over HTTP with
// per-plane views. The terminal viewer lives with the CLI.
//
// Channel images are maximum-intensity projections along z unless a single
// plane is requested.
package display

import (
	"context"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// Displayer presents a stack. channelAxis names the stack axis that holds
// channels; stacks are (C, Z, Y, X), so only 0 is accepted.
type Displayer interface {
	Display(ctx context.Context, stack *volume.Stack, channelAxis int) error
}

// Discard is a Displayer that shows nothing, for headless runs.
type Discard struct{}

// Display validates its arguments and returns.
func (Discard) Display(_ context.Context, stack *volume.Stack, channelAxis int) error {
	return check(stack, channelAxis)
}

func check(stack *volume.Stack, channelAxis int) error {
	if channelAxis != 0 {
		return errors.New(errors.ErrCodeInvalidInput, "channel axis %d: stacks are CZYX, channels are axis 0", channelAxis)
	}
	if stack == nil || len(stack.Channels) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "nothing to display")
	}
	return nil
}

// MaxProjection returns the (Y, X) maximum of v over z, row-major.
func MaxProjection(v *volume.Volume) []uint32 {
	s := v.Shape
	out := make([]uint32, s.X*s.Y)
	for z := 0; z < s.Z; z++ {
		for i, val := range v.Plane(z) {
			out[i] = max(out[i], val)
		}
	}
	return out
}

// image2D is one channel image with its extents.
type image2D struct {
	title string
	w, h  int
	pix   []uint32
}

func (im image2D) at(x, y int) uint32 { return im.pix[y*im.w+x] }

func (im image2D) max() uint32 {
	var m uint32
	for _, v := range im.pix {
		m = max(m, v)
	}
	return m
}

// channelNames labels the channels of an assembled stack.
var channelNames = []string{"intensity 0", "intensity 1", "labels"}

func channelName(c int) string {
	if c < len(channelNames) {
		return channelNames[c]
	}
	return "channel"
}
