package display

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// PlotDisplay writes one PNG heatmap of each channel's maximum projection
// into Dir, named <Prefix>_c<N>.png.
type PlotDisplay struct {
	Dir    string
	Prefix string
	// Size is the edge length of each square image. Zero means 6 inches.
	Size vg.Length
}

// Display implements Displayer.
func (d PlotDisplay) Display(ctx context.Context, stack *volume.Stack, channelAxis int) error {
	if err := check(stack, channelAxis); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	size := d.Size
	if size == 0 {
		size = 6 * vg.Inch
	}
	prefix := d.Prefix
	if prefix == "" {
		prefix = "stack"
	}

	sh := stack.Shape()
	for c, ch := range stack.Channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		im := image2D{title: fmt.Sprintf("c%d %s (max over z)", c, channelName(c)), w: sh.X, h: sh.Y, pix: MaxProjection(ch)}
		p := heatmapPlot(im)
		path := filepath.Join(d.Dir, fmt.Sprintf("%s_c%d.png", prefix, c))
		if err := p.Save(size, size, path); err != nil {
			return fmt.Errorf("save channel %d plot: %w", c, err)
		}
	}
	return nil
}

// Paths returns the files Display writes for a stack with n channels.
func (d PlotDisplay) Paths(n int) []string {
	prefix := d.Prefix
	if prefix == "" {
		prefix = "stack"
	}
	out := make([]string, n)
	for c := range out {
		out[c] = filepath.Join(d.Dir, fmt.Sprintf("%s_c%d.png", prefix, c))
	}
	return out
}

func heatmapPlot(im image2D) *plot.Plot {
	p := plot.New()
	p.Title.Text = im.title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	hm := plotter.NewHeatMap(grid{im}, palette.Heat(256, 1))
	hm.Rasterized = true
	p.Add(hm)
	return p
}

// grid adapts an image to plotter.GridXYZ. Rows are flipped so y grows
// downwards like the image.
type grid struct{ im image2D }

func (g grid) Dims() (c, r int)   { return g.im.w, g.im.h }
func (g grid) Z(c, r int) float64 { return float64(g.im.at(c, g.im.h-1-r)) }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// Min and Max fix the colour range to [0, max(top, 1)] so constant images
// such as an empty label channel still render.
func (g grid) Min() float64 { return 0 }
func (g grid) Max() float64 { return float64(max(g.im.max(), 1)) }
