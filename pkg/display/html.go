package display

import (
	"context"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// viridis is the colour ramp of every chart.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// HTMLDisplay writes an ECharts page with one heatmap per channel to W.
type HTMLDisplay struct {
	W     io.Writer
	Title string
}

// Display implements Displayer.
func (d HTMLDisplay) Display(ctx context.Context, stack *volume.Stack, channelAxis int) error {
	if err := check(stack, channelAxis); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return renderPage(d.W, d.Title, projections(stack))
}

// projections returns the maximum projection of every channel.
func projections(stack *volume.Stack) []image2D {
	sh := stack.Shape()
	out := make([]image2D, len(stack.Channels))
	for c, ch := range stack.Channels {
		out[c] = image2D{
			title: fmt.Sprintf("c%d %s", c, channelName(c)),
			w:     sh.X,
			h:     sh.Y,
			pix:   MaxProjection(ch),
		}
	}
	return out
}

func renderPage(w io.Writer, title string, images []image2D) error {
	if title == "" {
		title = "blobstack"
	}
	page := components.NewPage()
	page.SetPageTitle(title)
	for _, im := range images {
		page.AddCharts(heatmapChart(im))
	}
	return page.Render(w)
}

// heatmapChart draws an image as a coloured scatter with one square symbol
// per pixel.
func heatmapChart(im image2D) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(im.pix))
	for y := 0; y < im.h; y++ {
		for x := 0; x < im.w; x++ {
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, im.at(x, y)}})
		}
	}
	top := im.max()
	if top == 0 {
		top = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: im.title, Width: "720px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: im.title, Subtitle: fmt.Sprintf("%dx%d, max %d", im.w, im.h, im.max())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: im.w - 1, Name: "x"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: im.h - 1, Name: "y", Inverse: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(top),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(im.title, data, charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "rect", SymbolSize: 6}))
	return scatter
}
