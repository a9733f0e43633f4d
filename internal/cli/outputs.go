package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/blobstack/pkg/display"
	"github.com/matzehuels/blobstack/pkg/errors"
	stackio "github.com/matzehuels/blobstack/pkg/io"
	"github.com/matzehuels/blobstack/pkg/observability"
	"github.com/matzehuels/blobstack/pkg/pipeline"
	"github.com/matzehuels/blobstack/pkg/regions"
	"github.com/matzehuels/blobstack/pkg/roi"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// =============================================================================
// Region outputs
// =============================================================================

// regionOutputs names the files a region table is written to. Empty paths
// are skipped.
type regionOutputs struct {
	CSV    string
	SQLite string
	Graph  string // .svg renders the graph, anything else writes DOT
}

func (o regionOutputs) enabled() bool {
	return o.CSV != "" || o.SQLite != "" || o.Graph != ""
}

// writeRegions writes t (and, for the graph, the adjacency of labels) to
// every configured output and returns the paths written.
func writeRegions(ctx context.Context, hooks observability.ExportHooks, t *regions.Table, labels *volume.Volume, o regionOutputs) ([]string, error) {
	var written []string

	if o.CSV != "" {
		start := time.Now()
		err := writeFile(o.CSV, func(f *os.File) error { return regions.WriteCSV(f, t) })
		exported(ctx, hooks, "csv", o.CSV, start, err)
		if err != nil {
			return written, fmt.Errorf("write region table: %w", err)
		}
		written = append(written, o.CSV)
	}

	if o.SQLite != "" {
		start := time.Now()
		err := regions.WriteSQLite(ctx, o.SQLite, t)
		exported(ctx, hooks, "sqlite", o.SQLite, start, err)
		if err != nil {
			return written, fmt.Errorf("write region database: %w", err)
		}
		written = append(written, o.SQLite)
	}

	if o.Graph != "" {
		start := time.Now()
		dot := regions.ToDOT(t, regions.Adjacency(labels))
		var data []byte
		var err error
		if strings.EqualFold(filepath.Ext(o.Graph), ".svg") {
			data, err = regions.RenderSVG(ctx, dot)
		} else {
			data = []byte(dot)
		}
		if err == nil {
			err = writeFile(o.Graph, func(f *os.File) error {
				_, werr := f.Write(data)
				return werr
			})
		}
		exported(ctx, hooks, "graph", o.Graph, start, err)
		if err != nil {
			return written, fmt.Errorf("write region graph: %w", err)
		}
		written = append(written, o.Graph)
	}

	return written, nil
}

// writeFile creates path, including missing parent directories, and fills it
// with fn.
func writeFile(path string, fn func(*os.File) error) (err error) {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

// =============================================================================
// ROI sets
// =============================================================================

// exportROIs traces every label of labels and writes the ROI set dir/name.
// It returns the zip path and the number of contours.
func exportROIs(ctx context.Context, hooks observability.ExportHooks, labels *volume.Volume, dir, name string) (string, int, error) {
	start := time.Now()
	contours := roi.Trace(labels)
	zipPath, err := roi.ExportSet(dir, name, contours)
	exported(ctx, hooks, "roi", filepath.Join(dir, name+".zip"), start, err)
	if err != nil {
		return "", 0, fmt.Errorf("export roi set: %w", err)
	}
	return zipPath, len(contours), nil
}

// =============================================================================
// Stored stacks
// =============================================================================

// loadStack reads a stack written by generate. It must carry a label channel.
func loadStack(path string) (*volume.Stack, *stackio.Metadata, error) {
	s, meta, err := stackio.ImportTIFF(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	if len(s.Channels) <= pipeline.LabelChannel {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "%s has %d channels, need a label channel at index %d", path, len(s.Channels), pipeline.LabelChannel)
	}
	return s, meta, nil
}

// measure builds the region table of a stack's label channel (or labels, when
// given) over both intensity channels.
func measure(s *volume.Stack, labels *volume.Volume) (*regions.Table, error) {
	if labels == nil {
		labels = s.Channel(pipeline.LabelChannel)
	}
	t, err := regions.Measure(labels, s.Channel(pipeline.PrimaryChannel), s.Channel(pipeline.SecondaryChannel))
	if err != nil {
		return nil, fmt.Errorf("measure: %w", err)
	}
	return t, nil
}

// =============================================================================
// Display backends
// =============================================================================

// Display backends accepted by --backend and --view.
const (
	backendNone  = "none"
	backendTUI   = "tui"
	backendPNG   = "png"
	backendHTML  = "html"
	backendServe = "serve"
)

var backends = []string{backendNone, backendTUI, backendPNG, backendHTML, backendServe}

// viewOptions configure the display backends.
type viewOptions struct {
	Backend string
	Out     string // directory for png, file for html
	Addr    string // listen address for serve
	Title   string
}

// displayStack shows s with the chosen backend.
func (c *CLI) displayStack(ctx context.Context, s *volume.Stack, o viewOptions) error {
	switch o.Backend {
	case "", backendNone:
		return display.Discard{}.Display(ctx, s, 0)
	case backendTUI:
		return tuiDisplay{}.Display(ctx, s, 0)
	case backendPNG:
		dir := o.Out
		if dir == "" {
			dir = "."
		}
		d := display.PlotDisplay{Dir: dir, Prefix: o.Title}
		if err := d.Display(ctx, s, 0); err != nil {
			return err
		}
		for _, p := range d.Paths(len(s.Channels)) {
			printFile(p)
		}
		return nil
	case backendHTML:
		path := o.Out
		if isDir(path) || filepath.Ext(path) == "" {
			path = filepath.Join(path, o.Title+".html")
		}
		err := writeFile(path, func(f *os.File) error {
			return display.HTMLDisplay{W: f, Title: o.Title}.Display(ctx, s, 0)
		})
		if err != nil {
			return err
		}
		printFile(path)
		return nil
	case backendServe:
		printInfo("Serving %s on http://%s (Ctrl+C to stop)", o.Title, o.Addr)
		err := (&display.Server{Addr: o.Addr, Logger: c.Logger}).Display(ctx, s, 0)
		if ctx.Err() != nil {
			// Interrupting the server is the normal way to stop it.
			return nil
		}
		return err
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown display backend %q (must be one of %s)", o.Backend, strings.Join(backends, ", "))
	}
}

// isDir reports whether path names an existing directory. The empty path is
// the working directory.
func isDir(path string) bool {
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// stem returns the file name of path without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
