package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blobstack/pkg/config"
	"github.com/matzehuels/blobstack/pkg/display"
	"github.com/matzehuels/blobstack/pkg/errors"
	stackio "github.com/matzehuels/blobstack/pkg/io"
	"github.com/matzehuels/blobstack/pkg/observability"
	"github.com/matzehuels/blobstack/pkg/pipeline"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// generateFlags holds the command-line values of generate. They override the
// loaded configuration only when set explicitly.
type generateFlags struct {
	cells     int
	shape     string
	dtype     string
	seed      uint64
	chunkSize int
	output    string
	compress  bool
	csv       string
	sqlite    string
	graph     string
	resegment bool
	roiDir    string
	roiName   string
	view      string
	viewOut   string
	addr      string
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize, segment and export a blob stack",
		Long: `Synthesize a three-channel blob stack and export it as a TIFF.

Channel 0 and 1 hold two independently drawn intensity images of the same
cells, channel 2 the watershed segmentation of channel 0. With --chunk-size the
cells are generated in chunks of that many cells, each seeded with seed+i, and
merged into one stack with unique labels.

The region table, its adjacency graph and an ImageJ ROI set can be written in
the same run.`,
		Example: `  blobstack generate -n 10 --shape 104,104,2 -o blobs.tif
  blobstack generate -n 100 --chunk-size 10 --csv regions.csv --roi-dir rois
  blobstack generate --config run.toml --view html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.apply(cmd, c.Config)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), cfg, viewOptions{Backend: f.view, Out: f.viewOut, Addr: f.addr})
		},
	}

	def := config.Default()
	flags := cmd.Flags()
	flags.IntVarP(&f.cells, "cells", "n", def.Synth.NumCells, "number of cells")
	flags.StringVar(&f.shape, "shape", pipeline.DefaultShape.String(), "volume shape as x,y,z")
	flags.StringVar(&f.dtype, "dtype", def.Synth.DType, "intensity dtype: uint8, uint16, uint32")
	flags.Uint64Var(&f.seed, "seed", def.Synth.Seed, "random seed (chunk i uses seed+i)")
	flags.IntVar(&f.chunkSize, "chunk-size", 0, "cells per chunk (0 disables chunking)")
	flags.StringVarP(&f.output, "output", "o", def.Output.Path, "output TIFF path")
	flags.BoolVar(&f.compress, "compress", false, "deflate-compress TIFF strips")
	flags.StringVar(&f.csv, "csv", "", "write the region table as tab-separated text")
	flags.StringVar(&f.sqlite, "sqlite", "", "write the region table to a new SQLite database")
	flags.StringVar(&f.graph, "graph", "", "write the region adjacency graph (.dot or .svg)")
	flags.BoolVar(&f.resegment, "resegment", false, "re-run the watershed on the labels before measuring")
	flags.StringVar(&f.roiDir, "roi-dir", "", "export an ImageJ ROI set into this directory")
	flags.StringVar(&f.roiName, "roi-name", "", "ROI set name (default: output file name)")
	flags.StringVar(&f.view, "view", backendNone, "display the stack: none, tui, png, html, serve")
	flags.StringVar(&f.viewOut, "view-out", ".", "output directory (png) or file (html) for --view")
	flags.StringVar(&f.addr, "addr", display.DefaultAddr, "listen address for --view serve")

	return cmd
}

// apply overlays explicitly set flags on cfg.
func (f generateFlags) apply(cmd *cobra.Command, cfg config.Config) (config.Config, error) {
	set := cmd.Flags().Changed
	if set("cells") {
		cfg.Synth.NumCells = f.cells
	}
	if set("shape") {
		s, err := volume.ParseShape(f.shape)
		if err != nil {
			return cfg, err
		}
		cfg.Synth.Shape = []int{s.X, s.Y, s.Z}
	}
	if set("dtype") {
		cfg.Synth.DType = f.dtype
	}
	if set("seed") {
		cfg.Synth.Seed = f.seed
	}
	if set("chunk-size") {
		cfg.Chunk.Size = f.chunkSize
	}
	if set("output") {
		cfg.Output.Path = f.output
	}
	if set("compress") {
		cfg.Output.Compress = f.compress
	}
	if set("csv") {
		cfg.Regions.CSV = f.csv
	}
	if set("sqlite") {
		cfg.Regions.SQLite = f.sqlite
	}
	if set("graph") {
		cfg.Regions.Graph = f.graph
	}
	if set("resegment") {
		cfg.Regions.Resegment = f.resegment
	}
	if set("roi-dir") {
		cfg.ROI.Dir = f.roiDir
	}
	if set("roi-name") {
		cfg.ROI.Name = f.roiName
	} else if set("output") || cfg.ROI.Name == "" {
		cfg.ROI.Name = stem(cfg.Output.Path)
	}
	return cfg, nil
}

// runGenerate executes the pipeline and writes every configured output.
func (c *CLI) runGenerate(ctx context.Context, cfg config.Config, view viewOptions) error {
	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	hooks := observability.NewLogHooks(c.Logger)
	runner := c.newRunner()

	prog := newProgress(c.Logger)
	var spinner *Spinner
	if !c.verbose {
		spinner = newSpinner(ctx, fmt.Sprintf("Synthesizing %d cells...", opts.CellsUsed()))
		runner.Hooks = spinnerHooks{PipelineHooks: runner.Hooks, spinner: spinner}
		spinner.Start()
	}

	res, err := runner.Execute(ctx, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		printError("Generation failed")
		return fmt.Errorf("generate: %w", err)
	}
	prog.done(fmt.Sprintf("Generated %d cells in %d chunk(s)", res.Stats.Cells, res.Stats.Chunks))

	// Stack
	out := cfg.Output.Path
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	start := time.Now()
	err = stackio.ExportTIFF(out, res.Stack, stackio.WriteOptions{Compress: cfg.Output.Compress, RunID: res.RunID})
	exported(ctx, hooks, "tiff", out, start, err)
	if err != nil {
		return fmt.Errorf("export stack: %w", err)
	}

	printSuccess("Generated stack %s", StyleNumber.Render(res.RunID))
	for _, w := range res.Stats.Warnings {
		printWarning("%s", errors.UserMessage(w))
	}
	printStackSummary(res.Stack, res.Labels.Max())
	printFile(out)

	// Regions
	ro := regionOutputs{CSV: cfg.Regions.CSV, SQLite: cfg.Regions.SQLite, Graph: cfg.Regions.Graph}
	if ro.enabled() {
		written, err := writeRegions(ctx, hooks, res.Regions, res.Labels, ro)
		for _, p := range written {
			printFile(p)
		}
		if err != nil {
			return err
		}
	}

	// ROI set
	if cfg.ROI.Dir != "" {
		zipPath, n, err := exportROIs(ctx, hooks, res.Labels, cfg.ROI.Dir, cfg.ROI.Name)
		if err != nil {
			return err
		}
		printInfo("Exported %d outlines", n)
		printFile(zipPath)
	}

	if view.Backend != "" && view.Backend != backendNone {
		view.Title = stem(out)
		return c.displayStack(ctx, res.Stack, view)
	}
	printNextStep("Inspect regions", fmt.Sprintf("%s regions %s", appName, out))
	return nil
}
