package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blobstack/pkg/observability"
	"github.com/matzehuels/blobstack/pkg/pipeline"
)

// regionsCommand creates the regions command for measuring a stored stack.
func (c *CLI) regionsCommand() *cobra.Command {
	var (
		out       regionOutputs
		resegment bool
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "regions [stack.tif]",
		Short: "Measure the labelled regions of a stack",
		Long: `Measure the labelled regions of a stack written by 'generate'.

For every label of channel 2 the table lists its voxel count, centroid (z, y, x)
and mean intensity in channels 0 and 1. The table is printed and can be
written as tab-separated text, a SQLite database or a region adjacency graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("csv") {
				out.CSV = c.Config.Regions.CSV
			}
			if !cmd.Flags().Changed("sqlite") {
				out.SQLite = c.Config.Regions.SQLite
			}
			if !cmd.Flags().Changed("graph") {
				out.Graph = c.Config.Regions.Graph
			}
			if !cmd.Flags().Changed("resegment") {
				resegment = c.Config.Regions.Resegment
			}
			return c.runRegions(cmd.Context(), args[0], out, resegment, limit)
		},
	}

	cmd.Flags().StringVar(&out.CSV, "csv", "", "write the table as tab-separated text")
	cmd.Flags().StringVar(&out.SQLite, "sqlite", "", "write the table to a new SQLite database")
	cmd.Flags().StringVar(&out.Graph, "graph", "", "write the adjacency graph (.dot or .svg)")
	cmd.Flags().BoolVar(&resegment, "resegment", false, "re-run the watershed on the labels before measuring")
	cmd.Flags().IntVar(&limit, "limit", 20, "rows to print (0 prints all)")

	return cmd
}

func (c *CLI) runRegions(ctx context.Context, input string, out regionOutputs, resegment bool, limit int) error {
	prog := newProgress(c.Logger)
	stack, meta, err := loadStack(input)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded stack", "path", input, "dims", stack.Dims(), "run_id", meta.RunID)

	labels := stack.Channel(pipeline.LabelChannel)
	if resegment {
		if labels, err = c.newRunner().Resegment(labels); err != nil {
			return fmt.Errorf("resegment: %w", err)
		}
	}
	table, err := measure(stack, labels)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Measured %d regions", table.Len()))

	printSuccess("%s regions in %s", StyleNumber.Render(fmt.Sprint(table.Len())), input)
	if table.Len() > 0 {
		fmt.Fprintln(stdout, regionTable(table, limit))
	}

	written, err := writeRegions(ctx, observability.NewLogHooks(c.Logger), table, labels, out)
	for _, p := range written {
		printFile(p)
	}
	return err
}
