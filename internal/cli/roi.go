package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blobstack/pkg/observability"
	"github.com/matzehuels/blobstack/pkg/pipeline"
)

// roiCommand creates the roi command for exporting label outlines.
func (c *CLI) roiCommand() *cobra.Command {
	var dir, name string

	cmd := &cobra.Command{
		Use:   "roi [stack.tif]",
		Short: "Export label outlines as an ImageJ ROI set",
		Long: `Export the outline of every label in every z-plane of a stack as ImageJ
polygon ROIs.

The ROIs are written to <dir>/<name>/roi_NNNN.roi and archived as
<dir>/<name>.zip, which ImageJ opens in the ROI manager. Existing sets are
never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("dir") && c.Config.ROI.Dir != "" {
				dir = c.Config.ROI.Dir
			}
			if name == "" {
				name = stem(args[0])
			}
			return c.runROI(cmd.Context(), args[0], dir, name)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory to create the set in")
	cmd.Flags().StringVar(&name, "name", "", "set name (default: stack file name)")

	return cmd
}

func (c *CLI) runROI(ctx context.Context, input, dir, name string) error {
	prog := newProgress(c.Logger)
	stack, _, err := loadStack(input)
	if err != nil {
		return err
	}
	zipPath, n, err := exportROIs(ctx, observability.NewLogHooks(c.Logger), stack.Channel(pipeline.LabelChannel), dir, name)
	if err != nil {
		return err
	}
	prog.done("Traced label outlines")
	printSuccess("Exported %d outlines", n)
	printFile(zipPath)
	return nil
}
