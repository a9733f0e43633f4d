package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blobstack/pkg/display"
	"github.com/matzehuels/blobstack/pkg/errors"
)

// viewCommand creates the view command for displaying a stored stack.
func (c *CLI) viewCommand() *cobra.Command {
	opts := viewOptions{Backend: backendTUI}

	cmd := &cobra.Command{
		Use:   "view [stack.tif]",
		Short: "Display a stack",
		Long: `Display a stack written by 'generate'.

Backends:
  tui    browse channels and z-planes in the terminal (default)
  png    write one heatmap per channel into --out
  html   write an interactive page to --out
  serve  serve the pages over HTTP on --addr until interrupted`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(backends, opts.Backend) {
				return errors.New(errors.ErrCodeInvalidInput, "unknown display backend %q (must be one of %s)", opts.Backend, strings.Join(backends, ", "))
			}
			stack, _, err := loadStack(args[0])
			if err != nil {
				return err
			}
			opts.Title = stem(args[0])
			return c.displayStack(cmd.Context(), stack, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", opts.Backend, "display backend: tui, png, html, serve, none")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", ".", "output directory (png) or file (html)")
	cmd.Flags().StringVar(&opts.Addr, "addr", display.DefaultAddr, "listen address (serve)")

	return cmd
}
