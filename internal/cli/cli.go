// Package cli implements the blobstack command-line interface.
//
// The CLI generates synthetic three-channel blob stacks, derives region
// tables and ImageJ ROI sets from stored stacks, and displays stacks in the
// terminal, as PNG or HTML files, or over HTTP. It is built with cobra and
// logs through charmbracelet/log.
//
// # Commands
//
//   - generate: Synthesize, segment and export a stack
//   - regions: Measure the regions of a stored stack
//   - roi: Export the label outlines of a stored stack as an ROI set
//   - view: Display a stored stack
//   - completion, version
//
// # Configuration
//
// --config loads a TOML, YAML or JSON file (see pkg/config). Flags given on
// the command line override values from the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. --log-file,
// or logfile in the [logging] section, additionally writes the log to a
// rotating file.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/blobstack/pkg/buildinfo"
	"github.com/matzehuels/blobstack/pkg/config"
	"github.com/matzehuels/blobstack/pkg/observability"
	"github.com/matzehuels/blobstack/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for commands and display.
const appName = "blobstack"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is the loaded configuration, or config.Default without --config.
	Config config.Config

	out        io.Writer // log destination besides the log file
	configPath string
	logFile    string
	verbose    bool
	logCloser  io.Closer
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		out:    w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Close releases the log file, if one is open.
func (c *CLI) Close() error {
	if c.logCloser == nil {
		return nil
	}
	err := c.logCloser.Close()
	c.logCloser = nil
	return err
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Blobstack synthesizes and segments volumetric blob images",
		Long: `Blobstack generates synthetic 3D fluorescence-like images of blob-shaped
cells together with a watershed segmentation, and exports them as multi-page
TIFF stacks, region tables and ImageJ ROI sets.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVarP(&c.configPath, "config", "c", "", "configuration file (.toml, .yaml or .json)")
	flags.StringVar(&c.logFile, "log-file", "", "also write the log to this rotating file")

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.regionsCommand())
	root.AddCommand(c.roiCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// setup loads the configuration and configures logging before any command
// runs.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.configPath != "" {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		c.Config = cfg
	}

	level, err := c.Config.Logging.ParseLevel()
	if err != nil {
		return err
	}
	if c.verbose {
		level = LogDebug
	}

	logCfg := c.Config.Logging
	if c.logFile != "" {
		logCfg.Logfile = c.logFile
	}
	if w := logCfg.Writer(); w != nil {
		c.logCloser = w
		c.Logger = newLogger(io.MultiWriter(c.out, w), level)
		c.Logger.Debug("logging to file", "path", logCfg.Logfile)
	} else {
		c.SetLogLevel(level)
	}
	if c.configPath != "" {
		c.Logger.Debug("loaded config", "path", c.configPath)
	}
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner that logs stage events.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger, observability.NewLogHooks(c.Logger))
}

// =============================================================================
// Misc
// =============================================================================

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), appName+" "+buildinfo.String())
		},
	}
}

// stdout is where command results are printed.
var stdout io.Writer = os.Stdout
