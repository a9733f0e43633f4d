// Package pipeline provides the synthesis pipeline for blobstack.
//
// This package implements the complete synthesize → segment → measure
// pipeline that is used by every CLI command. By centralizing this logic,
// single and chunked runs share one code path and produce identical stacks
// for identical options.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Synthesize: Draw blob parameters and render two intensity channels
//  2. Segment: Otsu-threshold the primary channel and label it by watershed
//  3. Measure: Build the region table from the label channel
//
// [Assemble] runs the first two stages once. [Chunked] repeats them per chunk
// and merges the results into one stack. [Runner.Execute] adds measurement.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(logger, nil)
//	opts := pipeline.Options{
//	    NumCells: 10,
//	    Shape:    volume.Shape{X: 104, Y: 104, Z: 2},
//	    DType:    volume.Uint8,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	labels := result.Stack.Channel(pipeline.LabelChannel)
package pipeline

import (
	"time"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/regions"
	"github.com/matzehuels/blobstack/pkg/synth"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config
// =============================================================================

const (
	// DefaultNumCells is the cell count of the default configuration.
	DefaultNumCells = 10

	// DefaultSeed is the default base seed. Chunk i uses DefaultSeed + i.
	DefaultSeed = uint64(0)

	// DefaultDType is the default intensity sample type.
	DefaultDType = volume.Uint8
)

// DefaultShape is the default volume shape (x, y, z).
var DefaultShape = volume.Shape{X: 104, Y: 104, Z: 2}

// Channel indices of an assembled stack.
const (
	PrimaryChannel   = 0
	SecondaryChannel = 1
	LabelChannel     = 2
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization so runs can be recorded.
type Options struct {
	// NumCells is the total cell count. Zero is a valid run that produces
	// an all-zero stack; it is not replaced by DefaultNumCells.
	NumCells int          `json:"num_cells"`
	Shape    volume.Shape `json:"shape"`
	DType    volume.DType `json:"dtype"`
	Seed     uint64       `json:"seed"`

	// ChunkSize > 0 switches to the chunked driver with
	// NumCells/ChunkSize chunks of ChunkSize cells each.
	ChunkSize int `json:"chunk_size,omitempty"`

	Params synth.Params `json:"params"`

	// Resegment re-runs the watershed on the non-zero voxels of the label
	// channel before measuring regions.
	Resegment bool `json:"resegment,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies the run; it is embedded in exported stacks.
	RunID string

	// Options are the validated options the run used.
	Options Options

	// Stack is the assembled (C, Z, Y, X) stack.
	Stack *volume.Stack

	// Labels is the label volume the regions were measured on. It is the
	// stack's label channel unless Options.Resegment is set.
	Labels *volume.Volume

	// Regions is the per-label region table.
	Regions *regions.Table

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Cells       int
	Chunks      int
	Labels      int
	EmptyChunks int // chunks whose channels had no positive maximum
	Warnings    []error
	SynthTime   time.Duration
	SegmentTime time.Duration
	MeasureTime time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.NumCells < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "num_cells must not be negative, got %d", o.NumCells)
	}
	if o.Shape == (volume.Shape{}) {
		o.Shape = DefaultShape
	}
	if err := o.Shape.Validate(); err != nil {
		return err
	}
	if o.DType == 0 {
		o.DType = DefaultDType
	}
	if !o.DType.Valid() {
		return errors.New(errors.ErrCodeInvalidDType, "invalid dtype %d", uint8(o.DType))
	}
	if o.Params.IsZero() {
		o.Params = synth.DefaultParams()
	}
	if err := o.Params.Validate(); err != nil {
		return err
	}
	if o.ChunkSize < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "chunk_size must not be negative, got %d", o.ChunkSize)
	}
	if o.Chunked() && o.NumCells/o.ChunkSize < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "chunk_size %d exceeds num_cells %d", o.ChunkSize, o.NumCells)
	}
	o.validated = true
	return nil
}

// Chunked reports whether the run uses the chunk driver.
func (o *Options) Chunked() bool {
	return o.ChunkSize > 0
}

// Chunks returns the number of assemblies the run performs.
func (o *Options) Chunks() int {
	if !o.Chunked() {
		return 1
	}
	return o.NumCells / o.ChunkSize
}

// CellsUsed returns the number of cells actually synthesized. In chunked mode
// the remainder of NumCells/ChunkSize is dropped.
func (o *Options) CellsUsed() int {
	if !o.Chunked() {
		return o.NumCells
	}
	return o.Chunks() * o.ChunkSize
}
