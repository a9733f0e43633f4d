package synth

import (
	"github.com/matzehuels/blobstack/pkg/errors"
)

// Params holds the distribution parameters of the blob model.
type Params struct {
	// CellSize is the mean Gaussian width per axis (x, y, z).
	CellSize [3]float64 `json:"cell_size" toml:"cell_size" yaml:"cell_size"`
	// CellSizeStd is the standard deviation of the width per axis.
	CellSizeStd [3]float64 `json:"cell_size_std" toml:"cell_size_std" yaml:"cell_size_std"`
	// MeanIntensity and IntensityStd parametrize both intensity draws.
	MeanIntensity float64 `json:"mean_intensity" toml:"mean_intensity" yaml:"mean_intensity"`
	IntensityStd  float64 `json:"intensity_std" toml:"intensity_std" yaml:"intensity_std"`
	// XYSymmetric forces the y width to equal the x width.
	XYSymmetric bool `json:"xy_symmetric" toml:"xy_symmetric" yaml:"xy_symmetric"`
}

// DefaultParams returns the parameters of the reference dataset: widths
// around (5, 5, 1) and intensities around 100.
func DefaultParams() Params {
	return Params{
		CellSize:      [3]float64{5, 5, 1},
		CellSizeStd:   [3]float64{1, 1, 0.01},
		MeanIntensity: 100,
		IntensityStd:  30,
		XYSymmetric:   true,
	}
}

// IsZero reports whether p is the zero value, which callers treat as "use
// DefaultParams".
func (p Params) IsZero() bool { return p == Params{} }

// Validate rejects negative standard deviations.
func (p Params) Validate() error {
	for axis, s := range p.CellSizeStd {
		if s < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "cell_size_std[%d] must not be negative, got %g", axis, s)
		}
	}
	if p.IntensityStd < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "intensity_std must not be negative, got %g", p.IntensityStd)
	}
	return nil
}
