package synth

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// pcgStream is the fixed PCG stream selector; the seed picks the state.
const pcgStream = 0x626c6f62737461 // "blobsta"

// Cells holds the random parameters of every synthetic cell. All slices have
// one entry per cell.
type Cells struct {
	Centers      [][3]int
	Sizes        [][3]float64
	Intensities0 []float64
	Intensities1 []float64
}

// Len returns the number of cells.
func (c Cells) Len() int { return len(c.Centers) }

// Output is the result of [Generate].
type Output struct {
	// Primary is the channel thresholded for segmentation; Secondary uses the
	// second intensity draw.
	Primary   *volume.Volume
	Secondary *volume.Volume
	Cells     Cells
	// Empty is set when a channel had no positive maximum and was returned
	// as all zeros instead of being normalized.
	Empty bool
}

// NewSource returns the deterministic random source used for seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, pcgStream)
}

// Draw samples the parameters of numCells cells. Centers are uniform integers
// in [0, extent) per axis; sizes and both intensity sets are normal draws.
// Everything comes from one source seeded with seed, in the order centers,
// sizes, intensities0, intensities1.
func Draw(numCells int, shape volume.Shape, p Params, seed uint64) Cells {
	src := NewSource(seed)
	rng := rand.New(src)

	c := Cells{
		Centers:      make([][3]int, numCells),
		Sizes:        make([][3]float64, numCells),
		Intensities0: make([]float64, numCells),
		Intensities1: make([]float64, numCells),
	}
	for i := range c.Centers {
		for axis := 0; axis < 3; axis++ {
			c.Centers[i][axis] = rng.IntN(shape.Extent(axis))
		}
	}

	var sizeDist [3]distuv.Normal
	for axis := range sizeDist {
		sizeDist[axis] = distuv.Normal{Mu: p.CellSize[axis], Sigma: p.CellSizeStd[axis], Src: src}
	}
	for i := range c.Sizes {
		for axis := range sizeDist {
			c.Sizes[i][axis] = sizeDist[axis].Rand()
		}
	}

	intensity := distuv.Normal{Mu: p.MeanIntensity, Sigma: p.IntensityStd, Src: src}
	for i := range c.Intensities0 {
		c.Intensities0[i] = intensity.Rand()
	}
	for i := range c.Intensities1 {
		c.Intensities1[i] = intensity.Rand()
	}
	return c
}

// Render evaluates the sum of all cell Gaussians, weighted by intensities,
// at every voxel of shape. The result is stored in depth-row-column order.
//
// Per-cell contributions are accumulated into one pre-allocated field, so
// peak memory is a single volume regardless of the cell count.
func Render(c Cells, intensities []float64, shape volume.Shape, p Params) *volume.Field {
	f := volume.NewField(shape)
	gx := make([]float64, shape.X)
	gy := make([]float64, shape.Y)
	gz := make([]float64, shape.Z)

	for i, center := range c.Centers {
		size := c.Sizes[i]
		sx, sy, sz := size[0], size[1], size[2]
		if p.XYSymmetric {
			sy = sx
		}
		gaussian(gx, float64(center[0]), sx)
		gaussian(gy, float64(center[1]), sy)
		gaussian(gz, float64(center[2]), sz)

		amp := intensities[i]
		for z, wz := range gz {
			wz *= amp
			if wz == 0 {
				continue
			}
			for y, wy := range gy {
				w := wz * wy
				if w == 0 {
					continue
				}
				row := f.Data[shape.Index(z, y, 0):shape.Index(z, y, 0)+shape.X]
				for x, wx := range gx {
					row[x] += w * wx
				}
			}
		}
	}
	return f
}

// gaussian fills dst[k] = exp(-((k-center)/width)^2).
func gaussian(dst []float64, center, width float64) {
	for k := range dst {
		d := (float64(k) - center) / width
		dst[k] = math.Exp(-d * d)
	}
}

// Generate draws numCells cells and renders both intensity channels,
// normalized to [0, dtype.Max()].
//
// numCells may be zero; the channels are then all zeros and Output.Empty is
// set.
func Generate(numCells int, shape volume.Shape, dtype volume.DType, seed uint64, p Params) (*Output, error) {
	if numCells < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cell count must not be negative, got %d", numCells)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if !dtype.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidDType, "invalid dtype %d", uint8(dtype))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	cells := Draw(numCells, shape, p, seed)
	primary, empty0 := Render(cells, cells.Intensities0, shape, p).Quantize(dtype)
	secondary, empty1 := Render(cells, cells.Intensities1, shape, p).Quantize(dtype)

	return &Output{
		Primary:   primary,
		Secondary: secondary,
		Cells:     cells,
		Empty:     empty0 || empty1,
	}, nil
}
