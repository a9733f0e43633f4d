package segment

import (
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// Otsu returns the global threshold that maximizes the between-class
// variance of v's histogram. The histogram has one bin per integer value
// between v's minimum and maximum; the threshold is a bin value and
// foreground is everything strictly above it.
//
// A constant volume has no threshold that splits it, and ok is false.
func Otsu(v *volume.Volume) (threshold uint32, ok bool) {
	lo, hi := v.Min(), v.Max()
	if lo == hi {
		return lo, false
	}

	nbins := int(hi-lo) + 1
	hist := make([]float64, nbins)
	for _, val := range v.Data {
		hist[val-lo]++
	}

	weighted := make([]float64, nbins)
	for i, h := range hist {
		weighted[i] = h * float64(lo+uint32(i))
	}

	w1 := floats.CumSum(make([]float64, nbins), hist)
	m1 := floats.CumSum(make([]float64, nbins), weighted)

	// Suffix sums via reversed cumulative sums.
	rev := make([]float64, nbins)
	revW := make([]float64, nbins)
	for i := range hist {
		rev[i] = hist[nbins-1-i]
		revW[i] = weighted[nbins-1-i]
	}
	w2r := floats.CumSum(make([]float64, nbins), rev)
	m2r := floats.CumSum(make([]float64, nbins), revW)

	best := -1.0
	idx := 0
	for i := 0; i < nbins-1; i++ {
		wa := w1[i]
		wb := w2r[nbins-2-i]
		ma := m1[i] / wa
		mb := m2r[nbins-2-i] / wb
		between := wa * wb * (ma - mb) * (ma - mb)
		if between > best {
			best = between
			idx = i
		}
	}
	return lo + uint32(idx), true
}
