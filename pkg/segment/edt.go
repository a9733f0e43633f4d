package segment

import (
	"math"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// DistanceTransform returns the exact Euclidean distance from every
// foreground voxel of mask to the nearest background voxel. Background voxels
// get 0.
//
// The squared transform is computed separably along x, y and z with the
// lower-envelope algorithm of Felzenszwalb and Huttenlocher. A mask without
// any background has no finite distance; those voxels get the length of the
// volume diagonal so that downstream ordering stays well defined.
func DistanceTransform(mask *volume.Mask) *volume.Field {
	s := mask.Shape
	f := volume.NewField(s)
	for i, fg := range mask.Data {
		if fg {
			f.Data[i] = math.Inf(1)
		}
	}

	n := max(s.X, s.Y, s.Z)
	line := make([]float64, n)
	out := make([]float64, n)
	env := newEnvelope(n)

	// x: contiguous rows.
	for z := 0; z < s.Z; z++ {
		for y := 0; y < s.Y; y++ {
			base := s.Index(z, y, 0)
			row := f.Data[base : base+s.X]
			copy(line, row)
			env.transform(line[:s.X], out[:s.X])
			copy(row, out[:s.X])
		}
	}
	// y: stride X.
	for z := 0; z < s.Z; z++ {
		for x := 0; x < s.X; x++ {
			for y := 0; y < s.Y; y++ {
				line[y] = f.Data[s.Index(z, y, x)]
			}
			env.transform(line[:s.Y], out[:s.Y])
			for y := 0; y < s.Y; y++ {
				f.Data[s.Index(z, y, x)] = out[y]
			}
		}
	}
	// z: stride X*Y.
	if s.Z > 1 {
		for y := 0; y < s.Y; y++ {
			for x := 0; x < s.X; x++ {
				for z := 0; z < s.Z; z++ {
					line[z] = f.Data[s.Index(z, y, x)]
				}
				env.transform(line[:s.Z], out[:s.Z])
				for z := 0; z < s.Z; z++ {
					f.Data[s.Index(z, y, x)] = out[z]
				}
			}
		}
	}

	diag := math.Sqrt(float64(s.X*s.X + s.Y*s.Y + s.Z*s.Z))
	for i, d2 := range f.Data {
		if math.IsInf(d2, 1) {
			f.Data[i] = diag
			continue
		}
		f.Data[i] = math.Sqrt(d2)
	}
	return f
}

// envelope holds the scratch buffers of the 1-D squared distance transform.
type envelope struct {
	v []int     // parabola vertices
	z []float64 // boundaries between parabolas
}

func newEnvelope(n int) *envelope {
	return &envelope{v: make([]int, n), z: make([]float64, n+1)}
}

// transform computes d[q] = min_p (q-p)^2 + f[p]. Infinite samples carry no
// parabola; a line without any finite sample stays infinite.
func (e *envelope) transform(f, d []float64) {
	k := -1
	for q := range f {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			e.v[0] = q
			e.z[0] = math.Inf(-1)
			e.z[1] = math.Inf(1)
			continue
		}
		fq := f[q] + float64(q*q)
		var s float64
		for {
			p := e.v[k]
			s = (fq - (f[p] + float64(p*p))) / float64(2*q-2*p)
			if s > e.z[k] {
				break
			}
			k--
		}
		k++
		e.v[k] = q
		e.z[k] = s
		e.z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for q := range d {
			d[q] = math.Inf(1)
		}
		return
	}
	j := 0
	for q := range d {
		for e.z[j+1] < float64(q) {
			j++
		}
		p := e.v[j]
		d[q] = float64((q-p)*(q-p)) + f[p]
	}
}
