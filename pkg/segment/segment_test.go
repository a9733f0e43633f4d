package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// box sets the half-open box [z0,z1)x[y0,y1)x[x0,x1) in m.
func box(m *volume.Mask, z0, z1, y0, y1, x0, x1 int) {
	for z := z0; z < z1; z++ {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				m.Set(z, y, x, true)
			}
		}
	}
}

// bruteDistance is the O(n^2) reference for DistanceTransform.
func bruteDistance(m *volume.Mask) []float64 {
	s := m.Shape
	out := make([]float64, s.Len())
	for i, fg := range m.Data {
		if !fg {
			continue
		}
		z, y, x := s.Coords(i)
		best := math.Inf(1)
		for j, other := range m.Data {
			if other {
				continue
			}
			bz, by, bx := s.Coords(j)
			d := float64((z-bz)*(z-bz) + (y-by)*(y-by) + (x-bx)*(x-bx))
			best = math.Min(best, d)
		}
		out[i] = math.Sqrt(best)
	}
	return out
}

func TestDistanceTransformMatchesBruteForce(t *testing.T) {
	s := volume.Shape{X: 9, Y: 7, Z: 4}
	m := volume.NewMask(s)
	box(m, 0, 3, 1, 6, 1, 8)
	m.Set(3, 0, 0, true)
	m.Set(1, 3, 4, false)

	got := DistanceTransform(m)
	want := bruteDistance(m)
	for i := range want {
		z, y, x := s.Coords(i)
		assert.InDelta(t, want[i], got.Data[i], 1e-9, "voxel (%d,%d,%d)", z, y, x)
	}
}

func TestDistanceTransformNoBackground(t *testing.T) {
	s := volume.Shape{X: 3, Y: 4, Z: 1}
	m := volume.NewMask(s)
	box(m, 0, 1, 0, 4, 0, 3)

	got := DistanceTransform(m)
	for _, d := range got.Data {
		assert.False(t, math.IsInf(d, 0))
		assert.InDelta(t, math.Sqrt(26), d, 1e-12)
	}
}

func TestPeakLocalMaxPlateau(t *testing.T) {
	s := volume.Shape{X: 7, Y: 7, Z: 3}
	m := volume.NewMask(s)
	box(m, 1, 2, 1, 6, 1, 6)

	peaks := PeakLocalMax(DistanceTransform(m), m)
	assert.Equal(t, m.Count(), peaks.Count(), "every voxel of a one-voxel-thick slab is a plateau maximum")
}

// A wide base plane under a narrow cap: the base rim is a flat d=1 shoulder
// that touches higher voxels, so only the dome centre is a maximum.
func domedSlab() *volume.Mask {
	m := volume.NewMask(volume.Shape{X: 9, Y: 9, Z: 2})
	box(m, 0, 1, 1, 8, 1, 8)
	box(m, 1, 2, 3, 6, 3, 6)
	return m
}

func TestPeakLocalMaxRejectsShoulder(t *testing.T) {
	m := domedSlab()
	dist := DistanceTransform(m)
	assert.InDelta(t, 1.0, dist.At(0, 1, 1), 1e-12)
	assert.InDelta(t, math.Sqrt(5), dist.At(0, 4, 4), 1e-12)

	peaks := PeakLocalMax(dist, m)
	assert.Equal(t, 1, peaks.Count())
	assert.True(t, peaks.At(0, 4, 4))
}

func TestLabelComponents(t *testing.T) {
	s := volume.Shape{X: 5, Y: 5, Z: 1}
	m := volume.NewMask(s)
	m.Set(0, 0, 0, true)
	m.Set(0, 1, 1, true) // diagonal neighbour of (0,0)
	m.Set(0, 4, 4, true)

	_, n6 := LabelComponents(m, Face)
	assert.Equal(t, 3, n6)

	labels, n26 := LabelComponents(m, Full)
	assert.Equal(t, 2, n26)
	assert.Equal(t, uint32(1), labels.At(0, 0, 0))
	assert.Equal(t, uint32(1), labels.At(0, 1, 1))
	assert.Equal(t, uint32(2), labels.At(0, 4, 4))
}

func TestSegmentEmptyMask(t *testing.T) {
	s := volume.Shape{X: 6, Y: 5, Z: 2}
	labels, err := Segment(volume.NewMask(s))
	require.NoError(t, err)
	assert.Equal(t, 0, labels.CountNonZero())
	assert.Equal(t, s, labels.Shape)
}

func TestSegmentConvexBlob(t *testing.T) {
	tests := []struct {
		name  string
		shape volume.Shape
		fill  func(m *volume.Mask)
	}{
		{"cube", volume.Shape{X: 9, Y: 9, Z: 9}, func(m *volume.Mask) { box(m, 1, 8, 1, 8, 1, 8) }},
		{"thin slab", volume.Shape{X: 7, Y: 7, Z: 3}, func(m *volume.Mask) { box(m, 1, 2, 1, 6, 1, 6) }},
		{"full volume", volume.Shape{X: 4, Y: 3, Z: 2}, func(m *volume.Mask) { box(m, 0, 2, 0, 3, 0, 4) }},
		{"domed slab", volume.Shape{X: 9, Y: 9, Z: 2}, func(m *volume.Mask) { copy(m.Data, domedSlab().Data) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := volume.NewMask(tt.shape)
			tt.fill(m)
			labels, err := Segment(m)
			require.NoError(t, err)
			assert.Equal(t, []uint32{1}, labels.Labels())
			assert.Equal(t, m.Count(), labels.CountNonZero())
		})
	}
}

func TestSegmentSplitsTouchingCubes(t *testing.T) {
	s := volume.Shape{X: 9, Y: 9, Z: 17}
	m := volume.NewMask(s)
	box(m, 1, 8, 1, 8, 1, 8)
	box(m, 9, 16, 1, 8, 1, 8)
	m.Set(8, 4, 4, true) // one-voxel bridge

	labels, err := Segment(m)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, labels.Labels())
	assert.Equal(t, m.Count(), labels.CountNonZero())

	a, b := labels.At(4, 4, 4), labels.At(12, 4, 4)
	assert.NotEqual(t, a, b)
	for z := 1; z < 8; z++ {
		assert.Equal(t, a, labels.At(z, 1, 1))
		assert.Equal(t, b, labels.At(z+8, 7, 7))
	}
}

func TestWatershedUnreachable(t *testing.T) {
	s := volume.Shape{X: 5, Y: 1, Z: 1}
	m := volume.NewMask(s)
	m.Set(0, 0, 0, true)
	m.Set(0, 0, 1, true)
	m.Set(0, 0, 3, true)
	markers := volume.New(s, volume.Uint8)
	markers.Set(0, 0, 0, 1)

	out, err := Watershed(volume.NewField(s), markers, m)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 1, 0, 0, 0}, out.Data)
}

func TestWatershedMarkerOutsideMask(t *testing.T) {
	s := volume.Shape{X: 2, Y: 1, Z: 1}
	markers := volume.New(s, volume.Uint8)
	markers.Set(0, 0, 1, 1)
	_, err := Watershed(volume.NewField(s), markers, volume.NewMask(s))
	assert.Error(t, err)
}

func TestOtsu(t *testing.T) {
	tests := []struct {
		name   string
		values []uint32
		want   uint32
		ok     bool
	}{
		{"two levels", []uint32{0, 0, 0, 10, 10, 10}, 0, true},
		{"two clusters", []uint32{1, 2, 9, 10}, 2, true},
		{"constant", []uint32{7, 7, 7}, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &volume.Volume{
				Shape: volume.Shape{X: len(tt.values), Y: 1, Z: 1},
				DType: volume.Uint8,
				Data:  tt.values,
			}
			got, ok := Otsu(v)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelabel(t *testing.T) {
	v := &volume.Volume{Shape: volume.Shape{X: 3, Y: 1, Z: 1}, DType: volume.Uint8, Data: []uint32{0, 1, 2}}
	got := Relabel(v, 300)
	assert.Equal(t, []uint32{0, 301, 302}, got.Data)
	assert.Equal(t, volume.Uint16, got.DType)
	assert.Equal(t, []uint32{0, 1, 2}, v.Data, "input is not modified")
}
