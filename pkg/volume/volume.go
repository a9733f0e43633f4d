package volume

import (
	"slices"

	"github.com/matzehuels/blobstack/pkg/errors"
)

// Volume is a dense quantized volume. Values never exceed DType.Max().
//
// Label volumes use the same type: 0 is background and positive values are
// region labels.
type Volume struct {
	Shape Shape
	DType DType
	Data  []uint32
}

// New allocates an all-zero volume.
func New(shape Shape, dtype DType) *Volume {
	return &Volume{Shape: shape, DType: dtype, Data: make([]uint32, shape.Len())}
}

// At returns the value at (z, y, x).
func (v *Volume) At(z, y, x int) uint32 { return v.Data[v.Shape.Index(z, y, x)] }

// Set stores val at (z, y, x).
func (v *Volume) Set(z, y, x int, val uint32) { v.Data[v.Shape.Index(z, y, x)] = val }

// Max returns the largest value, or 0 for an empty volume.
func (v *Volume) Max() uint32 {
	var m uint32
	for _, val := range v.Data {
		if val > m {
			m = val
		}
	}
	return m
}

// Min returns the smallest value, or 0 for an empty volume.
func (v *Volume) Min() uint32 {
	if len(v.Data) == 0 {
		return 0
	}
	m := v.Data[0]
	for _, val := range v.Data[1:] {
		if val < m {
			m = val
		}
	}
	return m
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	return &Volume{Shape: v.Shape, DType: v.DType, Data: slices.Clone(v.Data)}
}

// Equal reports whether two volumes have the same shape, dtype and values.
func (v *Volume) Equal(o *Volume) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.Shape == o.Shape && v.DType == o.DType && slices.Equal(v.Data, o.Data)
}

// Plane returns the values of depth plane z in row-major order. The returned
// slice aliases the volume.
func (v *Volume) Plane(z int) []uint32 {
	n := v.Shape.X * v.Shape.Y
	return v.Data[z*n : (z+1)*n]
}

// CountNonZero returns the number of non-zero voxels.
func (v *Volume) CountNonZero() int {
	n := 0
	for _, val := range v.Data {
		if val != 0 {
			n++
		}
	}
	return n
}

// Labels returns the distinct non-zero values in ascending order.
func (v *Volume) Labels() []uint32 {
	seen := make(map[uint32]struct{})
	for _, val := range v.Data {
		if val != 0 {
			seen[val] = struct{}{}
		}
	}
	out := make([]uint32, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Threshold returns the mask of voxels strictly greater than t.
func (v *Volume) Threshold(t uint32) *Mask {
	m := NewMask(v.Shape)
	for i, val := range v.Data {
		m.Data[i] = val > t
	}
	return m
}

// NonZero returns the mask of non-zero voxels.
func (v *Volume) NonZero() *Mask { return v.Threshold(0) }

// Bytes returns the in-memory size of the voxel data at the volume's dtype.
func (v *Volume) Bytes() uint64 {
	return uint64(len(v.Data)) * uint64(v.DType.Bytes())
}

// Widen returns v with its dtype raised to at least d. Values are unchanged.
func (v *Volume) Widen(d DType) *Volume {
	v.DType = Widest(v.DType, d)
	return v
}

// CheckSameShape returns an INVALID_SHAPE error when the shapes differ.
func CheckSameShape(a, b Shape) error {
	if a != b {
		return errors.New(errors.ErrCodeInvalidShape, "shape mismatch: %s vs %s", a, b)
	}
	return nil
}
