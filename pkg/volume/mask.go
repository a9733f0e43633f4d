package volume

// Mask is a binary volume.
type Mask struct {
	Shape Shape
	Data  []bool
}

// NewMask allocates an all-false mask.
func NewMask(shape Shape) *Mask {
	return &Mask{Shape: shape, Data: make([]bool, shape.Len())}
}

// At returns the value at (z, y, x).
func (m *Mask) At(z, y, x int) bool { return m.Data[m.Shape.Index(z, y, x)] }

// Set stores val at (z, y, x).
func (m *Mask) Set(z, y, x int, val bool) { m.Data[m.Shape.Index(z, y, x)] = val }

// Any reports whether at least one voxel is set.
func (m *Mask) Any() bool {
	for _, b := range m.Data {
		if b {
			return true
		}
	}
	return false
}

// Count returns the number of set voxels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Data {
		if b {
			n++
		}
	}
	return n
}
