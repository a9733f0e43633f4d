package volume

import "math"

// Field is a float intensity volume used before quantization.
type Field struct {
	Shape Shape
	Data  []float64
}

// NewField allocates an all-zero field.
func NewField(shape Shape) *Field {
	return &Field{Shape: shape, Data: make([]float64, shape.Len())}
}

// At returns the value at (z, y, x).
func (f *Field) At(z, y, x int) float64 { return f.Data[f.Shape.Index(z, y, x)] }

// Max returns the largest non-NaN value. It returns 0 when the field has no
// finite values.
func (f *Field) Max() float64 {
	m := math.Inf(-1)
	for _, v := range f.Data {
		if v > m {
			m = v
		}
	}
	if math.IsInf(m, 0) {
		return 0
	}
	return m
}

// Quantize scales the field to [0, dtype.Max()] by dividing by its maximum,
// clips negative values to zero and truncates to integers.
//
// A field whose maximum is not positive cannot be normalized; Quantize then
// returns an all-zero volume and empty=true instead of dividing by zero.
func (f *Field) Quantize(dtype DType) (v *Volume, empty bool) {
	v = New(f.Shape, dtype)
	peak := f.Max()
	if !(peak > 0) {
		return v, true
	}
	top := float64(dtype.Max())
	for i, val := range f.Data {
		s := val / peak * top
		switch {
		case !(s > 0):
			// negative residue and NaN
			continue
		case s >= top:
			v.Data[i] = dtype.Max()
		default:
			v.Data[i] = uint32(s)
		}
	}
	return v, false
}
