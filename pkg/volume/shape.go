// Package volume provides the dense 3-D containers shared by the synthesizer,
// the segmentation stage and the exporters.
//
// Every container stores voxels in depth-row-column order: the voxel at
// generation coordinates (x, y, z) lives at index (z*Y+y)*X+x. A stack adds a
// leading channel axis, giving the CZYX layout written to TIFF files.
package volume

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/blobstack/pkg/errors"
)

// Shape is the extent of a volume in generation order (x, y, z).
type Shape struct {
	X int `json:"x" toml:"x" yaml:"x"`
	Y int `json:"y" toml:"y" yaml:"y"`
	Z int `json:"z" toml:"z" yaml:"z"`
}

// Len returns the number of voxels.
func (s Shape) Len() int { return s.X * s.Y * s.Z }

// Index returns the linear index of voxel (z, y, x).
func (s Shape) Index(z, y, x int) int { return (z*s.Y+y)*s.X + x }

// Coords is the inverse of Index.
func (s Shape) Coords(i int) (z, y, x int) {
	x = i % s.X
	i /= s.X
	y = i % s.Y
	z = i / s.Y
	return z, y, x
}

// Contains reports whether (z, y, x) lies inside the volume.
func (s Shape) Contains(z, y, x int) bool {
	return z >= 0 && z < s.Z && y >= 0 && y < s.Y && x >= 0 && x < s.X
}

// ZYX returns the extents in storage order.
func (s Shape) ZYX() [3]int { return [3]int{s.Z, s.Y, s.X} }

// Extent returns the generation-order extent of axis 0 (x), 1 (y) or 2 (z).
func (s Shape) Extent(axis int) int {
	switch axis {
	case 0:
		return s.X
	case 1:
		return s.Y
	default:
		return s.Z
	}
}

// Validate checks that every extent is positive.
func (s Shape) Validate() error {
	if s.X < 1 || s.Y < 1 || s.Z < 1 {
		return errors.New(errors.ErrCodeInvalidShape, "shape %s: every extent must be at least 1", s)
	}
	return nil
}

// String formats the shape as "x,y,z".
func (s Shape) String() string {
	return fmt.Sprintf("%d,%d,%d", s.X, s.Y, s.Z)
}

// ShapeOf builds a Shape from a generation-order slice of three extents.
func ShapeOf(xyz []int) (Shape, error) {
	if len(xyz) != 3 {
		return Shape{}, errors.New(errors.ErrCodeInvalidShape, "shape needs 3 extents (x,y,z), got %d", len(xyz))
	}
	s := Shape{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	return s, s.Validate()
}

// ParseShape parses "x,y,z" (or "x x y x z").
func ParseShape(str string) (Shape, error) {
	fields := strings.FieldsFunc(str, func(r rune) bool { return r == ',' || r == 'x' || r == ' ' })
	xyz := make([]int, 0, 3)
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Shape{}, errors.Wrap(errors.ErrCodeInvalidShape, err, "parse shape %q", str)
		}
		xyz = append(xyz, n)
	}
	return ShapeOf(xyz)
}
