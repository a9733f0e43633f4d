// Package roi exports label outlines as ImageJ region-of-interest sets.
//
// [Trace] walks the outer boundary of every 8-connected component of every
// label in every z-plane. [Encode] writes one outline in the ImageJ ".roi"
// polygon format, and [ExportSet] writes a whole set into a fresh directory
// and archives it as a zip next to it.
package roi

import (
	"cmp"
	"fmt"
	"image"
	"slices"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// Contour is the closed outer boundary of one 8-connected component of one
// label in one z-plane. Points are pixel centres in (x, y), clockwise, without
// repeating the first point.
type Contour struct {
	Label  uint32
	Z      int
	Part   int // component index within (Label, Z), in raster order
	Points []image.Point
}

// Name returns the ROI name stored in the exported file.
func (c Contour) Name() string {
	return fmt.Sprintf("L%04d-Z%03d-%d", c.Label, c.Z, c.Part)
}

// Bounds returns the smallest rectangle containing every point. Max is
// inclusive.
func (c Contour) Bounds() image.Rectangle {
	if len(c.Points) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c.Points[0], Max: c.Points[0]}
	for _, p := range c.Points[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// Clockwise Moore neighbourhood with y pointing down, starting west.
var moore = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func mooreIndex(d image.Point) int {
	for i, m := range moore {
		if m == d {
			return i
		}
	}
	panic(fmt.Sprintf("roi: %v is not a Moore offset", d))
}

// Trace returns the outer contours of labels, ordered by label, then z, then
// component.
func Trace(labels *volume.Volume) []Contour {
	s := labels.Shape
	var out []Contour
	visited := make([]bool, s.X*s.Y)
	parts := make(map[uint32]int)
	var queue []image.Point
	maxSteps := 8*s.X*s.Y + 8

	for z := 0; z < s.Z; z++ {
		plane := labels.Plane(z)
		clear(visited)
		clear(parts)
		at := func(p image.Point) uint32 {
			if p.X < 0 || p.Y < 0 || p.X >= s.X || p.Y >= s.Y {
				return 0
			}
			return plane[p.Y*s.X+p.X]
		}

		for i, l := range plane {
			if l == 0 || visited[i] {
				continue
			}
			start := image.Pt(i%s.X, i/s.X)

			// Mark the component so later raster hits skip it.
			visited[i] = true
			queue = append(queue[:0], start)
			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				for _, d := range moore {
					q := p.Add(d)
					if at(q) != l || visited[q.Y*s.X+q.X] {
						continue
					}
					visited[q.Y*s.X+q.X] = true
					queue = append(queue, q)
				}
			}

			out = append(out, Contour{
				Label:  l,
				Z:      z,
				Part:   parts[l],
				Points: traceBoundary(start, func(p image.Point) bool { return at(p) == l }, maxSteps),
			})
			parts[l]++
		}
	}

	slices.SortStableFunc(out, func(a, b Contour) int {
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

// traceBoundary follows the outer boundary of the component containing
// start, which must be its first pixel in raster order. It stops when the
// walk is back at start and about to repeat its first move; the trailing
// start is dropped. maxSteps bounds the walk.
func traceBoundary(start image.Point, inside func(image.Point) bool, maxSteps int) []image.Point {
	contour := []image.Point{start}
	cur, back := start, start.Add(moore[0]) // west of the raster-first pixel is outside

	for step := 0; step < maxSteps; step++ {
		k := mooreIndex(back.Sub(cur))
		var next, nextBack image.Point
		found := false
		for i := 1; i <= 8; i++ {
			p := cur.Add(moore[(k+i)%8])
			if inside(p) {
				next = p
				nextBack = cur.Add(moore[(k+i-1)%8])
				found = true
				break
			}
		}
		if !found {
			return contour // isolated pixel
		}
		if cur == start && len(contour) > 1 && next == contour[1] {
			return contour[:len(contour)-1]
		}
		contour = append(contour, next)
		cur, back = next, nextBack
	}
	return contour
}
