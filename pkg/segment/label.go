package segment

import (
	"github.com/matzehuels/blobstack/pkg/volume"
)

// LabelComponents assigns a distinct label to every connected component of
// mask. Labels are dense, 1..n, in raster order of each component's first
// voxel. It returns the label volume and n.
func LabelComponents(mask *volume.Mask, conn Connectivity) (*volume.Volume, int) {
	s := mask.Shape
	labels := make([]uint32, s.Len())
	nbrs := conn.offsets()
	var queue []int
	n := 0

	for start, fg := range mask.Data {
		if !fg || labels[start] != 0 {
			continue
		}
		n++
		id := uint32(n)
		labels[start] = id
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			z, y, x := s.Coords(i)
			for _, o := range nbrs {
				nz, ny, nx := z+o[0], y+o[1], x+o[2]
				if !s.Contains(nz, ny, nx) {
					continue
				}
				j := s.Index(nz, ny, nx)
				if mask.Data[j] && labels[j] == 0 {
					labels[j] = id
					queue = append(queue, j)
				}
			}
		}
	}

	return &volume.Volume{Shape: s, DType: volume.DTypeFor(uint32(n)), Data: labels}, n
}
