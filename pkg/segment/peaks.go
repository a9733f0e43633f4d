package segment

import (
	"github.com/matzehuels/blobstack/pkg/volume"
)

// PeakLocalMax marks the regional maxima of dist inside mask. A regional
// maximum is a 26-connected plateau of equal positive distances where no
// plateau voxel has a strictly larger foreground neighbour. Every voxel of
// an accepted plateau is marked. Only neighbours inside the mask and inside
// the volume are compared, and border voxels are not excluded.
func PeakLocalMax(dist *volume.Field, mask *volume.Mask) *volume.Mask {
	s := mask.Shape
	peaks := volume.NewMask(s)
	nbrs := Full.offsets()
	seen := make([]bool, len(mask.Data))

	var plateau, queue []int
	for i, fg := range mask.Data {
		d := dist.Data[i]
		if !fg || d <= 0 || seen[i] {
			continue
		}

		// Flood the plateau holding i and note whether it has a higher rim.
		plateau, queue = plateau[:0], append(queue[:0], i)
		seen[i] = true
		maximal := true
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			plateau = append(plateau, cur)

			z, y, x := s.Coords(cur)
			for _, o := range nbrs {
				nz, ny, nx := z+o[0], y+o[1], x+o[2]
				if !s.Contains(nz, ny, nx) {
					continue
				}
				j := s.Index(nz, ny, nx)
				if !mask.Data[j] {
					continue
				}
				switch dj := dist.Data[j]; {
				case dj > d:
					maximal = false
				case dj == d && !seen[j]:
					seen[j] = true
					queue = append(queue, j)
				}
			}
		}

		if maximal {
			for _, j := range plateau {
				peaks.Data[j] = true
			}
		}
	}
	return peaks
}
