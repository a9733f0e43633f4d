package segment

import (
	"github.com/matzehuels/blobstack/pkg/volume"
)

// Segment labels the connected blobs of mask with the distance-transform
// watershed. The result holds 0 for background and dense labels 1..n, in
// raster order of each blob's first peak. An all-background mask yields an
// all-zero volume.
func Segment(mask *volume.Mask) (*volume.Volume, error) {
	if !mask.Any() {
		return volume.New(mask.Shape, volume.Uint8), nil
	}

	dist := DistanceTransform(mask)
	peaks := PeakLocalMax(dist, mask)
	markers, _ := LabelComponents(peaks, Full)

	surface := volume.NewField(mask.Shape)
	for i, d := range dist.Data {
		surface.Data[i] = -d
	}
	return Watershed(surface, markers, mask)
}

// Relabel returns a copy of labels with offset added to every non-zero
// label. The dtype widens when the shifted labels need it.
func Relabel(labels *volume.Volume, offset uint32) *volume.Volume {
	out := labels.Clone()
	if offset == 0 {
		return out
	}
	for i, l := range out.Data {
		if l != 0 {
			out.Data[i] = l + offset
		}
	}
	out.DType = volume.Widest(out.DType, volume.DTypeFor(out.Max()))
	return out
}
