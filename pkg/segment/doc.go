// Package segment turns a binary foreground mask into a label volume.
//
// The pipeline is the classic distance-transform watershed:
//
//  1. [DistanceTransform] computes the exact Euclidean distance from every
//     foreground voxel to the nearest background voxel.
//  2. [PeakLocalMax] marks local maxima of that distance.
//  3. [LabelComponents] groups 26-connected peaks into markers.
//  4. [Watershed] floods -distance from the markers, restricted to the mask.
//
// [Segment] runs all four steps. [Otsu] picks the global threshold that
// produces the mask from a quantized intensity channel.
package segment
