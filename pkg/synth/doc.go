// Package synth generates synthetic fluorescence volumes made of 3-D
// anisotropic Gaussian blobs.
//
// A run is fully determined by (cell count, shape, dtype, seed, params):
// [Draw] pulls every random parameter from one seeded PCG source in a fixed
// order, [Render] evaluates the blob sum densely over every voxel, and
// [Generate] quantizes two independently weighted renders into the two
// intensity channels of a stack.
//
// # Model
//
// Each cell i contributes
//
//	I_i * exp(-((x-x0)/sx)^2) * exp(-((y-y0)/sy)^2) * exp(-((z-z0)/sz)^2)
//
// to every voxel. Contributions overlap and add; they are not cut off at any
// radius. With Params.XYSymmetric the y width reuses the x width.
//
// Sizes and intensities are unbounded normal draws. Negative or near-zero
// widths and negative intensities are used as drawn.
package synth
