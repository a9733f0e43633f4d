// Package pkg provides the core libraries for blobstack synthetic image
// generation.
//
// # Overview
//
// Blobstack produces three-channel volumetric test images: two intensity
// channels rendered from randomly placed anisotropic Gaussian blobs, and a
// label channel from a watershed segmentation of the first. The pkg directory
// is organized into four main areas:
//
//  1. Data model: [volume]
//  2. Algorithms: [synth], [segment], [regions]
//  3. Orchestration: [pipeline], [config], [observability]
//  4. Input/output: [io], [roi], [display]
//
// # Architecture
//
// The data flow through blobstack:
//
//	cell count, shape, dtype, seed
//	         ↓
//	    [synth] package (draw blob parameters, render two channels)
//	         ↓
//	    [segment] package (Otsu mask → distance transform → peaks → watershed)
//	         ↓
//	    [pipeline] package (assemble the CZYX stack, merge chunks)
//	         ↓
//	    TIFF stack, region tables, ImageJ ROI sets, plots
//
// # Quick Start
//
// Generate the reference stack and write it to disk:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/blobstack/pkg/io"
//	    "github.com/matzehuels/blobstack/pkg/pipeline"
//	    "github.com/matzehuels/blobstack/pkg/synth"
//	    "github.com/matzehuels/blobstack/pkg/volume"
//	)
//
//	shape := volume.Shape{X: 104, Y: 104, Z: 2}
//	stack, _ := pipeline.Assemble(context.Background(), 10, shape, volume.Uint8, 0, synth.DefaultParams())
//	_ = io.ExportTIFF("blobs.tif", stack, io.WriteOptions{})
//
// # Main Packages
//
// [volume] - Shapes, dtypes and dense (z, y, x) volumes of unsigned samples,
// plus masks, float fields and channel stacks.
//
// [synth] - The blob field synthesizer. Draws centers, widths and two
// intensities per cell from one seeded PCG source, renders separable
// Gaussians and quantizes to the target dtype.
//
// [segment] - Euclidean distance transform, local maxima, connected
// components, marker watershed and Otsu thresholding.
//
// [regions] - Per-label area, centroid and mean intensities, with CSV,
// SQLite and region adjacency graph (DOT/SVG) outputs.
//
// [pipeline] - Three-channel assembly and the chunk driver that keeps labels
// unique across chunks. [pipeline.Runner] adds logging hooks and region
// measurement.
//
// [io] - Multi-page TIFF reader and writer for CZYX stacks.
//
// [roi] - Label outline tracing and ImageJ ROI set export.
//
// [display] - PNG, HTML and HTTP viewers for stacks.
//
// [config] - TOML, YAML and JSON run configuration with schema validation.
//
// [errors] - Error codes shared by every package.
package pkg
