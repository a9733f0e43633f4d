// Package io provides TIFF import and export for multi-channel volume stacks.
//
// # Overview
//
// Stacks are stored as little-endian, multi-page baseline TIFF files with one
// grayscale page per (channel, z) pair. The format is designed for:
//
//   - Opening in standard microscopy tools (ImageJ/Fiji, tifffile, napari)
//   - Round-trip preservation of shape, axis order and per-channel dtypes
//   - Streaming writes: pages are emitted sequentially, one at a time
//
// # Page Layout
//
// Pages are written in channel-major order: all z-planes of channel 0, then
// all z-planes of channel 1, and so on. Each page holds one plane in a single
// strip, at the sample width of the widest channel dtype (8, 16 or 32 bits,
// unsigned). Strips are either uncompressed or Adobe Deflate (zlib).
//
// # Description
//
// The ImageDescription tag of the first page holds JSON metadata:
//
//	{
//	  "shape": [3, 2, 104, 104],
//	  "axes": "CZYX",
//	  "dtypes": ["uint8", "uint8", "uint8"],
//	  "run_id": "0b6f8f6e-..."
//	}
//
// [ReadTIFF] uses the description to restore the channel axis and each
// channel's dtype. Files without a recognized description load as a single
// channel with one z-plane per page.
//
// # Import
//
// Use [ImportTIFF] to read a stack from a file path, or [ReadTIFF] to read
// from any io.Reader:
//
//	stack, meta, err := io.ImportTIFF("stack.tif")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Export
//
// Use [ExportTIFF] to write a stack to a file, or [WriteTIFF] to write to any
// io.Writer:
//
//	err := io.ExportTIFF("stack.tif", stack, io.WriteOptions{Compress: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Files larger than 4 GiB would need BigTIFF offsets and are rejected with
// an UNSUPPORTED error.
package io
