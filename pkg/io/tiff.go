package io

import (
	"github.com/matzehuels/blobstack/pkg/volume"
)

// TIFF tags written and understood by this package.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagImageDesc       = 270
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSoftware        = 305
	tagPredictor       = 317
	tagSampleFormat    = 339
)

// TIFF field types.
const (
	typeByte  = 1
	typeASCII = 2
	typeShort = 3
	typeLong  = 4
)

// Compression values.
const (
	compressionNone         = 1
	compressionAdobeDeflate = 8
	compressionDeflate      = 32946
)

const (
	photometricBlackIsZero = 1
	sampleFormatUint       = 1
)

var typeSize = map[uint16]int{
	typeByte:  1,
	typeASCII: 1,
	typeShort: 2,
	typeLong:  4,
}

// Metadata is the JSON document stored in the first page's description.
type Metadata struct {
	Shape  []int    `json:"shape"`
	Axes   string   `json:"axes"`
	DTypes []string `json:"dtypes,omitempty"`
	RunID  string   `json:"run_id,omitempty"`
}

// WriteOptions configures [WriteTIFF].
type WriteOptions struct {
	// Compress stores strips with Adobe Deflate.
	Compress bool
	// RunID is recorded in the description when set.
	RunID string
}

func metadataFor(s *volume.Stack, runID string) Metadata {
	dims := s.Dims()
	m := Metadata{
		Shape: dims[:],
		Axes:  volume.AxesCZYX,
		RunID: runID,
	}
	for _, c := range s.Channels {
		m.DTypes = append(m.DTypes, c.DType.String())
	}
	return m
}
