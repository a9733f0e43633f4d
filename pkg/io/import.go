package io

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// ifd is one decoded TIFF page directory.
type ifd struct {
	width, height   int
	bits            int
	compression     int
	samplesPerPixel int
	sampleFormat    int
	predictor       int
	description     string
	stripOffsets    []uint32
	stripByteCounts []uint32
}

// ReadTIFF decodes a multi-page grayscale TIFF from r into a stack.
//
// ReadTIFF reads everything [WriteTIFF] produces: uncompressed or deflate
// strips, 8, 16 or 32-bit unsigned samples, and the JSON description that
// restores the channel axis and per-channel dtypes. Other baseline TIFFs with
// one unsigned sample per pixel load as a single channel.
//
// ReadTIFF returns an INVALID_FORMAT error for malformed files and
// UNSUPPORTED for valid TIFF features this package does not implement
// (big-endian byte order, predictors, RGB, floating point samples).
// ReadTIFF does not close r.
func ReadTIFF(r io.Reader) (*volume.Stack, *Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}
	pages, err := parseIFDs(data)
	if err != nil {
		return nil, nil, err
	}

	first := pages[0]
	for i, p := range pages {
		if err := p.check(); err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", i, err)
		}
		if p.width != first.width || p.height != first.height || p.bits != first.bits {
			return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "page %d is %dx%dx%d bit, page 0 is %dx%dx%d bit",
				i, p.width, p.height, p.bits, first.width, first.height, first.bits)
		}
	}

	meta := describe(first.description, len(pages), first)
	channels, depth := meta.Shape[0], meta.Shape[1]
	if channels*depth != len(pages) {
		return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "description shape %v needs %d pages, file has %d", meta.Shape, channels*depth, len(pages))
	}
	shape := volume.Shape{X: first.width, Y: first.height, Z: depth}
	fileDType := dtypeForBits(first.bits)

	stack := &volume.Stack{Channels: make([]*volume.Volume, channels)}
	for c := range stack.Channels {
		dtype := fileDType
		if c < len(meta.DTypes) {
			if d, err := volume.ParseDType(meta.DTypes[c]); err == nil && d.Bits() <= fileDType.Bits() {
				dtype = d
			}
		}
		stack.Channels[c] = volume.New(shape, dtype)
	}

	planeLen := shape.X * shape.Y
	for i, p := range pages {
		raw, err := p.readStrips(data)
		if err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", i, err)
		}
		if len(raw) < planeLen*fileDType.Bytes() {
			return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "page %d holds %d bytes, want %d", i, len(raw), planeLen*fileDType.Bytes())
		}
		ch := stack.Channels[i/depth]
		decodePlane(ch.Plane(i%depth), raw, fileDType)
		if ch.DType != fileDType {
			limit := ch.DType.Max()
			for _, v := range ch.Plane(i % depth) {
				if v > limit {
					return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "channel %d holds %d, above its %s dtype", i/depth, v, ch.DType)
				}
			}
		}
	}
	return stack, meta, nil
}

// ImportTIFF reads a TIFF file at path and returns the decoded stack.
//
// ImportTIFF opens the file, decodes it using [ReadTIFF], and closes the
// file. A missing file is reported as FILE_NOT_FOUND.
func ImportTIFF(path string) (*volume.Stack, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "stack %s", path)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTIFF(f)
}

// describe returns the metadata of a file, falling back to one channel with
// one z-plane per page when the description is absent or foreign.
func describe(desc string, pages int, first ifd) *Metadata {
	var m Metadata
	if err := json.Unmarshal([]byte(desc), &m); err == nil &&
		m.Axes == volume.AxesCZYX && len(m.Shape) == 4 &&
		m.Shape[0] > 0 && m.Shape[1] > 0 &&
		m.Shape[2] == first.height && m.Shape[3] == first.width {
		return &m
	}
	return &Metadata{
		Shape: []int{1, pages, first.height, first.width},
		Axes:  volume.AxesCZYX,
	}
}

func parseIFDs(data []byte) ([]ifd, error) {
	if len(data) < 8 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "file too short for a TIFF header")
	}
	switch string(data[:2]) {
	case "II":
	case "MM":
		return nil, errors.New(errors.ErrCodeUnsupported, "big-endian TIFF is not supported")
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "not a TIFF file")
	}
	le := binary.LittleEndian
	switch le.Uint16(data[2:]) {
	case 42:
	case 43:
		return nil, errors.New(errors.ErrCodeUnsupported, "BigTIFF is not supported")
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "bad TIFF magic")
	}

	var pages []ifd
	seen := make(map[uint32]bool)
	for off := le.Uint32(data[4:]); off != 0; {
		if seen[off] {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "IFD chain loops at offset %d", off)
		}
		seen[off] = true
		p, next, err := parseIFD(data, off)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
		off = next
	}
	if len(pages) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "TIFF has no pages")
	}
	return pages, nil
}

func parseIFD(data []byte, off uint32) (ifd, uint32, error) {
	le := binary.LittleEndian
	if uint64(off)+2 > uint64(len(data)) {
		return ifd{}, 0, errors.New(errors.ErrCodeInvalidFormat, "IFD offset %d out of range", off)
	}
	n := int(le.Uint16(data[off:]))
	end := uint64(off) + 2 + 12*uint64(n) + 4
	if end > uint64(len(data)) {
		return ifd{}, 0, errors.New(errors.ErrCodeInvalidFormat, "IFD at %d truncated", off)
	}

	p := ifd{compression: compressionNone, samplesPerPixel: 1, sampleFormat: sampleFormatUint, predictor: 1}
	for i := 0; i < n; i++ {
		e := data[int(off)+2+12*i:]
		tag := le.Uint16(e)
		typ := le.Uint16(e[2:])
		count := le.Uint32(e[4:])
		values, err := fieldValues(data, e, typ, count)
		if err != nil {
			return ifd{}, 0, fmt.Errorf("tag %d: %w", tag, err)
		}
		first := func() int {
			if len(values) == 0 {
				return 0
			}
			return int(values[0])
		}
		switch tag {
		case tagImageWidth:
			p.width = first()
		case tagImageLength:
			p.height = first()
		case tagBitsPerSample:
			p.bits = first()
		case tagCompression:
			p.compression = first()
		case tagSamplesPerPixel:
			p.samplesPerPixel = first()
		case tagSampleFormat:
			p.sampleFormat = first()
		case tagPredictor:
			p.predictor = first()
		case tagStripOffsets:
			p.stripOffsets = values
		case tagStripByteCounts:
			p.stripByteCounts = values
		case tagImageDesc:
			p.description = string(bytes.TrimRight(asciiBytes(data, e, count), "\x00"))
		}
	}
	return p, le.Uint32(data[end-4:]), nil
}

// fieldValues decodes the integer values of an IFD entry. ASCII and
// unknown types yield no values.
func fieldValues(data, entry []byte, typ uint16, count uint32) ([]uint32, error) {
	size, ok := typeSize[typ]
	if !ok || typ == typeASCII {
		return nil, nil
	}
	le := binary.LittleEndian
	total := uint64(size) * uint64(count)
	src := entry[8:12]
	if total > 4 {
		off := uint64(le.Uint32(entry[8:]))
		if off+total > uint64(len(data)) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "values out of range")
		}
		src = data[off : off+total]
	}
	out := make([]uint32, count)
	for i := range out {
		switch typ {
		case typeByte:
			out[i] = uint32(src[i])
		case typeShort:
			out[i] = uint32(le.Uint16(src[2*i:]))
		case typeLong:
			out[i] = le.Uint32(src[4*i:])
		}
	}
	return out, nil
}

func asciiBytes(data, entry []byte, count uint32) []byte {
	if count <= 4 {
		return entry[8 : 8+count]
	}
	off := uint64(binary.LittleEndian.Uint32(entry[8:]))
	if off+uint64(count) > uint64(len(data)) {
		return nil
	}
	return data[off : off+uint64(count)]
}

func (p ifd) check() error {
	switch {
	case p.width <= 0 || p.height <= 0:
		return errors.New(errors.ErrCodeInvalidFormat, "missing image dimensions")
	case p.samplesPerPixel != 1:
		return errors.New(errors.ErrCodeUnsupported, "%d samples per pixel, only grayscale is supported", p.samplesPerPixel)
	case p.sampleFormat != sampleFormatUint:
		return errors.New(errors.ErrCodeUnsupported, "sample format %d, only unsigned integers are supported", p.sampleFormat)
	case p.bits != 8 && p.bits != 16 && p.bits != 32:
		return errors.New(errors.ErrCodeUnsupported, "%d bits per sample", p.bits)
	case p.predictor != 1:
		return errors.New(errors.ErrCodeUnsupported, "predictor %d", p.predictor)
	case p.compression != compressionNone && p.compression != compressionAdobeDeflate && p.compression != compressionDeflate:
		return errors.New(errors.ErrCodeUnsupported, "compression %d", p.compression)
	case len(p.stripOffsets) == 0 || len(p.stripOffsets) != len(p.stripByteCounts):
		return errors.New(errors.ErrCodeInvalidFormat, "strip offsets and byte counts disagree")
	}
	return nil
}

// readStrips concatenates the page's strips, inflating them when compressed.
func (p ifd) readStrips(data []byte) ([]byte, error) {
	var out bytes.Buffer
	for i, off := range p.stripOffsets {
		n := p.stripByteCounts[i]
		if uint64(off)+uint64(n) > uint64(len(data)) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "strip %d out of range", i)
		}
		strip := data[off : off+n]
		if p.compression == compressionNone {
			out.Write(strip)
			continue
		}
		zr, err := zlib.NewReader(bytes.NewReader(strip))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "strip %d", i)
		}
		_, err = io.Copy(&out, zr)
		zr.Close()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "inflate strip %d", i)
		}
	}
	return out.Bytes(), nil
}

func dtypeForBits(bits int) volume.DType {
	switch bits {
	case 8:
		return volume.Uint8
	case 16:
		return volume.Uint16
	default:
		return volume.Uint32
	}
}

func decodePlane(dst []uint32, raw []byte, dtype volume.DType) {
	le := binary.LittleEndian
	switch dtype {
	case volume.Uint8:
		for i := range dst {
			dst[i] = uint32(raw[i])
		}
	case volume.Uint16:
		for i := range dst {
			dst[i] = uint32(le.Uint16(raw[2*i:]))
		}
	default:
		for i := range dst {
			dst[i] = le.Uint32(raw[4*i:])
		}
	}
}
