package io

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zlib"

	"github.com/matzehuels/blobstack/pkg/buildinfo"
	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/volume"
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32 // inline value or offset
}

// WriteTIFF encodes a stack as a multi-page TIFF and writes it to w.
// Pages are emitted in channel-major order with the stack's widest dtype.
// This format can be re-imported with [ReadTIFF].
func WriteTIFF(w io.Writer, s *volume.Stack, opts WriteOptions) error {
	desc, err := json.Marshal(metadataFor(s, opts.RunID))
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}
	software := []byte(buildinfo.Software())

	dims := s.Dims()
	sh := s.Shape()
	dtype := s.DType()
	pages := dims[0] * dims[1]
	compression := uint32(compressionNone)
	if opts.Compress {
		compression = compressionAdobeDeflate
	}

	bw := bufio.NewWriter(w)
	le := binary.LittleEndian
	var hdr [8]byte
	copy(hdr[:], "II")
	le.PutUint16(hdr[2:], 42)
	le.PutUint32(hdr[4:], 8)
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	offset := uint64(len(hdr))
	page := 0
	raw := make([]byte, sh.X*sh.Y*dtype.Bytes())
	for _, ch := range s.Channels {
		for z := 0; z < sh.Z; z++ {
			encodePlane(raw, ch.Plane(z), dtype)
			strip := raw
			if opts.Compress {
				if strip, err = deflate(raw); err != nil {
					return fmt.Errorf("compress page %d: %w", page, err)
				}
			}

			// Out-of-line ASCII values follow the IFD, then the strip.
			var ext bytes.Buffer
			entries := []ifdEntry{
				{tagImageWidth, typeLong, 1, uint32(sh.X)},
				{tagImageLength, typeLong, 1, uint32(sh.Y)},
				{tagBitsPerSample, typeShort, 1, uint32(dtype.Bits())},
				{tagCompression, typeShort, 1, compression},
				{tagPhotometric, typeShort, 1, photometricBlackIsZero},
			}
			nEntries := 12
			if page == 0 {
				nEntries++
			}
			ifdSize := uint64(2 + 12*nEntries + 4)
			extBase := offset + ifdSize
			if page == 0 {
				entries = append(entries, ifdEntry{tagImageDesc, typeASCII, uint32(len(desc) + 1), uint32(extBase)})
				writeASCII(&ext, desc)
			}
			softwareOff := extBase + uint64(ext.Len())
			writeASCII(&ext, software)
			stripOff := extBase + uint64(ext.Len())
			entries = append(entries,
				ifdEntry{tagStripOffsets, typeLong, 1, uint32(stripOff)},
				ifdEntry{tagSamplesPerPixel, typeShort, 1, 1},
				ifdEntry{tagRowsPerStrip, typeLong, 1, uint32(sh.Y)},
				ifdEntry{tagStripByteCounts, typeLong, 1, uint32(len(strip))},
				ifdEntry{tagPlanarConfig, typeShort, 1, 1},
				ifdEntry{tagSoftware, typeASCII, uint32(len(software) + 1), uint32(softwareOff)},
				ifdEntry{tagSampleFormat, typeShort, 1, sampleFormatUint},
			)

			end := stripOff + uint64(len(strip))
			pad := end % 2
			var next uint64
			if page < pages-1 {
				next = end + pad
			}
			if end+pad > math.MaxUint32 {
				return errors.New(errors.ErrCodeUnsupported, "stack exceeds 4 GiB, BigTIFF is not supported")
			}

			if err := writeIFD(bw, entries, uint32(next)); err != nil {
				return err
			}
			if _, err := bw.Write(ext.Bytes()); err != nil {
				return err
			}
			if _, err := bw.Write(strip); err != nil {
				return err
			}
			if pad == 1 {
				if err := bw.WriteByte(0); err != nil {
					return err
				}
			}
			offset = end + pad
			page++
		}
	}
	return bw.Flush()
}

// ExportTIFF writes a stack to a TIFF file at path.
// This is a convenience wrapper around [WriteTIFF] for file-based output.
func ExportTIFF(path string, s *volume.Stack, opts WriteOptions) (err error) {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTIFF(f, s, opts)
}

func writeIFD(w io.Writer, entries []ifdEntry, next uint32) error {
	le := binary.LittleEndian
	buf := make([]byte, 2+12*len(entries)+4)
	le.PutUint16(buf, uint16(len(entries)))
	for i, e := range entries {
		b := buf[2+12*i:]
		le.PutUint16(b[0:], e.tag)
		le.PutUint16(b[2:], e.typ)
		le.PutUint32(b[4:], e.count)
		if e.typ == typeShort && e.count == 1 {
			le.PutUint16(b[8:], uint16(e.value))
		} else {
			le.PutUint32(b[8:], e.value)
		}
	}
	le.PutUint32(buf[len(buf)-4:], next)
	_, err := w.Write(buf)
	return err
}

// writeASCII appends a NUL-terminated string, padded to an even length.
func writeASCII(b *bytes.Buffer, s []byte) {
	b.Write(s)
	b.WriteByte(0)
	if (len(s)+1)%2 == 1 {
		b.WriteByte(0)
	}
}

func encodePlane(dst []byte, plane []uint32, dtype volume.DType) {
	le := binary.LittleEndian
	switch dtype {
	case volume.Uint8:
		for i, v := range plane {
			dst[i] = byte(v)
		}
	case volume.Uint16:
		for i, v := range plane {
			le.PutUint16(dst[2*i:], uint16(v))
		}
	default:
		for i, v := range plane {
			le.PutUint32(dst[4*i:], v)
		}
	}
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
