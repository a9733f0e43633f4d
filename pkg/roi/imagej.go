package roi

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"math"
	"unicode/utf16"

	"github.com/matzehuels/blobstack/pkg/errors"
)

// ImageJ ROI layout (big-endian).
const (
	roiMagic    = "Iout"
	roiVersion  = 228
	typePolygon = 0

	headerSize  = 64
	header2Size = 64

	offVersion   = 4
	offType      = 6
	offTop       = 8
	offLeft      = 10
	offBottom    = 12
	offRight     = 14
	offNCoords   = 16
	offPosition  = 56
	offHeader2   = 60
	h2OffZ       = 8
	h2OffName    = 16
	h2OffNameLen = 20
)

// ROI is a decoded ImageJ polygon ROI.
type ROI struct {
	Name string
	// Position is the 1-based stack slice; 0 means unset.
	Position int
	Points   []image.Point
}

// Encode writes c as an ImageJ polygon ROI named name. The ROI position is
// the 1-based z-plane.
func Encode(w io.Writer, c Contour, name string) error {
	n := len(c.Points)
	if n == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "contour %s has no points", c.Name())
	}
	if n > math.MaxUint16 {
		return errors.New(errors.ErrCodeUnsupported, "contour %s has %d points, ImageJ allows %d", c.Name(), n, math.MaxUint16)
	}
	b := c.Bounds()
	for _, v := range []int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y} {
		if v > math.MaxInt16 {
			return errors.New(errors.ErrCodeUnsupported, "contour %s exceeds the ImageJ coordinate range", c.Name())
		}
	}

	nameUTF16 := utf16.Encode([]rune(name))
	h2 := headerSize + 4*n
	buf := make([]byte, h2+header2Size+2*len(nameUTF16))
	be := binary.BigEndian

	copy(buf, roiMagic)
	be.PutUint16(buf[offVersion:], roiVersion)
	buf[offType] = typePolygon
	be.PutUint16(buf[offTop:], uint16(int16(b.Min.Y)))
	be.PutUint16(buf[offLeft:], uint16(int16(b.Min.X)))
	be.PutUint16(buf[offBottom:], uint16(int16(b.Max.Y)))
	be.PutUint16(buf[offRight:], uint16(int16(b.Max.X)))
	be.PutUint16(buf[offNCoords:], uint16(n))
	be.PutUint32(buf[offPosition:], uint32(c.Z+1))
	be.PutUint32(buf[offHeader2:], uint32(h2))

	for i, p := range c.Points {
		be.PutUint16(buf[headerSize+2*i:], uint16(int16(p.X-b.Min.X)))
		be.PutUint16(buf[headerSize+2*n+2*i:], uint16(int16(p.Y-b.Min.Y)))
	}

	be.PutUint32(buf[h2+h2OffZ:], uint32(c.Z+1))
	be.PutUint32(buf[h2+h2OffName:], uint32(h2+header2Size))
	be.PutUint32(buf[h2+h2OffNameLen:], uint32(len(nameUTF16)))
	for i, u := range nameUTF16 {
		be.PutUint16(buf[h2+header2Size+2*i:], u)
	}

	_, err := w.Write(buf)
	return err
}

// Decode reads an ImageJ polygon ROI written by [Encode].
func Decode(r io.Reader) (*ROI, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize || !bytes.Equal(data[:4], []byte(roiMagic)) {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "not an ImageJ ROI")
	}
	be := binary.BigEndian
	if t := data[offType]; t != typePolygon {
		return nil, errors.New(errors.ErrCodeUnsupported, "ROI type %d is not a polygon", t)
	}

	top := int(int16(be.Uint16(data[offTop:])))
	left := int(int16(be.Uint16(data[offLeft:])))
	n := int(be.Uint16(data[offNCoords:]))
	if len(data) < headerSize+4*n {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "ROI truncated: %d coordinates need %d bytes, have %d", n, headerSize+4*n, len(data))
	}

	roi := &ROI{
		Position: int(be.Uint32(data[offPosition:])),
		Points:   make([]image.Point, n),
	}
	for i := range roi.Points {
		roi.Points[i] = image.Point{
			X: left + int(int16(be.Uint16(data[headerSize+2*i:]))),
			Y: top + int(int16(be.Uint16(data[headerSize+2*n+2*i:]))),
		}
	}

	h2 := int(be.Uint32(data[offHeader2:]))
	if h2 > 0 && h2+header2Size <= len(data) {
		if z := int(be.Uint32(data[h2+h2OffZ:])); z > 0 {
			roi.Position = z
		}
		off := int(be.Uint32(data[h2+h2OffName:]))
		length := int(be.Uint32(data[h2+h2OffNameLen:]))
		if off > 0 && off+2*length <= len(data) {
			units := make([]uint16, length)
			for i := range units {
				units[i] = be.Uint16(data[off+2*i:])
			}
			roi.Name = string(utf16.Decode(units))
		}
	}
	return roi, nil
}
