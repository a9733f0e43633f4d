package volume

import (
	"strings"

	"github.com/matzehuels/blobstack/pkg/errors"
)

// DType is the unsigned integer sample type of a quantized volume.
type DType uint8

// Supported sample types.
const (
	Uint8 DType = iota + 1
	Uint16
	Uint32
)

// Max returns the largest value representable by the dtype.
func (d DType) Max() uint32 {
	switch d {
	case Uint8:
		return 1<<8 - 1
	case Uint16:
		return 1<<16 - 1
	default:
		return 1<<32 - 1
	}
}

// Bits returns the sample width in bits.
func (d DType) Bits() int {
	switch d {
	case Uint8:
		return 8
	case Uint16:
		return 16
	default:
		return 32
	}
}

// Bytes returns the sample width in bytes.
func (d DType) Bytes() int { return d.Bits() / 8 }

// Valid reports whether d is one of the supported dtypes.
func (d DType) Valid() bool { return d >= Uint8 && d <= Uint32 }

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	default:
		return "invalid"
	}
}

// MarshalText implements encoding.TextMarshaler so dtypes round-trip through
// TOML, YAML and JSON as their names.
func (d DType) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidDType, "invalid dtype %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DType) UnmarshalText(text []byte) error {
	parsed, err := ParseDType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDType parses a dtype name such as "uint8".
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint8", "u8":
		return Uint8, nil
	case "uint16", "u16":
		return Uint16, nil
	case "uint32", "u32":
		return Uint32, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidDType, "unknown dtype %q (must be uint8, uint16 or uint32)", s)
	}
}

// DTypeFor returns the narrowest dtype able to hold max.
func DTypeFor(max uint32) DType {
	switch {
	case max <= Uint8.Max():
		return Uint8
	case max <= Uint16.Max():
		return Uint16
	default:
		return Uint32
	}
}

// Widest returns the wider of two dtypes.
func Widest(a, b DType) DType {
	if a > b {
		return a
	}
	return b
}
