package volume

import "github.com/matzehuels/blobstack/pkg/errors"

// AxesCZYX is the axis-order string attached to exported stacks.
const AxesCZYX = "CZYX"

// Stack is a multi-channel volume with a leading channel axis (CZYX).
type Stack struct {
	Channels []*Volume
}

// NewStack builds a stack from channels that share one shape.
func NewStack(channels ...*Volume) (*Stack, error) {
	if len(channels) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "stack needs at least one channel")
	}
	for _, c := range channels[1:] {
		if err := CheckSameShape(channels[0].Shape, c.Shape); err != nil {
			return nil, err
		}
	}
	return &Stack{Channels: channels}, nil
}

// ZeroStack allocates a stack of n all-zero channels.
func ZeroStack(n int, shape Shape, dtype DType) *Stack {
	s := &Stack{Channels: make([]*Volume, n)}
	for i := range s.Channels {
		s.Channels[i] = New(shape, dtype)
	}
	return s
}

// Shape returns the per-channel volume shape.
func (s *Stack) Shape() Shape { return s.Channels[0].Shape }

// Dims returns the 4-D extents in (C, Z, Y, X) order.
func (s *Stack) Dims() [4]int {
	sh := s.Shape()
	return [4]int{len(s.Channels), sh.Z, sh.Y, sh.X}
}

// DType returns the widest channel dtype, which is the sample type used when
// the stack is written as a single image.
func (s *Stack) DType() DType {
	var d DType
	for _, c := range s.Channels {
		d = Widest(d, c.DType)
	}
	return d
}

// Channel returns channel c.
func (s *Stack) Channel(c int) *Volume { return s.Channels[c] }

// Equal reports whether both stacks hold equal channels.
func (s *Stack) Equal(o *Stack) bool {
	if len(s.Channels) != len(o.Channels) {
		return false
	}
	for i := range s.Channels {
		if !s.Channels[i].Equal(o.Channels[i]) {
			return false
		}
	}
	return true
}

// Bytes returns the in-memory size of all channels.
func (s *Stack) Bytes() uint64 {
	var n uint64
	for _, c := range s.Channels {
		n += c.Bytes()
	}
	return n
}
