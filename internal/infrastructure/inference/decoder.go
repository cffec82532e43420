package inference

import (
	"fmt"

	"fallwatch/internal/core/domain"
)

// signBias flips the uint8 pixel encoding into the signed encoding the
// quantized model expects. XOR is self-inverse, so the same flip restores
// the original bytes.
const signBias = 0x80

// Frame is one decoded sensor frame laid out (height, width, 1).
type Frame struct {
	Width  int
	Height int
	Pixels []int8
}

// Decoder turns raw byte buffers into model-ready frames of a fixed size.
type Decoder struct {
	width  int
	height int
}

func NewDecoder(width, height int) *Decoder {
	return &Decoder{width: width, height: height}
}

// Size returns the exact number of bytes one frame occupies.
func (d *Decoder) Size() int {
	return d.width * d.height
}

// Decode converts a raw buffer into a signed tensor. Buffers shorter than
// one frame are rejected; trailing excess bytes are silently truncated.
func (d *Decoder) Decode(buf []byte) (*Frame, error) {
	size := d.Size()
	if len(buf) < size {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", domain.ErrShortFrame, len(buf), size)
	}

	pixels := make([]int8, size)
	for i := 0; i < size; i++ {
		pixels[i] = int8(buf[i] ^ signBias)
	}

	return &Frame{
		Width:  d.width,
		Height: d.height,
		Pixels: pixels,
	}, nil
}

// Unsigned restores the original uint8 pixel values for snapshot storage.
func (f *Frame) Unsigned() []byte {
	out := make([]byte, len(f.Pixels))
	for i, p := range f.Pixels {
		out[i] = byte(p) ^ signBias
	}
	return out
}
