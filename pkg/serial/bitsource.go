// pkg/serial/bitsource.go - Bit-granular reader over a byte source
package serial

import "fmt"

// BitSource reads bit-packed fields from a ByteSource, LSB first within
// each byte. Varint readers must not be mixed in until Align is called.
type BitSource struct {
	src *ByteSource
	cur byte
	bit uint8
}

// NewBitSource wraps src for bit-granular reads starting at its current
// offset.
func NewBitSource(src *ByteSource) *BitSource {
	return &BitSource{src: src}
}

// Read reads count bits (count <= 8) from the current byte, LSB first.
// Reads never straddle a byte boundary; the underlying source advances by
// one byte when a read starts a new byte.
func (b *BitSource) Read(count uint8) (uint8, error) {
	if count > 8 || b.bit+count > 8 {
		return 0, fmt.Errorf("bit read of %d bits at bit offset %d", count, b.bit)
	}
	if b.bit == 0 {
		c, err := b.src.ReadByte()
		if err != nil {
			return 0, err
		}
		b.cur = c
	}
	v := b.cur >> b.bit
	v &= 1<<count - 1

	b.bit += count
	if b.bit >= 8 {
		b.bit = 0
	}
	return v, nil
}

// Align discards the remainder of a partially-read byte so byte-granular
// reads can resume on the underlying source.
func (b *BitSource) Align() {
	b.bit = 0
}
