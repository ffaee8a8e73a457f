package numeric

import (
	"context"
	"encoding/binary"

	"github.com/vdatab/devaccess/accessor"
)

// RawTransport is the accessor.Transport[uint32] over a slice of the
// address space: nChannels*nSamples raw 32-bit wire words starting at
// (bar, byteAddress), laid out per RegisterLayout.
type RawTransport struct {
	space  *AddressSpace
	layout RegisterLayout
}

// NewRawTransport binds a transport to layout's address range.
func NewRawTransport(space *AddressSpace, layout RegisterLayout) *RawTransport {
	return &RawTransport{space: space, layout: layout}
}

func (t *RawTransport) Read(ctx context.Context, buf *accessor.Buffer[uint32]) error {
	raw := make([]byte, t.layout.ByteSize)
	if err := t.space.Read(t.layout.Bar, t.layout.ByteAddress, t.layout.ByteSize, raw); err != nil {
		return err
	}
	nWords := t.layout.ByteSize / wordSize
	words := make([]uint32, nWords)
	for i := 0; i < nWords; i++ {
		words[i] = binary.LittleEndian.Uint32(raw[i*wordSize:])
	}
	for ch := 0; ch < buf.NChannels(); ch++ {
		copy(buf.Channel(ch), words[ch*buf.NSamples():(ch+1)*buf.NSamples()])
	}
	return nil
}

func (t *RawTransport) Write(ctx context.Context, buf *accessor.Buffer[uint32]) (bool, error) {
	nWords := t.layout.ByteSize / wordSize
	words := make([]uint32, 0, nWords)
	for ch := 0; ch < buf.NChannels(); ch++ {
		words = append(words, buf.Channel(ch)...)
	}
	raw := make([]byte, t.layout.ByteSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*wordSize:], w)
	}
	return false, t.space.Write(t.layout.Bar, t.layout.ByteAddress, raw)
}

func (t *RawTransport) MayReplaceOther(other accessor.Transport[uint32]) bool {
	o, ok := other.(*RawTransport)
	if !ok {
		return false
	}
	return t.space == o.space && t.layout.Bar == o.layout.Bar &&
		t.layout.ByteAddress == o.layout.ByteAddress && t.layout.ByteSize == o.layout.ByteSize
}
