// Package numeric implements the numeric-addressed backend of spec
// §4.2: a catalogue mapped onto a (bar, byteAddress, byteSize) address
// space, with the adjacent-merge rule and 2-D multiplexed channel
// decoding. It is grounded on core_engine/devices/iobus.go's
// port-keyed device table, generalized from a 64K port space to an
// arbitrary per-BAR byte address space.
package numeric

import (
	"sync"
	"sync/atomic"

	"github.com/vdatab/devaccess/deverr"
)

const wordSize = 4 // bytes per raw wire word, per spec §4.2

// ChannelLayout describes one channel's bit layout within a
// memory-multiplexed register block, per spec §3's NumericAddressedInfo.
type ChannelLayout struct {
	BitOffset       int
	Width           int
	NFractionalBits int
	Signed          bool
	IEEE754         bool
	ASCII           bool
}

// RegisterLayout is the backend-private address and layout metadata
// NumericAddressedInfo adds atop catalogue.Info.
type RegisterLayout struct {
	Bar         int
	ByteAddress int
	ByteSize    int
	Channels    []ChannelLayout // one entry per channel; len==1 for a plain 1-D register
	NBlocks     int             // samples per channel for a multiplexed block
}

// EffectiveWidth computes channel ch's effective bit width per spec
// §4.2: min(declaredWidth, nextChannelBitOffset-thisChannelBitOffset),
// the last channel extending to the end of the block.
func (l RegisterLayout) EffectiveWidth(ch int) int {
	declared := l.Channels[ch].Width
	if ch == len(l.Channels)-1 {
		blockBits := l.ByteSize * 8 / max1(l.NBlocks)
		remaining := blockBits - l.Channels[ch].BitOffset
		if remaining < declared {
			return remaining
		}
		return declared
	}
	nextOffset := l.Channels[ch+1].BitOffset
	gap := nextOffset - l.Channels[ch].BitOffset
	if gap < declared {
		return gap
	}
	return declared
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// AddressSpace is the byte-addressed, BAR-scoped register memory a
// numeric-addressed backend reads and writes, and the adjacent-merge
// partitioning used by the transfer group (spec §4.2/§4.5).
type AddressSpace struct {
	mu         sync.Mutex
	bars       map[int][]byte
	writeCount uint64
}

// NewAddressSpace allocates bars of the given sizes (bar -> byteSize).
func NewAddressSpace(barSizes map[int]int) *AddressSpace {
	bars := make(map[int][]byte, len(barSizes))
	for bar, size := range barSizes {
		bars[bar] = make([]byte, size)
	}
	return &AddressSpace{bars: bars}
}

// NewAddressSpaceFromBars wraps pre-allocated backing slices (e.g. an
// mmap'd shared-memory segment, one window per bar) as an AddressSpace
// without copying. Used by the shared-dummy backend, whose bars live
// in a file-backed mapping another process may also have open.
func NewAddressSpaceFromBars(bars map[int][]byte) *AddressSpace {
	return &AddressSpace{bars: bars}
}

// Read copies [byteAddress, byteAddress+byteSize) of bar into dst.
// Holds the buffer lock for the duration, per spec §5's "per-backend
// atomicity" guarantee.
func (a *AddressSpace) Read(bar, byteAddress, byteSize int, dst []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.bars[bar]
	if !ok {
		return deverr.Logicf("", "unknown bar %d", bar)
	}
	if byteAddress < 0 || byteAddress+byteSize > len(buf) {
		return deverr.Logicf("", "slice [%d,%d) leaves bar %d (size %d)", byteAddress, byteAddress+byteSize, bar, len(buf))
	}
	copy(dst, buf[byteAddress:byteAddress+byteSize])
	return nil
}

// Write copies src into [byteAddress, byteAddress+len(src)) of bar.
func (a *AddressSpace) Write(bar, byteAddress int, src []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.bars[bar]
	if !ok {
		return deverr.Logicf("", "unknown bar %d", bar)
	}
	if byteAddress < 0 || byteAddress+len(src) > len(buf) {
		return deverr.Logicf("", "slice [%d,%d) leaves bar %d (size %d)", byteAddress, byteAddress+len(src), bar, len(buf))
	}
	copy(buf[byteAddress:byteAddress+len(src)], src)
	atomic.AddUint64(&a.writeCount, 1)
	return nil
}

// WriteCount reports the number of successful Write calls this
// AddressSpace has served; backend/dummy.Backend.WriteCount exposes it
// as the write-counting test facility (grounded on
// original_source/tests/include/WriteCountingBackend.h).
func (a *AddressSpace) WriteCount() uint64 {
	return atomic.LoadUint64(&a.writeCount)
}

// BarSize reports the declared size of bar, or 0 if unknown.
func (a *AddressSpace) BarSize(bar int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bars[bar])
}

// Lock acquires the address space's buffer lock, blocking any
// concurrent Read/Write until Unlock. Exposed only for the dummy
// backend's test facility (spec §5's "dummy backends expose an
// explicit buffer lock that the test API uses to freeze state");
// hardware-backed address spaces never call it.
func (a *AddressSpace) Lock() { a.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (a *AddressSpace) Unlock() { a.mu.Unlock() }

// Adjacent reports whether layout b immediately follows layout a on
// the same bar: a.ByteAddress+a.ByteSize == b.ByteAddress, the
// adjacent-merge predicate of spec §4.2.
func Adjacent(a, b RegisterLayout) bool {
	return a.Bar == b.Bar && a.ByteAddress+a.ByteSize == b.ByteAddress
}

// Merge computes the RegisterLayout covering [a,b) for two adjacent
// layouts, per spec §4.2's "single element covering [a1, a1+l1+l2)".
func Merge(a, b RegisterLayout) RegisterLayout {
	return RegisterLayout{
		Bar:         a.Bar,
		ByteAddress: a.ByteAddress,
		ByteSize:    a.ByteSize + b.ByteSize,
	}
}
