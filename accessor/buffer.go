package accessor

// Buffer is a rectangular channels x samples user buffer. Per the
// Design Notes (spec §9), it is a single contiguous slice with
// bounds-checked per-channel views rather than a vector of vectors.
type Buffer[T any] struct {
	nChannels int
	nSamples  int
	data      []T
}

// NewBuffer allocates a zeroed nChannels x nSamples buffer.
func NewBuffer[T any](nChannels, nSamples int) *Buffer[T] {
	return &Buffer[T]{
		nChannels: nChannels,
		nSamples:  nSamples,
		data:      make([]T, nChannels*nSamples),
	}
}

func (b *Buffer[T]) NChannels() int { return b.nChannels }
func (b *Buffer[T]) NSamples() int  { return b.nSamples }

// Channel returns a bounds-checked view of channel ch's samples. The
// slice aliases the buffer's backing array; mutating it mutates b.
func (b *Buffer[T]) Channel(ch int) []T {
	start := ch * b.nSamples
	return b.data[start : start+b.nSamples]
}

// SetChannel overwrites channel ch's samples with data, which must have
// length NSamples().
func (b *Buffer[T]) SetChannel(ch int, data []T) {
	copy(b.Channel(ch), data)
}

// CopyFrom overwrites b's entire contents from other, which must share
// b's shape.
func (b *Buffer[T]) CopyFrom(other *Buffer[T]) {
	copy(b.data, other.data)
}

// Clone returns a deep copy of b.
func (b *Buffer[T]) Clone() *Buffer[T] {
	out := &Buffer[T]{nChannels: b.nChannels, nSamples: b.nSamples, data: make([]T, len(b.data))}
	copy(out.data, b.data)
	return out
}
