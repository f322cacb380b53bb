// Package stream adapts the fixed-buffer codecs in the sibling packages to
// io.Reader sources: reading a header or extension chain off a socket or
// file needs a scratch buffer to read into before the decoders in
// ipheader/ipv4/ipv6 can run over it. Those decoders allocate as well: they
// return heap-allocated header values and copy IPv4 options, AH ICVs and
// generic extension bodies into new slices.
package stream

import "sync"

// Scratch buffer size classes. Read only ever takes a fixed header's worth
// (at most 60 octets) from the pool. scratchMax also covers the largest
// header stack WriteTo can serialize: an IPv6 fixed header, four generic or
// fragment extension slots (a generic one is at most 2048 octets), and an
// Authentication Header of at most 12+authheader.ICVMaxLen (1016) octets.
const (
	scratchSmall  = 512   // IPv4 header + AH, no large options
	scratchMedium = 1500  // MTU-sized packet
	scratchMax    = 65536 // IPv6 jumbogram upper bound
)

// scratchPool is a sync.Pool of reusable byte slices, sized in one of three
// classes. It is never on the FromSlice path: FromSlice and the fixed-header
// decoders read directly from a caller-supplied slice. It exists only for
// StreamAdapter, which must read an unknown number of octets off an
// io.Reader before it knows which decoder applies.
type scratchPool struct {
	pool sync.Pool
	size int
}

func newScratchPool(size int) *scratchPool {
	return &scratchPool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
		size: size,
	}
}

func (p *scratchPool) get() []byte {
	bufPtr := p.pool.Get().(*[]byte)
	return (*bufPtr)[:p.size]
}

func (p *scratchPool) put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	for i := range buf {
		buf[i] = 0
	}
	p.pool.Put(&buf)
}

var (
	smallScratchPool  = newScratchPool(scratchSmall)
	mediumScratchPool = newScratchPool(scratchMedium)
	maxScratchPool    = newScratchPool(scratchMax)
)

// getScratch returns a zeroed scratch buffer of at least n bytes from the
// smallest size class that fits, or a freshly allocated one if n exceeds
// scratchMax.
func getScratch(n int) []byte {
	switch {
	case n <= scratchSmall:
		return smallScratchPool.get()[:n]
	case n <= scratchMedium:
		return mediumScratchPool.get()[:n]
	case n <= scratchMax:
		return maxScratchPool.get()[:n]
	default:
		return make([]byte, n)
	}
}

// putScratch returns buf to the pool matching its capacity. Buffers not
// obtained from getScratch (the make() fallback for n > scratchMax) are
// silently dropped for the GC to collect.
func putScratch(buf []byte) {
	switch cap(buf) {
	case scratchSmall:
		smallScratchPool.put(buf)
	case scratchMedium:
		mediumScratchPool.put(buf)
	case scratchMax:
		maxScratchPool.put(buf)
	}
}
