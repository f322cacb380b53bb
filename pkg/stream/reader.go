package stream

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipheader"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv4"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv6"
)

// LengthLimitedReader wraps an underlying io.Reader with a byte budget: any
// Read that would need to cross the budget instead returns a LenError
// carrying the witnesses it was seeded with, so a chain walker reading off
// a stream gets the same length-accounting guarantees as one reading off a
// slice.
type LengthLimitedReader struct {
	r         io.Reader
	remaining int
	lenSource common.LenSource
	layer     common.Layer
	offset    int
}

// NewLengthLimitedReader seeds a LengthLimitedReader with the given budget
// and the witnesses to attach to any LenError it produces.
func NewLengthLimitedReader(r io.Reader, budget int, lenSource common.LenSource, layer common.Layer, offset int) *LengthLimitedReader {
	return &LengthLimitedReader{r: r, remaining: budget, lenSource: lenSource, layer: layer, offset: offset}
}

// Read implements io.Reader, failing with a LenError instead of reading
// past the configured budget.
func (l *LengthLimitedReader) Read(p []byte) (int, error) {
	if len(p) > l.remaining {
		return 0, &common.LenError{
			RequiredLen:      len(p),
			Len:              l.remaining,
			LenSource:        l.lenSource,
			Layer:            l.layer,
			LayerStartOffset: l.offset,
		}
	}
	n, err := l.r.Read(p)
	l.remaining -= n
	l.offset += n
	return n, err
}

// Remaining reports the number of octets still available within the
// budget.
func (l *LengthLimitedReader) Remaining() int { return l.remaining }

// Adapter reads complete IP header stacks off an io.Reader, one at a time,
// using a pooled scratch buffer to hold the fixed header before handing it
// to the ipv4/ipv6 decoders. The octets after the fixed header are read
// into a freshly allocated buffer; the payload slice borrows from it, while
// the decoded options, ICV and extension bodies are copies.
type Adapter struct {
	log *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger overrides the Adapter's logger, which otherwise defaults to
// zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// NewAdapter builds an Adapter with the given options applied.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// errShortVersionRead distinguishes a zero-byte read of the version octet
// (the stream ended cleanly before any header began) from a genuine
// length error partway through a header.
var errShortVersionRead = errors.New("stream: could not read IP version octet")

// Read consumes one version octet from r to learn the IP version, reads
// the rest of the fixed header (plus up to MaxHeaderLen v4 options) into a
// pooled scratch buffer, decodes it, then wraps the remainder of r in a
// LengthLimitedReader bounded by the fixed header's own length field
// before walking the extension chain and reading the payload in full.
//
// The returned IpHeader and Payload borrow from a freshly allocated
// payload buffer (not the pool) sized exactly to the payload length, since
// unlike FromSlice there is no caller-owned backing buffer to borrow from.
func (a *Adapter) Read(r io.Reader) (*ipheader.IpHeader, *ipheader.Payload, error) {
	var firstByte [1]byte
	if _, err := io.ReadFull(r, firstByte[:]); err != nil {
		a.log.Debug("stream read: no version octet available", zap.Error(err))
		return nil, nil, errShortVersionRead
	}

	switch firstByte[0] >> 4 {
	case 4:
		return a.readV4(r, firstByte[0])
	case 6:
		return a.readV6(r, firstByte[0])
	default:
		return nil, nil, &common.ErrUnsupportedIPVersion{Version: firstByte[0] >> 4}
	}
}

func (a *Adapter) readV4(r io.Reader, firstByte byte) (*ipheader.IpHeader, *ipheader.Payload, error) {
	scratch := getScratch(ipv4.MaxHeaderLen)
	defer putScratch(scratch)
	scratch[0] = firstByte

	// The IHL nibble of the first octet alone determines how many more
	// header octets to read before the mechanical decoder can run.
	headerLen := int(firstByte&0x0F) * 4
	if headerLen < ipv4.MinHeaderLen {
		return nil, nil, &common.ErrIpv4HeaderLengthSmallerThanHeader{IHL: firstByte & 0x0F}
	}

	if _, err := io.ReadFull(r, scratch[1:headerLen]); err != nil {
		return nil, nil, &common.LenError{RequiredLen: headerLen, Len: 1, LenSource: common.LenSourceSlice, Layer: common.LayerIpv4Header}
	}

	fixed, headerLen, err := ipv4.FixedFromSlice(scratch[:headerLen])
	if err != nil {
		return nil, nil, err
	}

	if int(fixed.TotalLen) < headerLen {
		return nil, nil, &common.LenError{RequiredLen: headerLen, Len: int(fixed.TotalLen), LenSource: common.LenSourceIpv4HeaderTotalLen, Layer: common.LayerIpv4Packet}
	}
	restLen := int(fixed.TotalLen) - headerLen

	limited := NewLengthLimitedReader(r, restLen, common.LenSourceIpv4HeaderTotalLen, common.LayerIpv4Packet, headerLen)
	rest := make([]byte, restLen)
	if _, err := io.ReadFull(limited, rest); err != nil {
		if lenErr, ok := err.(*common.LenError); ok {
			return nil, nil, lenErr
		}
		return nil, nil, &common.LenError{RequiredLen: restLen, Len: restLen - limited.Remaining(), LenSource: common.LenSourceIpv4HeaderTotalLen, Layer: common.LayerIpv4Packet, LayerStartOffset: headerLen}
	}

	ext, terminal, extLen, err := ipv4.WalkChain(rest, fixed.Protocol)
	if err != nil {
		if lenErr, ok := err.(*common.LenError); ok {
			return nil, nil, lenErr.AddOffset(headerLen, common.LenSourceIpv4HeaderTotalLen)
		}
		return nil, nil, err
	}

	h := ipheader.NewV4(fixed, ext)
	return h, &ipheader.Payload{
		IPNumber:   terminal,
		Fragmented: fixed.IsFragment(),
		LenSource:  common.LenSourceIpv4HeaderTotalLen,
		Data:       rest[extLen:],
	}, nil
}

func (a *Adapter) readV6(r io.Reader, firstByte byte) (*ipheader.IpHeader, *ipheader.Payload, error) {
	scratch := getScratch(ipv6.FixedLen)
	defer putScratch(scratch)
	scratch[0] = firstByte

	if _, err := io.ReadFull(r, scratch[1:ipv6.FixedLen]); err != nil {
		return nil, nil, &common.LenError{RequiredLen: ipv6.FixedLen, Len: 1, LenSource: common.LenSourceSlice, Layer: common.LayerIpv6Header}
	}

	fixed, err := ipv6.FixedFromSlice(scratch[:ipv6.FixedLen])
	if err != nil {
		return nil, nil, err
	}

	restLen := int(fixed.PayloadLen)
	lenSource := common.LenSourceIpv6HeaderPayloadLen
	limited := NewLengthLimitedReader(r, restLen, lenSource, common.LayerIpv6Packet, ipv6.FixedLen)
	rest := make([]byte, restLen)
	if _, err := io.ReadFull(limited, rest); err != nil {
		if lenErr, ok := err.(*common.LenError); ok {
			return nil, nil, lenErr
		}
		return nil, nil, &common.LenError{RequiredLen: restLen, Len: restLen - limited.Remaining(), LenSource: lenSource, Layer: common.LayerIpv6Packet, LayerStartOffset: ipv6.FixedLen}
	}

	ext, terminal, extLen, fragmenting, err := ipv6.WalkChain(rest, fixed.NextHeader)
	if err != nil {
		if lenErr, ok := err.(*common.LenError); ok {
			return nil, nil, lenErr.AddOffset(ipv6.FixedLen, lenSource)
		}
		return nil, nil, err
	}

	h := ipheader.NewV6(fixed, ext)
	return h, &ipheader.Payload{
		IPNumber:   terminal,
		Fragmented: fragmenting,
		LenSource:  lenSource,
		Data:       rest[extLen:],
	}, nil
}

// WriteTo serializes h into w using a pooled scratch buffer sized to
// h.HeaderLen(), so repeated calls in a tight serialization loop do not
// allocate a fresh buffer each time.
func WriteTo(w io.Writer, h *ipheader.IpHeader) error {
	buf := getScratch(h.HeaderLen())
	defer putScratch(buf)

	if err := h.WriteTo(common.NewWriter(buf)); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}
