// Package ipv4 implements the Internet Protocol version 4 fixed header and
// its single recognized extension, as defined in RFC 791 and RFC 4302.
package ipv4

import (
	"encoding/binary"
	"fmt"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/authheader"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
)

const (
	// Version is the version nibble for IPv4.
	Version = 4

	// MinHeaderLen is the minimum IPv4 header length (20 octets, IHL=5).
	MinHeaderLen = 20

	// MaxHeaderLen is the maximum IPv4 header length (60 octets, IHL=15).
	MaxHeaderLen = 60

	// DefaultTTL is a conventional default Time To Live.
	DefaultTTL = 64
)

// Flags holds the three IPv4 flag bits.
type Flags uint8

const (
	FlagReserved      Flags = 1 << 2
	FlagDontFragment  Flags = 1 << 1
	FlagMoreFragments Flags = 1 << 0
)

// Fixed is the 20-to-60-octet IPv4 fixed header (RFC 791 §3.1), including
// options. IHL records the header length in 4-octet units (5..=15);
// TotalLen counts header+extensions+payload; HeaderChecksum is the 16-bit
// one's-complement sum over the header (with this field treated as zero
// during summation).
type Fixed struct {
	IHL            uint8 // 4 bits, in 4-octet units; 5..=15
	DSCP           uint8 // 6 bits
	ECN            uint8 // 2 bits
	TotalLen       uint16
	Identification uint16
	Flags          Flags
	FragmentOffset uint16 // 13 bits, in 8-octet units
	TTL            uint8
	Protocol       common.IPNumber
	HeaderChecksum uint16
	Source         common.IPv4Address
	Destination    common.IPv4Address
	Options        []byte // 0..40 octets, padded to a 4-octet boundary
}

// HeaderLen returns the fixed header's on-wire length in octets: 20 plus
// len(Options). The IHL field is not consulted; WriteTo derives the IHL it
// emits from this length.
func (f *Fixed) HeaderLen() int {
	return 20 + len(f.Options)
}

// IsFragment reports whether the fixed header's flags/offset mark this
// packet as a fragment.
func (f *Fixed) IsFragment() bool {
	return f.FragmentOffset != 0 || f.Flags&FlagMoreFragments != 0
}

// FixedFromSlice decodes the fixed header (including options) from the
// front of data. IHL is read from the low nibble of the first octet;
// callers that have already dispatched on version pass the full buffer
// here directly.
func FixedFromSlice(data []byte) (*Fixed, int, error) {
	if len(data) < MinHeaderLen {
		return nil, 0, &common.LenError{
			RequiredLen: MinHeaderLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIpv4Header,
		}
	}

	ihl := data[0] & 0x0F
	if ihl < 5 {
		return nil, 0, &common.ErrIpv4HeaderLengthSmallerThanHeader{IHL: ihl}
	}
	headerLen := int(ihl) * 4
	if len(data) < headerLen {
		return nil, 0, &common.LenError{
			RequiredLen: headerLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIpv4Header,
		}
	}

	f := &Fixed{
		IHL:            ihl,
		DSCP:           data[1] >> 2,
		ECN:            data[1] & 0x03,
		TotalLen:       binary.BigEndian.Uint16(data[2:4]),
		Identification: binary.BigEndian.Uint16(data[4:6]),
		TTL:            data[8],
		Protocol:       common.IPNumber(data[9]),
		HeaderChecksum: binary.BigEndian.Uint16(data[10:12]),
	}
	flagsFragOffset := binary.BigEndian.Uint16(data[6:8])
	f.Flags = Flags(flagsFragOffset >> 13)
	f.FragmentOffset = flagsFragOffset & 0x1FFF
	copy(f.Source[:], data[12:16])
	copy(f.Destination[:], data[16:20])

	if headerLen > MinHeaderLen {
		opts := make([]byte, headerLen-MinHeaderLen)
		copy(opts, data[MinHeaderLen:headerLen])
		f.Options = opts
	}

	return f, headerLen, nil
}

// WriteTo emits f's wire representation into w, computing and installing
// the header checksum over the just-written bytes with the checksum slot
// held at zero during summation.
func (f *Fixed) WriteTo(w *common.Writer) error {
	headerLen := f.HeaderLen()
	if headerLen > MaxHeaderLen {
		return &common.ErrValueTooBig{Field: "ipv4 header length", Actual: uint64(headerLen), MaxAllowed: MaxHeaderLen}
	}
	start := w.Pos()

	if err := w.PutUint8((Version << 4) | (headerLen / 4 & 0x0F)); err != nil {
		return err
	}
	if err := w.PutUint8((f.DSCP << 2) | (f.ECN & 0x03)); err != nil {
		return err
	}
	if err := w.PutUint16(f.TotalLen); err != nil {
		return err
	}
	if err := w.PutUint16(f.Identification); err != nil {
		return err
	}
	flagsFragOffset := (uint16(f.Flags) << 13) | (f.FragmentOffset & 0x1FFF)
	if err := w.PutUint16(flagsFragOffset); err != nil {
		return err
	}
	if err := w.PutUint8(f.TTL); err != nil {
		return err
	}
	if err := w.PutUint8(uint8(f.Protocol)); err != nil {
		return err
	}
	checksumPos := w.Pos()
	if err := w.PutUint16(0); err != nil { // placeholder, patched below
		return err
	}
	if err := w.PutIPv4(f.Source); err != nil {
		return err
	}
	if err := w.PutIPv4(f.Destination); err != nil {
		return err
	}
	if len(f.Options) > 0 {
		if err := w.PutBytes(f.Options); err != nil {
			return err
		}
	}

	headerBytes := w.Bytes()[start : start+headerLen]
	f.HeaderChecksum = common.InternetChecksum(headerBytes)
	binary.BigEndian.PutUint16(w.Bytes()[checksumPos:checksumPos+2], f.HeaderChecksum)

	return nil
}

// VerifyChecksum reports whether the 20+ octets of headerBytes (as decoded
// off the wire, checksum field included) sum to the Internet-checksum
// self-verifying value.
func VerifyChecksum(headerBytes []byte) bool {
	return common.VerifyInternetChecksum(headerBytes)
}

// String returns a short human-readable summary of f.
func (f *Fixed) String() string {
	return fmt.Sprintf("Ipv4Fixed{%s -> %s, proto=%s, ttl=%d, id=%d, total_len=%d}",
		f.Source, f.Destination, f.Protocol, f.TTL, f.Identification, f.TotalLen)
}

// New returns a Fixed header with conventional defaults: IHL=5 (no
// options), DefaultTTL, and no flags/options/fragmentation set. TotalLen
// starts at zero and is written as stored, so the caller sets it (directly
// or via SetPayloadLen on the enclosing IpHeader); HeaderChecksum is
// computed by WriteTo.
func New(src, dst common.IPv4Address, protocol common.IPNumber) *Fixed {
	return &Fixed{
		IHL:         5,
		TTL:         DefaultTTL,
		Protocol:    protocol,
		Source:      src,
		Destination: dst,
	}
}

// Extensions holds the one IPv4 extension this core recognizes: an
// optional Authentication Header, present iff Fixed.Protocol names it.
type Extensions struct {
	Authentication *authheader.AuthHeader
}

// WalkChain decodes a degenerate IPv4 extension chain: at most one
// Authentication Header, present iff firstHeader equals the AH IP number.
// It returns the extensions, the terminal (payload) IP number, and the
// number of octets consumed.
func WalkChain(data []byte, firstHeader common.IPNumber) (*Extensions, common.IPNumber, int, error) {
	if firstHeader != common.IPNumberAH {
		return &Extensions{}, firstHeader, 0, nil
	}
	a, n, err := authheader.FromSlice(data)
	if err != nil {
		if lenErr, ok := err.(*common.LenError); ok {
			return nil, 0, 0, lenErr.AddOffset(0, common.LenSourceIpv4HeaderTotalLen)
		}
		return nil, 0, 0, err
	}
	return &Extensions{Authentication: a}, a.NextHeader, n, nil
}

// HeaderLen returns the on-wire length of the extensions present in ext.
func (ext *Extensions) HeaderLen() int {
	if ext.Authentication != nil {
		return ext.Authentication.HeaderLen()
	}
	return 0
}

// WriteTo emits ext's Authentication Header, if present, using its
// already-stored next_header field as the upper-layer terminal protocol.
func (ext *Extensions) WriteTo(w *common.Writer) error {
	if ext.Authentication == nil {
		return nil
	}
	return ext.Authentication.WriteTo(w)
}

// TerminalNextHeader returns the next_header value at the end of the
// (degenerate, at-most-one-element) chain: the Authentication Header's own
// next_header field if present, else fixedProtocol itself.
func (ext *Extensions) TerminalNextHeader(fixedProtocol common.IPNumber) common.IPNumber {
	if ext.Authentication != nil {
		return ext.Authentication.NextHeader
	}
	return fixedProtocol
}

// SetTerminalNextHeader sets the Authentication Header's next_header field
// to x and reports ok, or reports !ok if no Authentication Header is
// present (the caller must then set the fixed header's field directly).
func (ext *Extensions) SetTerminalNextHeader(x common.IPNumber) (ok bool) {
	if ext.Authentication == nil {
		return false
	}
	ext.Authentication.NextHeader = x
	return true
}

// ValidateChain reports ErrExtNotReferenced if fixedProtocol is
// inconsistent with whether an Authentication Header is actually present:
// either it names AH while none is present, or an AH is present while it
// names something else.
func (ext *Extensions) ValidateChain(fixedProtocol common.IPNumber) error {
	if ext.Authentication != nil {
		if fixedProtocol != common.IPNumberAH {
			return &common.ErrExtNotReferenced{MissingExt: "AuthenticationHeader"}
		}
		return nil
	}
	if fixedProtocol == common.IPNumberAH {
		return &common.ErrExtNotReferenced{MissingExt: "AuthenticationHeader"}
	}
	return nil
}
