package ipv6

import (
	"encoding/binary"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/authheader"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
)

// GenericExtension models the common RFC 8200 §4 extension-header layout
// shared by Hop-by-Hop Options, Routing, and Destination Options: a
// next_header octet, a header-extension-length octet encoding the header's
// total length in 8-octet units minus one 8-octet unit, and the remaining
// options/routing data padded out to that length.
type GenericExtension struct {
	NextHeader common.IPNumber
	Data       []byte // everything after the next_header/hdr_ext_len pair
}

// HeaderLen returns the on-wire length of e in octets.
func (e *GenericExtension) HeaderLen() int {
	return 2 + len(e.Data)
}

func genericExtensionFromSlice(data []byte, layer common.Layer) (*GenericExtension, int, error) {
	if len(data) < 2 {
		return nil, 0, &common.LenError{RequiredLen: 2, Len: len(data), LenSource: common.LenSourceSlice, Layer: layer}
	}
	nextHeader := common.IPNumber(data[0])
	hdrExtLen := data[1]
	headerLen := (int(hdrExtLen) + 1) * 8
	if len(data) < headerLen {
		return nil, 0, &common.LenError{RequiredLen: headerLen, Len: len(data), LenSource: common.LenSourceSlice, Layer: layer}
	}
	body := make([]byte, headerLen-2)
	copy(body, data[2:headerLen])
	return &GenericExtension{NextHeader: nextHeader, Data: body}, headerLen, nil
}

func (e *GenericExtension) writeTo(w *common.Writer) error {
	bodyLen := len(e.Data)
	if (bodyLen+2)%8 != 0 {
		return &common.ErrValueTooBig{Field: "ipv6 extension length (must pad to 8 octets)", Actual: uint64(bodyLen + 2), MaxAllowed: uint64(((bodyLen+2)/8 + 1) * 8)}
	}
	units := (bodyLen+2)/8 - 1
	if units < 0 || units > 0xFF {
		return &common.ErrValueTooBig{Field: "ipv6 extension hdr_ext_len", Actual: uint64(units), MaxAllowed: 0xFF}
	}
	if err := w.PutUint8(uint8(e.NextHeader)); err != nil {
		return err
	}
	if err := w.PutUint8(uint8(units)); err != nil {
		return err
	}
	return w.PutBytes(e.Data)
}

// FragmentExtension is the RFC 8200 §4.5 Fragment header: a fixed 8 octets
// carrying the fragment offset, the M (more-fragments) flag, and the
// fragment identification.
type FragmentExtension struct {
	NextHeader     common.IPNumber
	FragmentOffset uint16 // in 8-octet units, 13 bits
	MoreFragments  bool
	Identification uint32
}

// HeaderLen returns FragmentExtension's fixed on-wire length: 8 octets.
func (e *FragmentExtension) HeaderLen() int { return 8 }

func fragmentExtensionFromSlice(data []byte) (*FragmentExtension, int, error) {
	const fixedLen = 8
	if len(data) < fixedLen {
		return nil, 0, &common.LenError{RequiredLen: fixedLen, Len: len(data), LenSource: common.LenSourceSlice, Layer: common.LayerIpv6Header}
	}
	offsetFlags := binary.BigEndian.Uint16(data[2:4])
	e := &FragmentExtension{
		NextHeader:     common.IPNumber(data[0]),
		FragmentOffset: offsetFlags >> 3,
		MoreFragments:  offsetFlags&0x1 != 0,
		Identification: binary.BigEndian.Uint32(data[4:8]),
	}
	return e, fixedLen, nil
}

func (e *FragmentExtension) writeTo(w *common.Writer) error {
	if err := w.PutUint8(uint8(e.NextHeader)); err != nil {
		return err
	}
	if err := w.PutUint8(0); err != nil { // reserved
		return err
	}
	offsetFlags := (e.FragmentOffset << 3)
	if e.MoreFragments {
		offsetFlags |= 0x1
	}
	if err := w.PutUint16(offsetFlags); err != nil {
		return err
	}
	return w.PutUint32(e.Identification)
}

// IsFragmenting reports whether this Fragment header itself indicates the
// packet it is attached to is part of a multi-fragment train: a non-zero
// offset (this is not the first fragment) or the M bit set (more fragments
// follow).
func (e *FragmentExtension) IsFragmenting() bool {
	return e.FragmentOffset != 0 || e.MoreFragments
}

// Extensions holds the five IPv6 extension-header slots this module
// recognizes. RFC 8200 §4.1 permits a second Destination Options header
// (one before Routing, one after); this core models only a single slot,
// documented as an Open Question resolution (see DESIGN.md).
type Extensions struct {
	HopByHop           *GenericExtension
	Routing            *GenericExtension
	Fragment           *FragmentExtension
	DestinationOptions *GenericExtension
	Authentication     *authheader.AuthHeader
}

// extensionOrder lists the canonical chain order. WalkChain accepts
// extensions in whatever order they arrive; present() and WriteTo follow
// this same order through their own fixed field list.
var extensionOrder = []common.IPNumber{
	common.IPNumberHopByHop,
	common.IPNumberIPv6Routing,
	common.IPNumberIPv6Fragment,
	common.IPNumberIPv6Destination,
	common.IPNumberAH,
}

func isExtensionCode(n common.IPNumber) bool {
	return n.IsIPv6ExtensionHeader()
}

// WalkChain decodes the extension-header chain starting at the front of
// data, whose IP-number is firstHeader. It returns the populated slots, the
// terminal (non-extension) IP number, the number of octets consumed, and
// whether a Fragment header was seen indicating a fragmenting payload.
//
// Duplicate extensions of a kind already recorded are consumed from the
// window but not re-recorded, per RFC 8200 ambiguity this core resolves by
// taking the first occurrence.
func WalkChain(data []byte, firstHeader common.IPNumber) (*Extensions, common.IPNumber, int, bool, error) {
	var ext Extensions
	current := firstHeader
	offset := 0
	fragmenting := false

	for isExtensionCode(current) {
		window := data[offset:]

		switch current {
		case common.IPNumberHopByHop:
			g, n, err := genericExtensionFromSlice(window, common.LayerIpv6Header)
			if err != nil {
				return nil, 0, 0, false, rewrapIpv6(err, offset)
			}
			if ext.HopByHop == nil {
				ext.HopByHop = g
			}
			offset += n
			current = g.NextHeader

		case common.IPNumberIPv6Routing:
			g, n, err := genericExtensionFromSlice(window, common.LayerIpv6Header)
			if err != nil {
				return nil, 0, 0, false, rewrapIpv6(err, offset)
			}
			if ext.Routing == nil {
				ext.Routing = g
			}
			offset += n
			current = g.NextHeader

		case common.IPNumberIPv6Fragment:
			f, n, err := fragmentExtensionFromSlice(window)
			if err != nil {
				return nil, 0, 0, false, rewrapIpv6(err, offset)
			}
			if ext.Fragment == nil {
				ext.Fragment = f
				fragmenting = f.IsFragmenting()
			}
			offset += n
			current = f.NextHeader

		case common.IPNumberIPv6Destination:
			g, n, err := genericExtensionFromSlice(window, common.LayerIpv6Header)
			if err != nil {
				return nil, 0, 0, false, rewrapIpv6(err, offset)
			}
			if ext.DestinationOptions == nil {
				ext.DestinationOptions = g
			}
			offset += n
			current = g.NextHeader

		case common.IPNumberAH:
			a, n, err := authheader.FromSlice(window)
			if err != nil {
				return nil, 0, 0, false, rewrapAuth(err, offset)
			}
			if ext.Authentication == nil {
				ext.Authentication = a
			}
			offset += n
			current = a.NextHeader
		}
	}

	return &ext, current, offset, fragmenting, nil
}

func rewrapIpv6(err error, offset int) error {
	if lenErr, ok := err.(*common.LenError); ok {
		return lenErr.AddOffset(offset, common.LenSourceIpv6HeaderPayloadLen)
	}
	return err
}

func rewrapAuth(err error, offset int) error {
	if lenErr, ok := err.(*common.LenError); ok {
		return lenErr.AddOffset(offset, common.LenSourceIpv6HeaderPayloadLen)
	}
	return err
}

// HeaderLen returns the combined on-wire length, in octets, of every
// present extension in ext.
func (ext *Extensions) HeaderLen() int {
	n := 0
	if ext.HopByHop != nil {
		n += ext.HopByHop.HeaderLen()
	}
	if ext.Routing != nil {
		n += ext.Routing.HeaderLen()
	}
	if ext.Fragment != nil {
		n += ext.Fragment.HeaderLen()
	}
	if ext.DestinationOptions != nil {
		n += ext.DestinationOptions.HeaderLen()
	}
	if ext.Authentication != nil {
		n += ext.Authentication.HeaderLen()
	}
	return n
}

// present lists, in canonical order, the IP-number codes of ext's
// non-nil slots.
func (ext *Extensions) present() []common.IPNumber {
	var p []common.IPNumber
	if ext.HopByHop != nil {
		p = append(p, common.IPNumberHopByHop)
	}
	if ext.Routing != nil {
		p = append(p, common.IPNumberIPv6Routing)
	}
	if ext.Fragment != nil {
		p = append(p, common.IPNumberIPv6Fragment)
	}
	if ext.DestinationOptions != nil {
		p = append(p, common.IPNumberIPv6Destination)
	}
	if ext.Authentication != nil {
		p = append(p, common.IPNumberAH)
	}
	return p
}

// TerminalNextHeader returns the next_header value that will ultimately be
// emitted at the end of the chain: the last present extension's own
// next_header field, or, if no extensions are present, fixedNextHeader
// itself (the fixed header's field is then the whole chain).
func (ext *Extensions) TerminalNextHeader(fixedNextHeader common.IPNumber) common.IPNumber {
	present := ext.present()
	if len(present) == 0 {
		return fixedNextHeader
	}
	switch present[len(present)-1] {
	case common.IPNumberHopByHop:
		return ext.HopByHop.NextHeader
	case common.IPNumberIPv6Routing:
		return ext.Routing.NextHeader
	case common.IPNumberIPv6Fragment:
		return ext.Fragment.NextHeader
	case common.IPNumberIPv6Destination:
		return ext.DestinationOptions.NextHeader
	case common.IPNumberAH:
		return ext.Authentication.NextHeader
	}
	return fixedNextHeader
}

// SetTerminalNextHeader sets the next_header value at the end of the
// chain: the last present extension's own next_header field if any
// extension is present, otherwise it reports that the caller must set the
// fixed header's field directly (ok == false).
func (ext *Extensions) SetTerminalNextHeader(x common.IPNumber) (ok bool) {
	present := ext.present()
	if len(present) == 0 {
		return false
	}
	switch present[len(present)-1] {
	case common.IPNumberHopByHop:
		ext.HopByHop.NextHeader = x
	case common.IPNumberIPv6Routing:
		ext.Routing.NextHeader = x
	case common.IPNumberIPv6Fragment:
		ext.Fragment.NextHeader = x
	case common.IPNumberIPv6Destination:
		ext.DestinationOptions.NextHeader = x
	case common.IPNumberAH:
		ext.Authentication.NextHeader = x
	}
	return true
}

// WriteTo emits, in canonical order (HopByHop, Routing, Fragment, DestOpt,
// Auth), every extension present in ext, rechaining each one's next_header
// to the next present extension in that order. The last present
// extension's next_header is left untouched — it already carries the
// upper-layer terminal protocol, as set by decode or by
// SetTerminalNextHeader.
func (ext *Extensions) WriteTo(w *common.Writer) error {
	present := ext.present()

	for i, code := range present {
		isLast := i == len(present)-1
		switch code {
		case common.IPNumberHopByHop:
			if !isLast {
				ext.HopByHop.NextHeader = present[i+1]
			}
			if err := ext.HopByHop.writeTo(w); err != nil {
				return err
			}
		case common.IPNumberIPv6Routing:
			if !isLast {
				ext.Routing.NextHeader = present[i+1]
			}
			if err := ext.Routing.writeTo(w); err != nil {
				return err
			}
		case common.IPNumberIPv6Fragment:
			if !isLast {
				ext.Fragment.NextHeader = present[i+1]
			}
			if err := ext.Fragment.writeTo(w); err != nil {
				return err
			}
		case common.IPNumberIPv6Destination:
			if !isLast {
				ext.DestinationOptions.NextHeader = present[i+1]
			}
			if err := ext.DestinationOptions.writeTo(w); err != nil {
				return err
			}
		case common.IPNumberAH:
			if !isLast {
				ext.Authentication.NextHeader = present[i+1]
			}
			if err := ext.Authentication.WriteTo(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateChain reports ErrExtNotReferenced if fixedNextHeader is
// inconsistent with the extensions actually present in ext: either it
// fails to name the first present extension, or (when no extensions are
// present) it names an extension code with nothing backing it.
func (ext *Extensions) ValidateChain(fixedNextHeader common.IPNumber) error {
	present := ext.present()
	if len(present) == 0 {
		if isExtensionCode(fixedNextHeader) {
			return &common.ErrExtNotReferenced{MissingExt: fixedNextHeader.String()}
		}
		return nil
	}
	if fixedNextHeader != present[0] {
		return &common.ErrExtNotReferenced{MissingExt: present[0].String()}
	}
	return nil
}
