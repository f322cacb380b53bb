// Package ipheader implements the IpDispatcher: version-nibble dispatch
// between IPv4 and IPv6, length-source reconciliation across the outer
// buffer and each version's authoritative length field, and the tagged
// IpHeader union those two paths produce.
package ipheader

import (
	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv4"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv6"
)

// Version discriminates the two IpHeader variants.
type Version int

const (
	VersionV4 Version = iota
	VersionV6
)

// IpHeader is a tagged union over a complete parsed-or-constructed layer-3
// header stack: either an IPv4 fixed header plus its (at most one)
// Authentication Header extension, or an IPv6 fixed header plus its five
// extension slots.
type IpHeader struct {
	version Version
	v4Fixed *ipv4.Fixed
	v4Ext   *ipv4.Extensions
	v6Fixed *ipv6.Fixed
	v6Ext   *ipv6.Extensions
}

// NewV4 wraps an IPv4 fixed header and extensions into an IpHeader.
func NewV4(fixed *ipv4.Fixed, ext *ipv4.Extensions) *IpHeader {
	if ext == nil {
		ext = &ipv4.Extensions{}
	}
	return &IpHeader{version: VersionV4, v4Fixed: fixed, v4Ext: ext}
}

// NewV6 wraps an IPv6 fixed header and extensions into an IpHeader.
func NewV6(fixed *ipv6.Fixed, ext *ipv6.Extensions) *IpHeader {
	if ext == nil {
		ext = &ipv6.Extensions{}
	}
	return &IpHeader{version: VersionV6, v6Fixed: fixed, v6Ext: ext}
}

// Version reports which variant h holds.
func (h *IpHeader) Version() Version { return h.version }

// V4 returns h's IPv4 fixed header and extensions, and ok=true iff h holds
// the V4 variant.
func (h *IpHeader) V4() (fixed *ipv4.Fixed, ext *ipv4.Extensions, ok bool) {
	if h.version != VersionV4 {
		return nil, nil, false
	}
	return h.v4Fixed, h.v4Ext, true
}

// V6 returns h's IPv6 fixed header and extensions, and ok=true iff h holds
// the V6 variant.
func (h *IpHeader) V6() (fixed *ipv6.Fixed, ext *ipv6.Extensions, ok bool) {
	if h.version != VersionV6 {
		return nil, nil, false
	}
	return h.v6Fixed, h.v6Ext, true
}

// HeaderLen returns the combined on-wire length of the fixed header plus
// its extensions: h.Fixed.HeaderLen() + h.Ext.HeaderLen().
func (h *IpHeader) HeaderLen() int {
	if h.version == VersionV4 {
		return h.v4Fixed.HeaderLen() + h.v4Ext.HeaderLen()
	}
	return h.v6Fixed.HeaderLen() + h.v6Ext.HeaderLen()
}

// NextHeader returns the IP number carried at the very end of the
// extension chain: the upper-layer protocol this header ultimately
// delivers to.
func (h *IpHeader) NextHeader() common.IPNumber {
	if h.version == VersionV4 {
		return h.v4Ext.TerminalNextHeader(h.v4Fixed.Protocol)
	}
	return h.v6Ext.TerminalNextHeader(h.v6Fixed.NextHeader)
}

// SetNextHeaders sets the IP number carried at the end of the extension
// chain to x: the terminal extension's next_header field if any extension
// is present, otherwise the fixed header's own protocol/next_header field.
func (h *IpHeader) SetNextHeaders(x common.IPNumber) {
	if h.version == VersionV4 {
		if !h.v4Ext.SetTerminalNextHeader(x) {
			h.v4Fixed.Protocol = x
		}
		return
	}
	if !h.v6Ext.SetTerminalNextHeader(x) {
		h.v6Fixed.NextHeader = x
	}
}

// SetPayloadLen sets the fixed header's length field so that the payload
// following the extension chain is n octets: for v4, total_len becomes
// header_len + extensions_len + n; for v6, payload_length becomes
// extensions_len + n (the 40-octet fixed header is never counted).
func (h *IpHeader) SetPayloadLen(n int) error {
	if h.version == VersionV4 {
		total := h.v4Fixed.HeaderLen() + h.v4Ext.HeaderLen() + n
		if total > 0xFFFF {
			return &common.ErrValueTooBig{Field: "ipv4 total_len", Actual: uint64(total), MaxAllowed: 0xFFFF}
		}
		h.v4Fixed.TotalLen = uint16(total)
		return nil
	}
	total := h.v6Ext.HeaderLen() + n
	if total > 0xFFFF {
		return &common.ErrValueTooBig{Field: "ipv6 payload_length", Actual: uint64(total), MaxAllowed: 0xFFFF}
	}
	h.v6Fixed.PayloadLen = uint16(total)
	return nil
}

// IsFragmentingPayload reports whether this header marks its payload as
// part of a fragmented datagram: the v4 MF-flag-or-nonzero-offset
// predicate, or the presence of a fragmenting v6 Fragment extension.
func (h *IpHeader) IsFragmentingPayload() bool {
	if h.version == VersionV4 {
		return h.v4Fixed.IsFragment()
	}
	return h.v6Ext.Fragment != nil && h.v6Ext.Fragment.IsFragmenting()
}

// WriteTo validates the extension chain against the fixed header's
// next_header field and emits the complete header stack (fixed header
// then extensions) into w.
func (h *IpHeader) WriteTo(w *common.Writer) error {
	if h.version == VersionV4 {
		if err := h.v4Ext.ValidateChain(h.v4Fixed.Protocol); err != nil {
			return err
		}
		if err := h.v4Fixed.WriteTo(w); err != nil {
			return err
		}
		return h.v4Ext.WriteTo(w)
	}
	if err := h.v6Ext.ValidateChain(h.v6Fixed.NextHeader); err != nil {
		return err
	}
	if err := h.v6Fixed.WriteTo(w); err != nil {
		return err
	}
	return h.v6Ext.WriteTo(w)
}
