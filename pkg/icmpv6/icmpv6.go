// Package icmpv6 implements the ICMPv6 control-message layer (RFC 4443):
// the 8-octet type/code/checksum/type-specific-data header as a tagged
// union over the recognized message kinds, plus the RFC 2460 §8.1
// pseudo-header checksum that ties a message to the IPv6 header and
// payload it travels with.
package icmpv6

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/net/ipv6"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
	ipv6header "github.com/therealutkarshpriyadarshi/l3header/pkg/ipv6"
)

// HeaderLen is the fixed 8-octet ICMPv6 header length (type, code,
// checksum, 4 octets of type-specific data).
const HeaderLen = 8

// Type is an ICMPv6 message type, aliasing golang.org/x/net/ipv6's
// ICMPType constants rather than hand-copying the RFC 4443 numbers.
type Type uint8

const (
	TypeDestinationUnreachable = Type(ipv6.ICMPTypeDestinationUnreachable)
	TypePacketTooBig           = Type(ipv6.ICMPTypePacketTooBig)
	TypeTimeExceeded           = Type(ipv6.ICMPTypeTimeExceeded)
	TypeParameterProblem       = Type(ipv6.ICMPTypeParameterProblem)
	TypeEchoRequest            = Type(ipv6.ICMPTypeEchoRequest)
	TypeEchoReply              = Type(ipv6.ICMPTypeEchoReply)
)

func (t Type) String() string {
	switch t {
	case TypeDestinationUnreachable:
		return "DestinationUnreachable"
	case TypePacketTooBig:
		return "PacketTooBig"
	case TypeTimeExceeded:
		return "TimeExceeded"
	case TypeParameterProblem:
		return "ParameterProblem"
	case TypeEchoRequest:
		return "EchoRequest"
	case TypeEchoReply:
		return "EchoReply"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// DestUnreachableCode enumerates the recognized Destination Unreachable
// sub-codes (RFC 4443 §3.1).
type DestUnreachableCode uint8

const (
	DestUnreachableNoRoute     DestUnreachableCode = 0
	DestUnreachableProhibited  DestUnreachableCode = 1
	DestUnreachableBeyondScope DestUnreachableCode = 2
	DestUnreachableAddress     DestUnreachableCode = 3
	DestUnreachablePort        DestUnreachableCode = 4
	DestUnreachableSrcPolicy   DestUnreachableCode = 5
	DestUnreachableRejectRoute DestUnreachableCode = 6
)

func (c DestUnreachableCode) String() string {
	switch c {
	case DestUnreachableNoRoute:
		return "NoRoute"
	case DestUnreachableProhibited:
		return "Prohibited"
	case DestUnreachableBeyondScope:
		return "BeyondScope"
	case DestUnreachableAddress:
		return "Address"
	case DestUnreachablePort:
		return "Port"
	case DestUnreachableSrcPolicy:
		return "SrcPolicy"
	case DestUnreachableRejectRoute:
		return "RejectRoute"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// TimeExceededCode enumerates the recognized Time Exceeded sub-codes
// (RFC 4443 §3.3).
type TimeExceededCode uint8

const (
	TimeExceededHopLimit           TimeExceededCode = 0
	TimeExceededFragmentReassembly TimeExceededCode = 1
)

func (c TimeExceededCode) String() string {
	switch c {
	case TimeExceededHopLimit:
		return "HopLimit"
	case TimeExceededFragmentReassembly:
		return "FragmentReassembly"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// Kind discriminates the Message tagged union's variants.
type Kind int

const (
	KindDestinationUnreachable Kind = iota
	KindDestinationUnreachableRaw
	KindPacketTooBig
	KindTimeExceeded
	KindTimeExceededRaw
	KindParameterProblem
	KindEchoRequest
	KindEchoReply
	KindRaw
)

// Message is the closed tagged union over every ICMPv6 message kind this
// core recognizes (RFC 4443), plus a Raw catch-all for unrecognized
// (type, code) pairs. Only the fields relevant to Kind() are meaningful;
// construct instances with the New* functions rather than the zero value
// to keep the invariant that exactly one set of fields is live.
type Message struct {
	kind Kind

	destUnreachableCode DestUnreachableCode // KindDestinationUnreachable

	mtu uint32 // KindPacketTooBig

	timeExceededCode TimeExceededCode // KindTimeExceeded

	parameterProblemCode uint8  // KindParameterProblem
	pointer              uint32 // KindParameterProblem

	id  uint16 // KindEchoRequest, KindEchoReply
	seq uint16 // KindEchoRequest, KindEchoReply

	rawType      uint8   // KindRaw, KindDestinationUnreachableRaw, KindTimeExceededRaw
	rawCode      uint8   // KindRaw, KindDestinationUnreachableRaw, KindTimeExceededRaw
	rawBytes5to8 [4]byte // KindRaw, KindDestinationUnreachableRaw, KindTimeExceededRaw
}

// Kind reports which variant m holds.
func (m Message) Kind() Kind { return m.kind }

// NewDestinationUnreachable builds a recognized Destination Unreachable
// message. bytes5to8 carry no semantic content for this type and are zero
// on emit per RFC 4443 §3.1.
func NewDestinationUnreachable(code DestUnreachableCode) Message {
	return Message{kind: KindDestinationUnreachable, destUnreachableCode: code}
}

// NewPacketTooBig builds a Packet Too Big message carrying the reporting
// node's next-hop MTU.
func NewPacketTooBig(mtu uint32) Message {
	return Message{kind: KindPacketTooBig, mtu: mtu}
}

// NewTimeExceeded builds a recognized Time Exceeded message.
func NewTimeExceeded(code TimeExceededCode) Message {
	return Message{kind: KindTimeExceeded, timeExceededCode: code}
}

// NewParameterProblem builds a Parameter Problem message carrying the
// RFC 4443 §3.4 sub-code (0: erroneous header field, 1: unrecognized next
// header, 2: unrecognized option) and the octet offset, within the
// invoking packet, of the field that caused the problem.
func NewParameterProblem(code uint8, pointer uint32) Message {
	return Message{kind: KindParameterProblem, parameterProblemCode: code, pointer: pointer}
}

// NewEchoRequest builds an Echo Request carrying the given identifier and
// sequence number.
func NewEchoRequest(id, seq uint16) Message {
	return Message{kind: KindEchoRequest, id: id, seq: seq}
}

// NewEchoReply builds an Echo Reply carrying the given identifier and
// sequence number.
func NewEchoReply(id, seq uint16) Message {
	return Message{kind: KindEchoReply, id: id, seq: seq}
}

// NewRaw builds the catch-all variant for an (icmpType, code) this core
// does not otherwise recognize, preserving the 4 type-specific octets
// verbatim for a byte-exact round trip.
func NewRaw(icmpType, code uint8, bytes5to8 [4]byte) Message {
	return Message{kind: KindRaw, rawType: icmpType, rawCode: code, rawBytes5to8: bytes5to8}
}

// DestinationUnreachable returns m's code and ok=true iff m holds the
// recognized KindDestinationUnreachable variant.
func (m Message) DestinationUnreachable() (code DestUnreachableCode, ok bool) {
	if m.kind != KindDestinationUnreachable {
		return 0, false
	}
	return m.destUnreachableCode, true
}

// PacketTooBig returns m's MTU and ok=true iff m holds KindPacketTooBig.
func (m Message) PacketTooBig() (mtu uint32, ok bool) {
	if m.kind != KindPacketTooBig {
		return 0, false
	}
	return m.mtu, true
}

// TimeExceeded returns m's code and ok=true iff m holds the recognized
// KindTimeExceeded variant.
func (m Message) TimeExceeded() (code TimeExceededCode, ok bool) {
	if m.kind != KindTimeExceeded {
		return 0, false
	}
	return m.timeExceededCode, true
}

// ParameterProblem returns m's sub-code and pointer and ok=true iff m
// holds KindParameterProblem.
func (m Message) ParameterProblem() (code uint8, pointer uint32, ok bool) {
	if m.kind != KindParameterProblem {
		return 0, 0, false
	}
	return m.parameterProblemCode, m.pointer, true
}

// Echo returns m's identifier and sequence number and ok=true iff m holds
// KindEchoRequest or KindEchoReply.
func (m Message) Echo() (id, seq uint16, ok bool) {
	if m.kind != KindEchoRequest && m.kind != KindEchoReply {
		return 0, 0, false
	}
	return m.id, m.seq, true
}

// Raw returns m's verbatim (type, code, bytes5to8) and ok=true iff m holds
// one of the Raw variants (an entirely unrecognized type, or a
// recognized type whose code this core does not sub-classify).
func (m Message) Raw() (icmpType, code uint8, bytes5to8 [4]byte, ok bool) {
	switch m.kind {
	case KindRaw, KindDestinationUnreachableRaw, KindTimeExceededRaw:
		return m.rawType, m.rawCode, m.rawBytes5to8, true
	default:
		return 0, 0, [4]byte{}, false
	}
}

func (m Message) icmpType() uint8 {
	switch m.kind {
	case KindDestinationUnreachable, KindDestinationUnreachableRaw:
		return uint8(TypeDestinationUnreachable)
	case KindPacketTooBig:
		return uint8(TypePacketTooBig)
	case KindTimeExceeded, KindTimeExceededRaw:
		return uint8(TypeTimeExceeded)
	case KindParameterProblem:
		return uint8(TypeParameterProblem)
	case KindEchoRequest:
		return uint8(TypeEchoRequest)
	case KindEchoReply:
		return uint8(TypeEchoReply)
	default:
		return m.rawType
	}
}

func (m Message) code() uint8 {
	switch m.kind {
	case KindDestinationUnreachable:
		return uint8(m.destUnreachableCode)
	case KindTimeExceeded:
		return uint8(m.timeExceededCode)
	case KindDestinationUnreachableRaw, KindTimeExceededRaw, KindRaw:
		return m.rawCode
	case KindParameterProblem:
		return m.parameterProblemCode
	default:
		return 0
	}
}

func (m Message) typeSpecific() [4]byte {
	var b [4]byte
	switch m.kind {
	case KindPacketTooBig:
		binary.BigEndian.PutUint32(b[:], m.mtu)
	case KindParameterProblem:
		binary.BigEndian.PutUint32(b[:], m.pointer)
	case KindEchoRequest, KindEchoReply:
		binary.BigEndian.PutUint16(b[0:2], m.id)
		binary.BigEndian.PutUint16(b[2:4], m.seq)
	case KindRaw, KindDestinationUnreachableRaw, KindTimeExceededRaw:
		b = m.rawBytes5to8
	}
	return b
}

func messageFromWire(icmpType, code uint8, bytes5to8 [4]byte) Message {
	switch Type(icmpType) {
	case TypeDestinationUnreachable:
		switch code {
		case uint8(DestUnreachableNoRoute), uint8(DestUnreachableProhibited),
			uint8(DestUnreachableBeyondScope), uint8(DestUnreachableAddress),
			uint8(DestUnreachablePort), uint8(DestUnreachableSrcPolicy),
			uint8(DestUnreachableRejectRoute):
			return NewDestinationUnreachable(DestUnreachableCode(code))
		default:
			return Message{kind: KindDestinationUnreachableRaw, rawType: icmpType, rawCode: code, rawBytes5to8: bytes5to8}
		}
	case TypePacketTooBig:
		return NewPacketTooBig(binary.BigEndian.Uint32(bytes5to8[:]))
	case TypeTimeExceeded:
		switch code {
		case uint8(TimeExceededHopLimit), uint8(TimeExceededFragmentReassembly):
			return NewTimeExceeded(TimeExceededCode(code))
		default:
			return Message{kind: KindTimeExceededRaw, rawType: icmpType, rawCode: code, rawBytes5to8: bytes5to8}
		}
	case TypeParameterProblem:
		return NewParameterProblem(code, binary.BigEndian.Uint32(bytes5to8[:]))
	case TypeEchoRequest:
		return NewEchoRequest(binary.BigEndian.Uint16(bytes5to8[0:2]), binary.BigEndian.Uint16(bytes5to8[2:4]))
	case TypeEchoReply:
		return NewEchoReply(binary.BigEndian.Uint16(bytes5to8[0:2]), binary.BigEndian.Uint16(bytes5to8[2:4]))
	default:
		return NewRaw(icmpType, code, bytes5to8)
	}
}

// Header pairs a Message with the 16-bit checksum carried alongside it on
// the wire.
type Header struct {
	Message  Message
	Checksum uint16
}

// FromSlice decodes the 8-octet ICMPv6 header from the front of data and
// returns it alongside the remaining payload bytes (borrowed from data,
// not copied).
func FromSlice(data []byte) (*Header, []byte, error) {
	if len(data) < HeaderLen {
		return nil, nil, &common.LenError{
			RequiredLen: HeaderLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIcmpv6Header,
		}
	}
	var bytes5to8 [4]byte
	copy(bytes5to8[:], data[4:8])

	h := &Header{
		Message:  messageFromWire(data[0], data[1], bytes5to8),
		Checksum: binary.BigEndian.Uint16(data[2:4]),
	}
	return h, data[HeaderLen:], nil
}

// ToBytes renders h's 8-octet wire representation, checksum included.
func (h *Header) ToBytes() [HeaderLen]byte {
	var b [HeaderLen]byte
	b[0] = h.Message.icmpType()
	b[1] = h.Message.code()
	binary.BigEndian.PutUint16(b[2:4], h.Checksum)
	copy(b[4:8], h.Message.typeSpecific()[:])
	return b
}

// CalcChecksum computes the RFC 4443 §2.3 checksum for msg and payload as
// they would travel inside ipv6Header: the pseudo-header (source,
// destination, upper-layer length, next-header=ICMPv6) followed by the
// 8-octet message header (checksum slot treated as zero) followed by
// payload. It fails with ErrIpv6PayloadLengthTooLarge if the combined
// message+payload length cannot be represented in the pseudo-header's
// 32-bit length field.
func CalcChecksum(msg Message, ipv6Header *ipv6header.Fixed, payload []byte) (uint16, error) {
	total := uint64(HeaderLen) + uint64(len(payload))
	if total > 0xFFFFFFFF {
		return 0, &common.ErrIpv6PayloadLengthTooLarge{Len: total}
	}

	var acc common.Checksum
	ph := common.PseudoHeader{
		Source:         ipv6Header.Source,
		Destination:    ipv6Header.Destination,
		UpperLayerLen:  uint32(total),
		UpperLayerNext: common.IPNumberICMPv6,
	}
	ph.WriteTo(&acc)

	var hdrBytes [HeaderLen]byte
	hdrBytes[0] = msg.icmpType()
	hdrBytes[1] = msg.code()
	// checksum field (hdrBytes[2:4]) left zero during summation
	copy(hdrBytes[4:8], msg.typeSpecific()[:])
	acc.Write(hdrBytes[:])
	acc.Write(payload)

	return acc.Sum16(), nil
}

// WithChecksum builds a Header for msg with Checksum computed by
// CalcChecksum over ipv6Header and payload.
func WithChecksum(msg Message, ipv6Header *ipv6header.Fixed, payload []byte) (*Header, error) {
	checksum, err := CalcChecksum(msg, ipv6Header, payload)
	if err != nil {
		return nil, err
	}
	return &Header{Message: msg, Checksum: checksum}, nil
}

// IsChecksumValid reports whether h.Checksum matches CalcChecksum(h.Message,
// ipv6Header, payload).
func (h *Header) IsChecksumValid(ipv6Header *ipv6header.Fixed, payload []byte) bool {
	want, err := CalcChecksum(h.Message, ipv6Header, payload)
	if err != nil {
		return false
	}
	return h.Checksum == want
}

// UpdateChecksum recomputes h.Checksum in place from ipv6Header and
// payload.
func (h *Header) UpdateChecksum(ipv6Header *ipv6header.Fixed, payload []byte) error {
	checksum, err := CalcChecksum(h.Message, ipv6Header, payload)
	if err != nil {
		return err
	}
	h.Checksum = checksum
	return nil
}

// WriteTo emits h's 8-octet wire representation into w. The checksum is
// whatever is already stored in h.Checksum; callers that have not already
// called WithChecksum/UpdateChecksum get a zero or stale checksum
// written, matching the mechanical, no-hidden-cross-layer-work contract
// the fixed-header codecs follow.
func (h *Header) WriteTo(w *common.Writer) error {
	b := h.ToBytes()
	return w.PutBytes(b[:])
}

// String returns a short human-readable summary of h.
func (h *Header) String() string {
	return fmt.Sprintf("Icmpv6Header{%s, code=%d, checksum=%#04x}", h.Message.Kind().String(), h.Message.code(), h.Checksum)
}

// String returns a human-readable name for k.
func (k Kind) String() string {
	switch k {
	case KindDestinationUnreachable:
		return "DestinationUnreachable"
	case KindDestinationUnreachableRaw:
		return "DestinationUnreachable(unrecognized code)"
	case KindPacketTooBig:
		return "PacketTooBig"
	case KindTimeExceeded:
		return "TimeExceeded"
	case KindTimeExceededRaw:
		return "TimeExceeded(unrecognized code)"
	case KindParameterProblem:
		return "ParameterProblem"
	case KindEchoRequest:
		return "EchoRequest"
	case KindEchoReply:
		return "EchoReply"
	default:
		return "Raw"
	}
}
