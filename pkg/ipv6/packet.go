// Package ipv6 implements the Internet Protocol version 6 fixed header
// (RFC 8200) and its five recognized extension-header slots.
package ipv6

import (
	"encoding/binary"
	"fmt"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
)

const (
	// Version is the version nibble for IPv6.
	Version = 6

	// FixedLen is the fixed IPv6 header length in octets.
	FixedLen = 40

	// DefaultHopLimit is a conventional default Hop Limit.
	DefaultHopLimit = 64
)

// Fixed is the 40-octet IPv6 fixed header (RFC 8200 §3). PayloadLength
// counts everything after this fixed header — extensions plus the inner
// payload — never the 40 octets of the fixed header itself. NextHeader
// names the first extension header or, if none are present, the upper-
// layer protocol.
type Fixed struct {
	TrafficClass uint8
	FlowLabel    uint32 // 20 bits
	PayloadLen   uint16
	NextHeader   common.IPNumber
	HopLimit     uint8
	Source       common.IPv6Address
	Destination  common.IPv6Address
}

// HeaderLen returns the fixed header's on-wire length: always FixedLen.
func (f *Fixed) HeaderLen() int { return FixedLen }

// FixedFromSlice decodes the 40-octet fixed header from the front of data.
// It performs no cross-check against PayloadLen and the buffer's remaining
// length — that length-governance decision belongs to the IpDispatcher,
// which knows about the RFC 2675 jumbogram fallback.
func FixedFromSlice(data []byte) (*Fixed, error) {
	if len(data) < FixedLen {
		return nil, &common.LenError{
			RequiredLen: FixedLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIpv6Header,
		}
	}

	versionTCFlow := binary.BigEndian.Uint32(data[0:4])
	version := uint8(versionTCFlow >> 28)
	if version != Version {
		return nil, &common.ErrUnsupportedIPVersion{Version: version}
	}

	f := &Fixed{
		TrafficClass: uint8((versionTCFlow >> 20) & 0xFF),
		FlowLabel:    versionTCFlow & 0xFFFFF,
		PayloadLen:   binary.BigEndian.Uint16(data[4:6]),
		NextHeader:   common.IPNumber(data[6]),
		HopLimit:     data[7],
	}
	copy(f.Source[:], data[8:24])
	copy(f.Destination[:], data[24:40])

	return f, nil
}

// WriteTo emits f's 40-octet wire representation into w.
func (f *Fixed) WriteTo(w *common.Writer) error {
	versionTCFlow := (uint32(Version) << 28) | (uint32(f.TrafficClass) << 20) | (f.FlowLabel & 0xFFFFF)
	if err := w.PutUint32(versionTCFlow); err != nil {
		return err
	}
	if err := w.PutUint16(f.PayloadLen); err != nil {
		return err
	}
	if err := w.PutUint8(uint8(f.NextHeader)); err != nil {
		return err
	}
	if err := w.PutUint8(f.HopLimit); err != nil {
		return err
	}
	if err := w.PutIPv6(f.Source); err != nil {
		return err
	}
	return w.PutIPv6(f.Destination)
}

// String returns a short human-readable summary of f.
func (f *Fixed) String() string {
	return fmt.Sprintf("Ipv6Fixed{%s -> %s, next=%s, hop_limit=%d, payload_len=%d}",
		f.Source, f.Destination, f.NextHeader, f.HopLimit, f.PayloadLen)
}

// New returns a Fixed header with conventional defaults: DefaultHopLimit,
// zero traffic class and flow label. PayloadLen is computed by the caller
// (via SetPayloadLen on the enclosing IpHeader) before writing.
func New(src, dst common.IPv6Address, nextHeader common.IPNumber) *Fixed {
	return &Fixed{
		NextHeader:  nextHeader,
		HopLimit:    DefaultHopLimit,
		Source:      src,
		Destination: dst,
	}
}
