// Package authheader implements the IPsec Authentication Header extension
// (RFC 4302), the one IPv4 extension this module recognizes and one of the
// five IPv6 extension slots walked by pkg/ipv6.
package authheader

import (
	"encoding/binary"
	"fmt"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
)

const (
	// FixedLen is the length in octets of AH up to and including the
	// sequence number, before the variable-length ICV.
	FixedLen = 12

	// ICVMaxLen is the largest Integrity Check Value this module will
	// decode or encode: the payload_length octet can encode at most 255
	// units of 4 octets, i.e. a 1028-octet header, minus the 12-octet
	// fixed part.
	ICVMaxLen = 1016
)

// AuthHeader is RFC 4302's Authentication Header: next_header, a
// payload-length field encoded in 4-octet units minus 2, two reserved
// octets, a Security Parameters Index, a sequence number, and a variable
// Integrity Check Value.
type AuthHeader struct {
	NextHeader     common.IPNumber
	SPI            uint32
	SequenceNumber uint32
	ICV            []byte
}

// HeaderLen returns the on-wire length of h in octets: the 12-octet fixed
// part plus the ICV.
func (h *AuthHeader) HeaderLen() int {
	return FixedLen + len(h.ICV)
}

// rawPayloadLen returns the value to encode in the payload_length octet:
// the total header length in 4-octet units, minus 2, per RFC 4302 §2.2.
// icvLen must already be a multiple of 4, since the fixed part is 12 octets.
func rawPayloadLen(icvLen int) (uint8, error) {
	if icvLen%4 != 0 {
		return 0, &common.ErrValueTooBig{Field: "authheader icv length (must be 4-octet aligned)", Actual: uint64(icvLen), MaxAllowed: uint64(icvLen - icvLen%4)}
	}
	units := (FixedLen+icvLen)/4 - 2
	return uint8(units), nil
}

// FromSlice decodes an Authentication Header from the front of data.
// len_source is always Slice for a standalone call; callers embedding this
// inside an extension-chain walk rewrite the returned *common.LenError's
// offset and length source themselves.
func FromSlice(data []byte) (*AuthHeader, int, error) {
	if len(data) < 2 {
		return nil, 0, &common.LenError{
			RequiredLen: 2,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIpAuthHeader,
		}
	}

	nextHeader := common.IPNumber(data[0])
	rawLen := data[1]
	if rawLen == 0 {
		return nil, 0, &common.ErrZeroPayloadLen{}
	}

	headerLen := (int(rawLen) + 2) * 4
	if len(data) < headerLen {
		return nil, 0, &common.LenError{
			RequiredLen: headerLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIpAuthHeader,
		}
	}

	icv := make([]byte, headerLen-FixedLen)
	copy(icv, data[FixedLen:headerLen])

	h := &AuthHeader{
		NextHeader:     nextHeader,
		SPI:            binary.BigEndian.Uint32(data[4:8]),
		SequenceNumber: binary.BigEndian.Uint32(data[8:12]),
		ICV:            icv,
	}
	return h, headerLen, nil
}

// WriteTo emits h's wire representation into w.
func (h *AuthHeader) WriteTo(w *common.Writer) error {
	if len(h.ICV) > ICVMaxLen {
		return &common.ErrValueTooBig{Field: "authheader icv", Actual: uint64(len(h.ICV)), MaxAllowed: ICVMaxLen}
	}

	rawLen, err := rawPayloadLen(len(h.ICV))
	if err != nil {
		return err
	}

	if err := w.PutUint8(uint8(h.NextHeader)); err != nil {
		return err
	}
	if err := w.PutUint8(rawLen); err != nil {
		return err
	}
	if err := w.PutUint16(0); err != nil { // reserved
		return err
	}
	if err := w.PutUint32(h.SPI); err != nil {
		return err
	}
	if err := w.PutUint32(h.SequenceNumber); err != nil {
		return err
	}
	return w.PutBytes(h.ICV)
}

// String returns a short human-readable summary of h.
func (h *AuthHeader) String() string {
	return fmt.Sprintf("AuthHeader{next=%s, spi=0x%08x, seq=%d, icv_len=%d}",
		h.NextHeader, h.SPI, h.SequenceNumber, len(h.ICV))
}
