package ipheader

import (
	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv4"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv6"
)

// Payload describes the octets that follow a parsed header stack: the
// upper-layer IP number the extension chain terminates in, whether the
// fixed header or a Fragment extension marks this payload as fragmented,
// the length-field witness that governed how the payload was sliced, and
// the payload slice itself (borrowed from the input buffer).
type Payload struct {
	IPNumber   common.IPNumber
	Fragmented bool
	LenSource  common.LenSource
	Data       []byte
}

// FromSlice reads the version nibble from the first octet of buf and
// dispatches to the v4 or v6 decode path.
func FromSlice(buf []byte) (*IpHeader, *Payload, error) {
	if len(buf) == 0 {
		return nil, nil, &common.LenError{
			RequiredLen: 1,
			Len:         0,
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIpHeader,
		}
	}

	switch buf[0] >> 4 {
	case 4:
		return fromSliceV4(buf)
	case 6:
		return fromSliceV6(buf)
	default:
		return nil, nil, &common.ErrUnsupportedIPVersion{Version: buf[0] >> 4}
	}
}

// FromSliceV4Only decodes buf as an IPv4 header stack, failing with
// ErrUnsupportedIPVersion if the version nibble is not 4.
func FromSliceV4Only(buf []byte) (*IpHeader, *Payload, error) {
	if len(buf) == 0 {
		return nil, nil, &common.LenError{RequiredLen: 1, Len: 0, LenSource: common.LenSourceSlice, Layer: common.LayerIpHeader}
	}
	if buf[0]>>4 != 4 {
		return nil, nil, &common.ErrUnsupportedIPVersion{Version: buf[0] >> 4}
	}
	return fromSliceV4(buf)
}

// FromSliceV6Only decodes buf as an IPv6 header stack, failing with
// ErrUnsupportedIPVersion if the version nibble is not 6.
func FromSliceV6Only(buf []byte) (*IpHeader, *Payload, error) {
	if len(buf) == 0 {
		return nil, nil, &common.LenError{RequiredLen: 1, Len: 0, LenSource: common.LenSourceSlice, Layer: common.LayerIpHeader}
	}
	if buf[0]>>4 != 6 {
		return nil, nil, &common.ErrUnsupportedIPVersion{Version: buf[0] >> 4}
	}
	return fromSliceV6(buf)
}

func fromSliceV4(buf []byte) (*IpHeader, *Payload, error) {
	fixed, headerLen, err := ipv4.FixedFromSlice(buf)
	if err != nil {
		return nil, nil, err
	}

	if int(fixed.TotalLen) < headerLen {
		return nil, nil, &common.LenError{
			RequiredLen: headerLen,
			Len:         int(fixed.TotalLen),
			LenSource:   common.LenSourceIpv4HeaderTotalLen,
			Layer:       common.LayerIpv4Packet,
		}
	}
	if len(buf) < int(fixed.TotalLen) {
		return nil, nil, &common.LenError{
			RequiredLen: int(fixed.TotalLen),
			Len:         len(buf),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIpv4Packet,
		}
	}

	window := buf[headerLen:fixed.TotalLen]
	ext, terminal, extLen, err := ipv4.WalkChain(window, fixed.Protocol)
	if err != nil {
		if lenErr, ok := err.(*common.LenError); ok {
			return nil, nil, lenErr.AddOffset(headerLen, common.LenSourceIpv4HeaderTotalLen)
		}
		return nil, nil, err
	}

	payload := window[extLen:]
	h := NewV4(fixed, ext)
	return h, &Payload{
		IPNumber:   terminal,
		Fragmented: fixed.IsFragment(),
		LenSource:  common.LenSourceIpv4HeaderTotalLen,
		Data:       payload,
	}, nil
}

func fromSliceV6(buf []byte) (*IpHeader, *Payload, error) {
	fixed, err := ipv6.FixedFromSlice(buf)
	if err != nil {
		return nil, nil, err
	}

	rest := buf[ipv6.FixedLen:]

	var window []byte
	var lenSource common.LenSource
	if fixed.PayloadLen == 0 && len(rest) > 0 {
		window = rest
		lenSource = common.LenSourceSlice
	} else {
		if len(rest) < int(fixed.PayloadLen) {
			return nil, nil, &common.LenError{
				RequiredLen: int(fixed.PayloadLen),
				Len:         len(rest),
				LenSource:   common.LenSourceSlice,
				Layer:       common.LayerIpv6Packet,
			}
		}
		window = rest[:fixed.PayloadLen]
		lenSource = common.LenSourceIpv6HeaderPayloadLen
	}

	ext, terminal, extLen, fragmenting, err := ipv6.WalkChain(window, fixed.NextHeader)
	if err != nil {
		if lenErr, ok := err.(*common.LenError); ok {
			return nil, nil, lenErr.AddOffset(ipv6.FixedLen, lenSource)
		}
		return nil, nil, err
	}

	payload := window[extLen:]
	h := NewV6(fixed, ext)
	return h, &Payload{
		IPNumber:   terminal,
		Fragmented: fragmenting,
		LenSource:  lenSource,
		Data:       payload,
	}, nil
}
