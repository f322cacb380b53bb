package icmpv6

import (
	"bytes"
	"errors"
	"testing"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
	ipv6header "github.com/therealutkarshpriyadarshi/l3header/pkg/ipv6"
)

func sampleIpv6Fixed() *ipv6header.Fixed {
	return ipv6header.New(common.IPv6Address{15: 0x01}, common.IPv6Address{15: 0x01}, common.IPNumberICMPv6)
}

func TestEchoRequestChecksumRoundTrip(t *testing.T) {
	ip := sampleIpv6Fixed()
	payload := []byte("abcd")
	msg := NewEchoRequest(0x1234, 0x0001)

	h, err := WithChecksum(msg, ip, payload)
	if err != nil {
		t.Fatalf("WithChecksum() error = %v", err)
	}
	if !h.IsChecksumValid(ip, payload) {
		t.Fatal("IsChecksumValid() = false, want true")
	}

	for i := range payload {
		corrupted := append([]byte(nil), payload...)
		corrupted[i] ^= 0xFF
		if h.IsChecksumValid(ip, corrupted) {
			t.Errorf("IsChecksumValid() = true after flipping byte %d, want false", i)
		}
	}
}

func TestFromSliceDestinationUnreachablePort(t *testing.T) {
	data := []byte{1, 4, 0x00, 0x00, 0, 0, 0, 0}
	h, rest, err := FromSlice(data)
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("len(rest) = %d, want 0", len(rest))
	}
	code, ok := h.Message.DestinationUnreachable()
	if !ok || code != DestUnreachablePort {
		t.Fatalf("DestinationUnreachable() = %v, %v, want Port, true", code, ok)
	}

	out := h.ToBytes()
	if !bytes.Equal(out[:], data) {
		t.Errorf("ToBytes() = %v, want %v", out, data)
	}
}

func TestFromSliceTooShort(t *testing.T) {
	_, _, err := FromSlice([]byte{1, 2, 3})
	var lenErr *common.LenError
	if !errors.As(err, &lenErr) {
		t.Fatalf("error = %v, want *common.LenError", err)
	}
	if lenErr.Layer != common.LayerIcmpv6Header {
		t.Errorf("Layer = %v, want LayerIcmpv6Header", lenErr.Layer)
	}
}

func TestPacketTooBigRoundTrip(t *testing.T) {
	msg := NewPacketTooBig(1500)
	h := &Header{Message: msg, Checksum: 0xABCD}
	buf := h.ToBytes()

	got, rest, err := FromSlice(buf[:])
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("len(rest) = %d, want 0", len(rest))
	}
	mtu, ok := got.Message.PacketTooBig()
	if !ok || mtu != 1500 {
		t.Errorf("PacketTooBig() = %v, %v, want 1500, true", mtu, ok)
	}
	if got.Checksum != 0xABCD {
		t.Errorf("Checksum = %#04x, want 0xabcd", got.Checksum)
	}
}

func TestTimeExceededRoundTrip(t *testing.T) {
	msg := NewTimeExceeded(TimeExceededFragmentReassembly)
	h := &Header{Message: msg}
	buf := h.ToBytes()

	got, _, err := FromSlice(buf[:])
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	code, ok := got.Message.TimeExceeded()
	if !ok || code != TimeExceededFragmentReassembly {
		t.Errorf("TimeExceeded() = %v, %v, want FragmentReassembly, true", code, ok)
	}
}

func TestParameterProblemRoundTrip(t *testing.T) {
	msg := NewParameterProblem(2, 40)
	h := &Header{Message: msg}
	buf := h.ToBytes()

	got, _, err := FromSlice(buf[:])
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	code, pointer, ok := got.Message.ParameterProblem()
	if !ok || code != 2 || pointer != 40 {
		t.Errorf("ParameterProblem() = %v, %v, %v, want 2, 40, true", code, pointer, ok)
	}
}

func TestRawRoundTrip(t *testing.T) {
	msg := NewRaw(200, 17, [4]byte{1, 2, 3, 4})
	h := &Header{Message: msg, Checksum: 0x1234}
	buf := h.ToBytes()

	got, _, err := FromSlice(buf[:])
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	icmpType, code, bytes5to8, ok := got.Message.Raw()
	if !ok || icmpType != 200 || code != 17 || bytes5to8 != [4]byte{1, 2, 3, 4} {
		t.Errorf("Raw() = %v, %v, %v, %v", icmpType, code, bytes5to8, ok)
	}
	if got.Checksum != 0x1234 {
		t.Errorf("Checksum = %#04x, want 0x1234", got.Checksum)
	}
}

func TestDestinationUnreachableUnrecognizedCodeFallsBackToRaw(t *testing.T) {
	data := []byte{1, 200, 0, 0, 9, 9, 9, 9}
	h, _, err := FromSlice(data)
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	if _, ok := h.Message.DestinationUnreachable(); ok {
		t.Error("DestinationUnreachable() ok = true for unrecognized code, want false")
	}
	icmpType, code, bytes5to8, ok := h.Message.Raw()
	if !ok || icmpType != 1 || code != 200 || bytes5to8 != [4]byte{9, 9, 9, 9} {
		t.Errorf("Raw() = %v, %v, %v, %v", icmpType, code, bytes5to8, ok)
	}
}

func TestCalcChecksumEmptyPayload(t *testing.T) {
	ip := sampleIpv6Fixed()
	_, err := CalcChecksum(NewEchoRequest(0, 0), ip, make([]byte, 0))
	if err != nil {
		t.Fatalf("CalcChecksum() unexpected error = %v", err)
	}
}

func TestTypeStringUnknown(t *testing.T) {
	if got := Type(99).String(); got != "Unknown(99)" {
		t.Errorf("String() = %q, want Unknown(99)", got)
	}
}

func TestUpdateChecksum(t *testing.T) {
	ip := sampleIpv6Fixed()
	payload := []byte("ping")
	h := &Header{Message: NewEchoRequest(1, 1)}

	if err := h.UpdateChecksum(ip, payload); err != nil {
		t.Fatalf("UpdateChecksum() error = %v", err)
	}
	if !h.IsChecksumValid(ip, payload) {
		t.Error("IsChecksumValid() = false after UpdateChecksum, want true")
	}
}
