package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv4"
	"github.com/therealutkarshpriyadarshi/l3header/pkg/ipv6"
)

func TestLengthLimitedReaderWithinBudget(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5})
	l := NewLengthLimitedReader(src, 5, common.LenSourceSlice, common.LayerIpv4Packet, 20)

	buf := make([]byte, 5)
	n, err := io.ReadFull(l, buf)
	if err != nil || n != 5 {
		t.Fatalf("ReadFull() = %d, %v", n, err)
	}
}

func TestLengthLimitedReaderOverBudget(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3})
	l := NewLengthLimitedReader(src, 2, common.LenSourceIpv4HeaderTotalLen, common.LayerIpv4Packet, 20)

	buf := make([]byte, 3)
	_, err := l.Read(buf)
	var lenErr *common.LenError
	if !errors.As(err, &lenErr) {
		t.Fatalf("error = %v, want *common.LenError", err)
	}
	if lenErr.LayerStartOffset != 20 || lenErr.LenSource != common.LenSourceIpv4HeaderTotalLen {
		t.Errorf("LenError = %+v", lenErr)
	}
}

func TestAdapterReadV4RoundTrip(t *testing.T) {
	fixed := ipv4.New(common.IPv4Address{10, 0, 0, 1}, common.IPv4Address{10, 0, 0, 2}, common.IPNumberUDP)
	payload := []byte{1, 2, 3, 4}
	fixed.TotalLen = uint16(fixed.HeaderLen() + len(payload))

	buf := make([]byte, fixed.HeaderLen()+len(payload))
	if err := fixed.WriteTo(common.NewWriter(buf)); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	copy(buf[fixed.HeaderLen():], payload)

	a := NewAdapter()
	h, p, err := a.Read(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	gotFixed, _, ok := h.V4()
	if !ok || gotFixed.Source != fixed.Source {
		t.Errorf("V4() fixed = %+v", gotFixed)
	}
	if !bytes.Equal(p.Data, payload) {
		t.Errorf("Data = %v, want %v", p.Data, payload)
	}
}

func TestAdapterReadV6RoundTrip(t *testing.T) {
	fixed := ipv6.New(common.IPv6Address{15: 1}, common.IPv6Address{15: 2}, common.IPNumberUDP)
	payload := []byte{5, 6, 7, 8}
	fixed.PayloadLen = uint16(len(payload))

	buf := make([]byte, ipv6.FixedLen+len(payload))
	if err := fixed.WriteTo(common.NewWriter(buf)); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	copy(buf[ipv6.FixedLen:], payload)

	a := NewAdapter()
	h, p, err := a.Read(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, _, ok := h.V6(); !ok {
		t.Fatal("expected V6 variant")
	}
	if !bytes.Equal(p.Data, payload) {
		t.Errorf("Data = %v, want %v", p.Data, payload)
	}
}

func TestAdapterReadEmptyStream(t *testing.T) {
	a := NewAdapter()
	_, _, err := a.Read(bytes.NewReader(nil))
	if err != errShortVersionRead {
		t.Fatalf("error = %v, want errShortVersionRead", err)
	}
}

func TestWriteToRoundTrip(t *testing.T) {
	fixed := ipv4.New(common.IPv4Address{1, 1, 1, 1}, common.IPv4Address{2, 2, 2, 2}, common.IPNumberUDP)
	fixed.TotalLen = uint16(fixed.HeaderLen())

	var out bytes.Buffer
	a := NewAdapter()
	h, _, err := a.Read(headerBytesReader(t, fixed))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := WriteTo(&out, h); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if out.Len() != fixed.HeaderLen() {
		t.Errorf("out.Len() = %d, want %d", out.Len(), fixed.HeaderLen())
	}
}

func headerBytesReader(t *testing.T, fixed *ipv4.Fixed) *bytes.Reader {
	t.Helper()
	buf := make([]byte, fixed.HeaderLen())
	if err := fixed.WriteTo(common.NewWriter(buf)); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	return bytes.NewReader(buf)
}
