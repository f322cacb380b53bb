package ipv6

import (
	"errors"
	"testing"

	"github.com/therealutkarshpriyadarshi/l3header/pkg/common"
)

func sampleFixed() *Fixed {
	src := common.IPv6Address{0x20, 0x01, 0x0d, 0xb8, 15: 0x01}
	dst := common.IPv6Address{0x20, 0x01, 0x0d, 0xb8, 15: 0x02}
	f := New(src, dst, common.IPNumberUDP)
	f.PayloadLen = 8
	return f
}

func TestFixedRoundTrip(t *testing.T) {
	f := sampleFixed()
	f.TrafficClass = 0xAB
	f.FlowLabel = 0x12345

	buf := make([]byte, FixedLen)
	if err := f.WriteTo(common.NewWriter(buf)); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	got, err := FixedFromSlice(buf)
	if err != nil {
		t.Fatalf("FixedFromSlice() error = %v", err)
	}
	if got.TrafficClass != f.TrafficClass {
		t.Errorf("TrafficClass = %#x, want %#x", got.TrafficClass, f.TrafficClass)
	}
	if got.FlowLabel != f.FlowLabel {
		t.Errorf("FlowLabel = %#x, want %#x", got.FlowLabel, f.FlowLabel)
	}
	if got.Source != f.Source || got.Destination != f.Destination {
		t.Errorf("addresses mismatch: got %+v", got)
	}
	if got.NextHeader != common.IPNumberUDP {
		t.Errorf("NextHeader = %v, want UDP", got.NextHeader)
	}
	if got.PayloadLen != 8 {
		t.Errorf("PayloadLen = %d, want 8", got.PayloadLen)
	}
}

func TestFixedFromSliceTooShort(t *testing.T) {
	_, err := FixedFromSlice(make([]byte, 20))
	var lenErr *common.LenError
	if !errors.As(err, &lenErr) {
		t.Fatalf("error = %v, want *common.LenError", err)
	}
	if lenErr.RequiredLen != FixedLen {
		t.Errorf("RequiredLen = %d, want %d", lenErr.RequiredLen, FixedLen)
	}
}

func TestFixedFromSliceWrongVersion(t *testing.T) {
	data := make([]byte, FixedLen)
	data[0] = 0x40 // version 4 in the high nibble
	_, err := FixedFromSlice(data)
	var verErr *common.ErrUnsupportedIPVersion
	if !errors.As(err, &verErr) {
		t.Fatalf("error = %v, want *ErrUnsupportedIPVersion", err)
	}
	if verErr.Version != 4 {
		t.Errorf("Version = %d, want 4", verErr.Version)
	}
}

func TestFixedString(t *testing.T) {
	if s := sampleFixed().String(); s == "" {
		t.Error("String() returned empty string")
	}
}
