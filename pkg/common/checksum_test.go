package common

import "testing"

func TestInternetChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{name: "empty data", data: []byte{}, expected: 0xFFFF},
		{name: "single byte", data: []byte{0x12}, expected: 0xEDFF},
		{name: "two bytes", data: []byte{0x12, 0x34}, expected: 0xEDCB},
		{
			name:     "RFC 1071 example",
			data:     []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7},
			expected: 0x220d,
		},
		{name: "all zeros", data: []byte{0x00, 0x00, 0x00, 0x00}, expected: 0xFFFF},
		{name: "all ones", data: []byte{0xFF, 0xFF, 0xFF, 0xFF}, expected: 0x0000},
		{
			name:     "odd length",
			data:     []byte{0x12, 0x34, 0x56},
			expected: 0x97CB,
		},
		{
			name: "sixteen bytes exercises the unrolled path",
			data: []byte{
				0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04,
				0x00, 0x05, 0x00, 0x06, 0x00, 0x07, 0x00, 0x08,
			},
			expected: ^uint16(0x0024),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InternetChecksum(tt.data); got != tt.expected {
				t.Errorf("InternetChecksum() = 0x%04X, want 0x%04X", got, tt.expected)
			}
		})
	}
}

func TestVerifyInternetChecksum(t *testing.T) {
	data := []byte{0x45, 0x00, 0x00, 0x54, 0x00, 0x00, 0x40, 0x00, 0x40, 0x01,
		0x00, 0x00, 0xc0, 0xa8, 0x01, 0x01, 0xc0, 0xa8, 0x01, 0x02}
	sum := InternetChecksum(data)
	data[10] = byte(sum >> 8)
	data[11] = byte(sum)

	if !VerifyInternetChecksum(data) {
		t.Error("VerifyInternetChecksum() = false for a freshly stamped checksum, want true")
	}

	data[11] ^= 0xFF
	if VerifyInternetChecksum(data) {
		t.Error("VerifyInternetChecksum() = true after corrupting a byte, want false")
	}
}

func TestChecksumWriteMatchesSingleShot(t *testing.T) {
	data := make([]byte, 37)
	for i := range data {
		data[i] = byte(i * 7)
	}

	want := InternetChecksum(data)

	// Split across several Write calls at non-word-aligned boundaries to
	// exercise the pending-odd-byte carry between calls.
	var acc Checksum
	acc.Write(data[0:5])
	acc.Write(data[5:5])
	acc.Write(data[5:19])
	acc.Write(data[19:])

	if got := acc.Sum16(); got != want {
		t.Errorf("split Checksum.Write = 0x%04X, want 0x%04X", got, want)
	}
}

func TestPseudoHeaderWriteTo(t *testing.T) {
	ph := PseudoHeader{
		Source:         IPv6Address{0: 0x20, 1: 0x01, 15: 0x01},
		Destination:    IPv6Address{15: 0x01},
		UpperLayerLen:  8,
		UpperLayerNext: IPNumberICMPv6,
	}

	var acc Checksum
	ph.WriteTo(&acc)

	var direct Checksum
	var buf [40]byte
	copy(buf[0:16], ph.Source[:])
	copy(buf[16:32], ph.Destination[:])
	buf[35] = 8
	buf[39] = byte(IPNumberICMPv6)
	direct.Write(buf[:])

	if acc.Sum16() != direct.Sum16() {
		t.Error("PseudoHeader.WriteTo produced a different sum than the manual buffer")
	}
}
