package stream

import "testing"

func TestGetScratchSizesAndClears(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"small", 40},
		{"medium", 1500},
		{"max", 40000},
		{"oversize falls back to make", scratchMax + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := getScratch(tt.n)
			if len(buf) != tt.n {
				t.Fatalf("getScratch(%d) len = %d, want %d", tt.n, len(buf), tt.n)
			}
			for i := range buf {
				if buf[i] != 0 {
					t.Fatalf("getScratch(%d) not zeroed at %d", tt.n, i)
				}
			}
			for i := range buf {
				buf[i] = 0xFF
			}
			putScratch(buf)
		})
	}
}

func TestGetScratchReusesPooledBuffer(t *testing.T) {
	buf := getScratch(100)
	buf[0] = 0xAB
	putScratch(buf)

	buf2 := getScratch(100)
	if buf2[0] != 0 {
		t.Error("reused scratch buffer was not cleared on Put")
	}
}
