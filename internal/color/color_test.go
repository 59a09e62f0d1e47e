package color

import "testing"

func TestDecodeEndpoints(t *testing.T) {
	if Decode(0) != 0 || Decode(255) != 1 {
		t.Errorf("Decode(0), Decode(255) = %v, %v; want 0, 1", Decode(0), Decode(255))
	}
	// 128 is much darker than half in linear light.
	if d := Decode(128); d < 0.21 || d > 0.22 {
		t.Errorf("Decode(128) = %v, want about 0.2158", d)
	}
}

func TestEncodeMatchesSlow(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		l := float32(i) / 1000
		fast, slow := Encode(l), EncodeSlow(l)
		if d := int(fast) - int(slow); d < -1 || d > 1 {
			t.Errorf("Encode(%v) = %d, slow = %d", l, fast, slow)
		}
	}
}

func TestEncodeClamps(t *testing.T) {
	for _, tt := range []struct {
		in   float32
		want uint8
	}{{-1, 0}, {0, 0}, {0.5, 188}, {1, 255}, {7, 255}} {
		if got := Encode(tt.in); got != tt.want {
			t.Errorf("Encode(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for i := range 256 {
		if got := Encode(Decode(uint8(i))); got != uint8(i) {
			t.Errorf("Encode(Decode(%d)) = %d", i, got)
		}
	}
}

func TestEncodePremultiplied(t *testing.T) {
	tests := []struct {
		name       string
		r, g, b, a float32
		want       [4]uint8
	}{
		{"transparent", 0.3, 0.3, 0.3, 0, [4]uint8{}},
		{"opaque", 0.5, 0, 1, 1, [4]uint8{188, 0, 255, 255}},
		{"half", 0.25, 0, 0.5, 0.5, [4]uint8{94, 0, 128, 128}},
		{"overbright", 2, 2, 2, 2, [4]uint8{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := EncodePremultiplied(tt.r, tt.g, tt.b, tt.a)
			if got := [4]uint8{r, g, b, a}; got != tt.want {
				t.Errorf("EncodePremultiplied() = %v, want %v", got, tt.want)
			}
		})
	}
}
