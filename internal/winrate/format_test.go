package winrate

import "testing"

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		value  float64
		places int32
		want   string
	}{
		{0, 2, "0.00"},
		{0.56 * 5, 2, "2.80"},
		{1.125, 2, "1.13"},
		{1.005, 2, "1.00"},
		{2.675, 2, "2.67"},
		{11.71875, 2, "11.72"},
		{-6.0000000001, 2, "-6.00"},
		{42, 0, "42"},
	}

	for _, tt := range tests {
		if got := FormatFixed(tt.value, tt.places); got != tt.want {
			t.Errorf("FormatFixed(%v, %d) = %q, want %q", tt.value, tt.places, got, tt.want)
		}
	}
}

func TestFormatSignedPercent(t *testing.T) {
	tests := []struct {
		fraction float64
		want     string
	}{
		{0.14, "+14.00"},
		{-0.06, "-6.00"},
		{0, "+0.00"},
		{-0.00001, "+0.00"},
	}

	for _, tt := range tests {
		if got := FormatSignedPercent(tt.fraction); got != tt.want {
			t.Errorf("FormatSignedPercent(%v) = %q, want %q", tt.fraction, got, tt.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		value float64
		want  int
	}{
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{2.5, 3},
		{2.8000000000000003, 3},
		{3.36, 3},
		{-0.5, 0},
		{-1.5, -1},
		{-1.6, -2},
	}

	for _, tt := range tests {
		if got := RoundHalfUp(tt.value); got != tt.want {
			t.Errorf("RoundHalfUp(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
