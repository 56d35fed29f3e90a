package audio

import (
	"testing"
	"time"
)

func TestFrameCount(t *testing.T) {
	tests := []struct {
		name        string
		window      time.Duration
		sampleRate  int
		frameLength int
		want        int
	}{
		{"porcupine six seconds", 6 * time.Second, 16000, 512, 187},
		{"exact fit", time.Second, 16000, 320, 50},
		{"shorter than one frame", 10 * time.Millisecond, 16000, 512, 0},
		{"zero window", 0, 16000, 512, 0},
		{"invalid frame length", time.Second, 16000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FrameCount(tt.window, tt.sampleRate, tt.frameLength)
			if got != tt.want {
				t.Errorf("FrameCount(%v, %d, %d) = %d, want %d", tt.window, tt.sampleRate, tt.frameLength, got, tt.want)
			}
		})
	}
}

func TestUtterance_SamplesKeepsOrder(t *testing.T) {
	u := Utterance{
		Frames:     []Frame{{1, 2}, {3, 4}, {5, 6}},
		SampleRate: 2,
	}

	got := u.Samples()
	want := []int16{1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if d := u.Duration(); d != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", d)
	}
}
