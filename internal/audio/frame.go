package audio

import (
	"time"
)

// Frame is one fixed-length block of mono signed 16-bit samples. The length
// and sample rate are dictated by the wake detector.
type Frame []int16

// FrameSource yields consecutive frames. Every call returns a fresh slice the
// caller may keep.
type FrameSource interface {
	ReadFrame() (Frame, error)
}

// Utterance is the audio captured after one wake event.
type Utterance struct {
	Frames     []Frame
	SampleRate int
}

// Samples concatenates all frames in capture order.
func (u Utterance) Samples() []int16 {
	n := 0
	for _, f := range u.Frames {
		n += len(f)
	}

	out := make([]int16, 0, n)
	for _, f := range u.Frames {
		out = append(out, f...)
	}

	return out
}

// Duration is the wall-clock length of the captured audio.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}

	n := 0
	for _, f := range u.Frames {
		n += len(f)
	}

	return time.Duration(n) * time.Second / time.Duration(u.SampleRate)
}

// FrameCount returns how many whole frames fit into window, rounded down.
func FrameCount(window time.Duration, sampleRate, frameLength int) int {
	if window <= 0 || sampleRate <= 0 || frameLength <= 0 {
		return 0
	}

	samples := window.Nanoseconds() * int64(sampleRate) / int64(time.Second)

	return int(samples / int64(frameLength))
}
