package audio

import (
	"fmt"
	"io"
)

// SampleSource serves frames out of decoded samples, standing in for the
// microphone when a recording is replayed. It returns io.EOF once less than
// a full frame remains.
type SampleSource struct {
	samples     []int16
	frameLength int
	pos         int
}

func NewSampleSource(samples []int16, frameLength int) (*SampleSource, error) {
	if frameLength <= 0 {
		return nil, fmt.Errorf("invalid frame length %d", frameLength)
	}

	return &SampleSource{samples: samples, frameLength: frameLength}, nil
}

func (s *SampleSource) ReadFrame() (Frame, error) {
	if s.pos+s.frameLength > len(s.samples) {
		return nil, io.EOF
	}

	f := make(Frame, s.frameLength)
	copy(f, s.samples[s.pos:])
	s.pos += s.frameLength

	return f, nil
}

// Remaining reports how many whole frames are left.
func (s *SampleSource) Remaining() int {
	return (len(s.samples) - s.pos) / s.frameLength
}

func (s *SampleSource) Close() error { return nil }
