// Package mic reads frames from the default input device through PortAudio.
package mic

import (
	"errors"
	"fmt"
	log "log/slog"

	"github.com/gordonklaus/portaudio"

	"bivox/internal/audio"
)

// Device owns the PortAudio library lifetime.
type Device struct{}

func NewDevice() *Device { return &Device{} }

func (d *Device) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	return nil
}

func (d *Device) Close() error {
	return portaudio.Terminate()
}

// InputStream reads mono int16 frames from the default input device.
type InputStream struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenInput opens and starts the default input at sampleRate with one frame
// per buffer. The Device must be initialised first.
func (d *Device) OpenInput(sampleRate, frameLength int) (*InputStream, error) {
	if frameLength <= 0 {
		return nil, fmt.Errorf("invalid frame length %d", frameLength)
	}

	buf := make([]int16, frameLength)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	log.Debug("Opened input stream", "rate", sampleRate, "frame", frameLength)

	return &InputStream{stream: stream, buf: buf}, nil
}

func (s *InputStream) ReadFrame() (audio.Frame, error) {
	if err := s.stream.Read(); err != nil {
		// The buffer is still filled on overflow; frames queued while we were
		// speaking are dropped by the driver.
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, err
		}
		log.Debug("Input overflowed")
	}

	f := make(audio.Frame, len(s.buf))
	copy(f, s.buf)

	return f, nil
}

func (s *InputStream) Close() error {
	return errors.Join(s.stream.Stop(), s.stream.Close())
}
