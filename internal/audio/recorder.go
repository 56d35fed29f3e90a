package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
)

// ErrCaptureFailed wraps any frame source error raised inside a capture window.
var ErrCaptureFailed = errors.New("capture failed")

// Capture reads exactly frameCount frames from src, in order, without
// skipping any. A source error aborts the capture. Cancellation is checked
// between frames and returned unwrapped.
func Capture(ctx context.Context, src FrameSource, frameCount int, sampleRate int) (Utterance, error) {
	if frameCount <= 0 {
		return Utterance{}, fmt.Errorf("%w: frame count %d", ErrCaptureFailed, frameCount)
	}

	utt := Utterance{
		Frames:     make([]Frame, 0, frameCount),
		SampleRate: sampleRate,
	}

	for i := 0; i < frameCount; i++ {
		if err := ctx.Err(); err != nil {
			return Utterance{}, err
		}

		f, err := src.ReadFrame()
		if err != nil {
			return Utterance{}, fmt.Errorf("%w: frame %d/%d: %w", ErrCaptureFailed, i+1, frameCount, err)
		}

		utt.Frames = append(utt.Frames, f)
	}

	log.Debug("Captured utterance", "frames", len(utt.Frames), "duration", utt.Duration())

	return utt, nil
}
