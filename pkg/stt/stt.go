// Package stt contains speech recognizers that turn one captured utterance
// into the top-ranked transcript for a forced language.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech reports that the recognizer heard nothing it could transcribe
// in the requested language. It is an expected outcome, not a failure.
var ErrNoSpeech = errors.New("no speech recognized")

// Alternative is the top-ranked hypothesis of a recognizer.
type Alternative struct {
	Text string

	// Confidence is in [0, 1], or nil when the backend does not report one.
	Confidence *float64
}

// Recognizer transcribes mono 16-bit PCM in the language identified by the
// BCP-47 tag. Implementations must be safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []int16, sampleRate int, tag string) (Alternative, error)
}
