// Package tts speaks text aloud in a given language. Every Speaker blocks
// until playback has finished.
package tts

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
)

type Speaker interface {
	Speak(ctx context.Context, text, lang string) error
}

type namedSpeaker struct {
	name string
	sp   Speaker
}

// Fallback tries each speaker in order until one succeeds. It is failover
// between backends; the same backend is never called twice for one text.
type Fallback struct {
	speakers []namedSpeaker
}

var _ Speaker = (*Fallback)(nil)

func NewFallback() *Fallback { return &Fallback{} }

func (f *Fallback) Add(name string, sp Speaker) {
	f.speakers = append(f.speakers, namedSpeaker{name: name, sp: sp})
}

func (f *Fallback) Speak(ctx context.Context, text, lang string) error {
	if text == "" {
		return nil
	}
	if len(f.speakers) == 0 {
		return errors.New("no speakers configured")
	}

	var errs []error
	for _, s := range f.speakers {
		err := s.sp.Speak(ctx, text, lang)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Speaker failed", "speaker", s.name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}

	return errors.Join(errs...)
}
