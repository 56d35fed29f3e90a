// Package transcribe runs one utterance through the recognizer in both
// candidate languages and decides which transcript, if any, to believe.
package transcribe

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bivox/internal/audio"
	"bivox/internal/config"
	"bivox/pkg/stt"
)

// DefaultConfidence stands in for recognizers that omit a confidence score.
const DefaultConfidence = 0.8

// Candidate is the transcript one language produced for an utterance.
type Candidate struct {
	Text       string
	Confidence float64
	Language   config.Language
}

// Transcriber recognizes the same utterance in language A and B.
type Transcriber struct {
	rec     stt.Recognizer
	a, b    config.Language
	timeout time.Duration
}

// New returns a Transcriber. timeout bounds each recognition; zero means
// only ctx applies.
func New(rec stt.Recognizer, a, b config.Language, timeout time.Duration) *Transcriber {
	return &Transcriber{rec: rec, a: a, b: b, timeout: timeout}
}

// Transcribe runs both recognitions concurrently, waits for both, then picks
// a winner. The bool is false when there is no usable result. Recognizer
// failures never escape: they count as an absent candidate.
func (t *Transcriber) Transcribe(ctx context.Context, utt audio.Utterance) (Candidate, bool) {
	pcm := utt.Samples()

	var ca, cb *Candidate

	// A plain Group: one language failing must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		ca = t.recognize(ctx, pcm, utt.SampleRate, t.a)
		return nil
	})
	g.Go(func() error {
		cb = t.recognize(ctx, pcm, utt.SampleRate, t.b)
		return nil
	})
	_ = g.Wait()

	log.Info("Confidence scores", t.a.Name, score(ca), t.b.Name, score(cb))

	return Pick(ca, cb)
}

func (t *Transcriber) recognize(ctx context.Context, pcm []int16, rate int, lang config.Language) *Candidate {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	alt, err := t.rec.Recognize(ctx, pcm, rate, lang.Recognition)
	switch {
	case errors.Is(err, stt.ErrNoSpeech):
		log.Debug("No speech", "lang", lang.Name)
		return nil
	case err != nil:
		log.Warn("Recognition failed", "lang", lang.Name, "err", err)
		return nil
	}

	text := strings.TrimSpace(alt.Text)
	if text == "" {
		return nil
	}

	c := &Candidate{Text: text, Confidence: DefaultConfidence, Language: lang}
	if alt.Confidence != nil {
		c.Confidence = *alt.Confidence
	}

	return c
}

// Pick chooses between the candidates of two languages; nil means the
// language produced nothing. A lone candidate wins whatever its confidence.
// With two candidates the strictly higher confidence wins, and an exact tie
// yields no result rather than a guess.
func Pick(a, b *Candidate) (Candidate, bool) {
	switch {
	case a == nil && b == nil:
		return Candidate{}, false
	case b == nil:
		return *a, true
	case a == nil:
		return *b, true
	case a.Confidence > b.Confidence:
		return *a, true
	case b.Confidence > a.Confidence:
		return *b, true
	}

	return Candidate{}, false
}

func score(c *Candidate) float64 {
	if c == nil {
		return 0
	}
	return c.Confidence
}
