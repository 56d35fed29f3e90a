// Package whisper recognizes speech with a local whisper.cpp model.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	wcpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"golang.org/x/text/language"

	"bivox/pkg/audioconv"
	"bivox/pkg/stt"
)

// whisperRate is the only input rate whisper.cpp accepts.
const whisperRate = 16000

// Recognizer runs a local whisper.cpp model with the language forced per call.
// whisper.cpp does not report a transcript confidence, so the mean token
// probability of the decoded segments stands in for it.
type Recognizer struct {
	mu      sync.Mutex
	model   wcpp.Model
	threads uint
}

var _ stt.Recognizer = (*Recognizer)(nil)

func New(modelPath string) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}

	m, err := wcpp.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	return &Recognizer{model: m, threads: uint(runtime.NumCPU())}, nil
}

func (w *Recognizer) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

// Recognize serialises calls: the model holds a single decoder state.
func (w *Recognizer) Recognize(ctx context.Context, pcm []int16, sampleRate int, tag string) (stt.Alternative, error) {
	if len(pcm) == 0 {
		return stt.Alternative{}, stt.ErrNoSpeech
	}

	base, _ := language.Make(tag).Base()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return stt.Alternative{}, err
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return stt.Alternative{}, fmt.Errorf("new context: %w", err)
	}
	if err := wctx.SetLanguage(base.String()); err != nil {
		return stt.Alternative{}, fmt.Errorf("set language %q: %w", base, err)
	}
	wctx.SetTranslate(false)
	wctx.SetThreads(w.threads)

	samples := audioconv.Resample(audioconv.ToFloat32(pcm), sampleRate, whisperRate)
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Alternative{}, fmt.Errorf("process: %w", err)
	}

	var (
		parts  []string
		sumP   float64
		tokens int
	)
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stt.Alternative{}, fmt.Errorf("next segment: %w", err)
		}

		parts = append(parts, strings.TrimSpace(seg.Text))
		for _, tok := range seg.Tokens {
			if strings.HasPrefix(tok.Text, "[_") {
				continue
			}
			sumP += float64(tok.P)
			tokens++
		}
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" || isBlankMarker(text) {
		return stt.Alternative{}, stt.ErrNoSpeech
	}

	alt := stt.Alternative{Text: text}
	if tokens > 0 {
		c := sumP / float64(tokens)
		alt.Confidence = &c
	}

	return alt, nil
}

// isBlankMarker matches the placeholders whisper emits for silence.
func isBlankMarker(text string) bool {
	switch strings.ToUpper(strings.Trim(text, " []()")) {
	case "BLANK_AUDIO", "SILENCE", "NO SPEECH":
		return true
	}
	return false
}
