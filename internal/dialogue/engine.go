// Package dialogue drives the assistant loop: wake word, command capture,
// bilingual recognition, language model reply and speech, one turn at a time.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"bivox/internal/audio"
	"bivox/internal/config"
	"bivox/internal/transcribe"
	"bivox/internal/tts"
)

// WakeDetector classifies one frame; it returns the keyword index or -1.
type WakeDetector interface {
	Process(frame []int16) (int, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, utt audio.Utterance) (transcribe.Candidate, bool)
}

// Responder produces the assistant reply for a command. It keeps no history.
type Responder interface {
	Complete(ctx context.Context, command string) (string, error)
}

// Ducker quiets other audio while a command is captured.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Config struct {
	Source      audio.FrameSource
	Wake        WakeDetector
	Transcriber Transcriber
	Responder   Responder
	Speaker     tts.Speaker

	// Ducker is optional.
	Ducker Ducker

	// FrameCount is the capture window in frames, see audio.FrameCount.
	FrameCount int
	SampleRate int

	Phrases config.PhrasesConfig

	// DefaultLang is the speech code for acknowledgement and apologies.
	DefaultLang string

	// OnTurn, when set, receives every finished turn.
	OnTurn func(Turn)
}

// Engine owns the dialogue state. It is driven by a single goroutine via Run.
type Engine struct {
	cfg   Config
	state State

	turn  *Turn
	utt   audio.Utterance
	cand  transcribe.Candidate
	turns int
}

func New(cfg Config) (*Engine, error) {
	var errs []error
	if cfg.Source == nil {
		errs = append(errs, errors.New("frame source is required"))
	}
	if cfg.Wake == nil {
		errs = append(errs, errors.New("wake detector is required"))
	}
	if cfg.Transcriber == nil {
		errs = append(errs, errors.New("transcriber is required"))
	}
	if cfg.Responder == nil {
		errs = append(errs, errors.New("responder is required"))
	}
	if cfg.Speaker == nil {
		errs = append(errs, errors.New("speaker is required"))
	}
	if cfg.FrameCount <= 0 {
		errs = append(errs, fmt.Errorf("frame count %d must be positive", cfg.FrameCount))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("dialogue: %w", err)
	}

	return &Engine{cfg: cfg, state: Idle}, nil
}

// State returns the current state. Only safe from the goroutine running Run
// or after Run returned.
func (e *Engine) State() State { return e.state }

// Run loops until a termination phrase is heard (nil), ctx is cancelled
// (ctx.Err()), or the frame source or wake detector fails while idle.
// Failures inside a turn are reported and the loop goes back to Idle.
func (e *Engine) Run(ctx context.Context) error {
	for e.state != Terminated {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, err := e.step(ctx)
		if err != nil {
			return err
		}

		if next != e.state {
			log.Debug("Transition", "from", e.state, "to", next)
		}
		e.state = next
	}

	return nil
}

func (e *Engine) step(ctx context.Context) (State, error) {
	switch e.state {
	case Idle:
		return e.listen()
	case Triggered:
		e.speak(ctx, e.cfg.Phrases.Ack, e.cfg.DefaultLang)
		return Capturing, nil
	case Capturing:
		return e.capture(ctx)
	case Recognizing:
		return e.recognize(ctx)
	case Responding:
		return e.respond(ctx)
	}

	return e.state, fmt.Errorf("dialogue: no transition from %s", e.state)
}

func (e *Engine) listen() (State, error) {
	frame, err := e.cfg.Source.ReadFrame()
	if err != nil {
		return Idle, fmt.Errorf("read frame: %w", err)
	}

	idx, err := e.cfg.Wake.Process(frame)
	if err != nil {
		return Idle, fmt.Errorf("wake detector: %w", err)
	}
	if idx < 0 {
		return Idle, nil
	}

	e.turns++
	e.turn = &Turn{ID: e.turns, Started: time.Now()}
	log.Info("Wake word detected", "turn", e.turn.ID, "keyword", idx)

	return Triggered, nil
}

func (e *Engine) capture(ctx context.Context) (State, error) {
	if e.cfg.Ducker != nil {
		if err := e.cfg.Ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
	}

	log.Info("Listening for command", "frames", e.cfg.FrameCount)
	utt, err := audio.Capture(ctx, e.cfg.Source, e.cfg.FrameCount, e.cfg.SampleRate)

	if e.cfg.Ducker != nil {
		if rerr := e.cfg.Ducker.Restore(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn("Failed to restore audio", "err", rerr)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return Capturing, ctx.Err()
		}
		log.Error("Capture failed", "turn", e.turn.ID, "err", err)
		e.turn.Err = err
		e.speak(ctx, e.cfg.Phrases.Apology, e.cfg.DefaultLang)
		e.finish(OutcomeCaptureFailed)
		return Idle, nil
	}

	e.utt = utt
	return Recognizing, nil
}

func (e *Engine) recognize(ctx context.Context) (State, error) {
	cand, ok := e.cfg.Transcriber.Transcribe(ctx, e.utt)
	e.utt = audio.Utterance{}

	if ctx.Err() != nil {
		return Recognizing, ctx.Err()
	}

	if !ok {
		log.Info("No transcript", "turn", e.turn.ID)
		e.speak(ctx, e.cfg.Phrases.Apology, e.cfg.DefaultLang)
		e.finish(OutcomeNoResult)
		return Idle, nil
	}

	e.cand = cand
	e.turn.Command = cand.Text
	e.turn.Language = cand.Language
	log.Info("Recognized", "turn", e.turn.ID, "lang", cand.Language.Name, "text", cand.Text,
		"confidence", cand.Confidence)

	if IsTerminationPhrase(cand.Text, e.cfg.Phrases.Termination) {
		e.speak(ctx, e.cfg.Phrases.Farewell, cand.Language.Speech)
		e.finish(OutcomeTerminated)
		return Terminated, nil
	}

	return Responding, nil
}

func (e *Engine) respond(ctx context.Context) (State, error) {
	reply, err := e.cfg.Responder.Complete(ctx, e.cand.Text)
	if err != nil {
		if ctx.Err() != nil {
			return Responding, ctx.Err()
		}
		log.Error("Response failed", "turn", e.turn.ID, "err", err)
		e.turn.Err = fmt.Errorf("respond: %w", err)
		e.speak(ctx, e.cfg.Phrases.Failure, e.cfg.DefaultLang)
		e.finish(OutcomeResponseFailed)
		return Idle, nil
	}

	e.turn.Reply = reply
	e.speak(ctx, reply, e.cand.Language.Speech)
	e.finish(OutcomeReplied)

	return Idle, nil
}

// speak logs playback failures; they never change the transition.
func (e *Engine) speak(ctx context.Context, text, lang string) {
	if text == "" {
		return
	}

	log.Info("Assistant", "lang", lang, "text", text)
	if err := e.cfg.Speaker.Speak(ctx, text, lang); err != nil && ctx.Err() == nil {
		log.Error("Failed to speak", "lang", lang, "err", err)
	}
}

func (e *Engine) finish(outcome Outcome) {
	t := e.turn
	e.turn = nil
	e.cand = transcribe.Candidate{}

	if t == nil {
		return
	}
	t.Outcome = outcome
	t.Finished = time.Now()

	log.Info("Turn finished", "turn", t.ID, "outcome", outcome, "took", t.Finished.Sub(t.Started))

	if e.cfg.OnTurn != nil {
		e.cfg.OnTurn(*t)
	}
}
