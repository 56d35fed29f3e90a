// Package wake adapts the Porcupine keyword engine to the frame-at-a-time
// detector the dialogue loop drives.
package wake

import (
	"errors"
	"fmt"
	log "log/slog"

	porcupine "github.com/Picovoice/porcupine/binding/go/v3"
)

// Porcupine detects one of the configured keyword models in a frame.
type Porcupine struct {
	pv porcupine.Porcupine
}

type Config struct {
	AccessKey     string
	KeywordPaths  []string
	Sensitivities []float32
}

func NewPorcupine(cfg Config) (*Porcupine, error) {
	if cfg.AccessKey == "" {
		return nil, errors.New("porcupine: access key is empty")
	}
	if len(cfg.KeywordPaths) == 0 {
		return nil, errors.New("porcupine: no keyword files")
	}

	sens := cfg.Sensitivities
	if len(sens) == 0 {
		sens = make([]float32, len(cfg.KeywordPaths))
		for i := range sens {
			sens[i] = 0.5
		}
	}

	p := &Porcupine{pv: porcupine.Porcupine{
		AccessKey:     cfg.AccessKey,
		KeywordPaths:  cfg.KeywordPaths,
		Sensitivities: sens,
	}}
	if err := p.pv.Init(); err != nil {
		return nil, fmt.Errorf("porcupine init: %w", err)
	}

	log.Debug("Loaded porcupine", "version", porcupine.Version, "keywords", len(cfg.KeywordPaths),
		"rate", porcupine.SampleRate, "frame", porcupine.FrameLength)

	return p, nil
}

// Process returns the index of the detected keyword, or -1.
func (p *Porcupine) Process(frame []int16) (int, error) {
	return p.pv.Process(frame)
}

// FrameLength is the exact number of samples Process expects. It is known
// before any detector is created.
func FrameLength() int { return porcupine.FrameLength }

// SampleRate is the rate the input stream must run at.
func SampleRate() int { return porcupine.SampleRate }

func (p *Porcupine) FrameLength() int { return FrameLength() }

func (p *Porcupine) SampleRate() int { return SampleRate() }

func (p *Porcupine) Close() error {
	return p.pv.Delete()
}
