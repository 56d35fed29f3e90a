package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"bivox/internal/audio"
	"bivox/internal/bus"
	"bivox/internal/config"
	"bivox/internal/dialogue"
	"bivox/internal/lifecycle"
	"bivox/internal/llm"
	"bivox/internal/mic"
	"bivox/internal/playback"
	"bivox/internal/proxy"
	"bivox/internal/transcribe"
	"bivox/internal/tts"
	"bivox/internal/tts/espeak"
	"bivox/internal/wake"
	"bivox/pkg/audioconv"
	"bivox/pkg/stt"
	"bivox/pkg/stt/whisper"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type options struct {
	envFile    string
	configFile string
	logLevel   string
	proxyAddr  string
	replay     string
	busURL     string
}

func main() {
	var opts options
	cli.StringVarP(&opts.envFile, "env", "e", ".env", "Env file path")
	cli.StringVarP(&opts.configFile, "config", "c", "", "YAML config file path")
	cli.StringVarP(&opts.logLevel, "log", "l", "info", "Log level")
	cli.StringVarP(&opts.proxyAddr, "proxy", "p", "", "Socks proxy address for remote services")
	cli.StringVarP(&opts.replay, "replay", "r", "", "Read audio from a wav/mp3/ogg file instead of the microphone")
	cli.StringVarP(&opts.busURL, "bus", "b", "", "Websocket bus url for turn events")
	cli.Parse()

	level, ok := logLevelMap[opts.logLevel]
	if !ok {
		level = log.LevelInfo
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: level,
	})))

	if err := run(opts); err != nil {
		log.Error("Exiting", "err", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	log.Info("Booting up")

	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load env file", "path", opts.envFile, "err", err)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	log.Debug("Loaded config", "stt", cfg.STT.Backend, "tts", cfg.TTS.Backends,
		"a", cfg.Languages.A.Recognition, "b", cfg.Languages.B.Recognition)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack := &lifecycle.Stack{}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warn("Release failed", "err", err)
		}
		log.Info("Resources released")
	}()

	// Requests are bounded by their own context timeouts.
	httpClient, err := proxy.NewHTTPClient(opts.proxyAddr, 0)
	if err != nil {
		return err
	}
	ttsClient, err := proxy.NewHTTPClient(opts.proxyAddr, cfg.TTS.Timeout)
	if err != nil {
		return err
	}

	det, source, err := openInput(ctx, stack, cfg, opts.replay)
	if err != nil {
		return err
	}
	frameCount := audio.FrameCount(cfg.Capture.Window, det.SampleRate(), det.FrameLength())

	rec, err := newRecognizer(stack, cfg, httpClient)
	if err != nil {
		return err
	}

	speaker, err := newSpeaker(cfg, ttsClient)
	if err != nil {
		return err
	}

	responder, err := llm.New(llm.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		SystemPrompt: cfg.LLM.SystemPrompt,
		Timeout:      cfg.LLM.Timeout,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return err
	}

	engineCfg := dialogue.Config{
		Source:      source,
		Wake:        det,
		Transcriber: transcribe.New(rec, cfg.Languages.A, cfg.Languages.B, cfg.STT.Timeout),
		Responder:   responder,
		Speaker:     speaker,
		FrameCount:  frameCount,
		SampleRate:  det.SampleRate(),
		Phrases:     cfg.Phrases,
		DefaultLang: cfg.Languages.Default,
	}

	if cfg.Duck.Enabled {
		engineCfg.Ducker = audio.NewDucker(cfg.Duck.Keep, cfg.Duck.Factor, cfg.Duck.Fade)
	}

	if opts.busURL != "" {
		b, err := bus.Dial(ctx, opts.busURL, "bivox")
		if err != nil {
			return err
		}
		stack.Push("bus", b.Close)
		engineCfg.OnTurn = b.PublishTurn
	}

	engine, err := dialogue.New(engineCfg)
	if err != nil {
		return err
	}

	log.Info("Boot up - successful", "frames", frameCount)
	if err := speaker.Speak(ctx, cfg.Phrases.Ready, cfg.Languages.Default); err != nil {
		log.Warn("Failed to speak", "err", err)
	}

	err = engine.Run(ctx)
	switch {
	case err == nil:
		log.Info("Terminated by voice command")
	case errors.Is(err, context.Canceled):
		log.Info("Interrupted")
	case opts.replay != "" && errors.Is(err, io.EOF):
		log.Info("Replay finished")
	default:
		return err
	}

	return nil
}

type detector interface {
	dialogue.WakeDetector
	FrameLength() int
	SampleRate() int
}

// openInput pushes the audio device, the input stream and the wake detector
// onto stack in that order.
func openInput(ctx context.Context, stack *lifecycle.Stack, cfg *config.Config, replay string) (detector, audio.FrameSource, error) {
	// Porcupine fixes rate and frame length, so read them before the stream opens.
	rate, frameLength := wake.SampleRate(), wake.FrameLength()

	var source audio.FrameSource
	if replay != "" {
		samples, err := audioconv.DecodeFile(ctx, replay, rate)
		if err != nil {
			return nil, nil, fmt.Errorf("replay %s: %w", replay, err)
		}
		src, err := audio.NewSampleSource(samples, frameLength)
		if err != nil {
			return nil, nil, err
		}
		stack.Push("replay source", src.Close)
		source = src
		log.Info("Replaying", "path", replay, "samples", len(samples))
	} else {
		dev := mic.NewDevice()
		if err := dev.Init(); err != nil {
			return nil, nil, err
		}
		stack.Push("audio device", dev.Close)

		in, err := dev.OpenInput(rate, frameLength)
		if err != nil {
			return nil, nil, err
		}
		stack.Push("input stream", in.Close)
		source = in
	}

	pv, err := wake.NewPorcupine(wake.Config{
		AccessKey:     cfg.Wake.AccessKey,
		KeywordPaths:  cfg.Wake.KeywordPaths,
		Sensitivities: cfg.Wake.Sensitivities,
	})
	if err != nil {
		return nil, nil, err
	}
	stack.Push("wake detector", pv.Close)

	return pv, source, nil
}

func newRecognizer(stack *lifecycle.Stack, cfg *config.Config, client *http.Client) (stt.Recognizer, error) {
	switch cfg.STT.Backend {
	case config.STTWhisper:
		w, err := whisper.New(cfg.STT.WhisperModel)
		if err != nil {
			return nil, err
		}
		stack.Push("whisper", w.Close)
		log.Debug("Loaded whisper", "model", cfg.STT.WhisperModel)
		return w, nil
	default:
		return stt.NewGoogle(cfg.STT.GoogleKey, stt.WithHTTPClient(client)), nil
	}
}

func newSpeaker(cfg *config.Config, client *http.Client) (*tts.Fallback, error) {
	fb := tts.NewFallback()
	for _, name := range cfg.TTS.Backends {
		switch name {
		case config.TTSGoogle:
			fb.Add(name, tts.NewGTTS(client, playback.NewPlayer()))
		case config.TTSEspeak:
			fb.Add(name, espeak.New())
		default:
			return nil, fmt.Errorf("unknown tts backend %q", name)
		}
	}
	return fb, nil
}
