package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Environment variables carrying secrets.
const (
	EnvAccessKey = "PICOVOICE_ACCESS_KEY"
	EnvLLMKey    = "PERPLEXITY_API_KEY"
	EnvGoogleKey = "GOOGLE_SPEECH_KEY"
)

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then pulls secrets from the environment. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := Decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	ApplyEnv(cfg, os.Getenv)

	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}

	return nil
}

// ApplyEnv copies secrets from getenv into cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	cfg.Wake.AccessKey = getenv(EnvAccessKey)
	cfg.LLM.APIKey = getenv(EnvLLMKey)
	if key := getenv(EnvGoogleKey); key != "" {
		cfg.STT.GoogleKey = key
	}
}

// Validate reports every problem that must stop the process before the
// listening loop starts. Errors are joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Wake.AccessKey == "" {
		errs = append(errs, fmt.Errorf("%s is not set", EnvAccessKey))
	}
	if cfg.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s is not set", EnvLLMKey))
	}

	if len(cfg.Wake.KeywordPaths) == 0 {
		errs = append(errs, errors.New("wake.keyword_paths is empty"))
	}
	for _, p := range cfg.Wake.KeywordPaths {
		if err := fileExists(p); err != nil {
			errs = append(errs, fmt.Errorf("wake word file: %w", err))
		}
	}
	if n := len(cfg.Wake.Sensitivities); n != 0 && n != len(cfg.Wake.KeywordPaths) {
		errs = append(errs, fmt.Errorf("wake.sensitivities has %d entries for %d keyword files", n, len(cfg.Wake.KeywordPaths)))
	}
	for i, s := range cfg.Wake.Sensitivities {
		if s < 0 || s > 1 {
			errs = append(errs, fmt.Errorf("wake.sensitivities[%d] %.2f is out of range [0, 1]", i, s))
		}
	}

	errs = append(errs, validateLanguage("languages.a", cfg.Languages.A)...)
	errs = append(errs, validateLanguage("languages.b", cfg.Languages.B)...)
	if cfg.Languages.A.Recognition != "" && cfg.Languages.A.Recognition == cfg.Languages.B.Recognition {
		errs = append(errs, fmt.Errorf("languages.a and languages.b are both %q", cfg.Languages.A.Recognition))
	}
	if _, err := language.Parse(cfg.Languages.Default); err != nil {
		errs = append(errs, fmt.Errorf("languages.default %q: %w", cfg.Languages.Default, err))
	}

	if cfg.Capture.Window <= 0 {
		errs = append(errs, fmt.Errorf("capture.window %v must be positive", cfg.Capture.Window))
	}
	if len(cfg.Phrases.Termination) == 0 {
		errs = append(errs, errors.New("phrases.termination is empty"))
	}

	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}

	switch cfg.STT.Backend {
	case STTGoogle:
		if cfg.STT.GoogleKey == "" {
			errs = append(errs, fmt.Errorf("%s is not set", EnvGoogleKey))
		}
	case STTWhisper:
		if err := fileExists(cfg.STT.WhisperModel); err != nil {
			errs = append(errs, fmt.Errorf("stt.whisper_model: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("stt.backend %q is invalid; valid values: %s, %s", cfg.STT.Backend, STTGoogle, STTWhisper))
	}

	if len(cfg.TTS.Backends) == 0 {
		errs = append(errs, errors.New("tts.backends is empty"))
	}
	for _, b := range cfg.TTS.Backends {
		if !slices.Contains([]string{TTSGoogle, TTSEspeak}, b) {
			errs = append(errs, fmt.Errorf("tts.backends entry %q is invalid; valid values: %s, %s", b, TTSGoogle, TTSEspeak))
		}
	}

	if cfg.Duck.Factor < 0 || cfg.Duck.Factor > 1 {
		errs = append(errs, fmt.Errorf("duck.factor %.2f is out of range [0, 1]", cfg.Duck.Factor))
	}

	return errors.Join(errs...)
}

func validateLanguage(prefix string, l Language) []error {
	var errs []error

	if _, err := language.Parse(l.Recognition); err != nil {
		errs = append(errs, fmt.Errorf("%s.recognition %q: %w", prefix, l.Recognition, err))
	}
	if _, err := language.Parse(l.Speech); err != nil {
		errs = append(errs, fmt.Errorf("%s.speech %q: %w", prefix, l.Speech, err))
	}

	return errs
}

func fileExists(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	return nil
}
