package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	dir := t.TempDir()
	kw := filepath.Join(dir, "wake.ppn")
	if err := os.WriteFile(kw, []byte("model"), 0o600); err != nil {
		t.Fatalf("write keyword file: %v", err)
	}

	cfg := Default()
	cfg.Wake.KeywordPaths = []string{kw}
	cfg.Wake.AccessKey = "pv-key"
	cfg.LLM.APIKey = "llm-key"
	cfg.STT.GoogleKey = "g-key"
	return cfg
}

func TestDefault_IsValidWithSecretsAndKeyword(t *testing.T) {
	if err := Validate(validConfig(t)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDefault_Values(t *testing.T) {
	cfg := Default()
	if cfg.Capture.Window != 6*time.Second {
		t.Errorf("Capture.Window = %v, want 6s", cfg.Capture.Window)
	}
	if got := strings.Join(cfg.Phrases.Termination, ","); got != "exit,quit,goodbye,stop" {
		t.Errorf("Termination = %q", got)
	}
	if cfg.Languages.A.Base() != "ta" || cfg.Languages.B.Base() != "en" {
		t.Errorf("bases = %q/%q, want ta/en", cfg.Languages.A.Base(), cfg.Languages.B.Base())
	}
}

func TestValidate_MissingSecretsAndKeyword(t *testing.T) {
	cfg := Default()
	cfg.Wake.KeywordPaths = []string{filepath.Join(t.TempDir(), "missing.ppn")}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{EnvAccessKey, EnvLLMKey, EnvGoogleKey, "missing.ppn"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"same languages", func(c *Config) { c.Languages.B = c.Languages.A }, "are both"},
		{"bad tag", func(c *Config) { c.Languages.A.Recognition = "not a tag!" }, "languages.a.recognition"},
		{"zero window", func(c *Config) { c.Capture.Window = 0 }, "capture.window"},
		{"no termination phrases", func(c *Config) { c.Phrases.Termination = nil }, "phrases.termination"},
		{"unknown stt", func(c *Config) { c.STT.Backend = "vosk" }, "stt.backend"},
		{"whisper without model", func(c *Config) { c.STT.Backend = STTWhisper }, "stt.whisper_model"},
		{"unknown tts", func(c *Config) { c.TTS.Backends = []string{"polly"} }, "tts.backends"},
		{"sensitivity count", func(c *Config) { c.Wake.Sensitivities = []float32{0.5, 0.5} }, "wake.sensitivities"},
		{"duck factor", func(c *Config) { c.Duck.Factor = 2 }, "duck.factor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestDecode_OverlaysDefaults(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader(`
languages:
  a:
    name: hindi
    recognition: hi-IN
    speech: hi
capture:
  window: 4s
duck:
  enabled: true
`), cfg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.Languages.A.Recognition != "hi-IN" {
		t.Errorf("A.Recognition = %q, want hi-IN", cfg.Languages.A.Recognition)
	}
	if cfg.Languages.B.Recognition != "en-US" {
		t.Errorf("B.Recognition = %q, want default en-US", cfg.Languages.B.Recognition)
	}
	if cfg.Capture.Window != 4*time.Second {
		t.Errorf("Window = %v, want 4s", cfg.Capture.Window)
	}
	if !cfg.Duck.Enabled || cfg.Duck.Factor != 0.2 {
		t.Errorf("Duck = %+v, want enabled with default factor", cfg.Duck)
	}
}

func TestDecode_UnknownKey(t *testing.T) {
	if err := Decode(strings.NewReader("bogus: 1\n"), Default()); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestDecode_EmptyFile(t *testing.T) {
	if err := Decode(strings.NewReader(""), Default()); err != nil {
		t.Fatalf("Decode(empty) = %v, want nil", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAccessKey: "pv",
		EnvLLMKey:    "pplx",
	}
	cfg := Default()
	ApplyEnv(cfg, func(k string) string { return env[k] })

	if cfg.Wake.AccessKey != "pv" || cfg.LLM.APIKey != "pplx" {
		t.Errorf("secrets = %q/%q", cfg.Wake.AccessKey, cfg.LLM.APIKey)
	}
	if cfg.STT.GoogleKey != "" {
		t.Errorf("GoogleKey = %q, want empty", cfg.STT.GoogleKey)
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "bivox.example.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := cfg.Capture.Window, 6*time.Second; got != want {
		t.Errorf("Capture.Window = %v, want %v", got, want)
	}
	if got, want := cfg.Duck.Fade, 300*time.Millisecond; got != want {
		t.Errorf("Duck.Fade = %v, want %v", got, want)
	}
	if got, want := cfg.Languages.A.Recognition, "ta-IN"; got != want {
		t.Errorf("Languages.A.Recognition = %q, want %q", got, want)
	}
	if got, want := strings.Join(cfg.Phrases.Termination, ","), "exit,quit,goodbye,stop"; got != want {
		t.Errorf("Phrases.Termination = %q, want %q", got, want)
	}
	if cfg.LLM.SystemPrompt == "" {
		t.Error("LLM.SystemPrompt is empty, want default kept")
	}
}
