// Package config holds the runtime settings of the assistant: defaults, the
// optional YAML file, secrets taken from the environment, and validation of
// the result before the listening loop starts.
package config

import (
	"time"

	"golang.org/x/text/language"
)

// Language is one of the two candidate languages a command is transcribed in.
type Language struct {
	// Name is used in logs only.
	Name string `yaml:"name"`

	// Recognition is the BCP-47 tag sent to the speech recognizer, e.g. "ta-IN".
	Recognition string `yaml:"recognition"`

	// Speech is the language code used for synthesis, e.g. "ta".
	Speech string `yaml:"speech"`
}

// Base returns the ISO 639 base of the recognition tag ("ta" for "ta-IN").
func (l Language) Base() string {
	base, _ := language.Make(l.Recognition).Base()
	return base.String()
}

type WakeConfig struct {
	AccessKey     string    `yaml:"-"`
	KeywordPaths  []string  `yaml:"keyword_paths"`
	Sensitivities []float32 `yaml:"sensitivities"`
}

type LanguagesConfig struct {
	A Language `yaml:"a"`
	B Language `yaml:"b"`

	// Default is the speech code for utterances not tied to a recognized
	// language (ready, acknowledgement, apologies).
	Default string `yaml:"default"`
}

type CaptureConfig struct {
	Window time.Duration `yaml:"window"`
}

type PhrasesConfig struct {
	Ready       string   `yaml:"ready"`
	Ack         string   `yaml:"ack"`
	Apology     string   `yaml:"apology"`
	Failure     string   `yaml:"failure"`
	Farewell    string   `yaml:"farewell"`
	Termination []string `yaml:"termination"`
}

type LLMConfig struct {
	APIKey       string        `yaml:"-"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

const (
	STTGoogle  = "google"
	STTWhisper = "whisper"

	TTSGoogle = "gtts"
	TTSEspeak = "espeak"
)

type STTConfig struct {
	Backend      string        `yaml:"backend"`
	GoogleKey    string        `yaml:"-"`
	WhisperModel string        `yaml:"whisper_model"`
	Timeout      time.Duration `yaml:"timeout"`
}

type TTSConfig struct {
	// Backends are tried in order until one plays the text.
	Backends []string      `yaml:"backends"`
	Timeout  time.Duration `yaml:"timeout"`
}

type DuckConfig struct {
	Enabled bool          `yaml:"enabled"`
	Factor  float64       `yaml:"factor"`
	Fade    time.Duration `yaml:"fade"`
	Keep    []string      `yaml:"keep"`
}

type Config struct {
	Wake      WakeConfig      `yaml:"wake"`
	Languages LanguagesConfig `yaml:"languages"`
	Capture   CaptureConfig   `yaml:"capture"`
	Phrases   PhrasesConfig   `yaml:"phrases"`
	LLM       LLMConfig       `yaml:"llm"`
	STT       STTConfig       `yaml:"stt"`
	TTS       TTSConfig       `yaml:"tts"`
	Duck      DuckConfig      `yaml:"duck"`
}

const defaultSystemPrompt = "You are a voice assistant. Answer every question in a single, very concise sentence. " +
	"Do not elaborate and do not ask follow-up questions. If a question is complex, give the most direct " +
	"and simple summary possible in one sentence. For conversational greetings, respond simply."

// Default returns the built-in settings: Tamil and US English, a six second
// capture window and the Perplexity "sonar" model.
func Default() *Config {
	return &Config{
		Wake: WakeConfig{
			KeywordPaths: []string{"wake.ppn"},
		},
		Languages: LanguagesConfig{
			A:       Language{Name: "tamil", Recognition: "ta-IN", Speech: "ta"},
			B:       Language{Name: "english", Recognition: "en-US", Speech: "en"},
			Default: "en",
		},
		Capture: CaptureConfig{Window: 6 * time.Second},
		Phrases: PhrasesConfig{
			Ready:       "Assistant is ready.",
			Ack:         "Yes?",
			Apology:     "Sorry, I didn't catch that.",
			Failure:     "Sorry, something went wrong.",
			Farewell:    "Goodbye!",
			Termination: []string{"exit", "quit", "goodbye", "stop"},
		},
		LLM: LLMConfig{
			BaseURL:      "https://api.perplexity.ai",
			Model:        "sonar",
			SystemPrompt: defaultSystemPrompt,
			Timeout:      60 * time.Second,
		},
		STT: STTConfig{
			Backend: STTGoogle,
			Timeout: 30 * time.Second,
		},
		TTS: TTSConfig{
			Backends: []string{TTSGoogle, TTSEspeak},
			Timeout:  30 * time.Second,
		},
		Duck: DuckConfig{
			Factor: 0.2,
			Fade:   300 * time.Millisecond,
			Keep:   []string{"bivox"},
		},
	}
}
