package dialogue

import (
	"strings"
	"time"

	"bivox/internal/config"
)

// State is the position of the engine within a turn.
type State int

const (
	// Idle feeds microphone frames to the wake detector.
	Idle State = iota

	// Triggered acknowledges a wake word before capture starts.
	Triggered

	// Capturing records the fixed command window.
	Capturing

	// Recognizing transcribes the window in both languages.
	Recognizing

	// Responding asks the language model and speaks its reply.
	Responding

	// Terminated is final; Run returns.
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Triggered:
		return "triggered"
	case Capturing:
		return "capturing"
	case Recognizing:
		return "recognizing"
	case Responding:
		return "responding"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeReplied        Outcome = "replied"
	OutcomeNoResult       Outcome = "no_result"
	OutcomeCaptureFailed  Outcome = "capture_failed"
	OutcomeResponseFailed Outcome = "response_failed"
	OutcomeTerminated     Outcome = "terminated"
)

// Turn records one pass from wake word to reply, apology or farewell. It is
// handed to the observer once and then dropped.
type Turn struct {
	ID       int
	Command  string
	Language config.Language
	Reply    string
	Outcome  Outcome
	Err      error
	Started  time.Time
	Finished time.Time
}

// IsTerminationPhrase reports whether text, trimmed and compared without
// regard to case, is exactly one of phrases.
func IsTerminationPhrase(text string, phrases []string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	for _, p := range phrases {
		if strings.EqualFold(text, strings.TrimSpace(p)) {
			return true
		}
	}

	return false
}
