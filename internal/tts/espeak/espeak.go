// Package espeak speaks through the local espeak-ng library.
package espeak

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
bivox_espeak_say(const char *text, const char *lang)
{
	if (!text || !lang)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE voice;
	memset(&voice, 0, sizeof(voice));
	voice.languages = lang;
	if (espeak_SetVoiceByProperties(&voice) != EE_OK)
	{
		espeak_Terminate();
		return -3;
	}

	espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"bivox/internal/tts"
)

// Speaker plays text through espeak-ng. Playback is synchronous, so
// cancellation only takes effect between calls.
type Speaker struct {
	mu sync.Mutex
}

var _ tts.Speaker = (*Speaker)(nil)

func New() *Speaker { return &Speaker{} }

func (e *Speaker) Speak(ctx context.Context, text, lang string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.bivox_espeak_say(ctext, clang); rc != 0 {
		return fmt.Errorf("espeak %s: code %d", lang, int(rc))
	}

	return nil
}
