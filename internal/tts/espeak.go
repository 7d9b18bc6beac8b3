package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int espeak_ready = 0;

int
espeak_open(void)
{
	if (espeak_ready)
	{ return 0; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -1; }

	espeak_ready = 1;
	return 0;
}

int
espeak_say(const char *text, const char *lang)
{
	if (!text || !lang)
	{ return -1; }

	espeak_VOICE specs;
	memset(&specs, 0, sizeof(specs));
	specs.languages = lang;
	espeak_SetVoiceByProperties(&specs);

	if (espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL) != EE_OK)
	{ return -2; }

	espeak_Synchronize();
	return 0;
}

void
espeak_stop(void)
{
	espeak_Cancel();
}
*/
import "C"

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"unsafe"
)

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Espeak speaks through eSpeak NG. Utterances are played one at a time.
type Espeak struct {
	mu   sync.Mutex
	duck Ducker
}

// NewEspeak initialises the synthesizer. duck may be nil.
func NewEspeak(duck Ducker) (*Espeak, error) {
	if rc := C.espeak_open(); rc != 0 {
		return nil, fmt.Errorf("espeak init failed: %d", int(rc))
	}
	return &Espeak{duck: duck}, nil
}

func (e *Espeak) Speak(ctx context.Context, text, lang string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.duck != nil {
		if err := e.duck.Duck(ctx); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := e.duck.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(voiceFor(lang))
	defer C.free(unsafe.Pointer(clang))

	done := make(chan C.int, 1)
	go func() {
		done <- C.espeak_say(ctext, clang)
	}()

	select {
	case rc := <-done:
		if rc != 0 {
			return fmt.Errorf("espeak_say failed: %d", int(rc))
		}
		return nil
	case <-ctx.Done():
		C.espeak_stop()
		<-done
		return ctx.Err()
	}
}

func (e *Espeak) Cancel() {
	C.espeak_stop()
}

// voiceFor maps a BCP 47 tag onto an eSpeak language name.
func voiceFor(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "en-us"
	}
	return strings.ReplaceAll(lang, "_", "-")
}
