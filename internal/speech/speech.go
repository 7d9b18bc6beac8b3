package speech

import (
	"context"
	"errors"
	"fmt"
)

const DefaultLang = "en-US"

var (
	ErrUnavailable = errors.New("speech recognition not available")
	ErrDevicesBusy = errors.New("speech devices are owned by another session")
)

// Speaker plays one utterance at a time. Speak returns when playback ends or
// ctx is done. Cancel drops whatever is playing.
type Speaker interface {
	Speak(ctx context.Context, text, lang string) error
	Cancel()
}

type Options struct {
	Lang       string
	Continuous bool
	Interim    bool
}

type Result struct {
	Text  string
	Final bool
	Err   error
}

// Recognizer starts one recognition. The channel carries interim and final
// transcripts and errors; it is closed when recognition ends. Cancelling ctx
// stops it.
type Recognizer interface {
	Start(ctx context.Context, opt Options) (<-chan Result, error)
}

// Reason codes mirror what browser recognizers report.
const (
	CodeNoSpeech     = "no-speech"
	CodeAudioCapture = "audio-capture"
	CodeNotAllowed   = "not-allowed"
	CodeNetwork      = "network"
	CodeAborted      = "aborted"
)

type RecognitionError struct {
	Code string
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

func Code(err error) string {
	var re *RecognitionError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// Unavailable is the recognizer used when no input device exists.
type Unavailable struct{}

func (Unavailable) Start(context.Context, Options) (<-chan Result, error) {
	return nil, ErrUnavailable
}
