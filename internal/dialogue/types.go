package dialogue

import (
	"fmt"
	"time"
)

type Phase int

const (
	Idle Phase = iota
	Prompting
	Listening
	Completing
	Complete
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Prompting:
		return "prompting"
	case Listening:
		return "listening"
	case Completing:
		return "completing"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Stage is the screen-level name of where a session is.
type Stage string

const (
	AwaitUsername    Stage = "await_username"
	AwaitPassword    Stage = "await_password"
	SignInCompleting Stage = "completing"

	Summarizing  Stage = "summarizing"
	AwaitAddress Stage = "await_address"
	AwaitPayment Stage = "await_payment"
	Confirming   Stage = "confirming"
	Done         Stage = "done"
)

// Utterance is one speech-output operation. Pause is waited out before it
// starts.
type Utterance struct {
	Text  string
	Pause time.Duration
}

type Prompt struct {
	Text  string
	Field string
	Stage Stage
	// Cue plays the listening beep before the microphone opens.
	Cue bool
}

type Order struct {
	ID           string
	EtaDays      int
	Confirmation string
}

type Event interface{ isEvent() }

type (
	Start         struct{}
	SpeechDone    struct{}
	Heard         struct{ Text string }
	HeardError    struct{ Err error }
	ListenTimeout struct{}
)

func (Start) isEvent()         {}
func (SpeechDone) isEvent()    {}
func (Heard) isEvent()         {}
func (HeardError) isEvent()    {}
func (ListenTimeout) isEvent() {}

type Effect interface{ isEffect() }

type (
	Speak struct{ Utterance }
	// Listen opens one one-shot recognition for Field.
	Listen struct {
		Field string
		Cue   bool
	}
	Notify struct{ Text string }
	Finish struct {
		Fields map[string]string
		Order  *Order
	}
)

func (Speak) isEffect()  {}
func (Listen) isEffect() {}
func (Notify) isEffect() {}
func (Finish) isEffect() {}
