package dialogue

import (
	"maps"
	"strings"
)

const DefaultCancelWord = "cancel"

// Script is the fixed list of prompts one screen walks through.
type Script struct {
	Name string

	// Intro is spoken once, before the first prompt, under IntroStage.
	Intro      []Utterance
	IntroStage Stage

	Prompts []Prompt

	CancelWord string
	CancelAck  string

	CompletingStage Stage
	DoneStage       Stage

	// Confirm builds the closing speech from the collected fields. It may
	// return an order.
	Confirm func(fields map[string]string) ([]Utterance, *Order)
}

func (sc *Script) cancelWord() string {
	if sc.CancelWord == "" {
		return DefaultCancelWord
	}
	return strings.ToLower(sc.CancelWord)
}

// State is one session's position in its script. It is a value: Transition
// never mutates its input.
type State struct {
	Phase           Phase
	Index           int
	Stage           Stage
	Fields          map[string]string
	CancelRequested bool
	Order           *Order

	queue     []Utterance
	introLeft int
}

func NewState(sc *Script) State {
	st := State{Phase: Idle, Fields: map[string]string{}}
	st.Stage = stageOf(sc, st)
	return st
}

// Pending is the number of utterances queued behind the one playing.
func (s State) Pending() int { return len(s.queue) }

// Transition applies ev to st. Speech is released one utterance per
// SpeechDone; Listen is only ever emitted after the last queued utterance of a
// prompt has finished.
func Transition(sc *Script, st State, ev Event) (State, []Effect) {
	var effects []Effect

	switch e := ev.(type) {
	case Start:
		if st.Phase != Idle {
			return st, nil
		}
		st.Fields = map[string]string{}
		st.CancelRequested = false
		st, effects = enterPrompt(sc, st, 0, sc.Intro)
		if st.Phase != Complete {
			st.introLeft = len(sc.Intro)
		}

	case SpeechDone:
		if st.introLeft > 0 {
			st.introLeft--
		}
		switch st.Phase {
		case Prompting:
			if len(st.queue) > 0 {
				st, effects = speakNext(st)
				break
			}
			st.Phase = Listening
			p := sc.Prompts[st.Index]
			effects = []Effect{Listen{Field: p.Field, Cue: p.Cue}}
		case Completing:
			if len(st.queue) > 0 {
				st, effects = speakNext(st)
				break
			}
			st = finish(st)
			effects = []Effect{Finish{Fields: maps.Clone(st.Fields), Order: st.Order}}
		}

	case Heard:
		if st.Phase != Listening {
			return st, nil
		}
		text := strings.TrimSpace(e.Text)
		switch {
		case strings.Contains(strings.ToLower(text), sc.cancelWord()):
			st.Fields = map[string]string{}
			st.CancelRequested = true
			var lead []Utterance
			if sc.CancelAck != "" {
				lead = []Utterance{{Text: sc.CancelAck}}
			}
			st, effects = enterPrompt(sc, st, 0, lead)
		case text == "":
			st, effects = enterPrompt(sc, st, st.Index, nil)
		default:
			fields := maps.Clone(st.Fields)
			fields[sc.Prompts[st.Index].Field] = e.Text
			st.Fields = fields
			st.CancelRequested = false
			st, effects = enterPrompt(sc, st, st.Index+1, nil)
		}

	case HeardError:
		if st.Phase != Listening {
			return st, nil
		}
		msg := "Speech recognition failed"
		if e.Err != nil {
			msg = "Error: " + e.Err.Error()
		}
		effects = []Effect{Notify{Text: msg}}

	case ListenTimeout:
		if st.Phase != Listening {
			return st, nil
		}
		st, effects = enterPrompt(sc, st, st.Index, nil)
	}

	st.Stage = stageOf(sc, st)
	return st, effects
}

func enterPrompt(sc *Script, st State, i int, lead []Utterance) (State, []Effect) {
	if i >= len(sc.Prompts) {
		return enterCompleting(sc, st, lead)
	}

	st.Phase = Prompting
	st.Index = i
	st.introLeft = 0
	st.queue = append(append([]Utterance(nil), lead...), Utterance{Text: sc.Prompts[i].Text})
	return speakNext(st)
}

func enterCompleting(sc *Script, st State, lead []Utterance) (State, []Effect) {
	st.Phase = Completing
	st.Index = len(sc.Prompts)
	st.queue = append([]Utterance(nil), lead...)
	if sc.Confirm != nil {
		closing, order := sc.Confirm(maps.Clone(st.Fields))
		st.queue = append(st.queue, closing...)
		st.Order = order
	}

	if len(st.queue) == 0 {
		st = finish(st)
		return st, []Effect{Finish{Fields: maps.Clone(st.Fields), Order: st.Order}}
	}
	return speakNext(st)
}

func speakNext(st State) (State, []Effect) {
	u := st.queue[0]
	st.queue = st.queue[1:]
	return st, []Effect{Speak{Utterance: u}}
}

func finish(st State) State {
	st.Phase = Complete
	st.queue = nil
	st.introLeft = 0
	return st
}

func stageOf(sc *Script, st State) Stage {
	switch st.Phase {
	case Idle:
		if len(sc.Intro) > 0 && sc.IntroStage != "" {
			return sc.IntroStage
		}
		if len(sc.Prompts) > 0 {
			return sc.Prompts[0].Stage
		}
		return sc.CompletingStage
	case Prompting, Listening:
		if st.introLeft > 0 && sc.IntroStage != "" {
			return sc.IntroStage
		}
		return sc.Prompts[st.Index].Stage
	case Completing:
		if st.introLeft > 0 && sc.IntroStage != "" {
			return sc.IntroStage
		}
		return sc.CompletingStage
	default:
		return sc.DoneStage
	}
}
