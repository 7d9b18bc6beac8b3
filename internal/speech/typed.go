package speech

import (
	"context"
	"strings"
	"sync"
)

const typedBacklog = 8

// Typed is a recognizer fed with text instead of audio. Lines said while no
// recognition is running wait in a small backlog.
type Typed struct {
	mu      sync.Mutex
	active  chan Result
	cancel  context.CancelFunc
	oneShot bool
	backlog []string
}

func NewTyped() *Typed { return &Typed{} }

func (t *Typed) Start(ctx context.Context, opt Options) (<-chan Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		t.closeLocked()
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Result, typedBacklog)
	t.active = ch
	t.cancel = cancel
	t.oneShot = !opt.Continuous

	for len(t.backlog) > 0 && t.active != nil {
		line := t.backlog[0]
		t.backlog = t.backlog[1:]
		t.deliverLocked(line)
	}

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.active == ch {
			t.closeLocked()
		}
	}()

	return ch, nil
}

// Say delivers text as a final transcript.
func (t *Typed) Say(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		if len(t.backlog) == typedBacklog {
			t.backlog = t.backlog[1:]
		}
		t.backlog = append(t.backlog, text)
		return
	}
	t.deliverLocked(text)
}

func (t *Typed) Listening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil
}

func (t *Typed) deliverLocked(text string) {
	select {
	case t.active <- Result{Text: text, Final: true}:
	default:
		return
	}
	if t.oneShot {
		t.closeLocked()
	}
}

func (t *Typed) closeLocked() {
	close(t.active)
	t.active = nil
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
