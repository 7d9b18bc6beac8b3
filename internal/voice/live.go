package voice

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"echomarket/internal/nlu"
	"echomarket/internal/speech"
	"echomarket/pkg/catalog"
)

const DefaultRestartDelay = 400 * time.Millisecond

// Storefront receives the actions of recognised commands.
type Storefront interface {
	AddToCart(p catalog.Product) error
	// Navigate must not block on stopping the live widget.
	Navigate(s nlu.Screen)
}

type LiveConfig struct {
	Lang         string
	RestartDelay time.Duration
	Notify       func(string)
}

type liveEvent interface{}

type (
	heardEvent struct {
		token uint64
		res   speech.Result
	}
	endedEvent struct {
		token uint64
		err   error
	}
	rearmEvent       struct{ token uint64 }
	interpretedEvent struct{ reply nlu.Reply }
	spokenEvent      struct{ actions []nlu.Action }
)

// Live keeps one-shot recognition running back to back while a catalog or
// cart screen is shown. Every arm bumps a token; events from older arms are
// dropped, so a late end callback can never start a second listener or revive
// a stopped widget.
type Live struct {
	interp  *nlu.Interpreter
	speaker speech.Speaker
	rec     speech.Recognizer
	arb     *speech.Arbiter
	store   Storefront
	cfg     LiveConfig

	events chan liveEvent

	mu             sync.Mutex
	cancel         context.CancelFunc
	done           chan struct{}
	lastTranscript string
	lastReply      string
	arms           int

	// owned by the run loop
	token        uint64
	listening    bool
	speaking     bool
	processing   bool
	unavailable  bool
	cancelListen context.CancelFunc
}

func NewLive(interp *nlu.Interpreter, sp speech.Speaker, rec speech.Recognizer, arb *speech.Arbiter, store Storefront, cfg LiveConfig) *Live {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	return &Live{
		interp:  interp,
		speaker: sp,
		rec:     rec,
		arb:     arb,
		store:   store,
		cfg:     cfg,
		events:  make(chan liveEvent, 16),
	}
}

// Start arms the widget. A Live runs once; mount a new one after Stop.
func (l *Live) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		return errors.New("live commands already started")
	}

	lease, err := l.arb.Acquire("live")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.run(ctx, lease)
	return nil
}

func (l *Live) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *Live) Running() bool {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (l *Live) LastTranscript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastTranscript
}

func (l *Live) LastReply() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastReply
}

// Arms counts recognitions started since creation.
func (l *Live) Arms() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.arms
}

func (l *Live) lang() string {
	if l.cfg.Lang == "" {
		return speech.DefaultLang
	}
	return l.cfg.Lang
}

func (l *Live) notify(msg string) {
	log.Info("Notice", "msg", msg)
	if l.cfg.Notify != nil {
		l.cfg.Notify(msg)
	}
}

func (l *Live) run(ctx context.Context, lease *speech.Lease) {
	defer func() {
		l.stopListening()
		l.speaker.Cancel()
		lease.Release()
		close(l.done)
		log.Info("Live commands stopped")
	}()

	log.Info("Live commands started")
	l.arm(ctx)

	for {
		var ev liveEvent
		select {
		case <-ctx.Done():
			return
		case ev = <-l.events:
		}

		switch e := ev.(type) {
		case heardEvent:
			if e.token != l.token {
				continue
			}
			l.onResult(ctx, e.res)

		case endedEvent:
			if e.token != l.token {
				continue
			}
			l.listening = false
			l.cancelListen = nil
			if e.err != nil {
				l.onStartError(e.err)
				if l.unavailable {
					continue
				}
			}
			l.scheduleRearm(ctx)

		case rearmEvent:
			if e.token == l.token {
				l.arm(ctx)
			}

		case interpretedEvent:
			l.onInterpreted(ctx, e.reply)

		case spokenEvent:
			l.speaking = false
			l.processing = false
			for _, a := range e.actions {
				if a.Kind == nlu.ActNavigate {
					l.store.Navigate(a.Screen)
				}
			}
			l.arm(ctx)
		}
	}
}

func (l *Live) post(ctx context.Context, ev liveEvent) {
	select {
	case l.events <- ev:
	case <-ctx.Done():
	}
}

func (l *Live) arm(ctx context.Context) {
	if ctx.Err() != nil || l.speaking || l.listening || l.unavailable {
		return
	}

	l.token++
	token := l.token
	l.listening = true

	lctx, cancel := context.WithCancel(ctx)
	l.cancelListen = cancel

	l.mu.Lock()
	l.arms++
	l.mu.Unlock()

	go func() {
		ch, err := l.rec.Start(lctx, speech.Options{Lang: l.lang(), Interim: true})
		if err != nil {
			l.post(ctx, endedEvent{token: token, err: err})
			return
		}
		for r := range ch {
			l.post(ctx, heardEvent{token: token, res: r})
		}
		l.post(ctx, endedEvent{token: token})
	}()
}

func (l *Live) scheduleRearm(ctx context.Context) {
	token := l.token
	delay := l.cfg.RestartDelay
	go func() {
		if sleep(ctx, delay) {
			l.post(ctx, rearmEvent{token: token})
		}
	}()
}

func (l *Live) stopListening() {
	if l.cancelListen != nil {
		l.cancelListen()
		l.cancelListen = nil
	}
	l.listening = false
	// Orphan whatever the stopped recognizer still reports.
	l.token++
}

func (l *Live) onStartError(err error) {
	if errors.Is(err, speech.ErrUnavailable) {
		l.unavailable = true
		l.notify("Speech Recognition Not Available")
		return
	}
	l.notify("Error: " + err.Error())
}

func (l *Live) onResult(ctx context.Context, r speech.Result) {
	if r.Err != nil {
		log.Warn("Recognition error", "code", speech.Code(r.Err), "err", r.Err)
		l.notify("Error: " + r.Err.Error())
		return
	}

	l.mu.Lock()
	l.lastTranscript = r.Text
	l.mu.Unlock()

	if !r.Final {
		return
	}
	if l.processing {
		log.Debug("Dropped command, another is in flight", "text", r.Text)
		return
	}
	l.processing = true

	log.Info("Transcribed", "text", r.Text)
	go func() {
		reply := l.interp.Interpret(ctx, r.Text)
		l.post(ctx, interpretedEvent{reply: reply})
	}()
}

func (l *Live) onInterpreted(ctx context.Context, reply nlu.Reply) {
	actions := nlu.Dispatch(reply)
	for _, a := range actions {
		if a.Kind != nlu.ActAddToCart {
			continue
		}
		if err := l.store.AddToCart(a.Product); err != nil {
			log.Warn("Failed to add to cart", "product", a.Product.Name, "err", err)
			reply.Text = fmt.Sprintf("Sorry, %s is out of stock.", a.Product.Name)
		}
	}

	log.Info("Command", "intent", reply.Intent, "slot", reply.Slot, "reply", reply.Text)
	l.mu.Lock()
	l.lastReply = reply.Text
	l.mu.Unlock()

	l.stopListening()
	l.speaking = true
	go func() {
		if err := l.speaker.Speak(ctx, reply.Text, l.lang()); err != nil && ctx.Err() == nil {
			log.Error("Failed to speak", "err", err)
		}
		l.post(ctx, spokenEvent{actions: actions})
	}()
}
