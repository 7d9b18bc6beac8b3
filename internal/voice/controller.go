package voice

import (
	"context"
	"errors"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"echomarket/internal/dialogue"
	"echomarket/internal/speech"
)

const DefaultSettle = 600 * time.Millisecond

type Config struct {
	Lang string
	// Settle is waited before the first prompt so the screen can render.
	Settle time.Duration
	// ListenTimeout re-prompts a field nobody answered. Zero waits forever.
	ListenTimeout time.Duration
	// Cue runs before listens whose prompt asked for it.
	Cue func()
	// Notify shows a transient message.
	Notify func(string)
}

func (c Config) lang() string {
	if c.Lang == "" {
		return speech.DefaultLang
	}
	return c.Lang
}

func (c Config) notify(msg string) {
	if c.Notify != nil {
		c.Notify(msg)
	}
}

type envelope struct {
	turn uint64
	ev   dialogue.Event
}

// Controller runs one dialogue script against the speech devices. All state
// transitions happen on a single goroutine; device work reports back as
// events tagged with the turn that issued it.
type Controller struct {
	ID string

	script   *dialogue.Script
	speaker  speech.Speaker
	rec      speech.Recognizer
	arb      *speech.Arbiter
	cfg      Config
	onFinish func(dialogue.Finish)

	events chan envelope

	mu          sync.Mutex
	state       dialogue.State
	cancel      context.CancelFunc
	done        chan struct{}
	unavailable bool

	// owned by the run loop
	turn       uint64
	stopListen context.CancelFunc
}

func NewController(sc *dialogue.Script, sp speech.Speaker, rec speech.Recognizer, arb *speech.Arbiter, cfg Config, onFinish func(dialogue.Finish)) *Controller {
	return &Controller{
		ID:       uuid.NewString(),
		script:   sc,
		speaker:  sp,
		rec:      rec,
		arb:      arb,
		cfg:      cfg,
		onFinish: onFinish,
		events:   make(chan envelope, 4),
		state:    dialogue.NewState(sc),
	}
}

func (c *Controller) Start(ctx context.Context) error {
	lease, err := c.arb.Acquire(c.script.Name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	log.Info("Dialogue started", "script", c.script.Name, "session", c.ID)
	go c.run(ctx, lease)
	return nil
}

// Stop tears the session down: recognition is stopped, queued speech is
// cancelled and the devices are released. It waits for the loop to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the session has ended. A controller that was never
// started counts as ended.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return c.done
}

func (c *Controller) State() dialogue.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) run(ctx context.Context, lease *speech.Lease) {
	var finished *dialogue.Finish

	defer func() {
		if c.stopListen != nil {
			c.stopListen()
		}
		c.speaker.Cancel()
		lease.Release()
		close(c.done)
		log.Info("Dialogue stopped", "script", c.script.Name, "session", c.ID, "stage", c.State().Stage)
		if finished != nil && c.onFinish != nil {
			c.onFinish(*finished)
		}
	}()

	if !sleep(ctx, c.cfg.Settle) {
		return
	}

	st := c.State()
	pending := []envelope{{turn: c.turn, ev: dialogue.Start{}}}

	for {
		var env envelope
		if len(pending) > 0 {
			env, pending = pending[0], pending[1:]
		} else {
			select {
			case <-ctx.Done():
				return
			case env = <-c.events:
			}
		}

		if env.turn != c.turn {
			log.Debug("Dropped stale event", "event", env.ev, "turn", env.turn, "current", c.turn)
			continue
		}

		var effects []dialogue.Effect
		st, effects = dialogue.Transition(c.script, st, env.ev)
		c.mu.Lock()
		c.state = st
		c.mu.Unlock()

		log.Debug("Dialogue step", "session", c.ID, "phase", st.Phase, "stage", st.Stage, "effects", len(effects))

		for _, eff := range effects {
			switch e := eff.(type) {
			case dialogue.Speak:
				c.speak(ctx, e.Utterance)
			case dialogue.Listen:
				c.listen(ctx, e)
			case dialogue.Notify:
				log.Warn("Dialogue notice", "session", c.ID, "msg", e.Text)
				c.cfg.notify(e.Text)
			case dialogue.Finish:
				finished = &e
				return
			}
		}
	}
}

func (c *Controller) post(ctx context.Context, env envelope) {
	select {
	case c.events <- env:
	case <-ctx.Done():
	}
}

func (c *Controller) speak(ctx context.Context, u dialogue.Utterance) {
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
	c.turn++
	turn := c.turn

	go func() {
		if !sleep(ctx, u.Pause) {
			return
		}
		if err := c.speaker.Speak(ctx, u.Text, c.cfg.lang()); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to speak", "text", u.Text, "err", err)
		}
		c.post(ctx, envelope{turn: turn, ev: dialogue.SpeechDone{}})
	}()
}

func (c *Controller) listen(ctx context.Context, l dialogue.Listen) {
	c.turn++
	turn := c.turn

	lctx, cancel := context.WithCancel(ctx)
	c.stopListen = cancel

	if c.cfg.ListenTimeout > 0 {
		go func() {
			if sleep(lctx, c.cfg.ListenTimeout) {
				log.Info("Listen timed out", "field", l.Field)
				c.post(ctx, envelope{turn: turn, ev: dialogue.ListenTimeout{}})
			}
		}()
	}

	go func() {
		if l.Cue && c.cfg.Cue != nil {
			c.cfg.Cue()
		}

		ch, err := c.rec.Start(lctx, speech.Options{Lang: c.cfg.lang()})
		if err != nil {
			if errors.Is(err, speech.ErrUnavailable) {
				if c.unavailableOnce() {
					c.post(ctx, envelope{turn: turn, ev: dialogue.HeardError{Err: err}})
				}
				return
			}
			c.post(ctx, envelope{turn: turn, ev: dialogue.HeardError{Err: err}})
			return
		}

		log.Info("Starting listening", "field", l.Field)
		for r := range ch {
			switch {
			case r.Err != nil:
				c.post(ctx, envelope{turn: turn, ev: dialogue.HeardError{Err: r.Err}})
			case r.Final:
				log.Info("Heard", "field", l.Field, "text", r.Text)
				c.post(ctx, envelope{turn: turn, ev: dialogue.Heard{Text: r.Text}})
				return
			}
		}
	}()
}

func (c *Controller) unavailableOnce() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return false
	}
	c.unavailable = true
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
