package app

import (
	"context"
	"fmt"
	log "log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"echomarket/internal/dialogue"
	"echomarket/internal/nlu"
	"echomarket/internal/shop"
	"echomarket/internal/speech"
	"echomarket/internal/store"
	"echomarket/internal/voice"
	"echomarket/pkg/catalog"
	"echomarket/pkg/protocol"
)

// Publisher carries storefront actions to the UI.
type Publisher interface {
	Transmit(msg protocol.Message) error
}

type Config struct {
	Lang          string
	Settle        time.Duration
	ListenTimeout time.Duration
	RestartDelay  time.Duration
	SpellPause    time.Duration
	Cue           func()
	Notify        func(string)
	Rand          dialogue.Rand
}

type Deps struct {
	Interpreter *nlu.Interpreter
	Speaker     speech.Speaker
	Recognizer  speech.Recognizer
	// Typed receives `say` lines from the control socket. Nil disables it.
	Typed *speech.Typed
	Cart  *shop.Cart
	Prefs *store.Prefs
	Bus   Publisher
}

// session is whatever currently drives the speech devices.
type session interface {
	Stop()
}

// App tracks the visible screen and mounts the matching voice mode: live
// commands on the catalog and cart, a dialogue on sign-in and checkout.
// Screen changes run one at a time on the Run goroutine.
type App struct {
	deps Deps
	cfg  Config
	arb  speech.Arbiter

	qmu   sync.Mutex
	queue []func(ctx context.Context)
	wake  chan struct{}

	mu        sync.Mutex
	screen    nlu.Screen
	user      string
	owner     session
	lastOrder *dialogue.Order
}

func New(deps Deps, cfg Config) *App {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.SpellPause == 0 {
		cfg.SpellPause = dialogue.SpellPause
	}
	if deps.Cart == nil {
		deps.Cart = shop.NewCart()
	}

	a := &App{
		deps: deps,
		cfg:  cfg,
		wake: make(chan struct{}, 1),
	}
	if deps.Prefs != nil {
		a.user, _ = deps.Prefs.User()
	}
	return a
}

// Run applies screen changes until ctx is done, then stops the active
// voice session.
func (a *App) Run(ctx context.Context) {
	defer func() {
		a.mu.Lock()
		owner := a.owner
		a.owner = nil
		a.mu.Unlock()
		if owner != nil {
			owner.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		}
		for op := a.next(); op != nil && ctx.Err() == nil; op = a.next() {
			op(ctx)
		}
	}
}

// do queues op for the Run goroutine. It never blocks.
func (a *App) do(op func(ctx context.Context)) {
	a.qmu.Lock()
	a.queue = append(a.queue, op)
	a.qmu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *App) next() func(ctx context.Context) {
	a.qmu.Lock()
	defer a.qmu.Unlock()
	if len(a.queue) == 0 {
		return nil
	}
	op := a.queue[0]
	a.queue = a.queue[1:]
	return op
}

// Start shows the first screen: the catalog for a remembered user, sign-in
// otherwise.
func (a *App) Start() {
	if a.User() != "" {
		a.Navigate(nlu.ScreenProducts)
		return
	}
	a.Navigate(nlu.ScreenSignIn)
}

// Navigate switches screens on behalf of the voice layer and tells the UI.
// It never blocks on the session being replaced.
func (a *App) Navigate(s nlu.Screen) {
	a.do(func(ctx context.Context) {
		shown := a.mount(ctx, s)
		a.publish(protocol.GoTo(string(shown)))
	})
}

// Mount follows a screen the UI reports as shown.
func (a *App) Mount(s nlu.Screen) {
	a.do(func(ctx context.Context) {
		if shown := a.mount(ctx, s); shown != s {
			a.publish(protocol.GoTo(string(shown)))
		}
	})
}

func (a *App) Unmount(s nlu.Screen) {
	a.do(func(context.Context) {
		a.mu.Lock()
		if a.screen != s {
			a.mu.Unlock()
			return
		}
		owner := a.owner
		a.owner = nil
		a.screen = ""
		a.mu.Unlock()

		if owner != nil {
			owner.Stop()
		}
		log.Info("Screen unmounted", "screen", s)
	})
}

func (a *App) AddToCart(p catalog.Product) error {
	item, err := a.deps.Cart.Add(p)
	if err != nil {
		return err
	}
	log.Info("Added to cart", "product", p.Name, "quantity", item.Quantity)
	a.publish(protocol.AddProduct(p.ID))
	return nil
}

func (a *App) Logout() error {
	a.mu.Lock()
	a.user = ""
	a.mu.Unlock()

	if a.deps.Prefs != nil {
		if err := a.deps.Prefs.Logout(); err != nil {
			return err
		}
	}
	log.Info("Signed out")
	a.Navigate(nlu.ScreenSignIn)
	return nil
}

// mount stops the current session before starting the next one, so the
// devices always have a single owner. Signed-out users are held on sign-in
// and signed-in users skip it. It returns the screen actually shown.
func (a *App) mount(ctx context.Context, s nlu.Screen) nlu.Screen {
	user := a.User()
	switch {
	case user == "" && s != nlu.ScreenSignIn:
		s = nlu.ScreenSignIn
	case user != "" && s == nlu.ScreenSignIn:
		s = nlu.ScreenProducts
	}

	a.mu.Lock()
	owner := a.owner
	a.owner = nil
	a.screen = s
	a.mu.Unlock()

	if owner != nil {
		owner.Stop()
	}

	next, err := a.startSession(ctx, s)
	if err != nil {
		log.Error("Failed to start voice session", "screen", s, "err", err)
		a.notify("Voice unavailable: " + err.Error())
	}

	a.mu.Lock()
	a.owner = next
	a.mu.Unlock()

	log.Info("Screen mounted", "screen", s)
	return s
}

func (a *App) startSession(ctx context.Context, s nlu.Screen) (session, error) {
	switch s {
	case nlu.ScreenProducts, nlu.ScreenCart:
		live := a.newLive()
		if err := live.Start(ctx); err != nil {
			return nil, err
		}
		return live, nil

	case nlu.ScreenSignIn:
		c := voice.NewController(dialogue.SignIn(), a.deps.Speaker, a.deps.Recognizer, &a.arb, a.controllerConfig(), a.onSignedIn)
		if err := c.Start(ctx); err != nil {
			return nil, err
		}
		return c, nil

	case nlu.ScreenCheckout:
		var c *voice.Controller
		sc := dialogue.Checkout(a.deps.Cart.Items(), a.cfg.Rand, a.cfg.SpellPause)
		c = voice.NewController(sc, a.deps.Speaker, a.deps.Recognizer, &a.arb, a.controllerConfig(), func(f dialogue.Finish) {
			a.onCheckedOut(f)
			a.do(func(ctx context.Context) { a.resumeLive(ctx, s, c) })
		})
		if err := c.Start(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}

	return nil, fmt.Errorf("unknown screen %q", s)
}

func (a *App) newLive() *voice.Live {
	return voice.NewLive(a.deps.Interpreter, a.deps.Speaker, a.deps.Recognizer, &a.arb, a, voice.LiveConfig{
		Lang:         a.cfg.Lang,
		RestartDelay: a.cfg.RestartDelay,
		Notify:       a.notify,
	})
}

// resumeLive hands the devices to live commands once a finished dialogue
// has released them. Nothing happens if the screen moved on meanwhile.
func (a *App) resumeLive(ctx context.Context, s nlu.Screen, finished session) {
	a.mu.Lock()
	if a.owner != finished || a.screen != s {
		a.mu.Unlock()
		return
	}
	a.owner = nil
	a.mu.Unlock()

	finished.Stop()

	live := a.newLive()
	if err := live.Start(ctx); err != nil {
		log.Error("Failed to resume live commands", "screen", s, "err", err)
		a.notify("Voice unavailable: " + err.Error())
		return
	}

	a.mu.Lock()
	a.owner = live
	a.mu.Unlock()
	log.Info("Live commands resumed", "screen", s)
}

func (a *App) controllerConfig() voice.Config {
	return voice.Config{
		Lang:          a.cfg.Lang,
		Settle:        a.cfg.Settle,
		ListenTimeout: a.cfg.ListenTimeout,
		Cue:           a.cfg.Cue,
		Notify:        a.notify,
	}
}

func (a *App) onSignedIn(f dialogue.Finish) {
	name := f.Fields[dialogue.FieldUsername]

	a.mu.Lock()
	a.user = name
	a.mu.Unlock()

	if a.deps.Prefs != nil {
		if err := a.deps.Prefs.SetUser(name); err != nil {
			log.Error("Failed to remember user", "err", err)
		}
	}
	log.Info("Signed in", "user", name)
	a.publish(protocol.Login(name))
	a.Navigate(nlu.ScreenProducts)
}

// onCheckedOut records the order and empties the cart. The confirmation
// stays on screen.
func (a *App) onCheckedOut(f dialogue.Finish) {
	if f.Order == nil {
		return
	}

	a.mu.Lock()
	order := *f.Order
	a.lastOrder = &order
	a.mu.Unlock()

	a.deps.Cart.Clear()
	log.Info("Order placed", "id", order.ID, "eta_days", order.EtaDays)
	a.publish(protocol.OrderPlaced(order.ID, order.EtaDays))
}

func (a *App) publish(msg protocol.Message) {
	if a.deps.Bus == nil {
		return
	}
	if err := a.deps.Bus.Transmit(msg); err != nil {
		log.Warn("Failed to publish", "verb", msg.Verb, "err", err)
	}
}

// notify shows msg locally and on the storefront.
func (a *App) notify(msg string) {
	if a.cfg.Notify != nil {
		a.cfg.Notify(msg)
	}
	a.publish(protocol.Say(msg))
}

func (a *App) Screen() nlu.Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

func (a *App) User() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

func (a *App) LastOrder() (dialogue.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastOrder == nil {
		return dialogue.Order{}, false
	}
	return *a.lastOrder, true
}

func (a *App) Cart() *shop.Cart { return a.deps.Cart }
