package voice

import (
	"context"
	"sync"
	"time"

	"echomarket/internal/nlu"
	"echomarket/internal/speech"
	"echomarket/pkg/catalog"
)

type fakeSpeaker struct {
	mu      sync.Mutex
	delay   time.Duration
	active  int
	spoken  []string
	cancels int
}

func (f *fakeSpeaker) Speak(ctx context.Context, text, _ string) error {
	f.mu.Lock()
	f.active++
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSpeaker) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeSpeaker) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active > 0
}

func (f *fakeSpeaker) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeSpeaker) Cancels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

// scriptedRecognizer hands out one scripted turn per Start. With no turns
// left it stays silent until stopped.
type scriptedRecognizer struct {
	mu        sync.Mutex
	speaker   *fakeSpeaker
	turns     [][]speech.Result
	starts    int
	overlaps  int
	active    int
	maxActive int
	opts      []speech.Options
}

func (r *scriptedRecognizer) Start(ctx context.Context, opt speech.Options) (<-chan speech.Result, error) {
	r.mu.Lock()
	r.starts++
	r.opts = append(r.opts, opt)
	if r.speaker != nil && r.speaker.Speaking() {
		r.overlaps++
	}
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	var turn []speech.Result
	if len(r.turns) > 0 {
		turn, r.turns = r.turns[0], r.turns[1:]
	}
	r.mu.Unlock()

	ch := make(chan speech.Result)
	go func() {
		defer func() {
			r.mu.Lock()
			r.active--
			r.mu.Unlock()
			close(ch)
		}()
		if turn == nil {
			<-ctx.Done()
			return
		}
		for _, res := range turn {
			select {
			case ch <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (r *scriptedRecognizer) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *scriptedRecognizer) Overlaps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlaps
}

func (r *scriptedRecognizer) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func final(text string) []speech.Result {
	return []speech.Result{{Text: text, Final: true}}
}

type notices struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notices) add(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *notices) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type fakeStore struct {
	mu               sync.Mutex
	speaker          *fakeSpeaker
	adds             []catalog.Product
	navs             []nlu.Screen
	navWhileSpeaking bool
	addErr           error
}

func (s *fakeStore) AddToCart(p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.adds = append(s.adds, p)
	return nil
}

func (s *fakeStore) Navigate(sc nlu.Screen) {
	speaking := s.speaker.Speaking()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navs = append(s.navs, sc)
	if speaking {
		s.navWhileSpeaking = true
	}
}

func (s *fakeStore) Adds() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Product(nil), s.adds...)
}

func (s *fakeStore) Navs() []nlu.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]nlu.Screen(nil), s.navs...)
}
